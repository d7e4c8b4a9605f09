package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantops/internal/config"
	generate_excel "plantops/internal/service/generate-excel"
	"plantops/internal/service/production"
	"plantops/internal/service/reporting"
	"plantops/internal/storage/memory"
)

type client struct {
	t      *testing.T
	srv    *httptest.Server
	login  string
	pass   string
	header map[string]string
}

func (c client) do(method, path, body string) (int, []byte) {
	c.t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, rd)
	require.NoError(c.t, err)
	if c.login != "" {
		req.SetBasicAuth(c.login, c.pass)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Config{
		CORS:      config.CORS{AllowedOrigins: []string{"http://localhost:5173"}},
		Telemetry: config.Telemetry{Token: "plant-secret"},
		Admin:     config.Admin{Login: "admin", Password: "admin-pass"},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()

	require.NoError(t, seedAdmin(context.Background(), cfg.Admin, store, log))
	// a second call finds the existing account
	require.NoError(t, seedAdmin(context.Background(), cfg.Admin, store, log))

	prod := production.New(log, store, production.Options{
		MaxOrderQty: decimal.NewFromInt(7),
		Location:    time.UTC,
	})
	svc := services{
		reporting:  reporting.New(log, store),
		production: prod,
		excel:      generate_excel.NewGenerateService(prod),
	}

	srv := httptest.NewServer(routes(cfg, log, store, svc))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthAndAuth(t *testing.T) {
	srv := newTestServer(t)

	status, _ := client{t: t, srv: srv}.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = client{t: t, srv: srv}.do(http.MethodGet, "/api/reports", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = client{t: t, srv: srv, login: "admin", pass: "wrong"}.do(http.MethodGet, "/api/reports", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDailyReportFlow(t *testing.T) {
	srv := newTestServer(t)
	admin := client{t: t, srv: srv, login: "admin", pass: "admin-pass"}
	manager := client{t: t, srv: srv, login: "ravi", pass: "manager-pass"}

	status, body := admin.do(http.MethodPost, "/api/admin/templates/metric",
		`{"name":"Trucks dispatched","metric_type":"int","default":{"int_value":0},"required":true}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = admin.do(http.MethodPost, "/api/admin/users",
		`{"login":"ravi","password":"manager-pass","role":"manager","company_ids":[1]}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	// managers cannot reach the admin surface
	status, _ = manager.do(http.MethodGet, "/api/admin/users", "")
	assert.Equal(t, http.StatusForbidden, status)

	status, body = manager.do(http.MethodPost, "/api/reports", `{"date":"2024-01-05","company_id":1,"activities":"pour at site B"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	var report struct {
		ID          int64 `json:"id"`
		MetricLines []struct {
			ID int64 `json:"id"`
		} `json:"metric_lines"`
	}
	require.NoError(t, json.Unmarshal(body, &report))
	require.Len(t, report.MetricLines, 1)

	status, _ = manager.do(http.MethodPost, "/api/reports", `{"date":"2024-01-05","company_id":2}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = manager.do(http.MethodPut, fmt.Sprintf("/api/reports/%d/metrics/%d", report.ID, report.MetricLines[0].ID),
		`{"int_value":14}`)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = manager.do(http.MethodPost, fmt.Sprintf("/api/reports/%d/submit", report.ID), "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"submitted"`)

	status, _ = manager.do(http.MethodPost, fmt.Sprintf("/api/reports/%d/complaints", report.ID), `{"description":"late truck"}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = manager.do(http.MethodGet, fmt.Sprintf("/api/reports/%d/summary", report.ID), "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Trucks dispatched")

	status, body = manager.do(http.MethodGet, fmt.Sprintf("/api/reports/%d/pdf", report.ID), "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasPrefix(string(body), "%PDF-"))
}

func TestProductionFlow(t *testing.T) {
	srv := newTestServer(t)
	admin := client{t: t, srv: srv, login: "admin", pass: "admin-pass"}
	plant := client{t: t, srv: srv, header: map[string]string{"Authorization": "Bearer plant-secret"}}

	status, body := admin.do(http.MethodPost, "/api/admin/workcenters", `{"name":"Batching plant 1","external_id":"BP-01"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	var wc struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &wc))

	status, body = admin.do(http.MethodPost, "/api/admin/contracts", fmt.Sprintf(
		`{"name":"C-1","customer":"Acme","workcenter_id":%d,"start_date":"2024-01-01","end_date":"2024-01-31","monthly_mgq":"70","unit_rate":"100"}`,
		wc.ID))
	require.Equal(t, http.StatusCreated, status, string(body))
	var contract struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &contract))

	status, body = admin.do(http.MethodPost, fmt.Sprintf("/api/admin/contracts/%d/confirm", contract.ID), "")
	require.Equal(t, http.StatusOK, status, string(body))
	var monthly []struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &monthly))
	require.Len(t, monthly, 1)

	status, body = admin.do(http.MethodPost, fmt.Sprintf("/api/admin/monthly/%d/schedule", monthly[0].ID), "")
	require.Equal(t, http.StatusOK, status, string(body))
	var daily []struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &daily))
	require.NotEmpty(t, daily)

	// a hand-written docket that is cancelled again does not reach the invoice
	status, body = admin.do(http.MethodPost, fmt.Sprintf("/api/production/daily/%d/dockets", daily[0].ID),
		`{"docket_no":"PL-17","qty":"5","runtime_minutes":"30"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	var manual struct {
		Docket struct {
			ID    int64  `json:"id"`
			State string `json:"state"`
		} `json:"docket"`
	}
	require.NoError(t, json.Unmarshal(body, &manual))
	assert.Equal(t, "in_production", manual.Docket.State)

	status, body = admin.do(http.MethodPost, fmt.Sprintf("/api/production/dockets/%d/state", manual.Docket.ID), `{"state":"cancel"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	status, _ = admin.do(http.MethodPost, fmt.Sprintf("/api/production/dockets/%d/state", manual.Docket.ID), `{"state":"delivered"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = client{t: t, srv: srv}.do(http.MethodPost, "/ids/workcenter/update", `{"workcenter_external_id":"BP-01"}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = plant.do(http.MethodPost, "/ids/workcenter/update",
		`{"workcenter_external_id":"BP-01","produced_m3":3,"runtime_min":45,"timestamp":"2024-01-05T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"status":"ok"`)

	status, _ = plant.do(http.MethodPost, "/ids/workcenter/update", `{"workcenter_external_id":"BP-99","produced_m3":1}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = admin.do(http.MethodPost, fmt.Sprintf("/api/admin/monthly/%d/invoice", monthly[0].ID), `{"invoice_date":"2024-02-01"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	var inv struct {
		ID             int64           `json:"id"`
		PrimeOutputQty decimal.Decimal `json:"prime_output_qty"`
		StandbyQty     decimal.Decimal `json:"standby_qty"`
	}
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.True(t, inv.PrimeOutputQty.Equal(decimal.NewFromInt(3)), inv.PrimeOutputQty.String())
	assert.True(t, inv.StandbyQty.Equal(decimal.NewFromInt(67)), inv.StandbyQty.String())

	status, body = admin.do(http.MethodGet, fmt.Sprintf("/api/production/invoices/%d/xlsx", inv.ID), "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasPrefix(string(body), "PK"))
}

func TestProductionCompanyScope(t *testing.T) {
	srv := newTestServer(t)
	admin := client{t: t, srv: srv, login: "admin", pass: "admin-pass"}
	outsider := client{t: t, srv: srv, login: "meera", pass: "outsider-pass"}
	insider := client{t: t, srv: srv, login: "ravi", pass: "insider-pass"}

	status, body := admin.do(http.MethodPost, "/api/admin/workcenters", `{"name":"Batching plant 1","external_id":"BP-01","company_id":1}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	var wc struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &wc))

	status, body = admin.do(http.MethodPost, "/api/admin/contracts", fmt.Sprintf(
		`{"name":"C-1","customer":"Acme","company_id":1,"workcenter_id":%d,"start_date":"2024-01-01","end_date":"2024-01-31","monthly_mgq":"70","unit_rate":"100"}`,
		wc.ID))
	require.Equal(t, http.StatusCreated, status, string(body))
	var contract struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &contract))

	status, body = admin.do(http.MethodPost, fmt.Sprintf("/api/admin/contracts/%d/confirm", contract.ID), "")
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = admin.do(http.MethodPost, "/api/admin/users",
		`{"login":"meera","password":"outsider-pass","role":"manager","company_ids":[2]}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	status, body = admin.do(http.MethodPost, "/api/admin/users",
		`{"login":"ravi","password":"insider-pass","role":"manager","company_ids":[1]}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	downtime := fmt.Sprintf(`{"contract_id":%d,"start":"2024-01-10T08:00:00Z","end":"2024-01-10T10:00:00Z"}`, contract.ID)

	status, _ = outsider.do(http.MethodGet, fmt.Sprintf("/api/production/contracts/%d", contract.ID), "")
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = outsider.do(http.MethodGet, fmt.Sprintf("/api/production/contracts/%d/monthly", contract.ID), "")
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = outsider.do(http.MethodPost, "/api/production/downtime", downtime)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = outsider.do(http.MethodGet, fmt.Sprintf("/api/production/downtime?contract_id=%d", contract.ID), "")
	assert.Equal(t, http.StatusForbidden, status)
	status, body = outsider.do(http.MethodGet, "/api/production/workcenters", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, body = insider.do(http.MethodGet, fmt.Sprintf("/api/production/contracts/%d", contract.ID), "")
	assert.Equal(t, http.StatusOK, status, string(body))
	status, body = insider.do(http.MethodPost, "/api/production/downtime", downtime)
	assert.Equal(t, http.StatusCreated, status, string(body))
	status, body = insider.do(http.MethodGet, "/api/production/workcenters", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "BP-01")
}
