package mysql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/service/production"
	"plantops/internal/service/reporting"
	"plantops/internal/storage"
)

var testAdmin = access.Actor{ID: 1, Login: "admin", Role: access.RoleAdmin}

// race starts n calls at once and returns their errors in call order.
func race(n int, call func(i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	gate := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-gate
			errs[i] = call(i)
		}(i)
	}
	close(gate)
	wg.Wait()
	return errs
}

func TestStorage_ConcurrentTelemetry(t *testing.T) {
	cleanupTestDB(t)
	ctx := context.Background()
	svc := production.New(slog.New(slog.NewTextHandler(io.Discard, nil)), testStorage, production.Options{})

	wc, err := svc.CreateWorkcenter(ctx, testAdmin, storage.Workcenter{Name: "Plant 9", ExternalID: "IDS-09", CompanyID: 1})
	require.NoError(t, err)
	c, err := svc.CreateContract(ctx, testAdmin, storage.Contract{
		Name: "SO-9", Customer: "Skyline Infra", CompanyID: 1, WorkcenterID: wc.ID, Product: "M25 concrete",
		StartDate: day(2024, 6, 1), EndDate: day(2024, 6, 30),
		MonthlyMGQ: decimal.NewFromInt(200), UnitRate: decimal.NewFromInt(4000),
	})
	require.NoError(t, err)
	months, err := svc.ConfirmContract(ctx, testAdmin, c.ID)
	require.NoError(t, err)
	_, err = svc.ScheduleMonthlyOrder(ctx, testAdmin, months[0].ID,
		map[time.Time]decimal.Decimal{day(2024, 6, 5): decimal.NewFromInt(35)})
	require.NoError(t, err)

	const payloads = 10
	at := time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC)
	errs := race(payloads, func(int) error {
		_, err := svc.IngestTelemetry(ctx, production.Telemetry{
			WorkcenterExternalID: "IDS-09",
			ProducedQty:          decimal.RequireFromString("1.5"),
			Timestamp:            &at,
		})
		return err
	})
	for _, err := range errs {
		require.NoError(t, err)
	}

	daily, err := testStorage.ListDailyOrders(ctx, months[0].ID)
	require.NoError(t, err)
	produced := decimal.Zero
	for _, o := range daily {
		if o.Date.Equal(day(2024, 6, 5)) {
			produced = produced.Add(o.ProducedQty)
		}
	}
	assert.True(t, decimal.NewFromInt(15).Equal(produced), "produced %s", produced)

	dockets, err := testStorage.ListDockets(ctx, months[0].ID)
	require.NoError(t, err)
	var telemetry int
	for _, d := range dockets {
		if d.Source == storage.DocketTelemetry {
			telemetry++
		}
	}
	assert.Equal(t, payloads, telemetry)
}

func TestStorage_ConcurrentSubmit(t *testing.T) {
	cleanupTestDB(t)
	ctx := context.Background()
	svc := reporting.New(slog.New(slog.NewTextHandler(io.Discard, nil)), testStorage)

	r, err := svc.CreateReport(ctx, testAdmin, reporting.ReportInput{Scope: storage.Scope{CompanyID: 1}})
	require.NoError(t, err)

	errs := race(2, func(int) error {
		_, err := svc.Submit(ctx, testAdmin, r.ID)
		return err
	})

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrInvalidTransition):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
}
