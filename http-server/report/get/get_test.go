package get

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/storage"
)

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) GetReport(ctx context.Context, actor access.Actor, id int64) (*storage.Report, error) {
	args := m.Called(ctx, actor, id)
	if rep := args.Get(0); rep != nil {
		return rep.(*storage.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportService) ListReports(ctx context.Context, actor access.Actor, f storage.ReportFilter) ([]storage.Report, error) {
	args := m.Called(ctx, actor, f)
	return args.Get(0).([]storage.Report), args.Error(1)
}

func (m *MockReportService) Summary(ctx context.Context, actor access.Actor, id int64) (string, error) {
	args := m.Called(ctx, actor, id)
	return args.String(0), args.Error(1)
}

var admin = access.Actor{ID: 1, Login: "admin", Role: access.RoleAdmin}

func newRouter(svc *MockReportService) http.Handler {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(access.WithActor(r.Context(), admin)))
		})
	})
	router.Get("/reports", ListReports(slog.Default(), svc))
	router.Get("/reports/{id}", GetReport(slog.Default(), svc))
	router.Get("/reports/{id}/summary", Summary(slog.Default(), svc))
	return router
}

func TestGetReport(t *testing.T) {
	svc := new(MockReportService)
	svc.On("GetReport", mock.Anything, admin, int64(4)).Return(&storage.Report{ID: 4, State: storage.ReportDraft}, nil)
	svc.On("GetReport", mock.Anything, admin, int64(5)).Return(nil, fmt.Errorf("get: %w", apperr.ErrNotFound))

	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/4", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var rep storage.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, int64(4), rep.ID)

	rr = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/5", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListReports_Filter(t *testing.T) {
	svc := new(MockReportService)
	svc.On("ListReports", mock.Anything, admin, storage.ReportFilter{
		From:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		CompanyIDs: []int64{1, 2},
		State:      storage.ReportSubmitted,
	}).Return([]storage.Report{{ID: 1}, {ID: 2}}, nil)

	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
		"/reports?from=2024-05-01&to=2024-05-31&state=submitted&company_id=1&company_id=2", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var reports []storage.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reports))
	assert.Len(t, reports, 2)
	svc.AssertExpectations(t)

	rr = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports?state=archived", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSummary(t *testing.T) {
	svc := new(MockReportService)
	svc.On("Summary", mock.Anything, admin, int64(4)).Return("Company: 1\nActivities: pour", nil)

	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/4/summary", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "Company: 1\nActivities: pour", rr.Body.String())
}
