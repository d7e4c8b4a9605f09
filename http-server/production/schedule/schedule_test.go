package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/storage"
)

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) ScheduleMonthlyOrder(ctx context.Context, actor access.Actor, id int64, overrides map[time.Time]decimal.Decimal) ([]storage.DailyOrder, error) {
	args := m.Called(ctx, actor, id, overrides)
	if v := args.Get(0); v != nil {
		return v.([]storage.DailyOrder), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockScheduler) ListDailyOrders(ctx context.Context, actor access.Actor, monthlyID int64) ([]storage.DailyOrder, error) {
	args := m.Called(ctx, actor, monthlyID)
	if v := args.Get(0); v != nil {
		return v.([]storage.DailyOrder), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockScheduler) ListDockets(ctx context.Context, actor access.Actor, monthlyID int64) ([]storage.Docket, error) {
	args := m.Called(ctx, actor, monthlyID)
	if v := args.Get(0); v != nil {
		return v.([]storage.Docket), args.Error(1)
	}
	return nil, args.Error(1)
}

var admin = access.Actor{ID: 1, Role: access.RoleAdmin}

func newRouter(svc *MockScheduler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(access.WithActor(r.Context(), admin)))
		})
	})
	router.Post("/monthly/{id}/schedule", ScheduleMonthlyOrder(slog.Default(), svc))
	router.Get("/monthly/{id}/daily", ListDailyOrders(slog.Default(), svc))
	router.Get("/monthly/{id}/dockets", ListDockets(slog.Default(), svc))
	return router
}

func TestScheduleMonthlyOrder_WithOverrides(t *testing.T) {
	svc := new(MockScheduler)
	day := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	svc.On("ScheduleMonthlyOrder", mock.Anything, admin, int64(7), mock.MatchedBy(func(o map[time.Time]decimal.Decimal) bool {
		q, ok := o[day]
		return len(o) == 1 && ok && q.Equal(decimal.RequireFromString("12.5"))
	})).Return([]storage.DailyOrder{{ID: 1, Name: "C-1/2024-02/0201/01"}}, nil)

	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/monthly/7/schedule",
		strings.NewReader(`{"overrides":[{"date":"2024-02-03","qty":"12.5"}]}`)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "C-1/2024-02/0201/01")
	svc.AssertExpectations(t)
}

func TestScheduleMonthlyOrder_EmptyBody(t *testing.T) {
	svc := new(MockScheduler)
	svc.On("ScheduleMonthlyOrder", mock.Anything, admin, int64(7), map[time.Time]decimal.Decimal{}).
		Return(nil, fmt.Errorf("schedule: %w", apperr.ErrInvalidTransition))

	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/monthly/7/schedule", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
	svc.AssertExpectations(t)
}

func TestScheduleMonthlyOrder_BadOverride(t *testing.T) {
	svc := new(MockScheduler)

	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/monthly/7/schedule",
		strings.NewReader(`{"overrides":[{"date":"03/02/2024","qty":1}]}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "ScheduleMonthlyOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListDockets(t *testing.T) {
	svc := new(MockScheduler)
	svc.On("ListDockets", mock.Anything, admin, int64(7)).Return([]storage.Docket{
		{ID: 1, DocketNo: "DKT/C-1/2024-02/0201/01", Source: storage.DocketSchedule},
	}, nil)

	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/monthly/7/dockets", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "DKT/C-1/2024-02/0201/01")
}
