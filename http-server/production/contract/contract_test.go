package contract

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

type MockContractService struct {
	mock.Mock
}

func (m *MockContractService) CreateWorkcenter(ctx context.Context, actor access.Actor, w storage.Workcenter) (*storage.Workcenter, error) {
	args := m.Called(ctx, actor, w)
	if v := args.Get(0); v != nil {
		return v.(*storage.Workcenter), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContractService) ListWorkcenters(ctx context.Context, actor access.Actor) ([]storage.Workcenter, error) {
	args := m.Called(ctx, actor)
	if v := args.Get(0); v != nil {
		return v.([]storage.Workcenter), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContractService) CreateContract(ctx context.Context, actor access.Actor, c storage.Contract) (*storage.Contract, error) {
	args := m.Called(ctx, actor, c)
	if v := args.Get(0); v != nil {
		return v.(*storage.Contract), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContractService) GetContract(ctx context.Context, actor access.Actor, id int64) (*storage.Contract, error) {
	args := m.Called(ctx, actor, id)
	if v := args.Get(0); v != nil {
		return v.(*storage.Contract), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContractService) ConfirmContract(ctx context.Context, actor access.Actor, id int64) ([]storage.MonthlyOrder, error) {
	args := m.Called(ctx, actor, id)
	if v := args.Get(0); v != nil {
		return v.([]storage.MonthlyOrder), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContractService) ListMonthlyOrders(ctx context.Context, actor access.Actor, contractID int64) ([]storage.MonthlyOrder, error) {
	args := m.Called(ctx, actor, contractID)
	if v := args.Get(0); v != nil {
		return v.([]storage.MonthlyOrder), args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	admin   = access.Actor{ID: 1, Role: access.RoleAdmin}
	manager = access.Actor{ID: 2, Role: access.RoleManager, CompanyIDs: []int64{2}}
)

func newRouter(svc *MockContractService) *chi.Mux {
	return newRouterAs(svc, admin)
}

func newRouterAs(svc *MockContractService, actor access.Actor) *chi.Mux {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(access.WithActor(r.Context(), actor)))
		})
	})
	router.Post("/workcenters", CreateWorkcenter(slog.Default(), svc))
	router.Get("/workcenters", ListWorkcenters(slog.Default(), svc))
	router.Post("/contracts", CreateContract(slog.Default(), svc))
	router.Get("/contracts/{id}", GetContract(slog.Default(), svc))
	router.Post("/contracts/{id}/confirm", ConfirmContract(slog.Default(), svc))
	router.Get("/contracts/{id}/monthly", ListMonthlyOrders(slog.Default(), svc))
	return router
}

func TestCreateWorkcenter(t *testing.T) {
	svc := new(MockContractService)
	svc.On("CreateWorkcenter", mock.Anything, admin, storage.Workcenter{Name: "Plant 1", ExternalID: "BP-01"}).
		Return(&storage.Workcenter{ID: 4, Name: "Plant 1", ExternalID: "BP-01"}, nil)

	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/workcenters",
		strings.NewReader(`{"name":"Plant 1","external_id":"BP-01"}`)))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":4`)
	svc.AssertExpectations(t)
}

func TestCreateContract(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "valid",
			body:       `{"name":"C-1","customer":"Acme","workcenter_id":2,"start_date":"2024-01-15","end_date":"2024-03-10","monthly_mgq":"300","unit_rate":"4500","cooling_period_months":3}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing workcenter",
			body:       `{"name":"C-1","customer":"Acme","start_date":"2024-01-15","end_date":"2024-03-10"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad date",
			body:       `{"name":"C-1","customer":"Acme","workcenter_id":2,"start_date":"15.01.2024","end_date":"2024-03-10"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative cooling period",
			body:       `{"name":"C-1","customer":"Acme","workcenter_id":2,"start_date":"2024-01-15","end_date":"2024-03-10","cooling_period_months":-1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative rate",
			body:       `{"name":"C-1","customer":"Acme","workcenter_id":2,"start_date":"2024-01-15","end_date":"2024-03-10","unit_rate":-1}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockContractService)
			svc.On("CreateContract", mock.Anything, admin, mock.MatchedBy(func(c storage.Contract) bool {
				return c.StartDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) &&
					c.MonthlyMGQ.Equal(decimal.NewFromInt(300)) && c.CoolingMonths == 3
			})).Return(&storage.Contract{ID: 1, State: storage.ContractDraft}, nil)

			rr := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/contracts", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusCreated {
				svc.AssertNotCalled(t, "CreateContract", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestConfirmContract(t *testing.T) {
	svc := new(MockContractService)
	svc.On("ConfirmContract", mock.Anything, admin, int64(1)).Return([]storage.MonthlyOrder{
		{ID: 1, Name: "C-1/2024-01"}, {ID: 2, Name: "C-1/2024-02"},
	}, nil)
	svc.On("ConfirmContract", mock.Anything, admin, int64(2)).
		Return(nil, fmt.Errorf("confirm: %w", apperr.ErrInvalidTransition))

	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/contracts/1/confirm", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "C-1/2024-02")

	rr = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/contracts/2/confirm", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid_state_transition")
}

func TestGetContract_NotFound(t *testing.T) {
	svc := new(MockContractService)
	svc.On("GetContract", mock.Anything, admin, int64(9)).Return(nil, fmt.Errorf("get: %w", apperr.ErrNotFound))

	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/contracts/9", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetContract_OtherCompany(t *testing.T) {
	svc := new(MockContractService)
	svc.On("GetContract", mock.Anything, manager, int64(3)).
		Return(nil, fmt.Errorf("get: contract 3: %w", apperr.ErrPermissionDenied))
	svc.On("ListMonthlyOrders", mock.Anything, manager, int64(3)).
		Return(nil, fmt.Errorf("list: contract 3: %w", apperr.ErrPermissionDenied))

	router := newRouterAs(svc, manager)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/contracts/3", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "permission_denied")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/contracts/3/monthly", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	svc.AssertExpectations(t)
}

func TestListWorkcenters_PassesActor(t *testing.T) {
	svc := new(MockContractService)
	svc.On("ListWorkcenters", mock.Anything, manager).
		Return([]storage.Workcenter{{ID: 2, Name: "Plant 2", CompanyID: 2}}, nil)

	rr := httptest.NewRecorder()
	newRouterAs(svc, manager).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/workcenters", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Plant 2")
	svc.AssertExpectations(t)
}
