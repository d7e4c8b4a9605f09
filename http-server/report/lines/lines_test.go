package lines

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/service/reporting"
	"plantops/internal/storage"
)

type MockReportEditor struct {
	mock.Mock
}

func (m *MockReportEditor) UpdateHeader(ctx context.Context, actor access.Actor, id int64, activities, notes *string) (*storage.Report, error) {
	args := m.Called(ctx, actor, id, activities, notes)
	if v := args.Get(0); v != nil {
		return v.(*storage.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportEditor) AddComplaint(ctx context.Context, actor access.Actor, reportID int64, c storage.Complaint) (*storage.Complaint, error) {
	args := m.Called(ctx, actor, reportID, c)
	if v := args.Get(0); v != nil {
		return v.(*storage.Complaint), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportEditor) AddStaffLog(ctx context.Context, actor access.Actor, reportID int64, l storage.StaffLog) (*storage.StaffLog, error) {
	args := m.Called(ctx, actor, reportID, l)
	if v := args.Get(0); v != nil {
		return v.(*storage.StaffLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportEditor) AddContractorRating(ctx context.Context, actor access.Actor, reportID int64, c storage.ContractorRating) (*storage.ContractorRating, error) {
	args := m.Called(ctx, actor, reportID, c)
	if v := args.Get(0); v != nil {
		return v.(*storage.ContractorRating), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportEditor) SetMetricValue(ctx context.Context, actor access.Actor, reportID, lineID int64, v storage.MetricValue) (*storage.MetricLine, error) {
	args := m.Called(ctx, actor, reportID, lineID, v)
	if l := args.Get(0); l != nil {
		return l.(*storage.MetricLine), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportEditor) UpdateSection(ctx context.Context, actor access.Actor, reportID, sectionID int64, p reporting.SectionPatch) (*storage.Section, error) {
	args := m.Called(ctx, actor, reportID, sectionID, p)
	if v := args.Get(0); v != nil {
		return v.(*storage.Section), args.Error(1)
	}
	return nil, args.Error(1)
}

var manager = access.Actor{ID: 3, Role: access.RoleManager, CompanyIDs: []int64{1}}

func serve(editor *MockReportEditor, method, path, body string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Patch("/reports/{id}", UpdateHeader(slog.Default(), editor))
	router.Post("/reports/{id}/complaints", AddComplaint(slog.Default(), editor))
	router.Post("/reports/{id}/staff", AddStaffLog(slog.Default(), editor))
	router.Post("/reports/{id}/contractors", AddContractorRating(slog.Default(), editor))
	router.Put("/reports/{id}/metrics/{lineID}", SetMetricValue(slog.Default(), editor))
	router.Patch("/reports/{id}/sections/{sectionID}", UpdateSection(slog.Default(), editor))

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(access.WithActor(req.Context(), manager))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestAddComplaint(t *testing.T) {
	editor := new(MockReportEditor)
	editor.On("AddComplaint", mock.Anything, manager, int64(7), mock.MatchedBy(func(c storage.Complaint) bool {
		return c.Description == "late truck" && c.Severity == "high" && c.Scope.IsZero()
	})).Return(&storage.Complaint{ID: 1, ReportID: 7}, nil)

	rr := serve(editor, http.MethodPost, "/reports/7/complaints", `{"description":"late truck","severity":"high"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
	editor.AssertExpectations(t)
}

func TestAddComplaint_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		svcErr error
		status int
		code   string
	}{
		{"missing description", `{"severity":"low"}`, nil, http.StatusBadRequest, "validation_error"},
		{"unknown severity", `{"description":"x","severity":"fatal"}`, nil, http.StatusBadRequest, "validation_error"},
		{"scope mismatch", `{"description":"x","company_id":2}`,
			fmt.Errorf("add: %w", apperr.ErrScopeMismatch), http.StatusBadRequest, "scope_mismatch"},
		{"submitted report", `{"description":"x"}`,
			fmt.Errorf("add: %w", apperr.ErrPermissionDenied), http.StatusForbidden, "permission_denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor := new(MockReportEditor)
			if tt.svcErr != nil {
				editor.On("AddComplaint", mock.Anything, manager, int64(7), mock.Anything).Return(nil, tt.svcErr)
			}
			rr := serve(editor, http.MethodPost, "/reports/7/complaints", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, rr.Body.String(), `"error":"`+tt.code+`"`)
		})
	}
}

func TestAddStaffLogAndRating(t *testing.T) {
	editor := new(MockReportEditor)
	editor.On("AddStaffLog", mock.Anything, manager, int64(7), mock.MatchedBy(func(l storage.StaffLog) bool {
		return l.StaffName == "R. Iyer" && l.Attendance == "late"
	})).Return(&storage.StaffLog{ID: 2}, nil)
	editor.On("AddContractorRating", mock.Anything, manager, int64(7), mock.MatchedBy(func(c storage.ContractorRating) bool {
		return c.Contractor == "Ramesh Infra" && c.Rating == 4.5
	})).Return(&storage.ContractorRating{ID: 3}, nil)

	rr := serve(editor, http.MethodPost, "/reports/7/staff", `{"staff_name":"R. Iyer","attendance":"late"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(editor, http.MethodPost, "/reports/7/contractors", `{"contractor":"Ramesh Infra","rating":4.5}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(editor, http.MethodPost, "/reports/7/contractors", `{"contractor":"Ramesh Infra","rating":6}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	editor.AssertExpectations(t)
}

func TestSetMetricValue(t *testing.T) {
	editor := new(MockReportEditor)
	editor.On("SetMetricValue", mock.Anything, manager, int64(7), int64(12), mock.MatchedBy(func(v storage.MetricValue) bool {
		return v.Float != nil && *v.Float == 8.5 && v.Int == nil
	})).Return(&storage.MetricLine{ID: 12}, nil)
	editor.On("SetMetricValue", mock.Anything, manager, int64(7), int64(13), mock.Anything).
		Return(nil, fmt.Errorf("set: %w", apperr.ErrValidation))

	rr := serve(editor, http.MethodPut, "/reports/7/metrics/12", `{"float_value":8.5}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(editor, http.MethodPut, "/reports/7/metrics/13", `{"text_value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	editor.AssertExpectations(t)
}

func TestUpdateHeaderAndSection(t *testing.T) {
	editor := new(MockReportEditor)
	editor.On("UpdateHeader", mock.Anything, manager, int64(7), mock.MatchedBy(func(a *string) bool {
		return a != nil && *a == "pour"
	}), (*string)(nil)).Return(&storage.Report{ID: 7}, nil)
	editor.On("UpdateSection", mock.Anything, manager, int64(7), int64(4), mock.MatchedBy(func(p reporting.SectionPatch) bool {
		return p.Description != nil && *p.Description == "all clear" && p.Title == nil
	})).Return(&storage.Section{ID: 4}, nil)

	rr := serve(editor, http.MethodPatch, "/reports/7", `{"activities":"pour"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(editor, http.MethodPatch, "/reports/7/sections/4", `{"description":"all clear"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	editor.AssertExpectations(t)
}
