package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"plantops/internal/storage"
)

type MockTemplateProvider struct {
	mock.Mock
}

func (m *MockTemplateProvider) ListMetricTemplates(ctx context.Context, activeOnly bool) ([]storage.MetricTemplate, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.MetricTemplate), args.Error(1)
}

func (m *MockTemplateProvider) ListSectionTemplates(ctx context.Context, activeOnly bool) ([]storage.SectionTemplate, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.SectionTemplate), args.Error(1)
}

func TestGetMetricTemplates_ActiveOnly(t *testing.T) {
	mockStorage := new(MockTemplateProvider)
	mockStorage.On("ListMetricTemplates", mock.Anything, true).Return([]storage.MetricTemplate{
		{ID: 1, Name: "Pump hours", ValueType: storage.ValueFloat, Active: true},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/templates/metric?active=true", nil)
	rr := httptest.NewRecorder()
	GetMetricTemplates(slog.Default(), mockStorage).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp []storage.MetricTemplate
	require.NoError(t, render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Pump hours", resp[0].Name)
	mockStorage.AssertExpectations(t)
}

func TestGetSectionTemplates_All(t *testing.T) {
	mockStorage := new(MockTemplateProvider)
	mockStorage.On("ListSectionTemplates", mock.Anything, false).Return([]storage.SectionTemplate{
		{ID: 1, Name: "Safety"}, {ID: 2, Name: "Quality", Active: false},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/templates/section", nil)
	rr := httptest.NewRecorder()
	GetSectionTemplates(slog.Default(), mockStorage).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Quality")
}

func TestGetMetricTemplates_StorageError(t *testing.T) {
	mockStorage := new(MockTemplateProvider)
	mockStorage.On("ListMetricTemplates", mock.Anything, false).Return(nil, errors.New("db down"))

	req := httptest.NewRequest(http.MethodGet, "/templates/metric", nil)
	rr := httptest.NewRecorder()
	GetMetricTemplates(slog.Default(), mockStorage).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal_error")
	assert.NotContains(t, rr.Body.String(), "db down")
}
