package update

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

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

type MockTemplateUpdater struct {
	mock.Mock
}

func (m *MockTemplateUpdater) SaveMetricTemplate(ctx context.Context, t *storage.MetricTemplate) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTemplateUpdater) SaveSectionTemplate(ctx context.Context, t *storage.SectionTemplate) error {
	return m.Called(ctx, t).Error(0)
}

func TestUpdateMetricTemplate(t *testing.T) {
	mockProvider := new(MockTemplateUpdater)
	mockProvider.On("SaveMetricTemplate", mock.Anything, mock.MatchedBy(func(tpl *storage.MetricTemplate) bool {
		return tpl.ID == 5 && *tpl.Default.Int == 3
	})).Return(nil)
	mockProvider.On("SaveMetricTemplate", mock.Anything, mock.MatchedBy(func(tpl *storage.MetricTemplate) bool {
		return tpl.ID == 6
	})).Return(fmt.Errorf("update: %w", apperr.ErrNotFound))

	router := chi.NewRouter()
	router.Put("/templates/metric/{id}", UpdateMetricTemplate(slog.Default(), mockProvider))

	body := `{"name":"Trucks","metric_type":"int","default":{"int_value":3}}`

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/templates/metric/5", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/templates/metric/6", strings.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	mockProvider.AssertExpectations(t)
}

func TestUpdateSectionTemplate_BadID(t *testing.T) {
	mockProvider := new(MockTemplateUpdater)

	router := chi.NewRouter()
	router.Put("/templates/section/{id}", UpdateSectionTemplate(slog.Default(), mockProvider))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/templates/section/x", strings.NewReader(`{"name":"A"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockProvider.AssertNotCalled(t, "SaveSectionTemplate", mock.Anything, mock.Anything)
}
