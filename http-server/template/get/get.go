package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"plantops/http-server/httperr"
	"plantops/internal/storage"
)

type TemplateProvider interface {
	ListMetricTemplates(ctx context.Context, activeOnly bool) ([]storage.MetricTemplate, error)
	ListSectionTemplates(ctx context.Context, activeOnly bool) ([]storage.SectionTemplate, error)
}

// GetMetricTemplates lists metric templates; ?active=true hides archived ones.
func GetMetricTemplates(log *slog.Logger, templates TemplateProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.GetMetricTemplates"

		list, err := templates.ListMetricTemplates(r.Context(), r.URL.Query().Get("active") == "true")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.JSON(w, r, list)
	}
}

func GetSectionTemplates(log *slog.Logger, templates TemplateProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.GetSectionTemplates"

		list, err := templates.ListSectionTemplates(r.Context(), r.URL.Query().Get("active") == "true")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.JSON(w, r, list)
	}
}
