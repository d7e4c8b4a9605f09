package update

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"plantops/http-server/httperr"
	"plantops/http-server/template/save"
	"plantops/internal/storage"
)

type TemplateUpdater interface {
	SaveMetricTemplate(ctx context.Context, t *storage.MetricTemplate) error
	SaveSectionTemplate(ctx context.Context, t *storage.SectionTemplate) error
}

// UpdateMetricTemplate replaces the template {id}. Existing reports keep their lines.
func UpdateMetricTemplate(log *slog.Logger, templates TemplateUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.UpdateMetricTemplate"

		id, err := httperr.IDParam(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		t, err := save.DecodeMetric(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		t.ID = id

		if err := templates.SaveMetricTemplate(r.Context(), &t); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.JSON(w, r, t)
	}
}

func UpdateSectionTemplate(log *slog.Logger, templates TemplateUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.UpdateSectionTemplate"

		id, err := httperr.IDParam(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		t, err := save.DecodeSection(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		t.ID = id

		if err := templates.SaveSectionTemplate(r.Context(), &t); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.JSON(w, r, t)
	}
}
