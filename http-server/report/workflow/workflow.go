package workflow

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"plantops/http-server/httperr"
	"plantops/internal/access"
	"plantops/internal/storage"
)

type ReportWorkflow interface {
	Submit(ctx context.Context, actor access.Actor, id int64) (*storage.Report, error)
	Reopen(ctx context.Context, actor access.Actor, id int64) (*storage.Report, error)
}

type transition func(ctx context.Context, actor access.Actor, id int64) (*storage.Report, error)

func handle(log *slog.Logger, op string, move transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := httperr.Actor(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		id, err := httperr.IDParam(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		report, err := move(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.JSON(w, r, report)
	}
}

func Submit(log *slog.Logger, wf ReportWorkflow) http.HandlerFunc {
	return handle(log, "handlers.report.Submit", wf.Submit)
}

func Reopen(log *slog.Logger, wf ReportWorkflow) http.HandlerFunc {
	return handle(log, "handlers.report.Reopen", wf.Reopen)
}
