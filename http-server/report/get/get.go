package get

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"plantops/http-server/httperr"
	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/storage"
)

type ReportGetter interface {
	GetReport(ctx context.Context, actor access.Actor, id int64) (*storage.Report, error)
}

type ReportLister interface {
	ListReports(ctx context.Context, actor access.Actor, f storage.ReportFilter) ([]storage.Report, error)
}

type ReportSummarizer interface {
	Summary(ctx context.Context, actor access.Actor, id int64) (string, error)
}

func GetReport(log *slog.Logger, getter ReportGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.GetReport"

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

		report, err := getter.GetReport(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.JSON(w, r, report)
	}
}

// ListReports filters by ?from=&to=&state=&company_id= (company_id may repeat).
func ListReports(log *slog.Logger, lister ReportLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.ListReports"

		actor, err := httperr.Actor(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		q := r.URL.Query()
		var f storage.ReportFilter
		if f.From, err = httperr.Date(q.Get("from"), "from"); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		if f.To, err = httperr.Date(q.Get("to"), "to"); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		switch state := storage.ReportState(q.Get("state")); state {
		case "", storage.ReportDraft, storage.ReportSubmitted:
			f.State = state
		default:
			httperr.Write(w, r, log, op, fmt.Errorf("invalid state %q: %w", state, apperr.ErrValidation))
			return
		}
		for _, raw := range q["company_id"] {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				httperr.Write(w, r, log, op, fmt.Errorf("invalid company_id %q: %w", raw, apperr.ErrValidation))
				return
			}
			f.CompanyIDs = append(f.CompanyIDs, id)
		}

		reports, err := lister.ListReports(r.Context(), actor, f)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.JSON(w, r, reports)
	}
}

// Summary returns the plain-text digest of a report.
func Summary(log *slog.Logger, summarizer ReportSummarizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.Summary"

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

		text, err := summarizer.Summary(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.PlainText(w, r, text)
	}
}
