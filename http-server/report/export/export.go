package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"plantops/http-server/httperr"
	"plantops/internal/access"
	generate_pdf "plantops/internal/service/generate-pdf"
	"plantops/internal/storage"
)

type ReportGetter interface {
	GetReport(ctx context.Context, actor access.Actor, id int64) (*storage.Report, error)
}

// ReportPDF streams the printable version of a report the actor can read.
func ReportPDF(log *slog.Logger, getter ReportGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.ReportPDF"

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

		pdfBytes, err := generate_pdf.RenderReport(report)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		fileName := fmt.Sprintf("Report_%d_%s.pdf", report.ID, report.Date.Format("2006-01-02"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
		w.Write(pdfBytes)
	}
}
