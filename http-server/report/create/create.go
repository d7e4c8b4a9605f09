package create

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"plantops/http-server/httperr"
	"plantops/internal/access"
	"plantops/internal/service/reporting"
	"plantops/internal/storage"
)

type ReportCreator interface {
	CreateReport(ctx context.Context, actor access.Actor, in reporting.ReportInput) (*storage.Report, error)
}

type Request struct {
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	CompanyID    int64  `json:"company_id" validate:"required,gt=0"`
	BranchID     int64  `json:"branch_id" validate:"gte=0"`
	DepartmentID int64  `json:"department_id" validate:"gte=0"`
	ManagerID    int64  `json:"manager_id" validate:"gte=0"`
	Activities   string `json:"activities"`
	Notes        string `json:"notes"`
}

// CreateReport opens a draft report with its template-driven metric lines and sections.
func CreateReport(log *slog.Logger, creator ReportCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.CreateReport"

		actor, err := httperr.Actor(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		var req Request
		if err := httperr.Decode(r, &req); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		date, err := httperr.Date(req.Date, "date")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		report, err := creator.CreateReport(r.Context(), actor, reporting.ReportInput{
			Date: date,
			Scope: storage.Scope{
				CompanyID:    req.CompanyID,
				BranchID:     req.BranchID,
				DepartmentID: req.DepartmentID,
			},
			ManagerID:  req.ManagerID,
			Activities: req.Activities,
			Notes:      req.Notes,
		})
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, report)
	}
}
