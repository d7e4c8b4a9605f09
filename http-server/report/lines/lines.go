package lines

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

type ReportEditor interface {
	UpdateHeader(ctx context.Context, actor access.Actor, id int64, activities, notes *string) (*storage.Report, error)
	AddComplaint(ctx context.Context, actor access.Actor, reportID int64, c storage.Complaint) (*storage.Complaint, error)
	AddStaffLog(ctx context.Context, actor access.Actor, reportID int64, l storage.StaffLog) (*storage.StaffLog, error)
	AddContractorRating(ctx context.Context, actor access.Actor, reportID int64, c storage.ContractorRating) (*storage.ContractorRating, error)
	SetMetricValue(ctx context.Context, actor access.Actor, reportID, lineID int64, v storage.MetricValue) (*storage.MetricLine, error)
	UpdateSection(ctx context.Context, actor access.Actor, reportID, sectionID int64, p reporting.SectionPatch) (*storage.Section, error)
}

// ChildScope is the optional scope a client may send with a child record.
type ChildScope struct {
	CompanyID    int64 `json:"company_id" validate:"gte=0"`
	BranchID     int64 `json:"branch_id" validate:"gte=0"`
	DepartmentID int64 `json:"department_id" validate:"gte=0"`
}

func (s ChildScope) scope() storage.Scope {
	return storage.Scope{CompanyID: s.CompanyID, BranchID: s.BranchID, DepartmentID: s.DepartmentID}
}

// decodeTarget reads the actor, the report id and the body shared by every handler here.
func decodeTarget(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, body any) (access.Actor, int64, bool) {
	actor, err := httperr.Actor(r)
	if err != nil {
		httperr.Write(w, r, log, op, err)
		return access.Actor{}, 0, false
	}
	id, err := httperr.IDParam(r, "id")
	if err != nil {
		httperr.Write(w, r, log, op, err)
		return access.Actor{}, 0, false
	}
	if body != nil {
		if err := httperr.Decode(r, body); err != nil {
			httperr.Write(w, r, log, op, err)
			return access.Actor{}, 0, false
		}
	}
	return actor, id, true
}

func respond(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, status int, v any, err error) {
	if err != nil {
		httperr.Write(w, r, log, op, err)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, v)
}

type HeaderRequest struct {
	Activities *string `json:"activities"`
	Notes      *string `json:"notes"`
}

func UpdateHeader(log *slog.Logger, editor ReportEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.UpdateHeader"

		var req HeaderRequest
		actor, id, ok := decodeTarget(w, r, log, op, &req)
		if !ok {
			return
		}
		report, err := editor.UpdateHeader(r.Context(), actor, id, req.Activities, req.Notes)
		respond(w, r, log, op, http.StatusOK, report, err)
	}
}

type ComplaintRequest struct {
	ChildScope
	Description   string `json:"description" validate:"required"`
	Customer      string `json:"customer"`
	Severity      string `json:"severity" validate:"omitempty,oneof=low medium high"`
	ActionTaken   string `json:"action_taken"`
	Resolved      bool   `json:"resolved"`
	ResponsibleID int64  `json:"responsible_id" validate:"gte=0"`
	Date          string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Reference     string `json:"reference"`
}

func AddComplaint(log *slog.Logger, editor ReportEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.AddComplaint"

		var req ComplaintRequest
		actor, id, ok := decodeTarget(w, r, log, op, &req)
		if !ok {
			return
		}
		date, err := httperr.Date(req.Date, "date")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		c, err := editor.AddComplaint(r.Context(), actor, id, storage.Complaint{
			Scope:         req.scope(),
			Description:   req.Description,
			Customer:      req.Customer,
			Severity:      req.Severity,
			ActionTaken:   req.ActionTaken,
			Resolved:      req.Resolved,
			ResponsibleID: req.ResponsibleID,
			Date:          date,
			Reference:     req.Reference,
		})
		respond(w, r, log, op, http.StatusCreated, c, err)
	}
}

type StaffLogRequest struct {
	ChildScope
	StaffName  string `json:"staff_name" validate:"required"`
	Role       string `json:"role"`
	Shift      string `json:"shift"`
	Issue      string `json:"issue"`
	Action     string `json:"action"`
	Attendance string `json:"attendance" validate:"omitempty,oneof=present absent late"`
	Note       string `json:"note"`
}

func AddStaffLog(log *slog.Logger, editor ReportEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.AddStaffLog"

		var req StaffLogRequest
		actor, id, ok := decodeTarget(w, r, log, op, &req)
		if !ok {
			return
		}

		l, err := editor.AddStaffLog(r.Context(), actor, id, storage.StaffLog{
			Scope:      req.scope(),
			StaffName:  req.StaffName,
			Role:       req.Role,
			Shift:      req.Shift,
			Issue:      req.Issue,
			Action:     req.Action,
			Attendance: req.Attendance,
			Note:       req.Note,
		})
		respond(w, r, log, op, http.StatusCreated, l, err)
	}
}

type ContractorRatingRequest struct {
	ChildScope
	Contractor      string  `json:"contractor" validate:"required"`
	Rating          float64 `json:"rating" validate:"gte=0,lte=5"`
	Comment         string  `json:"comment"`
	FollowUpAction  string  `json:"follow_up_action"`
	ReferencePeriod string  `json:"reference_period"`
}

func AddContractorRating(log *slog.Logger, editor ReportEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.AddContractorRating"

		var req ContractorRatingRequest
		actor, id, ok := decodeTarget(w, r, log, op, &req)
		if !ok {
			return
		}

		c, err := editor.AddContractorRating(r.Context(), actor, id, storage.ContractorRating{
			Scope:           req.scope(),
			Contractor:      req.Contractor,
			Rating:          req.Rating,
			Comment:         req.Comment,
			FollowUpAction:  req.FollowUpAction,
			ReferencePeriod: req.ReferencePeriod,
		})
		respond(w, r, log, op, http.StatusCreated, c, err)
	}
}

// SetMetricValue takes one of int_value, float_value, text_value or selection_value;
// an empty body clears the value.
func SetMetricValue(log *slog.Logger, editor ReportEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.SetMetricValue"

		var req storage.MetricValue
		actor, id, ok := decodeTarget(w, r, log, op, &req)
		if !ok {
			return
		}
		lineID, err := httperr.IDParam(r, "lineID")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		line, err := editor.SetMetricValue(r.Context(), actor, id, lineID, req)
		respond(w, r, log, op, http.StatusOK, line, err)
	}
}

type SectionRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Subject     *string `json:"subject"`
	Description *string `json:"description"`
	Employee    *string `json:"employee"`
	Partner     *string `json:"partner"`
}

func UpdateSection(log *slog.Logger, editor ReportEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.UpdateSection"

		var req SectionRequest
		actor, id, ok := decodeTarget(w, r, log, op, &req)
		if !ok {
			return
		}
		sectionID, err := httperr.IDParam(r, "sectionID")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		sec, err := editor.UpdateSection(r.Context(), actor, id, sectionID, reporting.SectionPatch{
			Title:       req.Title,
			Subject:     req.Subject,
			Description: req.Description,
			Employee:    req.Employee,
			Partner:     req.Partner,
		})
		respond(w, r, log, op, http.StatusOK, sec, err)
	}
}
