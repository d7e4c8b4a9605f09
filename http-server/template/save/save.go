package save

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"plantops/http-server/httperr"
	"plantops/internal/service/reporting"
	"plantops/internal/storage"
)

type TemplateSaver interface {
	SaveMetricTemplate(ctx context.Context, t *storage.MetricTemplate) error
	SaveSectionTemplate(ctx context.Context, t *storage.SectionTemplate) error
}

type ScopeRequest struct {
	CompanyID    int64 `json:"company_id" validate:"gte=0"`
	BranchID     int64 `json:"branch_id" validate:"gte=0"`
	DepartmentID int64 `json:"department_id" validate:"gte=0"`
}

type MetricRequest struct {
	ScopeRequest
	Name             string              `json:"name" validate:"required,max=255"`
	Code             string              `json:"code" validate:"max=64"`
	ValueType        storage.ValueType   `json:"metric_type" validate:"required,oneof=int float text selection"`
	SelectionOptions []string            `json:"selection_options" validate:"dive,required"`
	Default          storage.MetricValue `json:"default"`
	Required         bool                `json:"required"`
	Active           *bool               `json:"active"`
	Sequence         int                 `json:"sequence"`
	Description      string              `json:"description"`
}

// Template converts the request; active defaults to true and sequence to 10.
func (req MetricRequest) Template() storage.MetricTemplate {
	t := storage.MetricTemplate{
		Name:             req.Name,
		Code:             req.Code,
		ValueType:        req.ValueType,
		SelectionOptions: req.SelectionOptions,
		Default:          req.Default,
		Required:         req.Required,
		Active:           req.Active == nil || *req.Active,
		Sequence:         req.Sequence,
		Description:      req.Description,
		Scope: storage.Scope{
			CompanyID:    req.CompanyID,
			BranchID:     req.BranchID,
			DepartmentID: req.DepartmentID,
		},
	}
	if t.Sequence == 0 {
		t.Sequence = 10
	}
	return t
}

type SectionRequest struct {
	ScopeRequest
	Name        string `json:"name" validate:"required,max=255"`
	Code        string `json:"code" validate:"max=64"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
	Sequence    int    `json:"sequence"`
}

func (req SectionRequest) Template() storage.SectionTemplate {
	t := storage.SectionTemplate{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Active:      req.Active == nil || *req.Active,
		Sequence:    req.Sequence,
		Scope: storage.Scope{
			CompanyID:    req.CompanyID,
			BranchID:     req.BranchID,
			DepartmentID: req.DepartmentID,
		},
	}
	if t.Sequence == 0 {
		t.Sequence = 10
	}
	return t
}

// DecodeMetric reads and checks a metric template body. A template that could not
// produce a typed line is refused here rather than at report creation.
func DecodeMetric(r *http.Request) (storage.MetricTemplate, error) {
	var req MetricRequest
	if err := httperr.Decode(r, &req); err != nil {
		return storage.MetricTemplate{}, err
	}
	t := req.Template()
	if err := reporting.ValidateMetricTemplate(t); err != nil {
		return storage.MetricTemplate{}, err
	}
	return t, nil
}

func DecodeSection(r *http.Request) (storage.SectionTemplate, error) {
	var req SectionRequest
	if err := httperr.Decode(r, &req); err != nil {
		return storage.SectionTemplate{}, err
	}
	return req.Template(), nil
}

func SaveMetricTemplate(log *slog.Logger, templates TemplateSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.SaveMetricTemplate"

		t, err := DecodeMetric(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		if err := templates.SaveMetricTemplate(r.Context(), &t); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		log.Info("metric template created", slog.String("op", op), slog.Int64("id", t.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, t)
	}
}

func SaveSectionTemplate(log *slog.Logger, templates TemplateSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.SaveSectionTemplate"

		t, err := DecodeSection(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		if err := templates.SaveSectionTemplate(r.Context(), &t); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		log.Info("section template created", slog.String("op", op), slog.Int64("id", t.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, t)
	}
}
