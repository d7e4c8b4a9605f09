// Package reporting composes daily manager reports from templates and runs their
// draft/submitted workflow.
package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/storage"
)

type Store interface {
	ListMetricTemplates(ctx context.Context, activeOnly bool) ([]storage.MetricTemplate, error)
	ListSectionTemplates(ctx context.Context, activeOnly bool) ([]storage.SectionTemplate, error)

	// CreateReport persists the header with its metric lines and sections atomically
	// and fills in the generated ids.
	CreateReport(ctx context.Context, r *storage.Report) error
	GetReport(ctx context.Context, id int64) (*storage.Report, error)
	ListReports(ctx context.Context, f storage.ReportFilter) ([]storage.Report, error)
	// TransitionReport changes the state only while the report is in t.From,
	// otherwise it fails with apperr.ErrInvalidTransition.
	TransitionReport(ctx context.Context, id int64, t storage.ReportTransition) error
	UpdateReportHeader(ctx context.Context, id int64, activities, notes string) error

	AddComplaint(ctx context.Context, c *storage.Complaint) error
	AddStaffLog(ctx context.Context, l *storage.StaffLog) error
	AddContractorRating(ctx context.Context, c *storage.ContractorRating) error
	UpdateMetricValue(ctx context.Context, reportID, lineID int64, v storage.MetricValue) error
	UpdateSection(ctx context.Context, s storage.Section) error
}

type Service struct {
	log   *slog.Logger
	store Store
	now   func() time.Time
}

func New(log *slog.Logger, store Store) *Service {
	return &Service{log: log, store: store, now: time.Now}
}

type ReportInput struct {
	Date       time.Time
	Scope      storage.Scope
	ManagerID  int64
	Activities string
	Notes      string
}

// CreateReport builds a draft report and materialises its template-driven lines in one write.
func (s *Service) CreateReport(ctx context.Context, actor access.Actor, in ReportInput) (*storage.Report, error) {
	const op = "service.reporting.CreateReport"

	if in.Scope.CompanyID == 0 {
		return nil, fmt.Errorf("%s: company is required: %w", op, apperr.ErrValidation)
	}
	if in.Scope.BranchID == 0 {
		in.Scope.BranchID = in.Scope.CompanyID
	}
	if !actor.CanWrite(in.Scope) {
		return nil, fmt.Errorf("%s: company %d: %w", op, in.Scope.CompanyID, apperr.ErrPermissionDenied)
	}
	if !actor.AllowedCompany(in.Scope.BranchID) {
		return nil, fmt.Errorf("%s: branch %d: %w", op, in.Scope.BranchID, apperr.ErrPermissionDenied)
	}
	if in.ManagerID == 0 {
		in.ManagerID = actor.ID
	}
	if in.ManagerID != actor.ID && !actor.Privileged() {
		return nil, fmt.Errorf("%s: report for another manager: %w", op, apperr.ErrPermissionDenied)
	}
	if in.Date.IsZero() {
		now := s.now()
		in.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	metrics, err := s.store.ListMetricTemplates(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sections, err := s.store.ListSectionTemplates(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := storage.Report{
		Date:       in.Date,
		Scope:      in.Scope,
		ManagerID:  in.ManagerID,
		Activities: in.Activities,
		Notes:      in.Notes,
		State:      storage.ReportDraft,
		CreatedAt:  s.now().UTC(),
	}

	report.MetricLines, report.Sections, err = ComposeLines(report, metrics, sections)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.CreateReport(ctx, &report); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("report created",
		slog.String("op", op),
		slog.Int64("report_id", report.ID),
		slog.Int("metric_lines", len(report.MetricLines)),
		slog.Int("sections", len(report.Sections)),
	)

	return &report, nil
}

func (s *Service) GetReport(ctx context.Context, actor access.Actor, id int64) (*storage.Report, error) {
	const op = "service.reporting.GetReport"

	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !actor.CanRead(r.Scope) {
		return nil, fmt.Errorf("%s: report %d: %w", op, id, apperr.ErrPermissionDenied)
	}
	return r, nil
}

func (s *Service) ListReports(ctx context.Context, actor access.Actor, f storage.ReportFilter) ([]storage.Report, error) {
	const op = "service.reporting.ListReports"

	if !actor.Privileged() {
		if len(f.CompanyIDs) == 0 {
			f.CompanyIDs = actor.CompanyIDs
		} else {
			for _, id := range f.CompanyIDs {
				if !actor.AllowedCompany(id) {
					return nil, fmt.Errorf("%s: company %d: %w", op, id, apperr.ErrPermissionDenied)
				}
			}
		}
		if len(f.CompanyIDs) == 0 {
			return []storage.Report{}, nil
		}
	}

	reports, err := s.store.ListReports(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reports, nil
}

// Submit moves a draft report to submitted and stamps who submitted it and when.
func (s *Service) Submit(ctx context.Context, actor access.Actor, id int64) (*storage.Report, error) {
	const op = "service.reporting.Submit"

	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !actor.Owns(*r) {
		return nil, fmt.Errorf("%s: report %d: %w", op, id, apperr.ErrPermissionDenied)
	}
	if r.State != storage.ReportDraft {
		return nil, fmt.Errorf("%s: report %d is %s: %w", op, id, r.State, apperr.ErrInvalidTransition)
	}

	now := s.now().UTC()
	by := actor.ID
	err = s.store.TransitionReport(ctx, id, storage.ReportTransition{
		From:        storage.ReportDraft,
		To:          storage.ReportSubmitted,
		SubmittedAt: &now,
		SubmittedBy: &by,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.State = storage.ReportSubmitted
	r.SubmittedAt = &now
	r.SubmittedBy = &by

	s.log.Info("report submitted", slog.String("op", op), slog.Int64("report_id", id), slog.String("by", actor.Login))

	return r, nil
}

// Reopen returns a submitted report to draft. Only privileged actors may do it.
func (s *Service) Reopen(ctx context.Context, actor access.Actor, id int64) (*storage.Report, error) {
	const op = "service.reporting.Reopen"

	if !actor.Privileged() {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrPermissionDenied)
	}

	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if r.State != storage.ReportSubmitted {
		return nil, fmt.Errorf("%s: report %d is %s: %w", op, id, r.State, apperr.ErrInvalidTransition)
	}

	err = s.store.TransitionReport(ctx, id, storage.ReportTransition{
		From: storage.ReportSubmitted,
		To:   storage.ReportDraft,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.State = storage.ReportDraft
	r.SubmittedAt = nil
	r.SubmittedBy = nil

	s.log.Info("report reopened", slog.String("op", op), slog.Int64("report_id", id), slog.String("by", actor.Login))

	return r, nil
}

// Summary returns the plain-text digest of a report.
func (s *Service) Summary(ctx context.Context, actor access.Actor, id int64) (string, error) {
	r, err := s.GetReport(ctx, actor, id)
	if err != nil {
		return "", err
	}
	return Summary(*r), nil
}
