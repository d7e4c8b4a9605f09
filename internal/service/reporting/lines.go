package reporting

import (
	"context"
	"fmt"
	"strings"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/storage"
)

// editable loads a report and checks the actor may change it or its children.
func (s *Service) editable(ctx context.Context, actor access.Actor, id int64) (*storage.Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(*r) {
		return nil, fmt.Errorf("report %d: %w", id, apperr.ErrPermissionDenied)
	}
	if r.State == storage.ReportSubmitted && !actor.Privileged() {
		return nil, fmt.Errorf("report %d is submitted: %w", id, apperr.ErrPermissionDenied)
	}
	return r, nil
}

// childScope returns the scope a new child must carry. A caller-supplied scope has to
// match the header exactly.
func childScope(header storage.Report, supplied storage.Scope) (storage.Scope, error) {
	if supplied.IsZero() || supplied == header.Scope {
		return header.Scope, nil
	}
	return storage.Scope{}, fmt.Errorf("child scope %+v differs from report scope %+v: %w",
		supplied, header.Scope, apperr.ErrScopeMismatch)
}

func (s *Service) UpdateHeader(ctx context.Context, actor access.Actor, id int64, activities, notes *string) (*storage.Report, error) {
	const op = "service.reporting.UpdateHeader"

	r, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if activities != nil {
		r.Activities = *activities
	}
	if notes != nil {
		r.Notes = *notes
	}
	if err := s.store.UpdateReportHeader(ctx, id, r.Activities, r.Notes); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

var severities = map[string]bool{"": true, "low": true, "medium": true, "high": true}

func (s *Service) AddComplaint(ctx context.Context, actor access.Actor, reportID int64, c storage.Complaint) (*storage.Complaint, error) {
	const op = "service.reporting.AddComplaint"

	r, err := s.editable(ctx, actor, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if strings.TrimSpace(c.Description) == "" {
		return nil, fmt.Errorf("%s: description is required: %w", op, apperr.ErrValidation)
	}
	if !severities[c.Severity] {
		return nil, fmt.Errorf("%s: severity %q: %w", op, c.Severity, apperr.ErrValidation)
	}
	c.Scope, err = childScope(*r, c.Scope)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.ReportID = reportID
	if c.Severity == "" {
		c.Severity = "low"
	}
	if c.Date.IsZero() {
		c.Date = r.Date
	}

	if err := s.store.AddComplaint(ctx, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

var attendances = map[string]bool{"": true, "present": true, "absent": true, "late": true}

func (s *Service) AddStaffLog(ctx context.Context, actor access.Actor, reportID int64, l storage.StaffLog) (*storage.StaffLog, error) {
	const op = "service.reporting.AddStaffLog"

	r, err := s.editable(ctx, actor, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if strings.TrimSpace(l.StaffName) == "" {
		return nil, fmt.Errorf("%s: staff name is required: %w", op, apperr.ErrValidation)
	}
	if !attendances[l.Attendance] {
		return nil, fmt.Errorf("%s: attendance %q: %w", op, l.Attendance, apperr.ErrValidation)
	}
	l.Scope, err = childScope(*r, l.Scope)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	l.ReportID = reportID
	if l.Attendance == "" {
		l.Attendance = "present"
	}

	if err := s.store.AddStaffLog(ctx, &l); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &l, nil
}

func (s *Service) AddContractorRating(ctx context.Context, actor access.Actor, reportID int64, c storage.ContractorRating) (*storage.ContractorRating, error) {
	const op = "service.reporting.AddContractorRating"

	r, err := s.editable(ctx, actor, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if strings.TrimSpace(c.Contractor) == "" {
		return nil, fmt.Errorf("%s: contractor is required: %w", op, apperr.ErrValidation)
	}
	if c.Rating < 0 || c.Rating > 5 {
		return nil, fmt.Errorf("%s: rating %v out of 0..5: %w", op, c.Rating, apperr.ErrValidation)
	}
	c.Scope, err = childScope(*r, c.Scope)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.ReportID = reportID

	if err := s.store.AddContractorRating(ctx, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// SetMetricValue replaces the value of one metric line. The value must match the line type.
func (s *Service) SetMetricValue(ctx context.Context, actor access.Actor, reportID, lineID int64, v storage.MetricValue) (*storage.MetricLine, error) {
	const op = "service.reporting.SetMetricValue"

	r, err := s.editable(ctx, actor, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var line *storage.MetricLine
	for i := range r.MetricLines {
		if r.MetricLines[i].ID == lineID {
			line = &r.MetricLines[i]
			break
		}
	}
	if line == nil {
		return nil, fmt.Errorf("%s: metric line %d: %w", op, lineID, apperr.ErrNotFound)
	}

	var value storage.MetricValue
	if !v.Empty() || line.Required {
		value, err = typedValue(line.ValueType, v, line.Options)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, line.Name, err)
		}
	}

	if err := s.store.UpdateMetricValue(ctx, reportID, lineID, value); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	line.Value = value
	return line, nil
}

type SectionPatch struct {
	Title       *string
	Subject     *string
	Description *string
	Employee    *string
	Partner     *string
}

func (s *Service) UpdateSection(ctx context.Context, actor access.Actor, reportID, sectionID int64, p SectionPatch) (*storage.Section, error) {
	const op = "service.reporting.UpdateSection"

	r, err := s.editable(ctx, actor, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var sec *storage.Section
	for i := range r.Sections {
		if r.Sections[i].ID == sectionID {
			sec = &r.Sections[i]
			break
		}
	}
	if sec == nil {
		return nil, fmt.Errorf("%s: section %d: %w", op, sectionID, apperr.ErrNotFound)
	}

	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, fmt.Errorf("%s: title is required: %w", op, apperr.ErrValidation)
		}
		sec.Title = *p.Title
	}
	if p.Subject != nil {
		sec.Subject = *p.Subject
	}
	if p.Description != nil {
		sec.Description = *p.Description
	}
	if p.Employee != nil {
		sec.Employee = *p.Employee
	}
	if p.Partner != nil {
		sec.Partner = *p.Partner
	}

	if err := s.store.UpdateSection(ctx, *sec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sec, nil
}
