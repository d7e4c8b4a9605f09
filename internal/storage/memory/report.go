package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

func (s *Storage) ListMetricTemplates(_ context.Context, activeOnly bool) ([]storage.MetricTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []storage.MetricTemplate{}
	for _, id := range sortedKeys(s.metricTemplates) {
		t := s.metricTemplates[id]
		if activeOnly && !t.Active {
			continue
		}
		t.SelectionOptions = slices.Clone(t.SelectionOptions)
		out = append(out, t)
	}
	return out, nil
}

func (s *Storage) SaveMetricTemplate(_ context.Context, t *storage.MetricTemplate) error {
	const op = "storage.memory.SaveMetricTemplate"

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == 0 {
		t.ID = s.id()
	} else if _, ok := s.metricTemplates[t.ID]; !ok {
		return fmt.Errorf("%s: metric template %d: %w", op, t.ID, apperr.ErrNotFound)
	}
	stored := *t
	stored.SelectionOptions = slices.Clone(t.SelectionOptions)
	s.metricTemplates[t.ID] = stored
	return nil
}

func (s *Storage) ListSectionTemplates(_ context.Context, activeOnly bool) ([]storage.SectionTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []storage.SectionTemplate{}
	for _, id := range sortedKeys(s.sectionTemplates) {
		t := s.sectionTemplates[id]
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Storage) SaveSectionTemplate(_ context.Context, t *storage.SectionTemplate) error {
	const op = "storage.memory.SaveSectionTemplate"

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == 0 {
		t.ID = s.id()
	} else if _, ok := s.sectionTemplates[t.ID]; !ok {
		return fmt.Errorf("%s: section template %d: %w", op, t.ID, apperr.ErrNotFound)
	}
	s.sectionTemplates[t.ID] = *t
	return nil
}

func (s *Storage) CreateReport(_ context.Context, r *storage.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.id()
	for i := range r.MetricLines {
		r.MetricLines[i].ID = s.id()
		r.MetricLines[i].ReportID = r.ID
	}
	for i := range r.Sections {
		r.Sections[i].ID = s.id()
		r.Sections[i].ReportID = r.ID
	}
	s.reports[r.ID] = cloneReport(r)
	return nil
}

func (s *Storage) report(op string, id int64) (*storage.Report, error) {
	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%s: report %d: %w", op, id, apperr.ErrNotFound)
	}
	return r, nil
}

func (s *Storage) GetReport(_ context.Context, id int64) (*storage.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report("storage.memory.GetReport", id)
	if err != nil {
		return nil, err
	}
	return cloneReport(r), nil
}

func (s *Storage) ListReports(_ context.Context, f storage.ReportFilter) ([]storage.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []storage.Report{}
	for _, r := range s.reports {
		if !f.From.IsZero() && r.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.Date.After(f.To) {
			continue
		}
		if len(f.CompanyIDs) > 0 && !slices.Contains(f.CompanyIDs, r.Scope.CompanyID) {
			continue
		}
		if f.State != "" && r.State != f.State {
			continue
		}
		header := *r
		header.Complaints, header.StaffLogs, header.ContractorRatings = nil, nil, nil
		header.MetricLines, header.Sections = nil, nil
		out = append(out, header)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Storage) TransitionReport(_ context.Context, id int64, t storage.ReportTransition) error {
	const op = "storage.memory.TransitionReport"

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report(op, id)
	if err != nil {
		return err
	}
	if r.State != t.From {
		return fmt.Errorf("%s: report %d is %s: %w", op, id, r.State, apperr.ErrInvalidTransition)
	}
	r.State = t.To
	r.SubmittedAt = t.SubmittedAt
	r.SubmittedBy = t.SubmittedBy
	return nil
}

func (s *Storage) UpdateReportHeader(_ context.Context, id int64, activities, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report("storage.memory.UpdateReportHeader", id)
	if err != nil {
		return err
	}
	r.Activities = activities
	r.Notes = notes
	return nil
}

func (s *Storage) AddComplaint(_ context.Context, c *storage.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report("storage.memory.AddComplaint", c.ReportID)
	if err != nil {
		return err
	}
	c.ID = s.id()
	r.Complaints = append(r.Complaints, *c)
	return nil
}

func (s *Storage) AddStaffLog(_ context.Context, l *storage.StaffLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report("storage.memory.AddStaffLog", l.ReportID)
	if err != nil {
		return err
	}
	l.ID = s.id()
	r.StaffLogs = append(r.StaffLogs, *l)
	return nil
}

func (s *Storage) AddContractorRating(_ context.Context, c *storage.ContractorRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report("storage.memory.AddContractorRating", c.ReportID)
	if err != nil {
		return err
	}
	c.ID = s.id()
	r.ContractorRatings = append(r.ContractorRatings, *c)
	return nil
}

func (s *Storage) UpdateMetricValue(_ context.Context, reportID, lineID int64, v storage.MetricValue) error {
	const op = "storage.memory.UpdateMetricValue"

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report(op, reportID)
	if err != nil {
		return err
	}
	for i := range r.MetricLines {
		if r.MetricLines[i].ID == lineID {
			r.MetricLines[i].Value = v
			return nil
		}
	}
	return fmt.Errorf("%s: metric line %d: %w", op, lineID, apperr.ErrNotFound)
}

func (s *Storage) UpdateSection(_ context.Context, sec storage.Section) error {
	const op = "storage.memory.UpdateSection"

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.report(op, sec.ReportID)
	if err != nil {
		return err
	}
	for i := range r.Sections {
		if r.Sections[i].ID == sec.ID {
			r.Sections[i] = sec
			return nil
		}
	}
	return fmt.Errorf("%s: section %d: %w", op, sec.ID, apperr.ErrNotFound)
}

func (s *Storage) CreateUser(_ context.Context, u *storage.User) error {
	const op = "storage.memory.CreateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Login == u.Login {
			return fmt.Errorf("%s: login %q: %w", op, u.Login, apperr.ErrConflict)
		}
	}
	u.ID = s.id()
	stored := *u
	stored.CompanyIDs = slices.Clone(u.CompanyIDs)
	s.users[u.ID] = stored
	return nil
}

func (s *Storage) UserByLogin(_ context.Context, login string) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Login == login {
			u.CompanyIDs = slices.Clone(u.CompanyIDs)
			return &u, nil
		}
	}
	return nil, fmt.Errorf("storage.memory.UserByLogin: %q: %w", login, apperr.ErrNotFound)
}

func (s *Storage) ListUsers(_ context.Context) ([]storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]storage.User, 0, len(s.users))
	for _, u := range s.users {
		u.CompanyIDs = slices.Clone(u.CompanyIDs)
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Login < out[j].Login })
	return out, nil
}
