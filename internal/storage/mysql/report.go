package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

// CreateReport stores the header together with its composed metric lines and sections.
func (s *Storage) CreateReport(ctx context.Context, r *storage.Report) error {
	const op = "storage.mysql.CreateReport"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO reports (report_date, company_id, branch_id, department_id, manager_id, activities, notes, state,
			submitted_at, submitted_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Date, r.Scope.CompanyID, r.Scope.BranchID, r.Scope.DepartmentID, r.ManagerID, r.Activities, r.Notes,
		r.State, r.SubmittedAt, r.SubmittedBy, r.CreatedAt)
	if err != nil {
		return mapErr(op, err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lineStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO report_metric_lines (report_id, template_id, company_id, branch_id, department_id, name,
			metric_type, options, required, int_value, float_value, text_value, selection_value, sequence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%s: prepare lines: %w", op, err)
	}
	defer lineStmt.Close()

	for i := range r.MetricLines {
		l := &r.MetricLines[i]
		l.ReportID = r.ID
		options, err := json.Marshal(nonNil(l.Options))
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		res, err := lineStmt.ExecContext(ctx, r.ID, l.TemplateID, l.Scope.CompanyID, l.Scope.BranchID,
			l.Scope.DepartmentID, l.Name, l.ValueType, options, l.Required,
			l.Value.Int, l.Value.Float, l.Value.Text, l.Value.Selection, l.Sequence)
		if err != nil {
			return mapErr(op, err)
		}
		if l.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	sectionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO report_sections (report_id, template_id, company_id, branch_id, department_id, title,
			subject, description, employee, partner, sequence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%s: prepare sections: %w", op, err)
	}
	defer sectionStmt.Close()

	for i := range r.Sections {
		sec := &r.Sections[i]
		sec.ReportID = r.ID
		res, err := sectionStmt.ExecContext(ctx, r.ID, sec.TemplateID, sec.Scope.CompanyID, sec.Scope.BranchID,
			sec.Scope.DepartmentID, sec.Title, sec.Subject, sec.Description, sec.Employee, sec.Partner, sec.Sequence)
		if err != nil {
			return mapErr(op, err)
		}
		if sec.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

const reportColumns = `id, report_date, company_id, branch_id, department_id, manager_id, activities, notes, state,
	submitted_at, submitted_by, created_at`

func scanReport(row interface{ Scan(...any) error }, r *storage.Report) error {
	return row.Scan(&r.ID, &r.Date, &r.Scope.CompanyID, &r.Scope.BranchID, &r.Scope.DepartmentID, &r.ManagerID,
		&r.Activities, &r.Notes, &r.State, &r.SubmittedAt, &r.SubmittedBy, &r.CreatedAt)
}

// GetReport loads the header and then every child collection in parallel.
func (s *Storage) GetReport(ctx context.Context, id int64) (*storage.Report, error) {
	const op = "storage.mysql.GetReport"

	r := &storage.Report{}
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	if err := scanReport(row, r); err != nil {
		return nil, mapErr(op, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.Complaints, err = s.complaints(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		r.StaffLogs, err = s.staffLogs(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		r.ContractorRatings, err = s.contractorRatings(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		r.MetricLines, err = s.metricLines(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		r.Sections, err = s.sections(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r, nil
}

func (s *Storage) complaints(ctx context.Context, reportID int64) ([]storage.Complaint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, company_id, branch_id, department_id, description, customer, severity,
		       action_taken, resolved, responsible_id, complaint_date, reference
		FROM report_complaints WHERE report_id = ? ORDER BY id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("complaints: %w", err)
	}
	defer rows.Close()

	out := []storage.Complaint{}
	for rows.Next() {
		var c storage.Complaint
		err := rows.Scan(&c.ID, &c.ReportID, &c.Scope.CompanyID, &c.Scope.BranchID, &c.Scope.DepartmentID,
			&c.Description, &c.Customer, &c.Severity, &c.ActionTaken, &c.Resolved, &c.ResponsibleID, &c.Date, &c.Reference)
		if err != nil {
			return nil, fmt.Errorf("complaints: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Storage) staffLogs(ctx context.Context, reportID int64) ([]storage.StaffLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, company_id, branch_id, department_id, staff_name, role, shift, issue, action, attendance, note
		FROM report_staff_logs WHERE report_id = ? ORDER BY id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("staff logs: %w", err)
	}
	defer rows.Close()

	out := []storage.StaffLog{}
	for rows.Next() {
		var l storage.StaffLog
		err := rows.Scan(&l.ID, &l.ReportID, &l.Scope.CompanyID, &l.Scope.BranchID, &l.Scope.DepartmentID,
			&l.StaffName, &l.Role, &l.Shift, &l.Issue, &l.Action, &l.Attendance, &l.Note)
		if err != nil {
			return nil, fmt.Errorf("staff logs: scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Storage) contractorRatings(ctx context.Context, reportID int64) ([]storage.ContractorRating, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, company_id, branch_id, department_id, contractor, rating, comment,
		       follow_up_action, reference_period
		FROM report_contractor_ratings WHERE report_id = ? ORDER BY id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("contractor ratings: %w", err)
	}
	defer rows.Close()

	out := []storage.ContractorRating{}
	for rows.Next() {
		var c storage.ContractorRating
		err := rows.Scan(&c.ID, &c.ReportID, &c.Scope.CompanyID, &c.Scope.BranchID, &c.Scope.DepartmentID,
			&c.Contractor, &c.Rating, &c.Comment, &c.FollowUpAction, &c.ReferencePeriod)
		if err != nil {
			return nil, fmt.Errorf("contractor ratings: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Storage) metricLines(ctx context.Context, reportID int64) ([]storage.MetricLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, template_id, company_id, branch_id, department_id, name, metric_type, options,
		       required, int_value, float_value, text_value, selection_value, sequence
		FROM report_metric_lines WHERE report_id = ? ORDER BY sequence, id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("metric lines: %w", err)
	}
	defer rows.Close()

	out := []storage.MetricLine{}
	for rows.Next() {
		var l storage.MetricLine
		var options []byte
		err := rows.Scan(&l.ID, &l.ReportID, &l.TemplateID, &l.Scope.CompanyID, &l.Scope.BranchID,
			&l.Scope.DepartmentID, &l.Name, &l.ValueType, &options, &l.Required,
			&l.Value.Int, &l.Value.Float, &l.Value.Text, &l.Value.Selection, &l.Sequence)
		if err != nil {
			return nil, fmt.Errorf("metric lines: scan: %w", err)
		}
		if err := json.Unmarshal(options, &l.Options); err != nil {
			return nil, fmt.Errorf("metric lines: options: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Storage) sections(ctx context.Context, reportID int64) ([]storage.Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, template_id, company_id, branch_id, department_id, title, subject, description,
		       employee, partner, sequence
		FROM report_sections WHERE report_id = ? ORDER BY sequence, id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("sections: %w", err)
	}
	defer rows.Close()

	out := []storage.Section{}
	for rows.Next() {
		var sec storage.Section
		err := rows.Scan(&sec.ID, &sec.ReportID, &sec.TemplateID, &sec.Scope.CompanyID, &sec.Scope.BranchID,
			&sec.Scope.DepartmentID, &sec.Title, &sec.Subject, &sec.Description, &sec.Employee, &sec.Partner, &sec.Sequence)
		if err != nil {
			return nil, fmt.Errorf("sections: scan: %w", err)
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

// ListReports returns headers only, newest first.
func (s *Storage) ListReports(ctx context.Context, f storage.ReportFilter) ([]storage.Report, error) {
	const op = "storage.mysql.ListReports"

	var where []string
	var args []any
	if !f.From.IsZero() {
		where = append(where, "report_date >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "report_date <= ?")
		args = append(args, f.To)
	}
	if len(f.CompanyIDs) > 0 {
		where = append(where, "company_id IN (?"+strings.Repeat(", ?", len(f.CompanyIDs)-1)+")")
		for _, id := range f.CompanyIDs {
			args = append(args, id)
		}
	}
	if f.State != "" {
		where = append(where, "state = ?")
		args = append(args, f.State)
	}

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY report_date DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []storage.Report{}
	for rows.Next() {
		var r storage.Report
		if err := scanReport(rows, &r); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return out, nil
}

// TransitionReport changes the state only while the row is still in t.From.
func (s *Storage) TransitionReport(ctx context.Context, id int64, t storage.ReportTransition) error {
	const op = "storage.mysql.TransitionReport"

	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET state = ?, submitted_at = ?, submitted_by = ? WHERE id = ? AND state = ?`,
		t.To, t.SubmittedAt, t.SubmittedBy, id, t.From)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 {
		return nil
	}

	var state storage.ReportState
	if err := s.db.QueryRowContext(ctx, `SELECT state FROM reports WHERE id = ?`, id).Scan(&state); err != nil {
		return mapErr(op, err)
	}
	return fmt.Errorf("%s: report %d is %s: %w", op, id, state, apperr.ErrInvalidTransition)
}

func (s *Storage) UpdateReportHeader(ctx context.Context, id int64, activities, notes string) error {
	const op = "storage.mysql.UpdateReportHeader"

	res, err := s.db.ExecContext(ctx, `UPDATE reports SET activities = ?, notes = ? WHERE id = ?`, activities, notes, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.mustExist(ctx, op, res, "reports", id)
}

func (s *Storage) AddComplaint(ctx context.Context, c *storage.Complaint) error {
	const op = "storage.mysql.AddComplaint"

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO report_complaints (report_id, company_id, branch_id, department_id, description, customer,
			severity, action_taken, resolved, responsible_id, complaint_date, reference)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ReportID, c.Scope.CompanyID, c.Scope.BranchID, c.Scope.DepartmentID, c.Description, c.Customer,
		c.Severity, c.ActionTaken, c.Resolved, c.ResponsibleID, c.Date, c.Reference)
	if err != nil {
		return childErr(op, err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (s *Storage) AddStaffLog(ctx context.Context, l *storage.StaffLog) error {
	const op = "storage.mysql.AddStaffLog"

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO report_staff_logs (report_id, company_id, branch_id, department_id, staff_name, role, shift,
			issue, action, attendance, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ReportID, l.Scope.CompanyID, l.Scope.BranchID, l.Scope.DepartmentID, l.StaffName, l.Role, l.Shift,
		l.Issue, l.Action, l.Attendance, l.Note)
	if err != nil {
		return childErr(op, err)
	}
	l.ID, err = res.LastInsertId()
	return err
}

func (s *Storage) AddContractorRating(ctx context.Context, c *storage.ContractorRating) error {
	const op = "storage.mysql.AddContractorRating"

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO report_contractor_ratings (report_id, company_id, branch_id, department_id, contractor, rating,
			comment, follow_up_action, reference_period)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ReportID, c.Scope.CompanyID, c.Scope.BranchID, c.Scope.DepartmentID, c.Contractor, c.Rating,
		c.Comment, c.FollowUpAction, c.ReferencePeriod)
	if err != nil {
		return childErr(op, err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (s *Storage) UpdateMetricValue(ctx context.Context, reportID, lineID int64, v storage.MetricValue) error {
	const op = "storage.mysql.UpdateMetricValue"

	res, err := s.db.ExecContext(ctx, `
		UPDATE report_metric_lines SET int_value = ?, float_value = ?, text_value = ?, selection_value = ?
		WHERE id = ? AND report_id = ?`,
		v.Int, v.Float, v.Text, v.Selection, lineID, reportID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.childExists(ctx, op, res, "report_metric_lines", reportID, lineID)
}

func (s *Storage) UpdateSection(ctx context.Context, sec storage.Section) error {
	const op = "storage.mysql.UpdateSection"

	res, err := s.db.ExecContext(ctx, `
		UPDATE report_sections SET title = ?, subject = ?, description = ?, employee = ?, partner = ?, sequence = ?
		WHERE id = ? AND report_id = ?`,
		sec.Title, sec.Subject, sec.Description, sec.Employee, sec.Partner, sec.Sequence, sec.ID, sec.ReportID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.childExists(ctx, op, res, "report_sections", sec.ReportID, sec.ID)
}

// childErr reports a missing parent report as not found rather than a validation failure.
func childErr(op string, err error) error {
	err = mapErr(op, err)
	if strings.Contains(err.Error(), "FOREIGN KEY") {
		return fmt.Errorf("%s: report: %w", op, apperr.ErrNotFound)
	}
	return err
}

func (s *Storage) childExists(ctx context.Context, op string, res sql.Result, table string, reportID, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return nil
	}
	var found int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE id = ? AND report_id = ?`, id, reportID).Scan(&found)
	if err != nil {
		return mapErr(op, err)
	}
	return nil
}
