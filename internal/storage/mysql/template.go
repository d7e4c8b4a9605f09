package mysql

import (
	"context"
	"encoding/json"
	"fmt"

	"plantops/internal/storage"
)

func (s *Storage) ListMetricTemplates(ctx context.Context, activeOnly bool) ([]storage.MetricTemplate, error) {
	const op = "storage.mysql.ListMetricTemplates"

	query := `
		SELECT id, name, code, metric_type, selection_options, default_int, default_float, default_text,
		       default_selection, required, is_active, sequence, description, company_id, branch_id, department_id
		FROM metric_templates`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sequence, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	templates := []storage.MetricTemplate{}
	for rows.Next() {
		var t storage.MetricTemplate
		var options []byte
		err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.ValueType, &options,
			&t.Default.Int, &t.Default.Float, &t.Default.Text, &t.Default.Selection,
			&t.Required, &t.Active, &t.Sequence, &t.Description,
			&t.Scope.CompanyID, &t.Scope.BranchID, &t.Scope.DepartmentID)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		if err := json.Unmarshal(options, &t.SelectionOptions); err != nil {
			return nil, fmt.Errorf("%s: selection options: %w", op, err)
		}
		templates = append(templates, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return templates, nil
}

// SaveMetricTemplate inserts a template when its id is zero and updates it otherwise.
func (s *Storage) SaveMetricTemplate(ctx context.Context, t *storage.MetricTemplate) error {
	const op = "storage.mysql.SaveMetricTemplate"

	options, err := json.Marshal(nonNil(t.SelectionOptions))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	args := []any{t.Name, t.Code, t.ValueType, options,
		t.Default.Int, t.Default.Float, t.Default.Text, t.Default.Selection,
		t.Required, t.Active, t.Sequence, t.Description,
		t.Scope.CompanyID, t.Scope.BranchID, t.Scope.DepartmentID}

	if t.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO metric_templates (name, code, metric_type, selection_options, default_int, default_float,
				default_text, default_selection, required, is_active, sequence, description,
				company_id, branch_id, department_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return mapErr(op, err)
		}
		t.ID, err = res.LastInsertId()
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE metric_templates SET name=?, code=?, metric_type=?, selection_options=?, default_int=?, default_float=?,
			default_text=?, default_selection=?, required=?, is_active=?, sequence=?, description=?,
			company_id=?, branch_id=?, department_id=?
		WHERE id=?`, append(args, t.ID)...)
	if err != nil {
		return mapErr(op, err)
	}
	return s.mustExist(ctx, op, res, "metric_templates", t.ID)
}

func (s *Storage) ListSectionTemplates(ctx context.Context, activeOnly bool) ([]storage.SectionTemplate, error) {
	const op = "storage.mysql.ListSectionTemplates"

	query := `SELECT id, name, code, description, is_active, sequence, company_id, branch_id, department_id FROM section_templates`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sequence, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	templates := []storage.SectionTemplate{}
	for rows.Next() {
		var t storage.SectionTemplate
		err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.Description, &t.Active, &t.Sequence,
			&t.Scope.CompanyID, &t.Scope.BranchID, &t.Scope.DepartmentID)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		templates = append(templates, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return templates, nil
}

func (s *Storage) SaveSectionTemplate(ctx context.Context, t *storage.SectionTemplate) error {
	const op = "storage.mysql.SaveSectionTemplate"

	args := []any{t.Name, t.Code, t.Description, t.Active, t.Sequence,
		t.Scope.CompanyID, t.Scope.BranchID, t.Scope.DepartmentID}

	if t.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO section_templates (name, code, description, is_active, sequence, company_id, branch_id, department_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return mapErr(op, err)
		}
		t.ID, err = res.LastInsertId()
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE section_templates SET name=?, code=?, description=?, is_active=?, sequence=?,
			company_id=?, branch_id=?, department_id=?
		WHERE id=?`, append(args, t.ID)...)
	if err != nil {
		return mapErr(op, err)
	}
	return s.mustExist(ctx, op, res, "section_templates", t.ID)
}

// mustExist reports ErrNotFound when an UPDATE matched nothing. MySQL counts changed rows,
// so a zero result is confirmed with a lookup.
func (s *Storage) mustExist(ctx context.Context, op string, res interface{ RowsAffected() (int64, error) }, table string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return nil
	}
	var found int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE id = ?`, id).Scan(&found)
	if err != nil {
		return mapErr(op, err)
	}
	return nil
}
