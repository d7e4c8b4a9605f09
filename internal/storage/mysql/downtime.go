package mysql

import (
	"context"
	"fmt"

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

const downtimeColumns = `id, contract_id, start_at, end_at, relief, reason, state, waived_hours, chargeable_hours,
	approved_by, approved_at`

func scanDowntime(row scanner, d *storage.DowntimeRequest) error {
	return row.Scan(&d.ID, &d.ContractID, &d.Start, &d.End, &d.Relief, &d.Reason, &d.State,
		&d.WaivedHours, &d.ChargeableHours, &d.ApprovedBy, &d.ApprovedAt)
}

func (s *Storage) CreateDowntime(ctx context.Context, d *storage.DowntimeRequest) error {
	const op = "storage.mysql.CreateDowntime"

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO downtime_requests (contract_id, start_at, end_at, relief, reason, state, waived_hours,
			chargeable_hours, approved_by, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ContractID, d.Start, d.End, d.Relief, d.Reason, d.State, d.WaivedHours, d.ChargeableHours,
		d.ApprovedBy, d.ApprovedAt)
	if err != nil {
		return mapErr(op, err)
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (s *Storage) GetDowntime(ctx context.Context, id int64) (*storage.DowntimeRequest, error) {
	const op = "storage.mysql.GetDowntime"

	d := &storage.DowntimeRequest{}
	row := s.db.QueryRowContext(ctx, `SELECT `+downtimeColumns+` FROM downtime_requests WHERE id = ?`, id)
	if err := scanDowntime(row, d); err != nil {
		return nil, mapErr(op, err)
	}
	return d, nil
}

func (s *Storage) ListDowntime(ctx context.Context, contractID int64) ([]storage.DowntimeRequest, error) {
	const op = "storage.mysql.ListDowntime"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+downtimeColumns+` FROM downtime_requests WHERE contract_id = ? ORDER BY id`, contractID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []storage.DowntimeRequest{}
	for rows.Next() {
		var d storage.DowntimeRequest
		if err := scanDowntime(rows, &d); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Storage) TransitionDowntime(ctx context.Context, id int64, from, to storage.DowntimeState) error {
	const op = "storage.mysql.TransitionDowntime"

	res, err := s.db.ExecContext(ctx,
		`UPDATE downtime_requests SET state = ? WHERE id = ? AND state = ?`, to, id, from)
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

	var state storage.DowntimeState
	if err := s.db.QueryRowContext(ctx, `SELECT state FROM downtime_requests WHERE id = ?`, id).Scan(&state); err != nil {
		return mapErr(op, err)
	}
	return fmt.Errorf("%s: downtime %d is %s: %w", op, id, state, apperr.ErrInvalidTransition)
}

// ApproveDowntime locks the request, its contract and every order of the contract,
// lets apply compute the allocation and writes the result back.
func (s *Storage) ApproveDowntime(ctx context.Context, id int64,
	apply func(dc storage.DowntimeContext) (*storage.DowntimeAllocation, error)) (*storage.DowntimeAllocation, error) {
	const op = "storage.mysql.ApproveDowntime"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	var dc storage.DowntimeContext
	row := tx.QueryRowContext(ctx, `SELECT `+downtimeColumns+` FROM downtime_requests WHERE id = ? FOR UPDATE`, id)
	if err := scanDowntime(row, &dc.Request); err != nil {
		return nil, mapErr(op, err)
	}
	row = tx.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = ? FOR UPDATE`, dc.Request.ContractID)
	if err := scanContract(row, &dc.Contract); err != nil {
		return nil, mapErr(op, err)
	}
	if dc.Monthly, err = monthlyOf(ctx, tx, dc.Contract.ID, true); err != nil {
		return nil, fmt.Errorf("%s: monthly orders: %w", op, err)
	}
	dc.Daily, err = queryDaily(ctx, tx,
		`SELECT `+dailyColumns+` FROM daily_orders WHERE contract_id = ? ORDER BY id FOR UPDATE`, dc.Contract.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: daily orders: %w", op, err)
	}

	alloc, err := apply(dc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r := alloc.Request
	_, err = tx.ExecContext(ctx, `
		UPDATE downtime_requests SET state = ?, waived_hours = ?, chargeable_hours = ?, approved_by = ?, approved_at = ?
		WHERE id = ?`,
		r.State, r.WaivedHours, r.ChargeableHours, r.ApprovedBy, r.ApprovedAt, r.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: update request: %w", op, err)
	}

	for _, m := range alloc.Monthly {
		_, err := tx.ExecContext(ctx, `
			UPDATE monthly_orders SET adjusted_target_qty = ?, waived_hours = ?, chargeable_hours = ?,
				allowance_used_hours = ?, state = ?
			WHERE id = ?`,
			m.AdjustedTargetQty, m.WaivedHours, m.ChargeableHours, m.AllowanceUsedHours, m.State, m.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: update monthly order %d: %w", op, m.ID, err)
		}
	}
	for _, o := range alloc.Daily {
		if err := updateDaily(ctx, tx, o); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}
	return alloc, nil
}
