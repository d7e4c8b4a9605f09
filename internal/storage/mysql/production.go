package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

type scanner interface {
	Scan(dest ...any) error
}

func (s *Storage) CreateWorkcenter(ctx context.Context, w *storage.Workcenter) error {
	const op = "storage.mysql.CreateWorkcenter"

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workcenters (name, external_id, company_id) VALUES (?, ?, ?)`,
		w.Name, w.ExternalID, w.CompanyID)
	if err != nil {
		return mapErr(op, err)
	}
	w.ID, err = res.LastInsertId()
	return err
}

func (s *Storage) ListWorkcenters(ctx context.Context) ([]storage.Workcenter, error) {
	const op = "storage.mysql.ListWorkcenters"

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, external_id, company_id FROM workcenters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []storage.Workcenter{}
	for rows.Next() {
		var w storage.Workcenter
		if err := rows.Scan(&w.ID, &w.Name, &w.ExternalID, &w.CompanyID); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Storage) WorkcenterByExternalID(ctx context.Context, externalID string) (*storage.Workcenter, error) {
	const op = "storage.mysql.WorkcenterByExternalID"

	w := &storage.Workcenter{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, external_id, company_id FROM workcenters WHERE external_id = ?`, externalID).
		Scan(&w.ID, &w.Name, &w.ExternalID, &w.CompanyID)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return w, nil
}

const contractColumns = `id, name, customer, company_id, workcenter_id, product, start_date, end_date, monthly_mgq,
	waive_off_allowance, unit_rate, standby_rate_delta, downtime_hour_rate, cooling_months, state, created_at`

func scanContract(row scanner, c *storage.Contract) error {
	return row.Scan(&c.ID, &c.Name, &c.Customer, &c.CompanyID, &c.WorkcenterID, &c.Product, &c.StartDate, &c.EndDate,
		&c.MonthlyMGQ, &c.WaiveOffAllowance, &c.UnitRate, &c.StandbyRateDelta, &c.DowntimeHourRate, &c.CoolingMonths,
		&c.State, &c.CreatedAt)
}

func (s *Storage) CreateContract(ctx context.Context, c *storage.Contract) error {
	const op = "storage.mysql.CreateContract"

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts (name, customer, company_id, workcenter_id, product, start_date, end_date, monthly_mgq,
			waive_off_allowance, unit_rate, standby_rate_delta, downtime_hour_rate, cooling_months, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Customer, c.CompanyID, c.WorkcenterID, c.Product, c.StartDate, c.EndDate, c.MonthlyMGQ,
		c.WaiveOffAllowance, c.UnitRate, c.StandbyRateDelta, c.DowntimeHourRate, c.CoolingMonths, c.State, c.CreatedAt)
	if err != nil {
		return mapErr(op, err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (s *Storage) GetContract(ctx context.Context, id int64) (*storage.Contract, error) {
	const op = "storage.mysql.GetContract"

	c := &storage.Contract{}
	if err := scanContract(s.db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id), c); err != nil {
		return nil, mapErr(op, err)
	}
	return c, nil
}

// ConfirmContract moves a draft contract to confirmed and stores its monthly orders in one transaction.
func (s *Storage) ConfirmContract(ctx context.Context, id int64, orders []storage.MonthlyOrder) ([]storage.MonthlyOrder, error) {
	const op = "storage.mysql.ConfirmContract"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	var state storage.ContractState
	if err := tx.QueryRowContext(ctx, `SELECT state FROM contracts WHERE id = ? FOR UPDATE`, id).Scan(&state); err != nil {
		return nil, mapErr(op, err)
	}
	if state != storage.ContractDraft {
		return nil, fmt.Errorf("%s: contract %d is %s: %w", op, id, state, apperr.ErrInvalidTransition)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO monthly_orders (contract_id, workcenter_id, name, date_start, date_end, target_qty,
			adjusted_target_qty, waived_hours, chargeable_hours, allowance_used_hours, is_cooling, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("%s: prepare: %w", op, err)
	}
	defer stmt.Close()

	out := make([]storage.MonthlyOrder, 0, len(orders))
	for _, m := range orders {
		m.ContractID = id
		res, err := stmt.ExecContext(ctx, m.ContractID, m.WorkcenterID, m.Name, m.DateStart, m.DateEnd, m.TargetQty,
			m.AdjustedTargetQty, m.WaivedHours, m.ChargeableHours, m.AllowanceUsedHours, m.Cooling, m.State)
		if err != nil {
			return nil, mapErr(op, err)
		}
		if m.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, m)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE contracts SET state = ? WHERE id = ?`, storage.ContractConfirmed, id); err != nil {
		return nil, fmt.Errorf("%s: update contract: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}
	return out, nil
}

const monthlyColumns = `id, contract_id, workcenter_id, name, date_start, date_end, target_qty, adjusted_target_qty,
	waived_hours, chargeable_hours, allowance_used_hours, is_cooling, state`

func scanMonthly(row scanner, m *storage.MonthlyOrder) error {
	return row.Scan(&m.ID, &m.ContractID, &m.WorkcenterID, &m.Name, &m.DateStart, &m.DateEnd, &m.TargetQty,
		&m.AdjustedTargetQty, &m.WaivedHours, &m.ChargeableHours, &m.AllowanceUsedHours, &m.Cooling, &m.State)
}

func (s *Storage) ListMonthlyOrders(ctx context.Context, contractID int64) ([]storage.MonthlyOrder, error) {
	const op = "storage.mysql.ListMonthlyOrders"

	out, err := monthlyOf(ctx, s.db, contractID, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func monthlyOf(ctx context.Context, q queryer, contractID int64, lock bool) ([]storage.MonthlyOrder, error) {
	query := `SELECT ` + monthlyColumns + ` FROM monthly_orders WHERE contract_id = ? ORDER BY date_start, id`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []storage.MonthlyOrder{}
	for rows.Next() {
		var m storage.MonthlyOrder
		if err := scanMonthly(rows, &m); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Storage) GetMonthlyOrder(ctx context.Context, id int64) (*storage.MonthlyOrder, error) {
	const op = "storage.mysql.GetMonthlyOrder"

	m := &storage.MonthlyOrder{}
	if err := scanMonthly(s.db.QueryRowContext(ctx, `SELECT `+monthlyColumns+` FROM monthly_orders WHERE id = ?`, id), m); err != nil {
		return nil, mapErr(op, err)
	}
	return m, nil
}

// ScheduleMonthlyOrder stores the daily orders with their schedule dockets and marks the month scheduled.
func (s *Storage) ScheduleMonthlyOrder(ctx context.Context, id int64, orders []storage.DailyOrder) ([]storage.DailyOrder, error) {
	const op = "storage.mysql.ScheduleMonthlyOrder"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	var state storage.MonthlyState
	if err := tx.QueryRowContext(ctx, `SELECT state FROM monthly_orders WHERE id = ? FOR UPDATE`, id).Scan(&state); err != nil {
		return nil, mapErr(op, err)
	}
	if state != storage.MonthlyDraft {
		return nil, fmt.Errorf("%s: monthly order %d is %s: %w", op, id, state, apperr.ErrInvalidTransition)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_orders (monthly_order_id, contract_id, workcenter_id, name, order_date, sequence, target_qty,
			produced_qty, runtime_minutes, idle_minutes, relief_qty, waived_hours, chargeable_hours, state, last_telemetry_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("%s: prepare: %w", op, err)
	}
	defer stmt.Close()

	out := make([]storage.DailyOrder, 0, len(orders))
	for _, o := range orders {
		o.MonthlyOrderID = id
		res, err := stmt.ExecContext(ctx, o.MonthlyOrderID, o.ContractID, o.WorkcenterID, o.Name, o.Date, o.Sequence,
			o.TargetQty, o.ProducedQty, o.RuntimeMinutes, o.IdleMinutes, o.ReliefQty, o.WaivedHours,
			o.ChargeableHours, o.State, o.LastTelemetryAt)
		if err != nil {
			return nil, mapErr(op, err)
		}
		if o.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if o.Docket != nil {
			d := *o.Docket
			d.DailyOrderID = o.ID
			d.MonthlyOrderID = id
			if err := insertDocket(ctx, tx, &d); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			o.Docket = &d
		}
		out = append(out, o)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE monthly_orders SET state = ? WHERE id = ?`, storage.MonthlyScheduled, id); err != nil {
		return nil, fmt.Errorf("%s: update monthly order: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}
	return out, nil
}

const dailyColumns = `id, monthly_order_id, contract_id, workcenter_id, name, order_date, sequence, target_qty,
	produced_qty, runtime_minutes, idle_minutes, relief_qty, waived_hours, chargeable_hours, state, last_telemetry_at`

func scanDaily(row scanner, o *storage.DailyOrder) error {
	return row.Scan(&o.ID, &o.MonthlyOrderID, &o.ContractID, &o.WorkcenterID, &o.Name, &o.Date, &o.Sequence,
		&o.TargetQty, &o.ProducedQty, &o.RuntimeMinutes, &o.IdleMinutes, &o.ReliefQty, &o.WaivedHours,
		&o.ChargeableHours, &o.State, &o.LastTelemetryAt)
}

func queryDaily(ctx context.Context, q queryer, query string, args ...any) ([]storage.DailyOrder, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []storage.DailyOrder{}
	for rows.Next() {
		var o storage.DailyOrder
		if err := scanDaily(rows, &o); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// attachScheduleDockets loads the schedule docket of every order. Rows of the
// previous query must be closed before this runs on a transaction.
func attachScheduleDockets(ctx context.Context, q queryer, orders []storage.DailyOrder, lock bool) error {
	query := `SELECT ` + docketColumns + ` FROM dockets WHERE daily_order_id = ? AND source = ? ORDER BY id LIMIT 1`
	if lock {
		query += ` FOR UPDATE`
	}
	for i := range orders {
		d := &storage.Docket{}
		err := scanDocket(q.QueryRowContext(ctx, query, orders[i].ID, storage.DocketSchedule), d)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return fmt.Errorf("schedule docket: %w", err)
		}
		orders[i].Docket = d
	}
	return nil
}

func (s *Storage) ListDailyOrders(ctx context.Context, monthlyID int64) ([]storage.DailyOrder, error) {
	const op = "storage.mysql.ListDailyOrders"

	out, err := queryDaily(ctx, s.db,
		`SELECT `+dailyColumns+` FROM daily_orders WHERE monthly_order_id = ? ORDER BY order_date, sequence, id`, monthlyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := attachScheduleDockets(ctx, s.db, out, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

const docketColumns = `id, daily_order_id, monthly_order_id, contract_id, workcenter_id, docket_no, docket_date, source,
	state, qty, runtime_minutes, idle_minutes, alarms, payload, note, received_at`

func scanDocket(row scanner, d *storage.Docket) error {
	var alarms, payload []byte
	err := row.Scan(&d.ID, &d.DailyOrderID, &d.MonthlyOrderID, &d.ContractID, &d.WorkcenterID, &d.DocketNo, &d.Date,
		&d.Source, &d.State, &d.Qty, &d.RuntimeMinutes, &d.IdleMinutes, &alarms, &payload, &d.Note, &d.ReceivedAt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(alarms, &d.Alarms); err != nil {
		return fmt.Errorf("alarms: %w", err)
	}
	if len(payload) > 0 {
		d.Payload = json.RawMessage(payload)
	}
	return nil
}

func insertDocket(ctx context.Context, q queryer, d *storage.Docket) error {
	alarms, err := json.Marshal(nonNil(d.Alarms))
	if err != nil {
		return err
	}
	var payload any
	if len(d.Payload) > 0 {
		payload = []byte(d.Payload)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO dockets (daily_order_id, monthly_order_id, contract_id, workcenter_id, docket_no, docket_date, source,
			state, qty, runtime_minutes, idle_minutes, alarms, payload, note, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DailyOrderID, d.MonthlyOrderID, d.ContractID, d.WorkcenterID, d.DocketNo, d.Date, d.Source,
		d.State, d.Qty, d.RuntimeMinutes, d.IdleMinutes, alarms, payload, d.Note, d.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert docket: %w", err)
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (s *Storage) ListDockets(ctx context.Context, monthlyID int64) ([]storage.Docket, error) {
	const op = "storage.mysql.ListDockets"

	rows, err := s.db.QueryContext(ctx, `SELECT `+docketColumns+` FROM dockets WHERE monthly_order_id = ? ORDER BY id`, monthlyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []storage.Docket{}
	for rows.Next() {
		var d storage.Docket
		if err := scanDocket(rows, &d); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func updateDaily(ctx context.Context, q queryer, o storage.DailyOrder) error {
	_, err := q.ExecContext(ctx, `
		UPDATE daily_orders SET produced_qty = ?, runtime_minutes = ?, idle_minutes = ?, relief_qty = ?,
			waived_hours = ?, chargeable_hours = ?, state = ?, last_telemetry_at = ?
		WHERE id = ?`,
		o.ProducedQty, o.RuntimeMinutes, o.IdleMinutes, o.ReliefQty, o.WaivedHours, o.ChargeableHours,
		o.State, o.LastTelemetryAt, o.ID)
	if err != nil {
		return fmt.Errorf("update daily order %d: %w", o.ID, err)
	}
	return nil
}

// RecordTelemetry locks the open orders of the work center for the day, lets apply pick and
// update one of them, then persists the order, its schedule docket and the new docket.
func (s *Storage) RecordTelemetry(ctx context.Context, workcenterID int64, day time.Time,
	apply func(open []storage.DailyOrder) (*storage.TelemetryBooking, error)) (*storage.TelemetryBooking, error) {
	const op = "storage.mysql.RecordTelemetry"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	open, err := queryDaily(ctx, tx, `
		SELECT `+dailyColumns+` FROM daily_orders
		WHERE workcenter_id = ? AND order_date = ? AND state IN (?, ?)
		ORDER BY id FOR UPDATE`,
		workcenterID, day, storage.DailyConfirmed, storage.DailyProgress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := attachScheduleDockets(ctx, tx, open, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	booking, err := apply(open)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := updateDaily(ctx, tx, booking.Order); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if d := booking.Order.Docket; d != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE dockets SET state = ? WHERE id = ?`, d.State, d.ID); err != nil {
			return nil, fmt.Errorf("%s: update schedule docket: %w", op, err)
		}
	}
	if err := insertDocket(ctx, tx, &booking.Docket); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}
	return booking, nil
}

func (s *Storage) GetDailyOrder(ctx context.Context, id int64) (*storage.DailyOrder, error) {
	const op = "storage.mysql.GetDailyOrder"

	o := &storage.DailyOrder{}
	if err := scanDaily(s.db.QueryRowContext(ctx, `SELECT `+dailyColumns+` FROM daily_orders WHERE id = ?`, id), o); err != nil {
		return nil, mapErr(op, err)
	}
	orders := []storage.DailyOrder{*o}
	if err := attachScheduleDockets(ctx, s.db, orders, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &orders[0], nil
}

func (s *Storage) GetDocket(ctx context.Context, id int64) (*storage.Docket, error) {
	const op = "storage.mysql.GetDocket"

	d := &storage.Docket{}
	if err := scanDocket(s.db.QueryRowContext(ctx, `SELECT `+docketColumns+` FROM dockets WHERE id = ?`, id), d); err != nil {
		return nil, mapErr(op, err)
	}
	return d, nil
}

// ChangeDockets locks a daily order and its dockets, lets apply rework them, then persists
// the recomputed order, its schedule docket and the created or edited docket.
func (s *Storage) ChangeDockets(ctx context.Context, dailyOrderID int64,
	apply func(order storage.DailyOrder, dockets []storage.Docket) (*storage.DocketChange, error)) (*storage.DocketChange, error) {
	const op = "storage.mysql.ChangeDockets"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	order := storage.DailyOrder{}
	if err := scanDaily(tx.QueryRowContext(ctx,
		`SELECT `+dailyColumns+` FROM daily_orders WHERE id = ? FOR UPDATE`, dailyOrderID), &order); err != nil {
		return nil, mapErr(op, err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+docketColumns+` FROM dockets WHERE daily_order_id = ? ORDER BY id FOR UPDATE`, dailyOrderID)
	if err != nil {
		return nil, fmt.Errorf("%s: dockets: %w", op, err)
	}
	var dockets []storage.Docket
	for rows.Next() {
		var d storage.Docket
		if err := scanDocket(rows, &d); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		dockets = append(dockets, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	for _, d := range dockets {
		if d.Source == storage.DocketSchedule {
			sched := d
			order.Docket = &sched
			break
		}
	}

	change, err := apply(order, dockets)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := updateDaily(ctx, tx, change.Order); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if d := change.Order.Docket; d != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE dockets SET state = ? WHERE id = ?`, d.State, d.ID); err != nil {
			return nil, fmt.Errorf("%s: update schedule docket: %w", op, err)
		}
	}

	d := &change.Docket
	if change.Created {
		if err := insertDocket(ctx, tx, d); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		_, err := tx.ExecContext(ctx, `
			UPDATE dockets SET docket_no = ?, state = ?, qty = ?, runtime_minutes = ?, idle_minutes = ?, note = ?
			WHERE id = ? AND daily_order_id = ?`,
			d.DocketNo, d.State, d.Qty, d.RuntimeMinutes, d.IdleMinutes, d.Note, d.ID, dailyOrderID)
		if err != nil {
			return nil, fmt.Errorf("%s: update docket: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}
	return change, nil
}
