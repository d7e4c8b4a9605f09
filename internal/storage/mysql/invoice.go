package mysql

import (
	"context"
	"fmt"

	"plantops/internal/storage"
)

// CreateInvoice stores the invoice and its lines in one transaction.
func (s *Storage) CreateInvoice(ctx context.Context, inv *storage.Invoice) error {
	const op = "storage.mysql.CreateInvoice"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (reference, monthly_order_id, contract_id, customer, invoice_date, period_start, period_end,
			target_qty, adjusted_qty, prime_output_qty, standby_qty, waived_hours, chargeable_hours,
			runtime_minutes, idle_minutes, docket_count, is_cooling, total, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Reference, inv.MonthlyOrderID, inv.ContractID, inv.Customer, inv.InvoiceDate, inv.PeriodStart, inv.PeriodEnd,
		inv.TargetQty, inv.AdjustedQty, inv.PrimeOutputQty, inv.StandbyQty, inv.WaivedHours, inv.ChargeableHours,
		inv.RuntimeMinutes, inv.IdleMinutes, inv.DocketCount, inv.Cooling, inv.Total, inv.State)
	if err != nil {
		return mapErr(op, err)
	}
	if inv.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO invoice_lines (invoice_id, kind, name, unit, quantity, unit_price, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%s: prepare: %w", op, err)
	}
	defer stmt.Close()

	for i := range inv.Lines {
		l := &inv.Lines[i]
		l.InvoiceID = inv.ID
		res, err := stmt.ExecContext(ctx, l.InvoiceID, l.Kind, l.Name, l.Unit, l.Quantity, l.UnitPrice, l.Amount)
		if err != nil {
			return mapErr(op, err)
		}
		if l.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func (s *Storage) GetInvoice(ctx context.Context, id int64) (*storage.Invoice, error) {
	const op = "storage.mysql.GetInvoice"

	inv := &storage.Invoice{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, reference, monthly_order_id, contract_id, customer, invoice_date, period_start, period_end,
		       target_qty, adjusted_qty, prime_output_qty, standby_qty, waived_hours, chargeable_hours,
		       runtime_minutes, idle_minutes, docket_count, is_cooling, total, state
		FROM invoices WHERE id = ?`, id).
		Scan(&inv.ID, &inv.Reference, &inv.MonthlyOrderID, &inv.ContractID, &inv.Customer, &inv.InvoiceDate,
			&inv.PeriodStart, &inv.PeriodEnd, &inv.TargetQty, &inv.AdjustedQty, &inv.PrimeOutputQty, &inv.StandbyQty,
			&inv.WaivedHours, &inv.ChargeableHours, &inv.RuntimeMinutes, &inv.IdleMinutes, &inv.DocketCount,
			&inv.Cooling, &inv.Total, &inv.State)
	if err != nil {
		return nil, mapErr(op, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, kind, name, unit, quantity, unit_price, amount
		FROM invoice_lines WHERE invoice_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("%s: lines: %w", op, err)
	}
	defer rows.Close()

	inv.Lines = []storage.InvoiceLine{}
	for rows.Next() {
		var l storage.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Kind, &l.Name, &l.Unit, &l.Quantity, &l.UnitPrice, &l.Amount); err != nil {
			return nil, fmt.Errorf("%s: scan line: %w", op, err)
		}
		inv.Lines = append(inv.Lines, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return inv, nil
}
