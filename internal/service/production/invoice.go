package production

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/storage"
)

type InvoiceInput struct {
	MonthlyOrderID int64
	InvoiceDate    time.Time
	// StandbyDelta overrides the contract's standby rate discount when set.
	StandbyDelta *decimal.Decimal
}

// BuildInvoice aggregates the dockets of a monthly order into an invoice draft. Dockets are
// only read.
func BuildInvoice(c storage.Contract, m storage.MonthlyOrder, dockets []storage.Docket, delta decimal.Decimal) (*storage.Invoice, error) {
	prime, runtime, idle := decimal.Zero, decimal.Zero, decimal.Zero
	count := 0
	for _, d := range dockets {
		if d.State == storage.DocketCancel {
			continue
		}
		prime = prime.Add(d.Qty)
		runtime = runtime.Add(d.RuntimeMinutes)
		idle = idle.Add(d.IdleMinutes)
		if d.Qty.IsPositive() {
			count++
		}
	}

	// Cooling windows carry no standby obligation.
	standby := m.AdjustedTargetQty.Sub(prime)
	if standby.IsNegative() || m.Cooling {
		standby = decimal.Zero
	}

	inv := &storage.Invoice{
		MonthlyOrderID:  m.ID,
		ContractID:      c.ID,
		Customer:        c.Customer,
		PeriodStart:     m.DateStart,
		PeriodEnd:       m.DateEnd,
		TargetQty:       m.TargetQty,
		AdjustedQty:     m.AdjustedTargetQty,
		PrimeOutputQty:  prime,
		StandbyQty:      standby,
		WaivedHours:     m.WaivedHours,
		ChargeableHours: m.ChargeableHours,
		RuntimeMinutes:  runtime,
		IdleMinutes:     idle,
		DocketCount:     count,
		Cooling:         m.Cooling,
		State:           "draft",
	}

	product := c.Product
	if product == "" {
		product = "Concrete"
	}
	period := m.DateStart.Format("Jan 2006")

	if prime.IsPositive() {
		inv.Lines = append(inv.Lines, invoiceLine(storage.LinePrime,
			fmt.Sprintf("%s prime output %s", product, period), "m3", prime, c.UnitRate))
	}
	if standby.IsPositive() {
		price := c.UnitRate.Sub(delta)
		if price.IsNegative() {
			price = decimal.Zero
		}
		inv.Lines = append(inv.Lines, invoiceLine(storage.LineStandby,
			fmt.Sprintf("Optimized standby %s (MGQ %s, produced %s)", period, m.AdjustedTargetQty.StringFixed(2), prime.StringFixed(2)),
			"m3", standby, price))
	}
	if m.ChargeableHours.IsPositive() {
		inv.Lines = append(inv.Lines, invoiceLine(storage.LineDowntime,
			fmt.Sprintf("Chargeable downtime %s", period), "h", m.ChargeableHours, c.DowntimeHourRate))
	}
	if m.WaivedHours.IsPositive() {
		inv.Lines = append(inv.Lines, invoiceLine(storage.LineWaived,
			fmt.Sprintf("Waived downtime %s (no charge)", period), "h", m.WaivedHours, decimal.Zero))
	}

	if !prime.IsPositive() && !standby.IsPositive() && !m.ChargeableHours.IsPositive() {
		return nil, fmt.Errorf("nothing to invoice for %s: %w", m.Name, apperr.ErrValidation)
	}

	total := decimal.Zero
	for _, l := range inv.Lines {
		total = total.Add(l.Amount)
	}
	inv.Total = total

	return inv, nil
}

func invoiceLine(kind storage.InvoiceLineKind, name, unit string, qty, price decimal.Decimal) storage.InvoiceLine {
	return storage.InvoiceLine{
		Kind:      kind,
		Name:      name,
		Unit:      unit,
		Quantity:  qty,
		UnitPrice: price,
		Amount:    qty.Mul(price).Round(2),
	}
}

// PrepareInvoice loads the monthly order, its contract and dockets concurrently and stores
// one invoice draft.
func (s *Service) PrepareInvoice(ctx context.Context, actor access.Actor, in InvoiceInput) (*storage.Invoice, error) {
	const op = "service.production.PrepareInvoice"

	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	m, err := s.store.GetMonthlyOrder(ctx, in.MonthlyOrderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		contract *storage.Contract
		dockets  []storage.Docket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.store.GetContract(gctx, m.ContractID)
		if err != nil {
			return err
		}
		contract = c
		return nil
	})
	g.Go(func() error {
		d, err := s.store.ListDockets(gctx, m.ID)
		if err != nil {
			return err
		}
		dockets = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	delta := contract.StandbyRateDelta
	if in.StandbyDelta != nil {
		delta = *in.StandbyDelta
	}
	if delta.IsNegative() {
		return nil, fmt.Errorf("%s: negative standby delta: %w", op, apperr.ErrValidation)
	}

	inv, err := BuildInvoice(*contract, *m, dockets, delta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	date := in.InvoiceDate
	if date.IsZero() {
		date = s.now()
	}
	inv.InvoiceDate = Day(date, s.opts.Location)
	inv.Reference = fmt.Sprintf("INV/%s/%s", m.DateStart.Format("200601"), strings.ToUpper(uuid.NewString()[:8]))

	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("invoice prepared",
		slog.String("op", op),
		slog.Int64("monthly_order_id", m.ID),
		slog.String("reference", inv.Reference),
		slog.String("total", inv.Total.String()),
	)

	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, actor access.Actor, id int64) (*storage.Invoice, error) {
	const op = "service.production.GetInvoice"

	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.contractFor(ctx, actor, inv.ContractID, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}
