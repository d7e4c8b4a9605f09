// Package production derives the monthly, daily and docket records of a rental contract
// and books telemetry, downtime and invoicing against them.
package production

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/storage"
)

type Store interface {
	CreateWorkcenter(ctx context.Context, w *storage.Workcenter) error
	ListWorkcenters(ctx context.Context) ([]storage.Workcenter, error)
	WorkcenterByExternalID(ctx context.Context, externalID string) (*storage.Workcenter, error)

	CreateContract(ctx context.Context, c *storage.Contract) error
	GetContract(ctx context.Context, id int64) (*storage.Contract, error)
	// ConfirmContract moves a draft contract to confirmed and inserts its monthly orders
	// in one transaction.
	ConfirmContract(ctx context.Context, id int64, orders []storage.MonthlyOrder) ([]storage.MonthlyOrder, error)

	ListMonthlyOrders(ctx context.Context, contractID int64) ([]storage.MonthlyOrder, error)
	GetMonthlyOrder(ctx context.Context, id int64) (*storage.MonthlyOrder, error)
	// ScheduleMonthlyOrder moves a draft monthly order to scheduled and inserts the daily
	// orders with their dockets in one transaction.
	ScheduleMonthlyOrder(ctx context.Context, id int64, orders []storage.DailyOrder) ([]storage.DailyOrder, error)
	ListDailyOrders(ctx context.Context, monthlyID int64) ([]storage.DailyOrder, error)
	ListDockets(ctx context.Context, monthlyID int64) ([]storage.Docket, error)
	GetDailyOrder(ctx context.Context, id int64) (*storage.DailyOrder, error)
	GetDocket(ctx context.Context, id int64) (*storage.Docket, error)
	// ChangeDockets locks a daily order with all of its dockets and persists the change
	// produced by apply.
	ChangeDockets(ctx context.Context, dailyOrderID int64,
		apply func(order storage.DailyOrder, dockets []storage.Docket) (*storage.DocketChange, error)) (*storage.DocketChange, error)

	// RecordTelemetry locks the open orders of a work center for one day and persists
	// the booking produced by apply.
	RecordTelemetry(ctx context.Context, workcenterID int64, day time.Time,
		apply func(open []storage.DailyOrder) (*storage.TelemetryBooking, error)) (*storage.TelemetryBooking, error)

	CreateDowntime(ctx context.Context, d *storage.DowntimeRequest) error
	GetDowntime(ctx context.Context, id int64) (*storage.DowntimeRequest, error)
	ListDowntime(ctx context.Context, contractID int64) ([]storage.DowntimeRequest, error)
	TransitionDowntime(ctx context.Context, id int64, from, to storage.DowntimeState) error
	// ApproveDowntime locks the request, its contract and the affected orders, and
	// persists the allocation produced by apply.
	ApproveDowntime(ctx context.Context, id int64,
		apply func(dc storage.DowntimeContext) (*storage.DowntimeAllocation, error)) (*storage.DowntimeAllocation, error)

	CreateInvoice(ctx context.Context, inv *storage.Invoice) error
	GetInvoice(ctx context.Context, id int64) (*storage.Invoice, error)
}

type Options struct {
	MaxOrderQty decimal.Decimal
	Location    *time.Location
}

type Service struct {
	log   *slog.Logger
	store Store
	opts  Options
	now   func() time.Time
}

var (
	defaultMaxOrderQty  = decimal.NewFromInt(7)
	defaultAllowance    = decimal.NewFromInt(48)
	defaultStandbyDelta = decimal.NewFromInt(50)
)

func New(log *slog.Logger, store Store, opts Options) *Service {
	if !opts.MaxOrderQty.IsPositive() {
		opts.MaxOrderQty = defaultMaxOrderQty
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{log: log, store: store, opts: opts, now: time.Now}
}

func (s *Service) CreateWorkcenter(ctx context.Context, actor access.Actor, w storage.Workcenter) (*storage.Workcenter, error) {
	const op = "service.production.CreateWorkcenter"

	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	w.Name = strings.TrimSpace(w.Name)
	w.ExternalID = strings.TrimSpace(w.ExternalID)
	if w.Name == "" || w.ExternalID == "" {
		return nil, fmt.Errorf("%s: name and external id are required: %w", op, apperr.ErrValidation)
	}
	if err := s.store.CreateWorkcenter(ctx, &w); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &w, nil
}

// ListWorkcenters returns the work centers of the actor's companies.
func (s *Service) ListWorkcenters(ctx context.Context, actor access.Actor) ([]storage.Workcenter, error) {
	const op = "service.production.ListWorkcenters"

	all, err := s.store.ListWorkcenters(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]storage.Workcenter, 0, len(all))
	for _, w := range all {
		if actor.CanRead(storage.Scope{CompanyID: w.CompanyID}) {
			out = append(out, w)
		}
	}
	return out, nil
}

// CreateContract stores a draft contract after filling in the commercial defaults.
func (s *Service) CreateContract(ctx context.Context, actor access.Actor, c storage.Contract) (*storage.Contract, error) {
	const op = "service.production.CreateContract"

	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("%s: name is required: %w", op, apperr.ErrValidation)
	}
	if c.WorkcenterID == 0 {
		return nil, fmt.Errorf("%s: workcenter is required: %w", op, apperr.ErrValidation)
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() || c.EndDate.Before(c.StartDate) {
		return nil, fmt.Errorf("%s: invalid contract window: %w", op, apperr.ErrValidation)
	}
	if c.MonthlyMGQ.IsNegative() || c.UnitRate.IsNegative() || c.DowntimeHourRate.IsNegative() {
		return nil, fmt.Errorf("%s: negative quantity or rate: %w", op, apperr.ErrValidation)
	}
	if c.CoolingMonths < 0 {
		return nil, fmt.Errorf("%s: negative cooling period: %w", op, apperr.ErrValidation)
	}
	if c.WaiveOffAllowance.IsZero() {
		c.WaiveOffAllowance = defaultAllowance
	}
	if c.StandbyRateDelta.IsZero() {
		c.StandbyRateDelta = defaultStandbyDelta
	}
	c.StartDate = Day(c.StartDate, time.UTC)
	c.EndDate = Day(c.EndDate, time.UTC)
	c.State = storage.ContractDraft
	c.CreatedAt = s.now().UTC()

	if err := s.store.CreateContract(ctx, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

func (s *Service) GetContract(ctx context.Context, actor access.Actor, id int64) (*storage.Contract, error) {
	c, err := s.contractFor(ctx, actor, id, false)
	if err != nil {
		return nil, fmt.Errorf("service.production.GetContract: %w", err)
	}
	return c, nil
}

// ConfirmContract confirms the contract and creates one monthly order per calendar month
// overlapping its window.
func (s *Service) ConfirmContract(ctx context.Context, actor access.Actor, id int64) ([]storage.MonthlyOrder, error) {
	const op = "service.production.ConfirmContract"

	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if c.State != storage.ContractDraft {
		return nil, fmt.Errorf("%s: contract %d is %s: %w", op, id, c.State, apperr.ErrInvalidTransition)
	}

	windows, err := MonthlyWindows(c.StartDate, c.EndDate, c.CoolingEnd())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	orders := make([]storage.MonthlyOrder, 0, len(windows))
	for i, w := range windows {
		target := ProratedTarget(c.MonthlyMGQ, w)
		name := fmt.Sprintf("%s/%s", c.Name, w.Start.Format("2006-01"))
		// The cooling part of a month that is cut in two gets its own name.
		if w.Cooling && i+1 < len(windows) && windows[i+1].Start.Month() == w.Start.Month() &&
			windows[i+1].Start.Year() == w.Start.Year() {
			name += "-C"
		}
		orders = append(orders, storage.MonthlyOrder{
			ContractID:        c.ID,
			WorkcenterID:      c.WorkcenterID,
			Name:              name,
			DateStart:         w.Start,
			DateEnd:           w.End,
			TargetQty:         target,
			AdjustedTargetQty: target,
			Cooling:           w.Cooling,
			State:             storage.MonthlyDraft,
		})
	}

	orders, err = s.store.ConfirmContract(ctx, id, orders)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("contract confirmed",
		slog.String("op", op),
		slog.Int64("contract_id", id),
		slog.Int("monthly_orders", len(orders)),
	)

	return orders, nil
}

func (s *Service) ListMonthlyOrders(ctx context.Context, actor access.Actor, contractID int64) ([]storage.MonthlyOrder, error) {
	const op = "service.production.ListMonthlyOrders"

	if _, err := s.contractFor(ctx, actor, contractID, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := s.store.ListMonthlyOrders(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Service) ListDailyOrders(ctx context.Context, actor access.Actor, monthlyID int64) ([]storage.DailyOrder, error) {
	const op = "service.production.ListDailyOrders"

	if _, _, err := s.monthlyOrderFor(ctx, actor, monthlyID, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := s.store.ListDailyOrders(ctx, monthlyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Service) ListDockets(ctx context.Context, actor access.Actor, monthlyID int64) ([]storage.Docket, error) {
	const op = "service.production.ListDockets"

	if _, _, err := s.monthlyOrderFor(ctx, actor, monthlyID, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := s.store.ListDockets(ctx, monthlyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ScheduleMonthlyOrder distributes the monthly target over its days, splits every day into
// capped orders and creates one draft docket per order.
func (s *Service) ScheduleMonthlyOrder(ctx context.Context, actor access.Actor, id int64, overrides map[time.Time]decimal.Decimal) ([]storage.DailyOrder, error) {
	const op = "service.production.ScheduleMonthlyOrder"

	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	m, err := s.store.GetMonthlyOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if m.State != storage.MonthlyDraft {
		return nil, fmt.Errorf("%s: monthly order %d is %s: %w", op, id, m.State, apperr.ErrInvalidTransition)
	}

	targets, err := DistributeTarget(m.AdjustedTargetQty, Days(m.DateStart, m.DateEnd), overrides)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	orders, err := s.store.ScheduleMonthlyOrder(ctx, id, BuildDailyOrders(*m, targets, s.opts.MaxOrderQty))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("monthly order scheduled",
		slog.String("op", op),
		slog.Int64("monthly_order_id", id),
		slog.Int("daily_orders", len(orders)),
	)

	return orders, nil
}
