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

var (
	secondsPerHour = decimal.NewFromInt(3600)
	hoursPerDay    = decimal.NewFromInt(24)
)

// HourPiece is the share of a downtime window falling on one calendar day.
type HourPiece struct {
	Day   time.Time
	Hours decimal.Decimal
}

// WindowHours is the duration of [start, end) in hours, rounded to 4 places.
func WindowHours(start, end time.Time) decimal.Decimal {
	return decimal.NewFromInt(int64(end.Sub(start) / time.Second)).Div(secondsPerHour).Round(4)
}

// SplitByDay cuts [start, end) at midnight in loc. The last piece absorbs rounding so the
// pieces add up to WindowHours(start, end) exactly.
func SplitByDay(start, end time.Time, loc *time.Location) []HourPiece {
	total := WindowHours(start, end)

	var out []HourPiece
	sum := decimal.Zero
	for cur := start; cur.Before(end); {
		local := cur.In(loc)
		next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
		segEnd := end
		if next.Before(end) {
			segEnd = next
		}
		h := WindowHours(cur, segEnd)
		out = append(out, HourPiece{Day: Day(cur, loc), Hours: h})
		sum = sum.Add(h)
		cur = segEnd
	}
	if n := len(out); n > 0 {
		out[n-1].Hours = out[n-1].Hours.Add(total.Sub(sum))
	}
	return out
}

type DowntimeInput struct {
	ContractID int64
	Start      time.Time
	End        time.Time
	Relief     storage.Relief
	Reason     string
}

func monthlyFor(orders []storage.MonthlyOrder, day time.Time) int {
	for i, m := range orders {
		if !day.Before(m.DateStart) && !day.After(m.DateEnd) {
			return i
		}
	}
	return -1
}

// CreateDowntime records a draft downtime request. The window must be covered by the
// contract's monthly orders.
func (s *Service) CreateDowntime(ctx context.Context, actor access.Actor, in DowntimeInput) (*storage.DowntimeRequest, error) {
	const op = "service.production.CreateDowntime"

	if !in.End.After(in.Start) {
		return nil, fmt.Errorf("%s: end must be after start: %w", op, apperr.ErrValidation)
	}
	if in.Relief == "" {
		in.Relief = storage.ReliefAllowance
	}
	if !in.Relief.Valid() {
		return nil, fmt.Errorf("%s: relief %q: %w", op, in.Relief, apperr.ErrValidation)
	}

	c, err := s.contractFor(ctx, actor, in.ContractID, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if c.State != storage.ContractConfirmed {
		return nil, fmt.Errorf("%s: contract %d is not confirmed: %w", op, c.ID, apperr.ErrValidation)
	}

	monthly, err := s.store.ListMonthlyOrders(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, p := range SplitByDay(in.Start, in.End, s.opts.Location) {
		if monthlyFor(monthly, p.Day) < 0 {
			return nil, fmt.Errorf("%s: %s is outside the contract's monthly orders: %w",
				op, p.Day.Format(time.DateOnly), apperr.ErrValidation)
		}
	}

	d := storage.DowntimeRequest{
		ContractID: c.ID,
		Start:      in.Start.UTC(),
		End:        in.End.UTC(),
		Relief:     in.Relief,
		Reason:     strings.TrimSpace(in.Reason),
		State:      storage.DowntimeDraft,
	}
	if err := s.store.CreateDowntime(ctx, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &d, nil
}

func (s *Service) ListDowntime(ctx context.Context, actor access.Actor, contractID int64) ([]storage.DowntimeRequest, error) {
	const op = "service.production.ListDowntime"

	if _, err := s.contractFor(ctx, actor, contractID, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := s.store.ListDowntime(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Service) SubmitDowntime(ctx context.Context, actor access.Actor, id int64) (*storage.DowntimeRequest, error) {
	const op = "service.production.SubmitDowntime"

	req, err := s.store.GetDowntime(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.contractFor(ctx, actor, req.ContractID, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.TransitionDowntime(ctx, id, storage.DowntimeDraft, storage.DowntimeSubmitted); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d, err := s.store.GetDowntime(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d, nil
}

func (s *Service) RejectDowntime(ctx context.Context, actor access.Actor, id int64) (*storage.DowntimeRequest, error) {
	const op = "service.production.RejectDowntime"

	if !actor.Privileged() {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrPermissionDenied)
	}
	if err := s.store.TransitionDowntime(ctx, id, storage.DowntimeSubmitted, storage.DowntimeRejected); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d, err := s.store.GetDowntime(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("downtime rejected", slog.String("op", op), slog.Int64("downtime_id", id), slog.String("by", actor.Login))
	return d, nil
}

// ApproveDowntime splits a submitted window into waived and chargeable hours, lowers the
// monthly adjusted target by the waived share and records the split per day.
func (s *Service) ApproveDowntime(ctx context.Context, actor access.Actor, id int64) (*storage.DowntimeAllocation, error) {
	const op = "service.production.ApproveDowntime"

	if !actor.Privileged() {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrPermissionDenied)
	}

	now := s.now().UTC()
	alloc, err := s.store.ApproveDowntime(ctx, id, func(dc storage.DowntimeContext) (*storage.DowntimeAllocation, error) {
		if dc.Request.State != storage.DowntimeSubmitted {
			return nil, fmt.Errorf("downtime %d is %s: %w", id, dc.Request.State, apperr.ErrInvalidTransition)
		}
		a, err := Allocate(dc, s.opts.Location)
		if err != nil {
			return nil, err
		}
		by := actor.ID
		a.Request.State = storage.DowntimeApproved
		a.Request.ApprovedBy = &by
		a.Request.ApprovedAt = &now
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("downtime approved",
		slog.String("op", op),
		slog.Int64("downtime_id", id),
		slog.String("waived_hours", alloc.Request.WaivedHours.String()),
		slog.String("chargeable_hours", alloc.Request.ChargeableHours.String()),
	)

	return alloc, nil
}

// Allocate computes the effect of a downtime request on its monthly and daily orders.
func Allocate(dc storage.DowntimeContext, loc *time.Location) (*storage.DowntimeAllocation, error) {
	req := dc.Request
	pieces := SplitByDay(req.Start, req.End, loc)

	monthly := make([]storage.MonthlyOrder, len(dc.Monthly))
	copy(monthly, dc.Monthly)
	monthlyTouched := make(map[int]bool)
	monthlyWaived := make(map[int]decimal.Decimal)

	remaining := make(map[int]decimal.Decimal)
	for i, m := range monthly {
		left := dc.Contract.WaiveOffAllowance.Sub(m.AllowanceUsedHours)
		if left.IsNegative() {
			left = decimal.Zero
		}
		remaining[i] = left
	}

	daily := make([]storage.DailyOrder, len(dc.Daily))
	copy(daily, dc.Daily)
	dailyTouched := make(map[int]bool)

	waivedTotal, chargeableTotal := decimal.Zero, decimal.Zero
	for _, p := range pieces {
		mi := monthlyFor(monthly, p.Day)
		if mi < 0 {
			return nil, fmt.Errorf("%s is outside the contract's monthly orders: %w", p.Day.Format(time.DateOnly), apperr.ErrValidation)
		}

		var waived decimal.Decimal
		switch req.Relief {
		case storage.ReliefWaived:
			waived = p.Hours
		case storage.ReliefChargeable:
			waived = decimal.Zero
		case storage.ReliefAllowance:
			waived = decimal.Min(p.Hours, remaining[mi])
			remaining[mi] = remaining[mi].Sub(waived)
			monthly[mi].AllowanceUsedHours = monthly[mi].AllowanceUsedHours.Add(waived)
		default:
			return nil, fmt.Errorf("relief %q: %w", req.Relief, apperr.ErrValidation)
		}
		chargeable := p.Hours.Sub(waived)

		monthly[mi].WaivedHours = monthly[mi].WaivedHours.Add(waived)
		monthly[mi].ChargeableHours = monthly[mi].ChargeableHours.Add(chargeable)
		monthlyWaived[mi] = monthlyWaived[mi].Add(waived)
		monthlyTouched[mi] = true

		if di := firstOrderOfDay(daily, p.Day); di >= 0 {
			d := &daily[di]
			d.WaivedHours = d.WaivedHours.Add(waived)
			d.ChargeableHours = d.ChargeableHours.Add(chargeable)
			dayTarget := dayTargetQty(daily, p.Day)
			relief := dayTarget.Mul(waived).Div(hoursPerDay).Round(2)
			if room := dayTarget.Sub(d.ReliefQty); relief.GreaterThan(room) {
				relief = decimal.Max(room, decimal.Zero)
			}
			d.ReliefQty = d.ReliefQty.Add(relief)
			dailyTouched[di] = true
		}

		waivedTotal = waivedTotal.Add(waived)
		chargeableTotal = chargeableTotal.Add(chargeable)
	}

	out := &storage.DowntimeAllocation{Request: req}
	for i := range monthly {
		if !monthlyTouched[i] {
			continue
		}
		m := &monthly[i]
		monthHours := decimal.NewFromInt(int64(len(Days(m.DateStart, m.DateEnd)))).Mul(hoursPerDay)
		cut := m.TargetQty.Mul(monthlyWaived[i]).Div(monthHours).Round(2)
		m.AdjustedTargetQty = decimal.Max(m.AdjustedTargetQty.Sub(cut), decimal.Zero)
		out.Monthly = append(out.Monthly, *m)
	}
	for i := range daily {
		if dailyTouched[i] {
			out.Daily = append(out.Daily, daily[i])
		}
	}

	out.Request.WaivedHours = waivedTotal
	out.Request.ChargeableHours = chargeableTotal
	return out, nil
}

func firstOrderOfDay(orders []storage.DailyOrder, day time.Time) int {
	best := -1
	for i, o := range orders {
		if !o.Date.Equal(day) || o.State == storage.DailyCancel {
			continue
		}
		if best < 0 || o.Sequence < orders[best].Sequence ||
			(o.Sequence == orders[best].Sequence && o.ID < orders[best].ID) {
			best = i
		}
	}
	return best
}

func dayTargetQty(orders []storage.DailyOrder, day time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.Date.Equal(day) && o.State != storage.DailyCancel {
			total = total.Add(o.TargetQty)
		}
	}
	return total
}
