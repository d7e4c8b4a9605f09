package production

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

var hundred = decimal.NewFromInt(100)

// DayTarget is the quantity planned for one calendar day.
type DayTarget struct {
	Date time.Time
	Qty  decimal.Decimal
}

// DistributeTarget spreads total over days in hundredths so that the parts add up to total
// exactly. Overridden days keep their quantity; the remainder goes to the other days, with
// the leftover hundredths assigned to the earliest of them.
func DistributeTarget(total decimal.Decimal, days []time.Time, overrides map[time.Time]decimal.Decimal) ([]DayTarget, error) {
	if total.IsNegative() {
		return nil, fmt.Errorf("negative target %s: %w", total, apperr.ErrValidation)
	}

	inWindow := make(map[time.Time]bool, len(days))
	for _, d := range days {
		inWindow[d] = true
	}

	totalCents := total.Mul(hundred).Round(0).IntPart()
	var fixedCents int64
	for d, q := range overrides {
		if !inWindow[d] {
			return nil, fmt.Errorf("override for %s outside the order window: %w", d.Format(time.DateOnly), apperr.ErrValidation)
		}
		if q.IsNegative() {
			return nil, fmt.Errorf("negative override for %s: %w", d.Format(time.DateOnly), apperr.ErrValidation)
		}
		fixedCents += q.Mul(hundred).Round(0).IntPart()
	}
	if fixedCents > totalCents {
		return nil, fmt.Errorf("overrides %s exceed the target %s: %w",
			decimal.New(fixedCents, -2), total, apperr.ErrValidation)
	}

	free := int64(len(days) - len(overrides))
	remaining := totalCents - fixedCents
	if free == 0 && remaining != 0 {
		return nil, fmt.Errorf("%s left over with every day overridden: %w",
			decimal.New(remaining, -2), apperr.ErrValidation)
	}

	var base, extra int64
	if free > 0 {
		base = remaining / free
		extra = remaining % free
	}

	out := make([]DayTarget, 0, len(days))
	for _, d := range days {
		if q, ok := overrides[d]; ok {
			out = append(out, DayTarget{Date: d, Qty: decimal.New(q.Mul(hundred).Round(0).IntPart(), -2)})
			continue
		}
		cents := base
		if extra > 0 {
			cents++
			extra--
		}
		out = append(out, DayTarget{Date: d, Qty: decimal.New(cents, -2)})
	}
	return out, nil
}

// SplitQuantity cuts qty into orders of at most maxQty; the last order takes the remainder.
func SplitQuantity(qty, maxQty decimal.Decimal) []decimal.Decimal {
	var out []decimal.Decimal
	if !maxQty.IsPositive() {
		if qty.IsPositive() {
			out = append(out, qty)
		}
		return out
	}
	for qty.GreaterThan(maxQty) {
		out = append(out, maxQty)
		qty = qty.Sub(maxQty)
	}
	if qty.IsPositive() {
		out = append(out, qty)
	}
	return out
}

// BuildDailyOrders expands the day targets of a monthly order into capped daily orders,
// each carrying its draft schedule docket.
func BuildDailyOrders(m storage.MonthlyOrder, targets []DayTarget, maxQty decimal.Decimal) []storage.DailyOrder {
	var out []storage.DailyOrder
	for _, t := range targets {
		for i, qty := range SplitQuantity(t.Qty, maxQty) {
			seq := i + 1
			name := fmt.Sprintf("%s/%s/%02d", m.Name, t.Date.Format("0102"), seq)
			out = append(out, storage.DailyOrder{
				MonthlyOrderID: m.ID,
				ContractID:     m.ContractID,
				WorkcenterID:   m.WorkcenterID,
				Name:           name,
				Date:           t.Date,
				Sequence:       seq,
				TargetQty:      qty,
				State:          storage.DailyConfirmed,
				Docket: &storage.Docket{
					MonthlyOrderID: m.ID,
					ContractID:     m.ContractID,
					WorkcenterID:   m.WorkcenterID,
					DocketNo:       "DKT/" + name,
					Date:           t.Date,
					Source:         storage.DocketSchedule,
					State:          storage.DocketDraft,
				},
			})
		}
	}
	return out
}
