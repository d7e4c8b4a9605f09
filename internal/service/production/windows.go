package production

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"plantops/internal/apperr"
)

// Window is the part of one calendar month covered by a contract. A month that contains
// the end of the cooling period is cut in two windows at that day.
type Window struct {
	Start     time.Time
	End       time.Time
	Days      int
	MonthDays int
	Cooling   bool
}

// Day truncates t to its calendar date in loc, expressed as UTC midnight.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthlyWindows returns the windows of every calendar month that overlaps [start, end].
// Both bounds are inclusive calendar days. Windows ending on or before coolingEnd are
// cooling windows; a zero coolingEnd means the contract has no cooling period.
func MonthlyWindows(start, end, coolingEnd time.Time) ([]Window, error) {
	start = Day(start, time.UTC)
	end = Day(end, time.UTC)
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s: %w",
			end.Format(time.DateOnly), start.Format(time.DateOnly), apperr.ErrValidation)
	}
	cooling := !coolingEnd.IsZero()
	if cooling {
		coolingEnd = Day(coolingEnd, time.UTC)
	}

	var out []Window
	add := func(from, to time.Time, monthDays int) {
		out = append(out, Window{
			Start:     from,
			End:       to,
			Days:      to.Day() - from.Day() + 1,
			MonthDays: monthDays,
			Cooling:   cooling && !to.After(coolingEnd),
		})
	}

	cur := start
	for !cur.After(end) {
		monthDays := daysIn(cur.Year(), cur.Month())
		monthEnd := time.Date(cur.Year(), cur.Month(), monthDays, 0, 0, 0, 0, time.UTC)
		wEnd := monthEnd
		if end.Before(wEnd) {
			wEnd = end
		}
		if cooling && !coolingEnd.Before(cur) && coolingEnd.Before(wEnd) {
			add(cur, coolingEnd, monthDays)
			add(coolingEnd.AddDate(0, 0, 1), wEnd, monthDays)
		} else {
			add(cur, wEnd, monthDays)
		}
		cur = monthEnd.AddDate(0, 0, 1)
	}
	return out, nil
}

// ProratedTarget scales the monthly guaranteed quantity to the window, rounded to 2 places.
func ProratedTarget(mgq decimal.Decimal, w Window) decimal.Decimal {
	if w.Days == w.MonthDays {
		return mgq.Round(2)
	}
	return mgq.Mul(decimal.NewFromInt(int64(w.Days))).
		Div(decimal.NewFromInt(int64(w.MonthDays))).
		Round(2)
}

// Days lists every calendar day from start to end inclusive.
func Days(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
