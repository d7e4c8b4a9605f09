package production

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/storage"
)

// DocketInput is a delivery recorded by hand against a daily order.
type DocketInput struct {
	DocketNo       string
	Qty            decimal.Decimal
	RuntimeMinutes decimal.Decimal
	IdleMinutes    decimal.Decimal
	Note           string
}

func (in DocketInput) validate() error {
	if in.Qty.IsNegative() || in.RuntimeMinutes.IsNegative() || in.IdleMinutes.IsNegative() {
		return fmt.Errorf("negative quantity or duration: %w", apperr.ErrValidation)
	}
	if !centesimal(in.Qty) || !centesimal(in.RuntimeMinutes) || !centesimal(in.IdleMinutes) {
		return fmt.Errorf("quantities and durations carry at most 2 decimal places: %w", apperr.ErrValidation)
	}
	return nil
}

// Resync recomputes the produced quantity and durations of an order from its dockets.
// Cancelled dockets do not count. The schedule docket follows the order state.
func Resync(order storage.DailyOrder, dockets []storage.Docket) storage.DailyOrder {
	produced, runtime, idle := decimal.Zero, decimal.Zero, decimal.Zero
	for _, d := range dockets {
		if d.State == storage.DocketCancel || d.Source == storage.DocketSchedule {
			continue
		}
		produced = produced.Add(d.Qty)
		runtime = runtime.Add(d.RuntimeMinutes)
		idle = idle.Add(d.IdleMinutes)
	}
	order.ProducedQty = produced
	order.RuntimeMinutes = runtime
	order.IdleMinutes = idle

	switch {
	case produced.IsPositive() && produced.GreaterThanOrEqual(order.TargetQty):
		order.State = storage.DailyDone
	case produced.IsPositive() || order.LastTelemetryAt != nil:
		order.State = storage.DailyProgress
	default:
		order.State = storage.DailyConfirmed
	}

	if order.Docket != nil && order.Docket.State != storage.DocketCancel {
		switch order.State {
		case storage.DailyDone:
			order.Docket.State = storage.DocketDelivered
		case storage.DailyProgress:
			order.Docket.State = storage.DocketInProduction
		default:
			order.Docket.State = storage.DocketDraft
		}
	}
	return order
}

func replaceDocket(dockets []storage.Docket, d storage.Docket) []storage.Docket {
	out := make([]storage.Docket, 0, len(dockets)+1)
	found := false
	for _, existing := range dockets {
		if existing.ID != 0 && existing.ID == d.ID {
			existing = d
			found = true
		}
		out = append(out, existing)
	}
	if !found {
		out = append(out, d)
	}
	return out
}

// AddManualDocket records a delivery by hand. A docket with a number supplied by the
// plant starts in production; without one it is a draft with a generated number.
func (s *Service) AddManualDocket(ctx context.Context, actor access.Actor, dailyOrderID int64, in DocketInput) (*storage.DocketChange, error) {
	const op = "service.production.AddManualDocket"

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	order, err := s.store.GetDailyOrder(ctx, dailyOrderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.contractFor(ctx, actor, order.ContractID, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	state := storage.DocketInProduction
	docketNo := strings.TrimSpace(in.DocketNo)
	if docketNo == "" {
		state = storage.DocketDraft
		docketNo = "MAN-" + strings.ToUpper(uuid.NewString()[:8])
	}
	received := s.now().UTC()

	change, err := s.store.ChangeDockets(ctx, dailyOrderID, func(order storage.DailyOrder, dockets []storage.Docket) (*storage.DocketChange, error) {
		if order.State == storage.DailyCancel {
			return nil, fmt.Errorf("daily order %d is cancelled: %w", order.ID, apperr.ErrInvalidTransition)
		}
		d := storage.Docket{
			DailyOrderID:   order.ID,
			MonthlyOrderID: order.MonthlyOrderID,
			ContractID:     order.ContractID,
			WorkcenterID:   order.WorkcenterID,
			DocketNo:       docketNo,
			Date:           order.Date,
			Source:         storage.DocketManual,
			State:          state,
			Qty:            in.Qty,
			RuntimeMinutes: in.RuntimeMinutes,
			IdleMinutes:    in.IdleMinutes,
			Alarms:         []string{},
			Note:           strings.TrimSpace(in.Note),
			ReceivedAt:     &received,
		}
		return &storage.DocketChange{
			Order:   Resync(order, replaceDocket(dockets, d)),
			Docket:  d,
			Created: true,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("manual docket added",
		slog.String("op", op),
		slog.Int64("order_id", change.Order.ID),
		slog.Int64("docket_id", change.Docket.ID),
		slog.String("by", actor.Login),
	)
	return change, nil
}

// UpdateManualDocket replaces the figures of a manual docket that is not delivered yet.
func (s *Service) UpdateManualDocket(ctx context.Context, actor access.Actor, docketID int64, in DocketInput) (*storage.DocketChange, error) {
	const op = "service.production.UpdateManualDocket"

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.changeDocket(ctx, op, actor, docketID, func(d storage.Docket) (storage.Docket, error) {
		if d.Source != storage.DocketManual {
			return d, fmt.Errorf("docket %d is a %s docket: %w", d.ID, d.Source, apperr.ErrValidation)
		}
		if d.State != storage.DocketDraft && d.State != storage.DocketInProduction {
			return d, fmt.Errorf("docket %d is %s: %w", d.ID, d.State, apperr.ErrInvalidTransition)
		}
		if no := strings.TrimSpace(in.DocketNo); no != "" {
			d.DocketNo = no
		}
		d.Qty = in.Qty
		d.RuntimeMinutes = in.RuntimeMinutes
		d.IdleMinutes = in.IdleMinutes
		d.Note = strings.TrimSpace(in.Note)
		return d, nil
	})
}

// SetDocketState moves a manual or telemetry docket forward, or cancels it. Cancelled
// dockets stop counting toward the order and its invoice.
func (s *Service) SetDocketState(ctx context.Context, actor access.Actor, docketID int64, next storage.DocketState) (*storage.DocketChange, error) {
	const op = "service.production.SetDocketState"

	return s.changeDocket(ctx, op, actor, docketID, func(d storage.Docket) (storage.Docket, error) {
		if d.Source == storage.DocketSchedule {
			return d, fmt.Errorf("schedule docket %d follows its order: %w", d.ID, apperr.ErrValidation)
		}
		if !d.State.Advance(next) {
			return d, fmt.Errorf("docket %d: %s to %s: %w", d.ID, d.State, next, apperr.ErrInvalidTransition)
		}
		d.State = next
		return d, nil
	})
}

func (s *Service) changeDocket(ctx context.Context, op string, actor access.Actor, docketID int64,
	edit func(d storage.Docket) (storage.Docket, error)) (*storage.DocketChange, error) {
	current, err := s.store.GetDocket(ctx, docketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.contractFor(ctx, actor, current.ContractID, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	change, err := s.store.ChangeDockets(ctx, current.DailyOrderID, func(order storage.DailyOrder, dockets []storage.Docket) (*storage.DocketChange, error) {
		if order.State == storage.DailyCancel {
			return nil, fmt.Errorf("daily order %d is cancelled: %w", order.ID, apperr.ErrInvalidTransition)
		}
		var locked *storage.Docket
		for i := range dockets {
			if dockets[i].ID == docketID {
				locked = &dockets[i]
			}
		}
		if locked == nil {
			return nil, fmt.Errorf("docket %d: %w", docketID, apperr.ErrNotFound)
		}
		d, err := edit(*locked)
		if err != nil {
			return nil, err
		}
		return &storage.DocketChange{Order: Resync(order, replaceDocket(dockets, d)), Docket: d}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("docket changed",
		slog.String("op", op),
		slog.Int64("docket_id", docketID),
		slog.String("state", string(change.Docket.State)),
		slog.String("by", actor.Login),
	)
	return change, nil
}

// centesimal reports whether d fits the two decimal places stored for quantities.
func centesimal(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
