package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

// Telemetry is one payload pushed by a batching plant controller.
type Telemetry struct {
	WorkcenterExternalID string
	ProducedQty          decimal.Decimal
	RuntimeMinutes       decimal.Decimal
	IdleMinutes          decimal.Decimal
	Alarms               []string
	Timestamp            *time.Time
	DocketNo             string
	Notes                string
	Raw                  json.RawMessage
}

// CurrentOrder picks the order telemetry is booked against: an order already in progress
// wins, then the lowest sequence, then the lowest id.
func CurrentOrder(open []storage.DailyOrder) (int, bool) {
	idx := make([]int, 0, len(open))
	for i, o := range open {
		if o.State.Open() {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return -1, false
	}
	sort.Slice(idx, func(a, b int) bool {
		oa, ob := open[idx[a]], open[idx[b]]
		pa, pb := oa.State == storage.DailyProgress, ob.State == storage.DailyProgress
		if pa != pb {
			return pa
		}
		if oa.Sequence != ob.Sequence {
			return oa.Sequence < ob.Sequence
		}
		return oa.ID < ob.ID
	})
	return idx[0], true
}

// TelemetryNote is the human-readable line stored on the telemetry docket.
func TelemetryNote(t Telemetry) string {
	note := fmt.Sprintf("telemetry: %s m3 in %s min (idle %s min)",
		t.ProducedQty.StringFixed(2), t.RuntimeMinutes.StringFixed(1), t.IdleMinutes.StringFixed(1))
	if len(t.Alarms) > 0 {
		note += ", alarms: " + strings.Join(t.Alarms, ", ")
	}
	if t.Notes != "" {
		note += "; " + t.Notes
	}
	return note
}

// IngestTelemetry resolves the work center, picks its current order and books the payload
// against it under the order lock.
func (s *Service) IngestTelemetry(ctx context.Context, t Telemetry) (*storage.TelemetryBooking, error) {
	const op = "service.production.IngestTelemetry"

	t.WorkcenterExternalID = strings.TrimSpace(t.WorkcenterExternalID)
	if t.WorkcenterExternalID == "" {
		return nil, fmt.Errorf("%s: workcenter_external_id is required: %w", op, apperr.ErrValidation)
	}
	if t.ProducedQty.IsNegative() || t.RuntimeMinutes.IsNegative() || t.IdleMinutes.IsNegative() {
		return nil, fmt.Errorf("%s: negative quantity or duration: %w", op, apperr.ErrValidation)
	}
	if !centesimal(t.ProducedQty) || !centesimal(t.RuntimeMinutes) || !centesimal(t.IdleMinutes) {
		return nil, fmt.Errorf("%s: quantities and durations carry at most 2 decimal places: %w", op, apperr.ErrValidation)
	}

	wc, err := s.store.WorkcenterByExternalID(ctx, t.WorkcenterExternalID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.log.Warn("telemetry for unknown work center",
				slog.String("op", op), slog.String("external_id", t.WorkcenterExternalID))
			return nil, fmt.Errorf("%s: %q: %w", op, t.WorkcenterExternalID, apperr.ErrUnknownEquipment)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	received := s.now().UTC()
	at := received
	if t.Timestamp != nil {
		at = *t.Timestamp
	}
	day := Day(at, s.opts.Location)

	docketNo := t.DocketNo
	if docketNo == "" {
		docketNo = "TEL-" + strings.ToUpper(uuid.NewString()[:8])
	}

	booking, err := s.store.RecordTelemetry(ctx, wc.ID, day, func(open []storage.DailyOrder) (*storage.TelemetryBooking, error) {
		i, ok := CurrentOrder(open)
		if !ok {
			return nil, fmt.Errorf("work center %q on %s: %w", wc.ExternalID, day.Format(time.DateOnly), apperr.ErrNoOpenOrder)
		}
		order := open[i]

		order.ProducedQty = order.ProducedQty.Add(t.ProducedQty)
		order.RuntimeMinutes = order.RuntimeMinutes.Add(t.RuntimeMinutes)
		order.IdleMinutes = order.IdleMinutes.Add(t.IdleMinutes)
		order.LastTelemetryAt = &received
		order.State = storage.DailyProgress
		if order.ProducedQty.GreaterThanOrEqual(order.TargetQty) {
			order.State = storage.DailyDone
		}

		if order.Docket != nil {
			switch {
			case order.State == storage.DailyDone && order.Docket.State != storage.DocketCancel:
				order.Docket.State = storage.DocketDelivered
			case order.Docket.State == storage.DocketDraft:
				order.Docket.State = storage.DocketInProduction
			}
		}

		return &storage.TelemetryBooking{
			Order: order,
			Docket: storage.Docket{
				DailyOrderID:   order.ID,
				MonthlyOrderID: order.MonthlyOrderID,
				ContractID:     order.ContractID,
				WorkcenterID:   order.WorkcenterID,
				DocketNo:       docketNo,
				Date:           day,
				Source:         storage.DocketTelemetry,
				State:          storage.DocketDelivered,
				Qty:            t.ProducedQty,
				RuntimeMinutes: t.RuntimeMinutes,
				IdleMinutes:    t.IdleMinutes,
				Alarms:         t.Alarms,
				Payload:        t.Raw,
				Note:           TelemetryNote(t),
				ReceivedAt:     &received,
			},
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("telemetry booked",
		slog.String("op", op),
		slog.String("workcenter", wc.ExternalID),
		slog.Int64("order_id", booking.Order.ID),
		slog.Int64("docket_id", booking.Docket.ID),
		slog.String("state", string(booking.Order.State)),
	)

	return booking, nil
}
