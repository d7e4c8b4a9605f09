package update

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"plantops/http-server/httperr"
	"plantops/internal/apperr"
	"plantops/internal/service/production"
	"plantops/internal/storage"
)

const maxPayloadBytes = 1 << 20

type TelemetryIngester interface {
	IngestTelemetry(ctx context.Context, t production.Telemetry) (*storage.TelemetryBooking, error)
}

// Request accepts both the short field names and the unit-suffixed ones plant controllers send.
type Request struct {
	WorkcenterExternalID string           `json:"workcenter_external_id" validate:"required"`
	ProducedQty          *decimal.Decimal `json:"produced_qty"`
	ProducedM3           *decimal.Decimal `json:"produced_m3"`
	Runtime              *decimal.Decimal `json:"runtime"`
	RuntimeMin           *decimal.Decimal `json:"runtime_min"`
	IdleTime             *decimal.Decimal `json:"idle_time"`
	IdleMin              *decimal.Decimal `json:"idle_min"`
	Alarms               []string         `json:"alarms"`
	Timestamp            *time.Time       `json:"timestamp"`
	DocketNo             string           `json:"docket_no" validate:"max=255"`
	Notes                string           `json:"notes"`
}

type Response struct {
	Status         string `json:"status"`
	OrderID        int64  `json:"order_id"`
	MonthlyOrderID int64  `json:"monthly_order_id"`
	DocketID       int64  `json:"docket_id"`
}

func firstOf(values ...*decimal.Decimal) decimal.Decimal {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return decimal.Zero
}

// Update books one equipment telemetry payload against the current order of its work center.
func Update(log *slog.Logger, ingester TelemetryIngester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.telemetry.Update"

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			httperr.Write(w, r, log, op, fmt.Errorf("read body: %v: %w", err, apperr.ErrValidation))
			return
		}
		if !json.Valid(raw) {
			httperr.Write(w, r, log, op, fmt.Errorf("invalid JSON: %w", apperr.ErrValidation))
			return
		}

		var req Request
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err := httperr.Decode(r, &req); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		booking, err := ingester.IngestTelemetry(r.Context(), production.Telemetry{
			WorkcenterExternalID: req.WorkcenterExternalID,
			ProducedQty:          firstOf(req.ProducedQty, req.ProducedM3),
			RuntimeMinutes:       firstOf(req.Runtime, req.RuntimeMin),
			IdleMinutes:          firstOf(req.IdleTime, req.IdleMin),
			Alarms:               req.Alarms,
			Timestamp:            req.Timestamp,
			DocketNo:             req.DocketNo,
			Notes:                req.Notes,
			Raw:                  raw,
		})
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		log.Info("telemetry booked",
			slog.String("op", op),
			slog.String("workcenter", req.WorkcenterExternalID),
			slog.Int64("order_id", booking.Order.ID),
			slog.Int64("docket_id", booking.Docket.ID),
		)

		render.JSON(w, r, Response{
			Status:         "ok",
			OrderID:        booking.Order.ID,
			MonthlyOrderID: booking.Order.MonthlyOrderID,
			DocketID:       booking.Docket.ID,
		})
	}
}
