package docket

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"plantops/http-server/httperr"
	"plantops/internal/access"
	"plantops/internal/service/production"
	"plantops/internal/storage"
)

type DocketService interface {
	AddManualDocket(ctx context.Context, actor access.Actor, dailyOrderID int64, in production.DocketInput) (*storage.DocketChange, error)
	UpdateManualDocket(ctx context.Context, actor access.Actor, docketID int64, in production.DocketInput) (*storage.DocketChange, error)
	SetDocketState(ctx context.Context, actor access.Actor, docketID int64, next storage.DocketState) (*storage.DocketChange, error)
}

type Request struct {
	DocketNo       string          `json:"docket_no" validate:"max=255"`
	Qty            decimal.Decimal `json:"qty" validate:"gte=0"`
	RuntimeMinutes decimal.Decimal `json:"runtime_minutes" validate:"gte=0"`
	IdleMinutes    decimal.Decimal `json:"idle_minutes" validate:"gte=0"`
	Note           string          `json:"note" validate:"max=1024"`
}

func (req Request) input() production.DocketInput {
	return production.DocketInput{
		DocketNo:       req.DocketNo,
		Qty:            req.Qty,
		RuntimeMinutes: req.RuntimeMinutes,
		IdleMinutes:    req.IdleMinutes,
		Note:           req.Note,
	}
}

type StateRequest struct {
	State string `json:"state" validate:"required,oneof=in_production delivered cancel"`
}

// Add records a manual docket against the daily order {id}.
func Add(log *slog.Logger, svc DocketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.AddManualDocket"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		var req Request
		if err := httperr.Decode(r, &req); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		change, err := svc.AddManualDocket(r.Context(), actor, id, req.input())
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, change)
	}
}

func Update(log *slog.Logger, svc DocketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.UpdateManualDocket"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		var req Request
		if err := httperr.Decode(r, &req); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		change, err := svc.UpdateManualDocket(r.Context(), actor, id, req.input())
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, change)
	}
}

// SetState moves the docket {id} to the requested state.
func SetState(log *slog.Logger, svc DocketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.SetDocketState"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		var req StateRequest
		if err := httperr.Decode(r, &req); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		change, err := svc.SetDocketState(r.Context(), actor, id, storage.DocketState(req.State))
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, change)
	}
}
