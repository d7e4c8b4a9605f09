package schedule

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"plantops/http-server/httperr"
	"plantops/internal/access"
	"plantops/internal/storage"
)

type Scheduler interface {
	ScheduleMonthlyOrder(ctx context.Context, actor access.Actor, id int64, overrides map[time.Time]decimal.Decimal) ([]storage.DailyOrder, error)
	ListDailyOrders(ctx context.Context, actor access.Actor, monthlyID int64) ([]storage.DailyOrder, error)
	ListDockets(ctx context.Context, actor access.Actor, monthlyID int64) ([]storage.Docket, error)
}

type DayOverride struct {
	Date string          `json:"date" validate:"required,datetime=2006-01-02"`
	Qty  decimal.Decimal `json:"qty" validate:"gte=0"`
}

type Request struct {
	Overrides []DayOverride `json:"overrides" validate:"dive"`
}

// ScheduleMonthlyOrder creates the daily orders and dockets of the monthly order {id}.
// An empty body spreads the target evenly.
func ScheduleMonthlyOrder(log *slog.Logger, svc Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.ScheduleMonthlyOrder"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		var req Request
		if r.ContentLength != 0 {
			if err := httperr.Decode(r, &req); err != nil {
				httperr.Write(w, r, log, op, err)
				return
			}
		}

		overrides := make(map[time.Time]decimal.Decimal, len(req.Overrides))
		for _, o := range req.Overrides {
			day, err := httperr.Date(o.Date, "date")
			if err != nil {
				httperr.Write(w, r, log, op, err)
				return
			}
			overrides[day] = o.Qty
		}

		orders, err := svc.ScheduleMonthlyOrder(r.Context(), actor, id, overrides)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.JSON(w, r, orders)
	}
}

func ListDailyOrders(log *slog.Logger, svc Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.ListDailyOrders"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		orders, err := svc.ListDailyOrders(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, orders)
	}
}

func ListDockets(log *slog.Logger, svc Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.ListDockets"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		dockets, err := svc.ListDockets(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, dockets)
	}
}
