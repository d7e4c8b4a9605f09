package downtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"plantops/http-server/httperr"
	"plantops/internal/access"
	"plantops/internal/service/production"
	"plantops/internal/storage"
)

type DowntimeService interface {
	CreateDowntime(ctx context.Context, actor access.Actor, in production.DowntimeInput) (*storage.DowntimeRequest, error)
	ListDowntime(ctx context.Context, actor access.Actor, contractID int64) ([]storage.DowntimeRequest, error)
	SubmitDowntime(ctx context.Context, actor access.Actor, id int64) (*storage.DowntimeRequest, error)
	ApproveDowntime(ctx context.Context, actor access.Actor, id int64) (*storage.DowntimeAllocation, error)
	RejectDowntime(ctx context.Context, actor access.Actor, id int64) (*storage.DowntimeRequest, error)
}

type Request struct {
	ContractID int64     `json:"contract_id" validate:"required,gt=0"`
	Start      time.Time `json:"start" validate:"required"`
	End        time.Time `json:"end" validate:"required"`
	Relief     string    `json:"relief" validate:"omitempty,oneof=waived chargeable allowance"`
	Reason     string    `json:"reason" validate:"max=1024"`
}

func Create(log *slog.Logger, svc DowntimeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.CreateDowntime"

		actor, err := httperr.Actor(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		var req Request
		if err := httperr.Decode(r, &req); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		d, err := svc.CreateDowntime(r.Context(), actor, production.DowntimeInput{
			ContractID: req.ContractID,
			Start:      req.Start,
			End:        req.End,
			Relief:     storage.Relief(req.Relief),
			Reason:     req.Reason,
		})
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, d)
	}
}

// List answers the downtime requests of the contract given by ?contract_id=.
func List(log *slog.Logger, svc DowntimeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.ListDowntime"

		actor, err := httperr.Actor(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		id, err := httperr.QueryID(r, "contract_id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		list, err := svc.ListDowntime(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, list)
	}
}

func Submit(log *slog.Logger, svc DowntimeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.SubmitDowntime"

		actor, id, ok := target(w, r, log, op)
		if !ok {
			return
		}
		d, err := svc.SubmitDowntime(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, d)
	}
}

// Approve answers with the request and every order the approval changed.
func Approve(log *slog.Logger, svc DowntimeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.ApproveDowntime"

		actor, id, ok := target(w, r, log, op)
		if !ok {
			return
		}
		alloc, err := svc.ApproveDowntime(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, alloc)
	}
}

func Reject(log *slog.Logger, svc DowntimeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.RejectDowntime"

		actor, id, ok := target(w, r, log, op)
		if !ok {
			return
		}
		d, err := svc.RejectDowntime(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, d)
	}
}

func target(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string) (access.Actor, int64, bool) {
	actor, id, err := httperr.ActorID(r, "id")
	if err != nil {
		httperr.Write(w, r, log, op, err)
		return access.Actor{}, 0, false
	}
	return actor, id, true
}
