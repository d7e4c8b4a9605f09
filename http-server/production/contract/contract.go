package contract

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"plantops/http-server/httperr"
	"plantops/internal/access"
	"plantops/internal/storage"
)

type ContractService interface {
	CreateWorkcenter(ctx context.Context, actor access.Actor, w storage.Workcenter) (*storage.Workcenter, error)
	ListWorkcenters(ctx context.Context, actor access.Actor) ([]storage.Workcenter, error)
	CreateContract(ctx context.Context, actor access.Actor, c storage.Contract) (*storage.Contract, error)
	GetContract(ctx context.Context, actor access.Actor, id int64) (*storage.Contract, error)
	ConfirmContract(ctx context.Context, actor access.Actor, id int64) ([]storage.MonthlyOrder, error)
	ListMonthlyOrders(ctx context.Context, actor access.Actor, contractID int64) ([]storage.MonthlyOrder, error)
}

type WorkcenterRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	ExternalID string `json:"external_id" validate:"required,max=128"`
	CompanyID  int64  `json:"company_id" validate:"gte=0"`
}

func CreateWorkcenter(log *slog.Logger, svc ContractService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.CreateWorkcenter"

		actor, err := httperr.Actor(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		var req WorkcenterRequest
		if err := httperr.Decode(r, &req); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		wc, err := svc.CreateWorkcenter(r.Context(), actor, storage.Workcenter{
			Name:       req.Name,
			ExternalID: req.ExternalID,
			CompanyID:  req.CompanyID,
		})
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, wc)
	}
}

func ListWorkcenters(log *slog.Logger, svc ContractService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.ListWorkcenters"

		actor, err := httperr.Actor(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		list, err := svc.ListWorkcenters(r.Context(), actor)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, list)
	}
}

type ContractRequest struct {
	Name              string          `json:"name" validate:"required,max=255"`
	Customer          string          `json:"customer" validate:"required"`
	CompanyID         int64           `json:"company_id" validate:"gte=0"`
	WorkcenterID      int64           `json:"workcenter_id" validate:"required,gt=0"`
	Product           string          `json:"product"`
	StartDate         string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	MonthlyMGQ        decimal.Decimal `json:"monthly_mgq" validate:"gte=0"`
	WaiveOffAllowance decimal.Decimal `json:"waive_off_allowance_hours" validate:"gte=0"`
	UnitRate          decimal.Decimal `json:"unit_rate" validate:"gte=0"`
	StandbyRateDelta  decimal.Decimal `json:"standby_rate_delta" validate:"gte=0"`
	DowntimeHourRate  decimal.Decimal `json:"downtime_hour_rate" validate:"gte=0"`
	CoolingMonths     int             `json:"cooling_period_months" validate:"gte=0,lte=120"`
}

func CreateContract(log *slog.Logger, svc ContractService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.CreateContract"

		actor, err := httperr.Actor(r)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		var req ContractRequest
		if err := httperr.Decode(r, &req); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		start, err := httperr.Date(req.StartDate, "start_date")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		end, err := httperr.Date(req.EndDate, "end_date")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		c, err := svc.CreateContract(r.Context(), actor, storage.Contract{
			Name:              req.Name,
			Customer:          req.Customer,
			CompanyID:         req.CompanyID,
			WorkcenterID:      req.WorkcenterID,
			Product:           req.Product,
			StartDate:         start,
			EndDate:           end,
			MonthlyMGQ:        req.MonthlyMGQ,
			WaiveOffAllowance: req.WaiveOffAllowance,
			UnitRate:          req.UnitRate,
			StandbyRateDelta:  req.StandbyRateDelta,
			DowntimeHourRate:  req.DowntimeHourRate,
			CoolingMonths:     req.CoolingMonths,
		})
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		log.Info("contract created", slog.String("op", op), slog.Int64("id", c.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, c)
	}
}

func GetContract(log *slog.Logger, svc ContractService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.GetContract"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		c, err := svc.GetContract(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, c)
	}
}

// ConfirmContract answers with the monthly orders created for the contract.
func ConfirmContract(log *slog.Logger, svc ContractService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.ConfirmContract"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		orders, err := svc.ConfirmContract(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, orders)
	}
}

func ListMonthlyOrders(log *slog.Logger, svc ContractService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.ListMonthlyOrders"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		orders, err := svc.ListMonthlyOrders(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, orders)
	}
}
