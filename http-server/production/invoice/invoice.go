package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"plantops/http-server/httperr"
	"plantops/internal/access"
	"plantops/internal/service/production"
	"plantops/internal/storage"
)

type InvoiceService interface {
	PrepareInvoice(ctx context.Context, actor access.Actor, in production.InvoiceInput) (*storage.Invoice, error)
	GetInvoice(ctx context.Context, actor access.Actor, id int64) (*storage.Invoice, error)
}

type ExcelGenerator interface {
	GenerateExcel(ctx context.Context, actor access.Actor, invoiceID int64) ([]byte, error)
}

type Request struct {
	InvoiceDate  string           `json:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	StandbyDelta *decimal.Decimal `json:"standby_delta"`
}

// Prepare builds the invoice draft of the monthly order {id}.
func Prepare(log *slog.Logger, svc InvoiceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.PrepareInvoice"

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
		date, err := httperr.Date(req.InvoiceDate, "invoice_date")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		inv, err := svc.PrepareInvoice(r.Context(), actor, production.InvoiceInput{
			MonthlyOrderID: id,
			InvoiceDate:    date,
			StandbyDelta:   req.StandbyDelta,
		})
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, inv)
	}
}

func Get(log *slog.Logger, svc InvoiceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.GetInvoice"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		inv, err := svc.GetInvoice(r.Context(), actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}
		render.JSON(w, r, inv)
	}
}

// Excel streams the invoice {id} as an xlsx workbook.
func Excel(log *slog.Logger, gen ExcelGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.InvoiceExcel"

		actor, id, err := httperr.ActorID(r, "id")
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		excelBytes, err := gen.GenerateExcel(ctx, actor, id)
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		fileName := fmt.Sprintf("Invoice_%d_%s.xlsx", id, time.Now().Format("2006-01-02_150405"))

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
		if _, err := w.Write(excelBytes); err != nil {
			log.Error("failed to write excel", slog.String("op", op), slog.String("err", err.Error()))
		}
	}
}
