package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/cors"

	"plantops/http-server/production/contract"
	"plantops/http-server/production/docket"
	"plantops/http-server/production/downtime"
	"plantops/http-server/production/invoice"
	"plantops/http-server/production/schedule"
	"plantops/http-server/report/create"
	"plantops/http-server/report/export"
	getreport "plantops/http-server/report/get"
	"plantops/http-server/report/lines"
	"plantops/http-server/report/workflow"
	telemetry "plantops/http-server/telemetry/update"
	gettemplate "plantops/http-server/template/get"
	savetemplate "plantops/http-server/template/save"
	uptemplate "plantops/http-server/template/update"
	getusers "plantops/http-server/users/get"
	saveusers "plantops/http-server/users/save"
	"plantops/internal/access"
	"plantops/internal/config"
	"plantops/internal/middleware/auth"
)

func routes(cfg config.Config, log *slog.Logger, store Store, svc services) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-IDS-Token"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	// plant controllers authenticate with the shared token, not a user account
	router.With(auth.TelemetryToken(log, cfg.Telemetry.Token)).
		Post("/ids/workcenter/update", telemetry.Update(log, svc.production))

	router.Route("/api", func(api chi.Router) {
		api.Use(auth.BasicAuth(log, store))

		api.Route("/reports", func(r chi.Router) {
			r.Get("/", getreport.ListReports(log, svc.reporting))
			r.Post("/", create.CreateReport(log, svc.reporting))
			r.Get("/{id}", getreport.GetReport(log, svc.reporting))
			r.Patch("/{id}", lines.UpdateHeader(log, svc.reporting))
			r.Get("/{id}/summary", getreport.Summary(log, svc.reporting))
			r.Get("/{id}/pdf", export.ReportPDF(log, svc.reporting))
			r.Post("/{id}/submit", workflow.Submit(log, svc.reporting))
			r.Post("/{id}/reopen", workflow.Reopen(log, svc.reporting))
			r.Post("/{id}/complaints", lines.AddComplaint(log, svc.reporting))
			r.Post("/{id}/staff", lines.AddStaffLog(log, svc.reporting))
			r.Post("/{id}/contractors", lines.AddContractorRating(log, svc.reporting))
			r.Put("/{id}/metrics/{lineID}", lines.SetMetricValue(log, svc.reporting))
			r.Patch("/{id}/sections/{sectionID}", lines.UpdateSection(log, svc.reporting))
		})

		api.Get("/templates/metric", gettemplate.GetMetricTemplates(log, store))
		api.Get("/templates/section", gettemplate.GetSectionTemplates(log, store))

		api.Route("/production", func(r chi.Router) {
			r.Get("/workcenters", contract.ListWorkcenters(log, svc.production))
			r.Get("/contracts/{id}", contract.GetContract(log, svc.production))
			r.Get("/contracts/{id}/monthly", contract.ListMonthlyOrders(log, svc.production))
			r.Get("/monthly/{id}/daily", schedule.ListDailyOrders(log, svc.production))
			r.Get("/monthly/{id}/dockets", schedule.ListDockets(log, svc.production))

			r.Get("/downtime", downtime.List(log, svc.production))
			r.Post("/downtime", downtime.Create(log, svc.production))
			r.Post("/downtime/{id}/submit", downtime.Submit(log, svc.production))

			r.Post("/daily/{id}/dockets", docket.Add(log, svc.production))
			r.Put("/dockets/{id}", docket.Update(log, svc.production))
			r.Post("/dockets/{id}/state", docket.SetState(log, svc.production))

			r.Get("/invoices/{id}", invoice.Get(log, svc.production))
			r.Get("/invoices/{id}/xlsx", invoice.Excel(log, svc.excel))
		})

		api.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(log, access.RoleAdmin))

			r.Post("/templates/metric", savetemplate.SaveMetricTemplate(log, store))
			r.Put("/templates/metric/{id}", uptemplate.UpdateMetricTemplate(log, store))
			r.Post("/templates/section", savetemplate.SaveSectionTemplate(log, store))
			r.Put("/templates/section/{id}", uptemplate.UpdateSectionTemplate(log, store))

			r.Get("/users", getusers.GetUsers(log, store))
			r.Post("/users", saveusers.SaveUser(log, store))

			r.Post("/workcenters", contract.CreateWorkcenter(log, svc.production))
			r.Post("/contracts", contract.CreateContract(log, svc.production))
			r.Post("/contracts/{id}/confirm", contract.ConfirmContract(log, svc.production))
			r.Post("/monthly/{id}/schedule", schedule.ScheduleMonthlyOrder(log, svc.production))
			r.Post("/monthly/{id}/invoice", invoice.Prepare(log, svc.production))
			r.Post("/downtime/{id}/approve", downtime.Approve(log, svc.production))
			r.Post("/downtime/{id}/reject", downtime.Reject(log, svc.production))
		})
	})

	return router
}
