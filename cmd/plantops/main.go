package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/config"
	"plantops/internal/middleware/auth"
	generate_excel "plantops/internal/service/generate-excel"
	"plantops/internal/service/production"
	"plantops/internal/service/reporting"
	"plantops/internal/storage"
	"plantops/internal/storage/memory"
	"plantops/internal/storage/mysql"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// Store is everything the HTTP layer needs from a storage driver.
type Store interface {
	reporting.Store
	production.Store
	SaveMetricTemplate(ctx context.Context, t *storage.MetricTemplate) error
	SaveSectionTemplate(ctx context.Context, t *storage.SectionTemplate) error
	CreateUser(ctx context.Context, u *storage.User) error
	UserByLogin(ctx context.Context, login string) (*storage.User, error)
	ListUsers(ctx context.Context) ([]storage.User, error)
}

type services struct {
	reporting  *reporting.Service
	production *production.Service
	excel      *generate_excel.GenerateExcelService
}

func main() {
	cfg := config.MustConfig()

	log := setupLogger(cfg.Env)

	store, closeStore, err := openStore(*cfg, log)
	if err != nil {
		log.Error("failed to open storage", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	if err := seedAdmin(context.Background(), cfg.Admin, store, log); err != nil {
		log.Error("failed to seed admin", slog.String("err", err.Error()))
		os.Exit(1)
	}

	prod := production.New(log, store, production.Options{
		MaxOrderQty: decimal.NewFromFloat(cfg.Production.MaxOrderQty),
		Location:    cfg.Production.Location(),
	})
	svc := services{
		reporting:  reporting.New(log, store),
		production: prod,
		excel:      generate_excel.NewGenerateService(prod),
	}

	if cfg.Telemetry.Token == "" {
		log.Warn("telemetry token is empty, telemetry endpoint rejects every request")
	}

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      routes(*cfg, log, store, svc),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server started", slog.String("address", cfg.Address), slog.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed start server", slog.String("err", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop server", slog.String("err", err.Error()))
	}

	log.Info("server stopped")
}

func openStore(cfg config.Config, log *slog.Logger) (Store, func(), error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	db, err := mysql.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close db", slog.String("err", err.Error()))
		}
	}

	if cfg.Storage.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.Migrate(ctx); err != nil {
			closeDB()
			return nil, nil, err
		}
		log.Info("schema migrated")
	}

	return db, closeDB, nil
}

// seedAdmin creates the configured administrator unless the login already exists.
func seedAdmin(ctx context.Context, admin config.Admin, store Store, log *slog.Logger) error {
	if admin.Login == "" || admin.Password == "" {
		return nil
	}

	_, err := store.UserByLogin(ctx, admin.Login)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	if err := store.CreateUser(ctx, &storage.User{
		Login:        admin.Login,
		Name:         "Administrator",
		PasswordHash: hash,
		Role:         access.RoleAdmin,
		Active:       true,
	}); err != nil {
		return err
	}

	log.Info("admin account created", slog.String("login", admin.Login))
	return nil
}

type dualHandler struct {
	coreHandler  slog.Handler
	errorHandler slog.Handler
}

func (h *dualHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.coreHandler.Enabled(ctx, lvl) || h.errorHandler.Enabled(ctx, lvl)
}

func (h *dualHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error

	if h.coreHandler.Enabled(ctx, r.Level) {
		err = h.coreHandler.Handle(ctx, r)
		if err != nil {
			return err
		}
	}

	// errors are also kept in the error file
	if r.Level >= slog.LevelError && h.errorHandler.Enabled(ctx, r.Level) {
		_ = h.errorHandler.Handle(ctx, r.Clone())
	}

	return err
}

func (h *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dualHandler{
		coreHandler:  h.coreHandler.WithAttrs(attrs),
		errorHandler: h.errorHandler.WithAttrs(attrs),
	}
}

func (h *dualHandler) WithGroup(name string) slog.Handler {
	return &dualHandler{
		coreHandler:  h.coreHandler.WithGroup(name),
		errorHandler: h.errorHandler.WithGroup(name),
	}
}

func setupLogger(env string) *slog.Logger {
	level := slog.LevelDebug
	if env == envProd {
		level = slog.LevelInfo
	}

	var coreHandler slog.Handler
	switch env {
	case envDev:
		coreHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	case envLocal, envProd:
		coreHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		coreHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	errorFile, err := os.OpenFile("errors.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		slog.Warn("cannot open error log file", "error", err)
		return slog.New(coreHandler)
	}

	errorHandler := slog.NewTextHandler(errorFile, &slog.HandlerOptions{Level: slog.LevelError})

	return slog.New(&dualHandler{
		coreHandler:  coreHandler,
		errorHandler: errorHandler,
	})
}
