package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gestoria-erp/gestoria-erp/internal/app"
	"github.com/gestoria-erp/gestoria-erp/internal/clients"
	"github.com/gestoria-erp/gestoria-erp/internal/filings"
	"github.com/gestoria-erp/gestoria-erp/internal/platform/cache"
	"github.com/gestoria-erp/gestoria-erp/internal/platform/db"
	"github.com/gestoria-erp/gestoria-erp/internal/reports"
	"github.com/gestoria-erp/gestoria-erp/internal/shared"
	"github.com/gestoria-erp/gestoria-erp/internal/taxcal"
	"github.com/gestoria-erp/gestoria-erp/jobs"
)

// clientAssignments bridges the client roster into the filing fan-out.
type clientAssignments struct {
	service *clients.Service
}

func (a clientAssignments) ActiveAssignments(ctx context.Context) ([]filings.Assignment, error) {
	active, err := a.service.ActiveAssignments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]filings.Assignment, 0, len(active))
	for _, item := range active {
		out = append(out, filings.Assignment{
			ClientID:   item.ClientID,
			ClientName: item.ClientName,
			ModelCode:  item.ModelCode,
		})
	}
	return out, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Without redis the sync lock degrades to a per-process no-op.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, calendar sync lock disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	syncLock := shared.NewSyncLock(redisClient, cfg.SyncLockTTL)

	periodStore := taxcal.NewPeriodStore(dbpool)
	calendarService := taxcal.NewService(periodStore, taxcal.DefaultCatalog(), syncLock, logger, nil)
	calendarHandler := taxcal.NewHandler(logger, calendarService)

	clientRepo := clients.NewRepository(dbpool)
	clientService := clients.NewService(clientRepo, logger, nil)
	clientHandler := clients.NewHandler(logger, clientService)

	filingRepo := filings.NewRepository(dbpool)
	filingService := filings.NewService(filingRepo, periodStore, clientAssignments{service: clientService}, logger, nil)
	filingHandler := filings.NewHandler(logger, filingService)

	reportService := reports.NewService(filingRepo, logger, nil)
	reportHandler := reports.NewHandler(logger, reportService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		CalendarHandler: calendarHandler,
		FilingsHandler:  filingHandler,
		ClientsHandler:  clientHandler,
		ReportsHandler:  reportHandler,
		JobHandler:      jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
