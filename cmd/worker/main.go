package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/gestoria-erp/gestoria-erp/internal/app"
	"github.com/gestoria-erp/gestoria-erp/internal/clients"
	"github.com/gestoria-erp/gestoria-erp/internal/filings"
	"github.com/gestoria-erp/gestoria-erp/internal/platform/cache"
	"github.com/gestoria-erp/gestoria-erp/internal/platform/db"
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
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// The queue itself connects through asynq, so redis is a hard
	// requirement for the worker process.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	syncLock := shared.NewSyncLock(redisClient, cfg.SyncLockTTL)

	periodStore := taxcal.NewPeriodStore(pool)
	calendarService := taxcal.NewService(periodStore, taxcal.DefaultCatalog(), syncLock, logger, nil)

	clientRepo := clients.NewRepository(pool)
	clientService := clients.NewService(clientRepo, logger, nil)

	filingRepo := filings.NewRepository(pool)
	filingService := filings.NewService(filingRepo, periodStore, clientAssignments{service: clientService}, logger, nil)

	syncTask, err := jobs.NewCalendarSyncTask(jobs.CalendarSyncPayload{})
	if err != nil {
		logger.Error("build calendar sync task", slog.Any("error", err))
		os.Exit(1)
	}
	ensureTask, err := jobs.NewFilingsEnsureTask(jobs.FilingsEnsurePayload{})
	if err != nil {
		logger.Error("build filings ensure task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCalendarSync, Handler: jobs.HandleCalendarSync(calendarService, logger, nil)},
			{Type: jobs.TaskFilingsEnsure, Handler: jobs.HandleFilingsEnsure(filingService, logger, nil)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CalendarSyncCron, Task: syncTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.FilingsEnsureCron, Task: ensureTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
