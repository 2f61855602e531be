// Package jobs runs the scheduled calendar and filing maintenance work.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gestoria-erp/gestoria-erp/internal/filings"
	"github.com/gestoria-erp/gestoria-erp/internal/shared"
	"github.com/gestoria-erp/gestoria-erp/internal/taxcal"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCalendarSync regenerates the tax calendar.
	TaskCalendarSync = "taxcal:sync"
	// TaskFilingsEnsure fans out filings for active clients.
	TaskFilingsEnsure = "filings:ensure"
)

// CalendarSyncPayload selects which years to synchronize. An empty Years
// slice means the current and next year, which keeps the rolling window of
// upcoming windows populated.
type CalendarSyncPayload struct {
	Years []int `json:"years,omitempty"`
}

// FilingsEnsurePayload selects the year to fan filings out for. Zero means
// the current year.
type FilingsEnsurePayload struct {
	Year int `json:"year,omitempty"`
}

// NewCalendarSyncTask constructs the calendar synchronization task.
func NewCalendarSyncTask(payload CalendarSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCalendarSync, data), nil
}

// NewFilingsEnsureTask constructs the filing fan-out task.
func NewFilingsEnsureTask(payload FilingsEnsurePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFilingsEnsure, data), nil
}

// HandleCalendarSync returns the handler for TaskCalendarSync. Per-year
// failures are logged and do not fail the task; a sync already running in
// another process is not an error.
func HandleCalendarSync(svc *taxcal.Service, logger *slog.Logger, now func() time.Time) asynq.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload CalendarSyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		years := payload.Years
		if len(years) == 0 {
			current := now().Year()
			years = []int{current, current + 1}
		}

		for _, year := range years {
			summary, err := svc.SyncYear(ctx, year)
			if errors.Is(err, shared.ErrSyncInProgress) {
				logger.Info("calendar sync already running", slog.Int("year", year))
				continue
			}
			if err != nil {
				logger.Error("calendar sync failed", slog.Int("year", year), slog.Any("error", err))
				continue
			}
			logger.Info("calendar sync task done",
				slog.Int("year", year),
				slog.Int("created", summary.Created),
				slog.Int("updated", summary.Updated),
				slog.Int("removed", summary.Removed),
			)
		}
		return nil
	}
}

// HandleFilingsEnsure returns the handler for TaskFilingsEnsure.
func HandleFilingsEnsure(svc *filings.Service, logger *slog.Logger, now func() time.Time) asynq.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload FilingsEnsurePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		year := payload.Year
		if year == 0 {
			year = now().Year()
		}

		summary, err := svc.EnsureFilingsForYear(ctx, year)
		if err != nil {
			return err
		}
		logger.Info("ensure filings task done",
			slog.Int("year", year),
			slog.Int("created", summary.Created),
			slog.Int("skipped", summary.Skipped),
		)
		return nil
	}
}
