package taxcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gestoria-erp/gestoria-erp/internal/shared"
)

// ErrLockedPeriod is returned when a mutation would touch a locked period.
var ErrLockedPeriod = errors.New("taxcal: period is locked")

// Service exposes calendar operations to the transport and job layers.
type Service struct {
	store     PeriodStore
	catalog   Catalog
	generator *Generator
	importer  *Importer
	lock      *shared.SyncLock
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the calendar service. lock may be nil, which disables
// cross-process serialization of sync runs.
func NewService(store PeriodStore, catalog Catalog, lock *shared.SyncLock, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Service{
		store:     store,
		catalog:   catalog,
		generator: NewGenerator(store, logger, now),
		importer:  NewImporter(store, logger, now),
		lock:      lock,
		logger:    logger,
		now:       now,
	}
}

// Catalog returns the obligation type catalog backing generation.
func (s *Service) Catalog() Catalog {
	return s.catalog
}

// SyncYear reconciles the stored calendar for year against the expected set.
// Only one sync per year runs at a time across all processes.
func (s *Service) SyncYear(ctx context.Context, year int) (SyncSummary, error) {
	if year < minImportYear || year > maxImportYear {
		return SyncSummary{}, fmt.Errorf("taxcal: year %d out of range", year)
	}

	key := shared.CalendarSyncLockKey(year)
	if err := s.lock.Acquire(ctx, key); err != nil {
		return SyncSummary{}, err
	}
	defer s.lock.Release(ctx, key)

	summary, err := s.generator.SyncYear(ctx, year, s.catalog)
	if err != nil {
		return summary, err
	}
	s.logger.Info("calendar sync finished",
		slog.Int("year", year),
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("removed", summary.Removed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", len(summary.Errors)),
	)
	return summary, nil
}

// ListPeriods returns periods matching the filter, with temporal fields
// recomputed against the current clock. Stored status is a snapshot; reads
// always reflect today.
func (s *Service) ListPeriods(ctx context.Context, filter PeriodFilter) ([]Period, error) {
	wantStatus := filter.Status
	filter.Status = ""

	periods, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]Period, 0, len(periods))
	for _, p := range periods {
		info := Classify(p.StartDate, p.EndDate, now)
		p.Status = info.Status
		p.DaysToStart = info.DaysToStart
		p.DaysToEnd = info.DaysToEnd
		if wantStatus != "" && p.Status != wantStatus {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// OpenPeriods returns the active periods whose submission window contains the
// current instant.
func (s *Service) OpenPeriods(ctx context.Context, year int) ([]Period, error) {
	periods, err := s.ListPeriods(ctx, PeriodFilter{Year: year, Status: PeriodOpen})
	if err != nil {
		return nil, err
	}
	out := periods[:0]
	for _, p := range periods {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetPeriod fetches one period by natural key with recomputed temporal fields.
func (s *Service) GetPeriod(ctx context.Context, modelCode, label string, year int) (Period, error) {
	p, err := s.store.FindByKey(ctx, modelCode, label, year)
	if err != nil {
		return Period{}, err
	}
	info := Classify(p.StartDate, p.EndDate, s.now())
	p.Status = info.Status
	p.DaysToStart = info.DaysToStart
	p.DaysToEnd = info.DaysToEnd
	return p, nil
}

// SetFlags updates the operator-controlled flags on a period.
func (s *Service) SetFlags(ctx context.Context, id string, active, locked bool) (Period, error) {
	return s.store.SetFlags(ctx, id, active, locked)
}

// DeletePeriod removes a period. Locked periods are protected from deletion
// until an operator unlocks them.
func (s *Service) DeletePeriod(ctx context.Context, id string) error {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Locked {
		return ErrLockedPeriod
	}
	return s.store.Delete(ctx, id)
}

// Import runs the bulk ingest pipeline over the supplied document.
func (s *Service) Import(ctx context.Context, reader RowReader) ImportResult {
	result := s.importer.Import(ctx, reader)
	s.logger.Info("period import finished",
		slog.Int("imported", result.Imported),
		slog.Int("duplicates", len(result.Duplicates)),
		slog.Int("errors", len(result.Errors)),
		slog.Bool("success", result.Success),
	)
	return result
}

// WriteTemplate emits the import template document.
func (s *Service) WriteTemplate(w WorkbookWriter) error {
	return WriteTemplate(w, s.catalog)
}
