package taxcal

import (
	"context"
	"strconv"

	"github.com/gestoria-erp/gestoria-erp/internal/shared"
)

type memoryPeriodStore struct {
	periods map[string]Period
	nextID  int
	// referenced marks IDs whose deletion fails with ErrReferenced, the way
	// a foreign key from filings would block it.
	referenced map[string]bool
}

func newMemoryPeriodStore() *memoryPeriodStore {
	return &memoryPeriodStore{
		periods:    make(map[string]Period),
		referenced: make(map[string]bool),
	}
}

func (s *memoryPeriodStore) allocID() string {
	s.nextID++
	return "period-" + strconv.Itoa(s.nextID)
}

func (s *memoryPeriodStore) byKey(key string) (Period, bool) {
	for _, p := range s.periods {
		if p.Key() == key {
			return p, true
		}
	}
	return Period{}, false
}

func (s *memoryPeriodStore) FindByYear(ctx context.Context, year int, modelCodes []string) ([]Period, error) {
	allowed := make(map[string]bool, len(modelCodes))
	for _, code := range modelCodes {
		allowed[code] = true
	}
	var out []Period
	for _, p := range s.periods {
		if p.Year != year {
			continue
		}
		if len(modelCodes) > 0 && !allowed[p.ModelCode] {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *memoryPeriodStore) FindByKey(ctx context.Context, modelCode, label string, year int) (Period, error) {
	if p, ok := s.byKey(PeriodKey(modelCode, label, year)); ok {
		return p, nil
	}
	return Period{}, shared.ErrNotFound
}

func (s *memoryPeriodStore) FindByID(ctx context.Context, id string) (Period, error) {
	if p, ok := s.periods[id]; ok {
		return p, nil
	}
	return Period{}, shared.ErrNotFound
}

func (s *memoryPeriodStore) List(ctx context.Context, filter PeriodFilter) ([]Period, error) {
	var out []Period
	for _, p := range s.periods {
		if filter.Year != 0 && p.Year != filter.Year {
			continue
		}
		if filter.ModelCode != "" && p.ModelCode != filter.ModelCode {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *memoryPeriodStore) Create(ctx context.Context, period Period) (Period, error) {
	if _, exists := s.byKey(period.Key()); exists {
		return Period{}, shared.ErrDuplicateKey
	}
	if period.ID == "" {
		period.ID = s.allocID()
	}
	s.periods[period.ID] = period
	return period, nil
}

func (s *memoryPeriodStore) Upsert(ctx context.Context, period Period) (Period, error) {
	if existing, ok := s.byKey(period.Key()); ok {
		period.ID = existing.ID
		period.Active = existing.Active
		period.Locked = existing.Locked
		s.periods[period.ID] = period
		return period, nil
	}
	if period.ID == "" {
		period.ID = s.allocID()
	}
	s.periods[period.ID] = period
	return period, nil
}

func (s *memoryPeriodStore) Delete(ctx context.Context, id string) error {
	if s.referenced[id] {
		return shared.ErrReferenced
	}
	if _, ok := s.periods[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.periods, id)
	return nil
}

func (s *memoryPeriodStore) SetFlags(ctx context.Context, id string, active, locked bool) (Period, error) {
	p, ok := s.periods[id]
	if !ok {
		return Period{}, shared.ErrNotFound
	}
	p.Active = active
	p.Locked = locked
	s.periods[id] = p
	return p, nil
}
