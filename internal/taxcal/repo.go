package taxcal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestoria-erp/gestoria-erp/internal/shared"
)

var _ PeriodStore = (*pgPeriodStore)(nil)

type pgPeriodStore struct {
	pool *pgxpool.Pool
}

// NewPeriodStore returns a PeriodStore backed by Postgres.
func NewPeriodStore(pool *pgxpool.Pool) PeriodStore {
	return &pgPeriodStore{pool: pool}
}

const periodColumns = `id, model_code, period_label, year, start_date, end_date,
       status, days_to_start, days_to_end, active, locked, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(
		&p.ID, &p.ModelCode, &p.Label, &p.Year, &p.StartDate, &p.EndDate,
		&p.Status, &p.DaysToStart, &p.DaysToEnd, &p.Active, &p.Locked,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (s *pgPeriodStore) FindByYear(ctx context.Context, year int, modelCodes []string) ([]Period, error) {
	query := fmt.Sprintf(`SELECT %s FROM tax_periods WHERE year = $1`, periodColumns)
	args := []interface{}{year}
	if len(modelCodes) > 0 {
		query += ` AND model_code = ANY($2)`
		args = append(args, modelCodes)
	}
	query += ` ORDER BY model_code, start_date`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPeriods(rows)
}

func (s *pgPeriodStore) FindByKey(ctx context.Context, modelCode, label string, year int) (Period, error) {
	query := fmt.Sprintf(`SELECT %s FROM tax_periods
		WHERE model_code = $1 AND period_label = $2 AND year = $3`, periodColumns)
	p, err := scanPeriod(s.pool.QueryRow(ctx, query, modelCode, label, year))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, shared.ErrNotFound
	}
	if err != nil {
		return Period{}, err
	}
	return p, nil
}

func (s *pgPeriodStore) FindByID(ctx context.Context, id string) (Period, error) {
	query := fmt.Sprintf(`SELECT %s FROM tax_periods WHERE id = $1`, periodColumns)
	p, err := scanPeriod(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, shared.ErrNotFound
	}
	if err != nil {
		return Period{}, err
	}
	return p, nil
}

func (s *pgPeriodStore) List(ctx context.Context, filter PeriodFilter) ([]Period, error) {
	query := fmt.Sprintf(`SELECT %s FROM tax_periods`, periodColumns)
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", argPos))
		args = append(args, filter.Year)
		argPos++
	}
	if filter.ModelCode != "" {
		conditions = append(conditions, fmt.Sprintf("model_code = $%d", argPos))
		args = append(args, filter.ModelCode)
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY model_code, start_date"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPeriods(rows)
}

func (s *pgPeriodStore) Create(ctx context.Context, period Period) (Period, error) {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO tax_periods
		(id, model_code, period_label, year, start_date, end_date,
		 status, days_to_start, days_to_end, active, locked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s`, periodColumns)

	p, err := scanPeriod(s.pool.QueryRow(ctx, query,
		period.ID, period.ModelCode, period.Label, period.Year,
		period.StartDate, period.EndDate, period.Status,
		period.DaysToStart, period.DaysToEnd, period.Active, period.Locked,
	))
	if err != nil {
		return Period{}, mapPgError(err)
	}
	return p, nil
}

// Upsert inserts or refreshes the row for the natural key in one statement.
// Active and locked flags are operator state and survive the refresh.
func (s *pgPeriodStore) Upsert(ctx context.Context, period Period) (Period, error) {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO tax_periods
		(id, model_code, period_label, year, start_date, end_date,
		 status, days_to_start, days_to_end, active, locked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (model_code, period_label, year) DO UPDATE SET
			start_date    = EXCLUDED.start_date,
			end_date      = EXCLUDED.end_date,
			status        = EXCLUDED.status,
			days_to_start = EXCLUDED.days_to_start,
			days_to_end   = EXCLUDED.days_to_end,
			updated_at    = NOW()
		RETURNING %s`, periodColumns)

	p, err := scanPeriod(s.pool.QueryRow(ctx, query,
		period.ID, period.ModelCode, period.Label, period.Year,
		period.StartDate, period.EndDate, period.Status,
		period.DaysToStart, period.DaysToEnd, period.Active, period.Locked,
	))
	if err != nil {
		return Period{}, mapPgError(err)
	}
	return p, nil
}

func (s *pgPeriodStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tax_periods WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s *pgPeriodStore) SetFlags(ctx context.Context, id string, active, locked bool) (Period, error) {
	query := fmt.Sprintf(`UPDATE tax_periods
		SET active = $2, locked = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, periodColumns)
	p, err := scanPeriod(s.pool.QueryRow(ctx, query, id, active, locked))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, shared.ErrNotFound
	}
	if err != nil {
		return Period{}, err
	}
	return p, nil
}

func collectPeriods(rows pgx.Rows) ([]Period, error) {
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicateKey
		case "23503":
			return shared.ErrReferenced
		}
	}
	return err
}
