package filings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestoria-erp/gestoria-erp/internal/shared"
)

// Repository defines filing data access.
type Repository interface {
	Get(ctx context.Context, id string) (Filing, error)
	List(ctx context.Context, filter FilingFilter) ([]Filing, error)
	Create(ctx context.Context, filing Filing) (Filing, error)
	UpdateStatus(ctx context.Context, id string, status FilingStatus, submittedAt *time.Time) (Filing, error)
	UpdateDetails(ctx context.Context, id string, assigneeID *string, notes string) (Filing, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository backed by Postgres.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// filingColumns joins the period window and client name in on every read so
// derived metrics never need a second round trip.
const filingColumns = `f.id, f.client_id, COALESCE(c.name, ''), f.model_code, f.period_label,
       f.year, p.start_date, p.end_date, f.status, f.submitted_at, f.assignee_id,
       f.notes, f.created_at, f.updated_at`

const filingFrom = ` FROM tax_filings f
	JOIN tax_periods p ON p.model_code = f.model_code
		AND p.period_label = f.period_label AND p.year = f.year
	LEFT JOIN clients c ON c.id = f.client_id`

func scanFiling(row pgx.Row) (Filing, error) {
	var f Filing
	var rawStatus string
	err := row.Scan(
		&f.ID, &f.ClientID, &f.ClientName, &f.ModelCode, &f.PeriodLabel,
		&f.Year, &f.PeriodStart, &f.PeriodEnd, &rawStatus, &f.SubmittedAt,
		&f.AssigneeID, &f.Notes, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return Filing{}, err
	}
	f.Status = NormalizeStatus(rawStatus)
	return f, nil
}

func (r *pgRepository) Get(ctx context.Context, id string) (Filing, error) {
	query := `SELECT ` + filingColumns + filingFrom + ` WHERE f.id = $1`
	f, err := scanFiling(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Filing{}, shared.ErrNotFound
	}
	if err != nil {
		return Filing{}, err
	}
	return f, nil
}

func (r *pgRepository) List(ctx context.Context, filter FilingFilter) ([]Filing, error) {
	query := `SELECT ` + filingColumns + filingFrom
	var conditions []string
	var args []interface{}
	argPos := 1

	add := func(cond string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argPos))
		args = append(args, value)
		argPos++
	}

	if filter.Year != 0 {
		add("f.year = $%d", filter.Year)
	}
	if filter.ModelCode != "" {
		add("f.model_code = $%d", filter.ModelCode)
	}
	if filter.PeriodLabel != "" {
		add("f.period_label = $%d", filter.PeriodLabel)
	}
	if filter.ClientID != "" {
		add("f.client_id = $%d", filter.ClientID)
	}
	if filter.AssigneeID != "" {
		add("f.assignee_id = $%d", filter.AssigneeID)
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY f.model_code, f.period_label, c.name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var filings []Filing
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, err
		}
		// Status filtering happens after normalization so legacy spellings
		// land in the right bucket.
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		filings = append(filings, f)
	}
	return filings, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, filing Filing) (Filing, error) {
	if filing.ID == "" {
		filing.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO tax_filings
		(id, client_id, model_code, period_label, year, status, submitted_at, assignee_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		filing.ID, filing.ClientID, filing.ModelCode, filing.PeriodLabel,
		filing.Year, string(filing.Status), filing.SubmittedAt, filing.AssigneeID, filing.Notes,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Filing{}, shared.ErrDuplicateKey
			case "23503":
				// The referenced period or client does not exist.
				return Filing{}, shared.ErrNotFound
			}
		}
		return Filing{}, err
	}
	return r.Get(ctx, filing.ID)
}

func (r *pgRepository) UpdateStatus(ctx context.Context, id string, status FilingStatus, submittedAt *time.Time) (Filing, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE tax_filings
		SET status = $2, submitted_at = $3, updated_at = NOW()
		WHERE id = $1`, id, string(status), submittedAt)
	if err != nil {
		return Filing{}, err
	}
	if tag.RowsAffected() == 0 {
		return Filing{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *pgRepository) UpdateDetails(ctx context.Context, id string, assigneeID *string, notes string) (Filing, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE tax_filings
		SET assignee_id = $2, notes = $3, updated_at = NOW()
		WHERE id = $1`, id, assigneeID, notes)
	if err != nil {
		return Filing{}, err
	}
	if tag.RowsAffected() == 0 {
		return Filing{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}
