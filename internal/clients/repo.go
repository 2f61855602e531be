package clients

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

// Repository defines client and assignment data access.
type Repository interface {
	GetClient(ctx context.Context, id string) (Client, error)
	ListClients(ctx context.Context, filter ClientFilter) ([]Client, error)
	CreateClient(ctx context.Context, client Client) (Client, error)
	UpdateClient(ctx context.Context, client Client) (Client, error)
	SetClientActive(ctx context.Context, id string, active bool) (Client, error)

	ListAssignments(ctx context.Context, clientID string) ([]TaxAssignment, error)
	CreateAssignment(ctx context.Context, assignment TaxAssignment) (TaxAssignment, error)
	EndAssignment(ctx context.Context, id string, endDate time.Time) (TaxAssignment, error)
	SetAssignmentActive(ctx context.Context, id string, active bool) (TaxAssignment, error)

	ActiveAssignments(ctx context.Context) ([]ActiveAssignment, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository backed by Postgres.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const clientColumns = `id, name, client_type, tax_id, email, phone, active, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.TaxID, &c.Email, &c.Phone,
		&c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *pgRepository) GetClient(ctx context.Context, id string) (Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	c, err := scanClient(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, shared.ErrNotFound
	}
	if err != nil {
		return Client{}, err
	}
	return c, nil
}

func (r *pgRepository) ListClients(ctx context.Context, filter ClientFilter) ([]Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients`
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", argPos))
		args = append(args, *filter.Active)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR tax_id ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *pgRepository) CreateClient(ctx context.Context, client Client) (Client, error) {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	query := `INSERT INTO clients (id, name, client_type, tax_id, email, phone, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + clientColumns
	c, err := scanClient(r.pool.QueryRow(ctx, query,
		client.ID, client.Name, string(client.Type), client.TaxID,
		client.Email, client.Phone, client.Active))
	if err != nil {
		return Client{}, mapPgError(err)
	}
	return c, nil
}

func (r *pgRepository) UpdateClient(ctx context.Context, client Client) (Client, error) {
	query := `UPDATE clients
		SET name = $2, client_type = $3, tax_id = $4, email = $5, phone = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + clientColumns
	c, err := scanClient(r.pool.QueryRow(ctx, query,
		client.ID, client.Name, string(client.Type), client.TaxID, client.Email, client.Phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, shared.ErrNotFound
	}
	if err != nil {
		return Client{}, mapPgError(err)
	}
	return c, nil
}

func (r *pgRepository) SetClientActive(ctx context.Context, id string, active bool) (Client, error) {
	query := `UPDATE clients SET active = $2, updated_at = NOW() WHERE id = $1
		RETURNING ` + clientColumns
	c, err := scanClient(r.pool.QueryRow(ctx, query, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, shared.ErrNotFound
	}
	if err != nil {
		return Client{}, err
	}
	return c, nil
}

const assignmentColumns = `id, client_id, model_code, cadence, active, end_date, notes, created_at, updated_at`

func scanAssignment(row pgx.Row) (TaxAssignment, error) {
	var a TaxAssignment
	err := row.Scan(&a.ID, &a.ClientID, &a.ModelCode, &a.Cadence, &a.Active,
		&a.EndDate, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *pgRepository) ListAssignments(ctx context.Context, clientID string) ([]TaxAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM client_tax_assignments
		WHERE client_id = $1 ORDER BY model_code`
	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []TaxAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (r *pgRepository) CreateAssignment(ctx context.Context, assignment TaxAssignment) (TaxAssignment, error) {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	query := `INSERT INTO client_tax_assignments (id, client_id, model_code, cadence, active, end_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + assignmentColumns
	a, err := scanAssignment(r.pool.QueryRow(ctx, query,
		assignment.ID, assignment.ClientID, assignment.ModelCode, assignment.Cadence,
		assignment.Active, assignment.EndDate, assignment.Notes))
	if err != nil {
		return TaxAssignment{}, mapPgError(err)
	}
	return a, nil
}

func (r *pgRepository) EndAssignment(ctx context.Context, id string, endDate time.Time) (TaxAssignment, error) {
	query := `UPDATE client_tax_assignments
		SET end_date = $2, active = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + assignmentColumns
	a, err := scanAssignment(r.pool.QueryRow(ctx, query, id, endDate))
	if errors.Is(err, pgx.ErrNoRows) {
		return TaxAssignment{}, shared.ErrNotFound
	}
	if err != nil {
		return TaxAssignment{}, err
	}
	return a, nil
}

func (r *pgRepository) SetAssignmentActive(ctx context.Context, id string, active bool) (TaxAssignment, error) {
	query := `UPDATE client_tax_assignments SET active = $2, updated_at = NOW() WHERE id = $1
		RETURNING ` + assignmentColumns
	a, err := scanAssignment(r.pool.QueryRow(ctx, query, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return TaxAssignment{}, shared.ErrNotFound
	}
	if err != nil {
		return TaxAssignment{}, err
	}
	return a, nil
}

// ActiveAssignments joins active clients against their effective-active
// assignments. An assignment with an end date no longer counts.
func (r *pgRepository) ActiveAssignments(ctx context.Context) ([]ActiveAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.client_id, c.name, a.model_code
		FROM client_tax_assignments a
		JOIN clients c ON c.id = a.client_id
		WHERE c.active AND a.active AND a.end_date IS NULL
		ORDER BY c.name, a.model_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []ActiveAssignment
	for rows.Next() {
		var a ActiveAssignment
		if err := rows.Scan(&a.ClientID, &a.ClientName, &a.ModelCode); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicateKey
		case "23503":
			return shared.ErrNotFound
		}
	}
	return err
}
