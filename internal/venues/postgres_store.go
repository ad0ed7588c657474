package venues

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed venue store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the venues table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS venues (
			id             VARCHAR(36) PRIMARY KEY,
			name           TEXT NOT NULL,
			fee_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
			machine_ids    TEXT[] NOT NULL DEFAULT '{}',
			created_at     TIMESTAMPTZ DEFAULT NOW(),
			updated_at     TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, v *Venue) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO venues (id, name, fee_percentage, machine_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, v.ID, v.Name, v.FeePercentage, pq.Array(v.MachineIDs), v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrVenueExists
		}
		return fmt.Errorf("insert venue: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Venue, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, fee_percentage, machine_ids, created_at, updated_at
		FROM venues WHERE id = $1
	`, id)

	v, err := scanVenue(row)
	if err == sql.ErrNoRows {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return v, nil
}

func (p *PostgresStore) Update(ctx context.Context, v *Venue) error {
	v.UpdatedAt = time.Now()

	result, err := p.db.ExecContext(ctx, `
		UPDATE venues SET
			name           = $2,
			fee_percentage = $3,
			machine_ids    = $4,
			updated_at     = $5
		WHERE id = $1
	`, v.ID, v.Name, v.FeePercentage, pq.Array(v.MachineIDs), v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update venue: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVenueNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, limit int) ([]*Venue, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, fee_percentage, machine_ids, created_at, updated_at
		FROM venues ORDER BY created_at LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanVenue(row scannable) (*Venue, error) {
	var v Venue
	var machines pq.StringArray
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(&v.ID, &v.Name, &v.FeePercentage, &machines, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	v.MachineIDs = machines
	if createdAt.Valid {
		v.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		v.UpdatedAt = updatedAt.Time
	}
	return &v, nil
}
