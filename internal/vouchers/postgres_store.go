package vouchers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed voucher store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the voucher_events table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS voucher_events (
			id         VARCHAR(36) PRIMARY KEY,
			venue_id   VARCHAR(36) NOT NULL,
			machine_id TEXT NOT NULL,
			amount     NUMERIC(14,2) NOT NULL,
			issued_at  TIMESTAMPTZ NOT NULL,
			event_date DATE NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_voucher_events_venue_date ON voucher_events(venue_id, event_date);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, e *Event) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO voucher_events (id, venue_id, machine_id, amount, issued_at, event_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.VenueID, e.MachineID, e.Amount, e.IssuedAt, e.Date, e.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrVoucherExists
		}
		return fmt.Errorf("insert voucher event: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Event, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, venue_id, machine_id, amount, issued_at,
		       to_char(event_date, 'YYYY-MM-DD'), created_at
		FROM voucher_events WHERE id = $1
	`, id)

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get voucher event: %w", err)
	}
	return e, nil
}

func (p *PostgresStore) ListByVenueDate(ctx context.Context, venueID, date string) ([]*Event, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, venue_id, machine_id, amount, issued_at,
		       to_char(event_date, 'YYYY-MM-DD'), created_at
		FROM voucher_events
		WHERE venue_id = $1 AND event_date = $2
		ORDER BY issued_at
	`, venueID, date)
	if err != nil {
		return nil, fmt.Errorf("list voucher events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (p *PostgresStore) SumByVenueDate(ctx context.Context, venueID, date string) (decimal.Decimal, error) {
	var sum string
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM voucher_events
		WHERE venue_id = $1 AND event_date = $2
	`, venueID, date).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum voucher events: %w", err)
	}
	return decimal.NewFromString(sum)
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scannable) (*Event, error) {
	var e Event
	var amount string
	var createdAt sql.NullTime

	err := row.Scan(&e.ID, &e.VenueID, &e.MachineID, &amount, &e.IssuedAt, &e.Date, &createdAt)
	if err != nil {
		return nil, err
	}

	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if createdAt.Valid {
		e.CreatedAt = createdAt.Time
	}
	return &e, nil
}
