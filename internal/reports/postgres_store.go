package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL. Machine lines are
// stored as a JSONB document since they are immutable and always read as a
// unit with the report.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed report store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the daily_reports table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS daily_reports (
			id              VARCHAR(36) PRIMARY KEY,
			venue_id        VARCHAR(36) NOT NULL,
			report_date     DATE NOT NULL,
			printed_at      TIMESTAMPTZ NOT NULL,
			machine_lines   JSONB NOT NULL DEFAULT '[]',
			total_revenue   NUMERIC(14,2) NOT NULL DEFAULT 0,
			quality_score   INT NOT NULL DEFAULT 0,
			anomaly_reasons TEXT[] NOT NULL DEFAULT '{}',
			needs_review    BOOLEAN NOT NULL DEFAULT FALSE,
			status          VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at      TIMESTAMPTZ DEFAULT NOW(),
			updated_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_daily_reports_venue_date ON daily_reports(venue_id, report_date);
		CREATE INDEX IF NOT EXISTS idx_daily_reports_venue_printed ON daily_reports(venue_id, printed_at);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, r *DailyReport) error {
	lines, err := json.Marshal(r.MachineLines)
	if err != nil {
		return fmt.Errorf("marshal machine lines: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO daily_reports
			(id, venue_id, report_date, printed_at, machine_lines, total_revenue,
			 quality_score, anomaly_reasons, needs_review, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.ID, r.VenueID, r.Date, r.PrintedAt, lines, r.TotalRevenue,
		r.QualityScore, pq.Array(r.AnomalyReasons), r.NeedsReview, string(r.Status), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrReportExists
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*DailyReport, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, venue_id, to_char(report_date, 'YYYY-MM-DD'), printed_at,
		       machine_lines, total_revenue, quality_score, anomaly_reasons,
		       needs_review, status, created_at, updated_at
		FROM daily_reports WHERE id = $1
	`, id)

	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

func (p *PostgresStore) ListByVenueDate(ctx context.Context, venueID, date string) ([]*DailyReport, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, venue_id, to_char(report_date, 'YYYY-MM-DD'), printed_at,
		       machine_lines, total_revenue, quality_score, anomaly_reasons,
		       needs_review, status, created_at, updated_at
		FROM daily_reports
		WHERE venue_id = $1 AND report_date = $2
		ORDER BY created_at
	`, venueID, date)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*DailyReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (p *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) (*DailyReport, error) {
	result, err := p.db.ExecContext(ctx, `
		UPDATE daily_reports SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrReportNotFound
	}
	return p.Get(ctx, id)
}

func (p *PostgresStore) LatestBefore(ctx context.Context, venueID string, before time.Time) (*DailyReport, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, venue_id, to_char(report_date, 'YYYY-MM-DD'), printed_at,
		       machine_lines, total_revenue, quality_score, anomaly_reasons,
		       needs_review, status, created_at, updated_at
		FROM daily_reports
		WHERE venue_id = $1 AND printed_at < $2
		ORDER BY printed_at DESC LIMIT 1
	`, venueID, before)

	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return r, nil
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanReport(row scannable) (*DailyReport, error) {
	var r DailyReport
	var lines []byte
	var total string
	var reasons pq.StringArray
	var status string
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(&r.ID, &r.VenueID, &r.Date, &r.PrintedAt, &lines, &total,
		&r.QualityScore, &reasons, &r.NeedsReview, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lines, &r.MachineLines); err != nil {
		return nil, fmt.Errorf("unmarshal machine lines: %w", err)
	}
	r.TotalRevenue, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total revenue: %w", err)
	}
	r.AnomalyReasons = reasons
	r.Status = Status(status)
	if createdAt.Valid {
		r.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		r.UpdatedAt = updatedAt.Time
	}
	return &r, nil
}
