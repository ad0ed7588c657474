package reports

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

type contextKey string

const ctxActor contextKey = "audit_actor"

// WithActor attaches the acting operator to the context for audit logging.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxActor, actor)
}

func actorFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxActor).(string); ok && v != "" {
		return v
	}
	return "system"
}

// AuditEntry records one reconciliation status change. The history is
// append-only and never rewritten.
type AuditEntry struct {
	ID         int64     `json:"id"`
	ReportID   string    `json:"reportId"`
	Actor      string    `json:"actor"`
	FromStatus Status    `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuditLogger persists status-change audit entries.
type AuditLogger interface {
	LogStatusChange(ctx context.Context, entry *AuditEntry) error
	History(ctx context.Context, reportID string, limit int) ([]*AuditEntry, error)
}

// --- PostgresAuditLogger ---

// PostgresAuditLogger writes audit entries to PostgreSQL.
type PostgresAuditLogger struct {
	db *sql.DB
}

// NewPostgresAuditLogger creates an audit logger backed by PostgreSQL.
func NewPostgresAuditLogger(db *sql.DB) *PostgresAuditLogger {
	return &PostgresAuditLogger{db: db}
}

// Migrate creates the report_audit table if it doesn't exist.
func (l *PostgresAuditLogger) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS report_audit (
			id          BIGSERIAL PRIMARY KEY,
			report_id   VARCHAR(36) NOT NULL,
			actor       TEXT NOT NULL,
			from_status VARCHAR(20) NOT NULL,
			to_status   VARCHAR(20) NOT NULL,
			note        TEXT,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_report_audit_report ON report_audit(report_id);
	`)
	return err
}

func (l *PostgresAuditLogger) LogStatusChange(ctx context.Context, entry *AuditEntry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO report_audit (report_id, actor, from_status, to_status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, entry.ReportID, entry.Actor, string(entry.FromStatus), string(entry.ToStatus), entry.Note)
	return err
}

func (l *PostgresAuditLogger) History(ctx context.Context, reportID string, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, report_id, actor, from_status, to_status, COALESCE(note, ''), created_at
		FROM report_audit WHERE report_id = $1
		ORDER BY id DESC LIMIT $2
	`, reportID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		var from, to string
		if err := rows.Scan(&e.ID, &e.ReportID, &e.Actor, &from, &to, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.FromStatus = Status(from)
		e.ToStatus = Status(to)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- MemoryAuditLogger ---

// MemoryAuditLogger stores audit entries in memory for demo/testing.
type MemoryAuditLogger struct {
	entries []*AuditEntry
	nextID  int64
	mu      sync.RWMutex
}

// NewMemoryAuditLogger creates an in-memory audit logger.
func NewMemoryAuditLogger() *MemoryAuditLogger {
	return &MemoryAuditLogger{}
}

func (l *MemoryAuditLogger) LogStatusChange(_ context.Context, entry *AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	cp := *entry
	cp.ID = l.nextID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	l.entries = append(l.entries, &cp)
	return nil
}

func (l *MemoryAuditLogger) History(_ context.Context, reportID string, limit int) ([]*AuditEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var result []*AuditEntry
	// Iterate in reverse for descending order
	for i := len(l.entries) - 1; i >= 0 && len(result) < limit; i-- {
		e := l.entries[i]
		if e.ReportID != reportID {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	return result, nil
}
