package reports

import (
	"context"
	"fmt"

	"github.com/gambino-gaming/reconciliation/internal/logging"
	"github.com/gambino-gaming/reconciliation/internal/metrics"
	"github.com/gambino-gaming/reconciliation/internal/syncutil"
)

// Classifier applies operator decisions about report admissibility. Every
// transition is allowed (operators can always correct a mistake) and every
// actual change lands in the audit trail.
type Classifier struct {
	store   Store
	audit   AuditLogger
	emitter EventEmitter
	locks   *syncutil.ShardedMutex
}

// NewClassifier creates a classifier over the given store and audit logger.
func NewClassifier(store Store, audit AuditLogger, emitter EventEmitter) *Classifier {
	return &Classifier{
		store:   store,
		audit:   audit,
		emitter: emitter,
		locks:   syncutil.NewShardedMutex(),
	}
}

// BulkResult reports the outcome of a bulk status change. Failures are
// per-report: one bad ID never blocks the rest of the batch.
type BulkResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// SetStatus transitions a report to the given status. Setting the status a
// report already has is a successful no-op and leaves no audit entry.
func (c *Classifier) SetStatus(ctx context.Context, reportID string, status Status, note string) (*DailyReport, error) {
	unlock := c.locks.Lock(reportID)
	defer unlock()

	current, err := c.store.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if current.Status == status {
		return current, nil
	}

	updated, err := c.store.UpdateStatus(ctx, reportID, status)
	if err != nil {
		return nil, err
	}

	entry := &AuditEntry{
		ReportID:   reportID,
		Actor:      actorFromCtx(ctx),
		FromStatus: current.Status,
		ToStatus:   status,
		Note:       note,
	}
	if err := c.audit.LogStatusChange(ctx, entry); err != nil {
		// The status change already happened; a lost audit entry is logged
		// loudly rather than rolled back.
		logging.L(ctx).Error("audit write failed",
			"report_id", reportID, "error", err)
	}

	metrics.StatusChangesTotal.WithLabelValues(string(status)).Inc()
	if c.emitter != nil {
		c.emitter.EmitStatusChanged(reportID, updated.VenueID, updated.Date, current.Status, status)
	}

	logging.L(ctx).Info("report status changed",
		"report_id", reportID,
		"venue_id", updated.VenueID,
		"from", string(current.Status),
		"to", string(status),
		"actor", entry.Actor)

	return updated, nil
}

// BulkSetStatus applies the same status to many reports. Each report is
// processed independently; the result lists which succeeded and which failed.
func (c *Classifier) BulkSetStatus(ctx context.Context, reportIDs []string, status Status, note string) *BulkResult {
	result := &BulkResult{Succeeded: []string{}}

	for _, id := range reportIDs {
		if _, err := c.SetStatus(ctx, id, status, note); err != nil {
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[id] = err.Error()
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	return result
}

// History returns the audit trail for one report, newest first.
func (c *Classifier) History(ctx context.Context, reportID string, limit int) ([]*AuditEntry, error) {
	if _, err := c.store.Get(ctx, reportID); err != nil {
		return nil, err
	}
	entries, err := c.audit.History(ctx, reportID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if entries == nil {
		entries = []*AuditEntry{}
	}
	return entries, nil
}
