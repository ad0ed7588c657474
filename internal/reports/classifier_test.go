package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	reportID string
	from, to Status
}

type fakeEmitter struct {
	ingested []string
	changes  []recordedEvent
}

func (f *fakeEmitter) EmitReportIngested(r *DailyReport) {
	f.ingested = append(f.ingested, r.ID)
}

func (f *fakeEmitter) EmitStatusChanged(reportID, _, _ string, from, to Status) {
	f.changes = append(f.changes, recordedEvent{reportID: reportID, from: from, to: to})
}

func seedReport(t *testing.T, store Store, id string) *DailyReport {
	t.Helper()
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	r := &DailyReport{
		ID:        id,
		VenueID:   "ven_1",
		Date:      "2026-03-02",
		PrintedAt: now,
		MachineLines: []MachineLine{
			{MachineID: "m1", MoneyIn: d("100.00"), NetRevenue: d("40.00")},
		},
		TotalRevenue: d("40.00"),
		QualityScore: 100,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Create(context.Background(), r))
	return r
}

func newTestClassifier() (*Classifier, *MemoryStore, *MemoryAuditLogger, *fakeEmitter) {
	store := NewMemoryStore()
	audit := NewMemoryAuditLogger()
	emitter := &fakeEmitter{}
	return NewClassifier(store, audit, emitter), store, audit, emitter
}

func TestSetStatusRecordsAuditEntry(t *testing.T) {
	c, store, audit, emitter := newTestClassifier()
	seedReport(t, store, "rpt_1")
	ctx := WithActor(context.Background(), "ops@gambino")

	updated, err := c.SetStatus(ctx, "rpt_1", StatusIncluded, "looks clean")
	require.NoError(t, err)
	assert.Equal(t, StatusIncluded, updated.Status)

	history, err := audit.History(ctx, "rpt_1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ops@gambino", history[0].Actor)
	assert.Equal(t, StatusPending, history[0].FromStatus)
	assert.Equal(t, StatusIncluded, history[0].ToStatus)
	assert.Equal(t, "looks clean", history[0].Note)

	require.Len(t, emitter.changes, 1)
	assert.Equal(t, StatusIncluded, emitter.changes[0].to)
}

func TestSetStatusSameStatusIsNoOp(t *testing.T) {
	c, store, audit, emitter := newTestClassifier()
	seedReport(t, store, "rpt_1")
	ctx := context.Background()

	updated, err := c.SetStatus(ctx, "rpt_1", StatusPending, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, updated.Status)

	history, err := audit.History(ctx, "rpt_1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, emitter.changes)
}

func TestSetStatusUnknownReport(t *testing.T) {
	c, _, _, _ := newTestClassifier()

	_, err := c.SetStatus(context.Background(), "rpt_missing", StatusExcluded, "")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestSetStatusDefaultsActorToSystem(t *testing.T) {
	c, store, audit, _ := newTestClassifier()
	seedReport(t, store, "rpt_1")
	ctx := context.Background()

	_, err := c.SetStatus(ctx, "rpt_1", StatusExcluded, "")
	require.NoError(t, err)

	history, err := audit.History(ctx, "rpt_1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "system", history[0].Actor)
}

func TestStatusCorrectionAppendsNotRewrites(t *testing.T) {
	c, store, audit, _ := newTestClassifier()
	seedReport(t, store, "rpt_1")
	ctx := context.Background()

	_, err := c.SetStatus(ctx, "rpt_1", StatusExcluded, "suspected duplicate")
	require.NoError(t, err)
	_, err = c.SetStatus(ctx, "rpt_1", StatusIncluded, "false alarm")
	require.NoError(t, err)

	history, err := audit.History(ctx, "rpt_1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first.
	assert.Equal(t, StatusExcluded, history[0].FromStatus)
	assert.Equal(t, StatusIncluded, history[0].ToStatus)
	assert.Equal(t, StatusPending, history[1].FromStatus)
}

func TestBulkSetStatusPartialFailure(t *testing.T) {
	c, store, _, _ := newTestClassifier()
	seedReport(t, store, "rpt_1")
	seedReport(t, store, "rpt_2")

	result := c.BulkSetStatus(context.Background(),
		[]string{"rpt_1", "rpt_missing", "rpt_2"}, StatusIncluded, "")

	assert.Equal(t, []string{"rpt_1", "rpt_2"}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed["rpt_missing"], "not found")

	r1, err := store.Get(context.Background(), "rpt_1")
	require.NoError(t, err)
	assert.Equal(t, StatusIncluded, r1.Status)
	r2, err := store.Get(context.Background(), "rpt_2")
	require.NoError(t, err)
	assert.Equal(t, StatusIncluded, r2.Status)
}

func TestHistoryUnknownReport(t *testing.T) {
	c, _, _, _ := newTestClassifier()

	_, err := c.History(context.Background(), "rpt_missing", 10)
	assert.ErrorIs(t, err, ErrReportNotFound)
}
