package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMachineLister struct {
	machines map[string][]string
}

func (f *fakeMachineLister) KnownMachines(_ context.Context, venueID string) ([]string, error) {
	return f.machines[venueID], nil
}

func newTestService() (*Service, *MemoryStore, *fakeEmitter) {
	store := NewMemoryStore()
	emitter := &fakeEmitter{}
	lister := &fakeMachineLister{machines: map[string][]string{
		"ven_1": {"m1", "m2"},
	}}
	return NewService(store, NewScorer(), lister, emitter), store, emitter
}

func validIngest() IngestInput {
	return IngestInput{
		ReportID:  "rpt_1",
		VenueID:   "ven_1",
		PrintedAt: time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC),
		Lines: []MachineLine{
			{MachineID: "m1", MoneyIn: d("100.00"), NetRevenue: d("40.00")},
			{MachineID: "m2", MoneyIn: d("200.00"), NetRevenue: d("60.00")},
		},
		ClaimedTotal: d("100.00"),
	}
}

func TestIngestStoresPendingReport(t *testing.T) {
	svc, store, emitter := newTestService()

	report, err := svc.Ingest(context.Background(), validIngest())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, report.Status)
	assert.Equal(t, "2026-03-02", report.Date)
	assert.Equal(t, 100, report.QualityScore)
	assert.Empty(t, report.AnomalyReasons)

	stored, err := store.Get(context.Background(), "rpt_1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, []string{"rpt_1"}, emitter.ingested)
}

func TestIngestRecomputesTotalFromLines(t *testing.T) {
	svc, _, _ := newTestService()
	in := validIngest()
	// Hardware claims an inflated figure; the stored total must come from
	// the machine lines, with the discrepancy surfacing as an anomaly.
	in.ClaimedTotal = d("5000.00")

	report, err := svc.Ingest(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, report.TotalRevenue.Equal(d("100.00")),
		"stored total %s should be the recomputed line sum", report.TotalRevenue)
	assert.Equal(t, 100-weightConsistency, report.QualityScore)
	assert.NotEmpty(t, report.AnomalyReasons)
}

func TestIngestBucketsDateInUTC(t *testing.T) {
	svc, _, _ := newTestService()
	in := validIngest()
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*3600)
	in.PrintedAt = time.Date(2026, 3, 2, 23, 30, 0, 0, loc)

	report, err := svc.Ingest(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", report.Date)
}

func TestIngestDuplicateReportID(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Ingest(context.Background(), validIngest())
	require.NoError(t, err)

	_, err = svc.Ingest(context.Background(), validIngest())
	assert.ErrorIs(t, err, ErrReportExists)
}

func TestIngestGeneratesIDWhenMissing(t *testing.T) {
	svc, _, _ := newTestService()
	in := validIngest()
	in.ReportID = ""

	report, err := svc.Ingest(context.Background(), in)
	require.NoError(t, err)
	assert.Regexp(t, `^rpt_[a-f0-9]{24}$`, report.ID)
}

func TestIngestMalformedRejectedBeforeStorage(t *testing.T) {
	svc, store, _ := newTestService()

	cases := map[string]func(*IngestInput){
		"missing venue":        func(in *IngestInput) { in.VenueID = "" },
		"missing printedAt":    func(in *IngestInput) { in.PrintedAt = time.Time{} },
		"no machine lines":     func(in *IngestInput) { in.Lines = nil },
		"blank machine id":     func(in *IngestInput) { in.Lines[0].MachineID = "" },
		"duplicate machine id": func(in *IngestInput) { in.Lines[1].MachineID = "m1" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validIngest()
			mutate(&in)

			_, err := svc.Ingest(context.Background(), in)
			assert.ErrorIs(t, err, ErrMalformedReport)

			_, err = store.Get(context.Background(), "rpt_1")
			assert.ErrorIs(t, err, ErrReportNotFound)
		})
	}
}

func TestIngestScoresTimingAgainstPreviousReport(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first := validIngest()
	_, err := svc.Ingest(ctx, first)
	require.NoError(t, err)

	second := validIngest()
	second.ReportID = "rpt_2"
	second.PrintedAt = first.PrintedAt.Add(2 * time.Hour)

	report, err := svc.Ingest(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 100-weightTiming, report.QualityScore)
}

func TestIngestNegativeNetRevenueIsStoredNotRejected(t *testing.T) {
	svc, _, _ := newTestService()
	in := validIngest()
	in.Lines[0].NetRevenue = d("-40.00")
	in.ClaimedTotal = d("20.00")

	report, err := svc.Ingest(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, report.TotalRevenue.Equal(d("20.00")))
	assert.Equal(t, 100-weightNonNegativity, report.QualityScore)
}

func TestIngestFlagsLowScoresForReview(t *testing.T) {
	svc, _, _ := newTestService()
	in := validIngest()
	// Inconsistent total, negative field, and half the fleet missing push
	// the score well under the review floor.
	in.ClaimedTotal = d("999.00")
	in.Lines = in.Lines[:1]
	in.Lines[0].NetRevenue = d("-40.00")

	report, err := svc.Ingest(context.Background(), in)
	require.NoError(t, err)

	assert.Less(t, report.QualityScore, DefaultReviewFloor)
	assert.True(t, report.NeedsReview)
}

func TestIngestCleanReportNotFlagged(t *testing.T) {
	svc, _, _ := newTestService()

	report, err := svc.Ingest(context.Background(), validIngest())
	require.NoError(t, err)
	assert.False(t, report.NeedsReview)
}

func TestListByVenueDateEmpty(t *testing.T) {
	svc, _, _ := newTestService()

	list, err := svc.ListByVenueDate(context.Background(), "ven_1", "2026-03-02")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestStatusJSONRejectsUnknownValue(t *testing.T) {
	var s Status
	err := s.UnmarshalJSON([]byte(`"approved"`))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = s.UnmarshalJSON([]byte(`"included"`))
	require.NoError(t, err)
	assert.Equal(t, StatusIncluded, s)
}

func TestMemoryStoreLatestBefore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	for i, id := range []string{"rpt_a", "rpt_b", "rpt_c"} {
		r := &DailyReport{
			ID:        id,
			VenueID:   "ven_1",
			Date:      base.AddDate(0, 0, i).Format("2006-01-02"),
			PrintedAt: base.AddDate(0, 0, i),
			MachineLines: []MachineLine{
				{MachineID: "m1", MoneyIn: decimal.Zero, NetRevenue: decimal.Zero},
			},
			Status: StatusPending,
		}
		require.NoError(t, store.Create(ctx, r))
	}

	latest, err := store.LatestBefore(ctx, "ven_1", base.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, "rpt_b", latest.ID)

	_, err = store.LatestBefore(ctx, "ven_1", base)
	assert.ErrorIs(t, err, ErrReportNotFound)
}
