package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gambino-gaming/reconciliation/internal/idgen"
	"github.com/gambino-gaming/reconciliation/internal/logging"
	"github.com/gambino-gaming/reconciliation/internal/metrics"
)

// IngestInput is one raw report submission from venue hardware.
type IngestInput struct {
	ReportID     string
	VenueID      string
	PrintedAt    time.Time
	ClaimedTotal decimal.Decimal
	Lines        []MachineLine
}

// DefaultReviewFloor is the quality score below which a report is flagged
// for operator review.
const DefaultReviewFloor = 70

// Service ingests raw hardware reports: validate, recompute, score, store.
type Service struct {
	store       Store
	scorer      *Scorer
	machines    MachineLister
	emitter     EventEmitter
	reviewFloor int
	now         func() time.Time
}

// NewService creates a report ingestion service.
func NewService(store Store, scorer *Scorer, machines MachineLister, emitter EventEmitter) *Service {
	return &Service{
		store:       store,
		scorer:      scorer,
		machines:    machines,
		emitter:     emitter,
		reviewFloor: DefaultReviewFloor,
		now:         time.Now,
	}
}

// SetReviewFloor overrides the quality score below which reports are flagged
// for review.
func (s *Service) SetReviewFloor(floor int) {
	s.reviewFloor = floor
}

// Ingest validates and stores one daily report. Malformed submissions are
// rejected before any scoring or storage happens. The stored total is always
// recomputed from the machine lines; the hardware-claimed total only feeds
// the quality scorer.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*DailyReport, error) {
	if err := validateInput(in); err != nil {
		metrics.ReportsRejectedTotal.WithLabelValues("malformed").Inc()
		return nil, err
	}

	recomputed := decimal.Zero
	for _, line := range in.Lines {
		recomputed = recomputed.Add(line.NetRevenue)
	}

	// Business dates are bucketed in UTC so a report lands on the same day
	// regardless of which timezone the venue hardware runs in.
	date := in.PrintedAt.UTC().Format("2006-01-02")

	var prevPrintedAt time.Time
	if prev, err := s.store.LatestBefore(ctx, in.VenueID, in.PrintedAt); err == nil {
		prevPrintedAt = prev.PrintedAt
	}

	var known []string
	if s.machines != nil {
		if list, err := s.machines.KnownMachines(ctx, in.VenueID); err == nil {
			known = list
		}
	}

	score, anomalies := s.scorer.Score(ScoreInput{
		Lines:           in.Lines,
		ClaimedTotal:    in.ClaimedTotal,
		RecomputedTotal: recomputed,
		PrintedAt:       in.PrintedAt,
		PrevPrintedAt:   prevPrintedAt,
		KnownMachines:   known,
	})

	id := in.ReportID
	if id == "" {
		id = idgen.WithPrefix("rpt_")
	}

	now := s.now()
	report := &DailyReport{
		ID:             id,
		VenueID:        in.VenueID,
		Date:           date,
		PrintedAt:      in.PrintedAt,
		MachineLines:   in.Lines,
		TotalRevenue:   recomputed,
		QualityScore:   score,
		AnomalyReasons: anomalies,
		NeedsReview:    score < s.reviewFloor,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Create(ctx, report); err != nil {
		if err == ErrReportExists {
			metrics.ReportsRejectedTotal.WithLabelValues("duplicate_id").Inc()
		}
		return nil, err
	}

	metrics.ReportsIngestedTotal.Inc()
	metrics.QualityScore.Observe(float64(score))
	if s.emitter != nil {
		s.emitter.EmitReportIngested(report)
	}

	logging.L(ctx).Info("report ingested",
		"report_id", report.ID,
		"venue_id", report.VenueID,
		"date", report.Date,
		"quality_score", score,
		"anomalies", len(anomalies))

	return report, nil
}

// ListByVenueDate returns all of a venue's reports for one business date.
func (s *Service) ListByVenueDate(ctx context.Context, venueID, date string) ([]*DailyReport, error) {
	list, err := s.store.ListByVenueDate(ctx, venueID, date)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*DailyReport{}
	}
	return list, nil
}

func validateInput(in IngestInput) error {
	if in.VenueID == "" {
		return fmt.Errorf("%w: venueId is required", ErrMalformedReport)
	}
	if in.PrintedAt.IsZero() {
		return fmt.Errorf("%w: printedAt is required", ErrMalformedReport)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: at least one machine line is required", ErrMalformedReport)
	}
	seen := make(map[string]bool, len(in.Lines))
	for i, line := range in.Lines {
		if line.MachineID == "" {
			return fmt.Errorf("%w: machine line %d has no machineId", ErrMalformedReport, i)
		}
		if seen[line.MachineID] {
			return fmt.Errorf("%w: machine %s appears more than once", ErrMalformedReport, line.MachineID)
		}
		seen[line.MachineID] = true
	}
	return nil
}
