package summary

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gambino-gaming/reconciliation/internal/logging"
	"github.com/gambino-gaming/reconciliation/internal/metrics"
	"github.com/gambino-gaming/reconciliation/internal/reports"
	"github.com/gambino-gaming/reconciliation/internal/vouchers"
)

// FeeSource resolves the fee percentage configured for a venue.
type FeeSource interface {
	FeePercentage(ctx context.Context, venueID string) (decimal.Decimal, error)
}

// VoucherSource is the slice of the voucher store the aggregator reads.
type VoucherSource interface {
	SumByVenueDate(ctx context.Context, venueID, date string) (decimal.Decimal, error)
	ListByVenueDate(ctx context.Context, venueID, date string) ([]*vouchers.Event, error)
}

// ReportSource is the slice of the report store the aggregator reads.
type ReportSource interface {
	ListByVenueDate(ctx context.Context, venueID, date string) ([]*reports.DailyReport, error)
}

// Aggregator computes daily financial summaries on demand.
type Aggregator struct {
	reports  ReportSource
	vouchers VoucherSource
	fees     FeeSource
	now      func() time.Time
}

// NewAggregator creates a summary aggregator over the given sources.
func NewAggregator(r ReportSource, v VoucherSource, fees FeeSource) *Aggregator {
	return &Aggregator{reports: r, vouchers: v, fees: fees, now: time.Now}
}

// Aggregate computes one venue/date summary from current store state.
// Deterministic apart from CalculatedAt: two calls against unchanged stores
// produce identical figures.
func (a *Aggregator) Aggregate(ctx context.Context, venueID, date string) (*FinancialSummary, error) {
	feePct, err := a.fees.FeePercentage(ctx, venueID)
	if err != nil {
		return nil, err
	}

	dayReports, err := a.reports.ListByVenueDate(ctx, venueID, date)
	if err != nil {
		return nil, err
	}

	moneyIn := decimal.Zero
	included, pending := 0, 0
	for _, r := range dayReports {
		switch r.Status {
		case reports.StatusIncluded:
			moneyIn = moneyIn.Add(r.TotalRevenue)
			included++
		case reports.StatusPending:
			pending++
		}
	}

	moneyOut, err := a.vouchers.SumByVenueDate(ctx, venueID, date)
	if err != nil {
		return nil, err
	}
	dayVouchers, err := a.vouchers.ListByVenueDate(ctx, venueID, date)
	if err != nil {
		return nil, err
	}

	net := moneyIn.Sub(moneyOut)
	fee, storeKeeps, err := Settle(net, feePct)
	if err != nil {
		return nil, err
	}

	dayStatus := DayOpen
	if len(dayReports) > 0 {
		dayStatus = DayClosed
	}

	s := &FinancialSummary{
		VenueID:       venueID,
		Date:          date,
		MoneyIn:       moneyIn,
		MoneyOut:      moneyOut,
		NetRevenue:    net,
		FeePercentage: feePct,
		GambinoFee:    fee,
		StoreKeeps:    storeKeeps,
		ReportCount:   len(dayReports),
		IncludedCount: included,
		PendingCount:  pending,
		VoucherCount:  len(dayVouchers),
		DayStatus:     dayStatus,
		CalculatedAt:  a.now(),
	}

	metrics.AggregationsTotal.Inc()
	logging.L(ctx).Debug("summary aggregated",
		"venue_id", venueID,
		"date", date,
		"net", net.StringFixed(2),
		"included_reports", included)

	return s, nil
}
