// Package summary turns reconciled reports and voucher events into daily
// financial summaries with fee splits.
//
// Summaries are always computed on demand from current stores, never cached:
// an operator correcting a report status an hour later must see the corrected
// figures on the next read with no invalidation step.
package summary

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidFeePercentage = errors.New("fee percentage must be between 0 and 100")

// Day lifecycle of a summary. A day with no reports at all is open; once any
// report exists for it the books for that day are considered closed.
const (
	DayOpen   = "open"
	DayClosed = "closed"
)

// FinancialSummary is one venue's money picture for one business date.
//
// MoneyIn counts only reports an operator marked included. MoneyOut counts
// every recorded voucher redemption regardless of report status. The split
// always conserves: GambinoFee + StoreKeeps == NetRevenue to the penny.
type FinancialSummary struct {
	VenueID        string          `json:"venueId"`
	Date           string          `json:"date"`
	MoneyIn        decimal.Decimal `json:"moneyIn"`
	MoneyOut       decimal.Decimal `json:"moneyOut"`
	NetRevenue     decimal.Decimal `json:"netRevenue"`
	FeePercentage  decimal.Decimal `json:"feePercentage"`
	GambinoFee     decimal.Decimal `json:"gambinoFee"`
	StoreKeeps     decimal.Decimal `json:"storeKeeps"`
	ReportCount    int             `json:"reportCount"`
	IncludedCount  int             `json:"includedReportCount"`
	PendingCount   int             `json:"pendingReportCount"`
	VoucherCount   int             `json:"voucherCount"`
	DayStatus      string          `json:"dayStatus"`
	CalculatedAt   time.Time       `json:"calculatedAt"`
}

// Settle splits a net revenue figure between the platform and the venue.
// The fee is rounded half-up to the penny; the venue share is the exact
// remainder so the two always sum back to the net.
func Settle(net, feePct decimal.Decimal) (fee, storeKeeps decimal.Decimal, err error) {
	if feePct.IsNegative() || feePct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, decimal.Zero, ErrInvalidFeePercentage
	}

	fee = net.Mul(feePct).Div(decimal.NewFromInt(100)).Round(2)
	storeKeeps = net.Sub(fee)
	return fee, storeKeeps, nil
}
