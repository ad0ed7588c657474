// Package vouchers records player voucher redemption events.
//
// Vouchers are cash leaving a venue. Unlike reports they carry no
// admissibility status: every recorded redemption counts toward the venue's
// daily money-out, so the only gate is validation at ingestion time.
package vouchers

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrVoucherNotFound = errors.New("voucher event not found")
	ErrVoucherExists   = errors.New("voucher event already recorded")
	ErrInvalidAmount   = errors.New("voucher amount must be positive")
	ErrMalformedEvent  = errors.New("malformed voucher event")
)

// Event is one voucher redemption at a venue machine.
type Event struct {
	ID        string          `json:"voucherId"`
	VenueID   string          `json:"venueId"`
	MachineID string          `json:"machineId"`
	Amount    decimal.Decimal `json:"amount"`
	IssuedAt  time.Time       `json:"issuedAt"`
	Date      string          `json:"date"` // YYYY-MM-DD, derived from IssuedAt in UTC
	CreatedAt time.Time       `json:"createdAt"`
}

// Store persists voucher redemption events. Events are immutable once
// recorded.
type Store interface {
	Create(ctx context.Context, e *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	ListByVenueDate(ctx context.Context, venueID, date string) ([]*Event, error)
	// SumByVenueDate returns the total redeemed amount for a venue/day.
	SumByVenueDate(ctx context.Context, venueID, date string) (decimal.Decimal, error)
}
