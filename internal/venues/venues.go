// Package venues manages venue configuration for the reconciliation engine.
//
// A venue is a physical location whose machines push one hardware report per
// day. Its configuration carries the two inputs reconciliation needs: the
// operator fee percentage applied at settlement and the list of machines
// expected in each report (used by the quality scorer's completeness check).
package venues

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrVenueNotFound = errors.New("venue not found")
	ErrVenueExists   = errors.New("venue already exists")
)

// Venue represents a location with revenue-reporting machines.
type Venue struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	FeePercentage decimal.Decimal `json:"feePercentage"`
	MachineIDs    []string        `json:"machineIds"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Store persists venue configuration.
type Store interface {
	Create(ctx context.Context, v *Venue) error
	Get(ctx context.Context, id string) (*Venue, error)
	Update(ctx context.Context, v *Venue) error
	List(ctx context.Context, limit int) ([]*Venue, error)
}
