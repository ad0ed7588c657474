package venues

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gambino-gaming/reconciliation/internal/idgen"
)

var (
	feeFloor = decimal.Zero
	feeCeil  = decimal.NewFromInt(100)
)

// Service provides venue configuration logic.
type Service struct {
	store Store
}

// NewService creates a new venue service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create registers a new venue. The fee percentage is clamped to [0, 100]
// here, at the point the configuration is written, so downstream settlement
// can treat any stored value as valid.
func (s *Service) Create(ctx context.Context, name string, feePct decimal.Decimal, machineIDs []string) (*Venue, error) {
	now := time.Now()
	v := &Venue{
		ID:            idgen.WithPrefix("ven_"),
		Name:          name,
		FeePercentage: clampFee(feePct),
		MachineIDs:    machineIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create venue: %w", err)
	}
	return v, nil
}

// Get returns a venue by ID.
func (s *Service) Get(ctx context.Context, id string) (*Venue, error) {
	return s.store.Get(ctx, id)
}

// List returns registered venues.
func (s *Service) List(ctx context.Context, limit int) ([]*Venue, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.List(ctx, limit)
}

// SetFeePercentage updates a venue's fee, clamped to [0, 100].
func (s *Service) SetFeePercentage(ctx context.Context, id string, feePct decimal.Decimal) (*Venue, error) {
	v, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	v.FeePercentage = clampFee(feePct)
	v.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update venue fee: %w", err)
	}
	return v, nil
}

// SetMachines replaces a venue's expected machine list.
func (s *Service) SetMachines(ctx context.Context, id string, machineIDs []string) (*Venue, error) {
	v, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	v.MachineIDs = machineIDs
	v.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update venue machines: %w", err)
	}
	return v, nil
}

// FeePercentage resolves the configured fee for a venue.
func (s *Service) FeePercentage(ctx context.Context, id string) (decimal.Decimal, error) {
	v, err := s.store.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return v.FeePercentage, nil
}

// KnownMachines returns the machines a venue is expected to report on.
// An unregistered venue has no expectations, not an error: reports can
// arrive before the venue's configuration does.
func (s *Service) KnownMachines(ctx context.Context, id string) ([]string, error) {
	v, err := s.store.Get(ctx, id)
	if err == ErrVenueNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.MachineIDs, nil
}

// clampFee bounds a fee percentage to [0, 100]. A stale or fat-fingered
// config write must never produce a fee the settlement calculator rejects.
func clampFee(pct decimal.Decimal) decimal.Decimal {
	if pct.LessThan(feeFloor) {
		return feeFloor
	}
	if pct.GreaterThan(feeCeil) {
		return feeCeil
	}
	return pct
}
