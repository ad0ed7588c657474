package vouchers

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gambino-gaming/reconciliation/internal/idgen"
	"github.com/gambino-gaming/reconciliation/internal/logging"
	"github.com/gambino-gaming/reconciliation/internal/metrics"
)

// EventEmitter pushes voucher events to live dashboard clients.
type EventEmitter interface {
	EmitVoucherRecorded(e *Event)
}

// RecordInput is one raw voucher redemption submission.
type RecordInput struct {
	VoucherID string
	VenueID   string
	MachineID string
	Amount    decimal.Decimal
	IssuedAt  time.Time
}

// Service validates and records voucher redemption events.
type Service struct {
	store   Store
	emitter EventEmitter
	now     func() time.Time
}

// NewService creates a voucher recording service.
func NewService(store Store, emitter EventEmitter) *Service {
	return &Service{store: store, emitter: emitter, now: time.Now}
}

// Record stores one voucher redemption. Redemption feeds arriving over flaky
// transports retry aggressively, so recording the same voucher ID twice is a
// successful no-op that returns the original event.
func (s *Service) Record(ctx context.Context, in RecordInput) (*Event, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	id := in.VoucherID
	if id == "" {
		id = idgen.WithPrefix("vch_")
	}

	event := &Event{
		ID:        id,
		VenueID:   in.VenueID,
		MachineID: in.MachineID,
		Amount:    in.Amount,
		IssuedAt:  in.IssuedAt,
		Date:      in.IssuedAt.UTC().Format("2006-01-02"),
		CreatedAt: s.now(),
	}

	if err := s.store.Create(ctx, event); err != nil {
		if err == ErrVoucherExists {
			return s.store.Get(ctx, id)
		}
		return nil, err
	}

	metrics.VouchersRecordedTotal.Inc()
	if s.emitter != nil {
		s.emitter.EmitVoucherRecorded(event)
	}

	logging.L(ctx).Info("voucher recorded",
		"voucher_id", event.ID,
		"venue_id", event.VenueID,
		"amount", event.Amount.StringFixed(2),
		"date", event.Date)

	return event, nil
}

// ListByVenueDate returns a venue's redemptions for one business date.
func (s *Service) ListByVenueDate(ctx context.Context, venueID, date string) ([]*Event, error) {
	list, err := s.store.ListByVenueDate(ctx, venueID, date)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*Event{}
	}
	return list, nil
}

func validateInput(in RecordInput) error {
	if in.VenueID == "" {
		return fmt.Errorf("%w: venueId is required", ErrMalformedEvent)
	}
	if in.MachineID == "" {
		return fmt.Errorf("%w: machineId is required", ErrMalformedEvent)
	}
	if in.IssuedAt.IsZero() {
		return fmt.Errorf("%w: issuedAt is required", ErrMalformedEvent)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, in.Amount)
	}
	return nil
}
