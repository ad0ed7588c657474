// Package reports implements daily revenue report reconciliation.
//
// Venue hardware pushes one meter report per day. Reports arrive from an
// untrusted transport: they can be duplicated, malformed, or missing, so
// every report carries a quality score and an admissibility status that an
// operator can correct at any time. Only reports explicitly marked included
// count toward a venue's daily revenue.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrReportExists    = errors.New("report already exists")
	ErrMalformedReport = errors.New("malformed report")
	ErrInvalidStatus   = errors.New("invalid reconciliation status")
)

// Status is the admissibility classification of a report. The set is closed:
// unknown values are a deserialization error, never a silent fallback.
type Status string

const (
	StatusPending   Status = "pending"
	StatusIncluded  Status = "included"
	StatusExcluded  Status = "excluded"
	StatusDuplicate Status = "duplicate"
)

// ParseStatus converts a string into a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusIncluded, StatusExcluded, StatusDuplicate:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// UnmarshalJSON enforces the closed status set on the wire.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MachineLine is one machine's contribution within a report.
// Immutable once the report is created.
type MachineLine struct {
	MachineID  string          `json:"machineId"`
	MoneyIn    decimal.Decimal `json:"moneyIn"`
	NetRevenue decimal.Decimal `json:"netRevenue"`
}

// DailyReport is one hardware-generated revenue submission for a venue/day.
//
// TotalRevenue is always recomputed server-side from the machine lines; the
// hardware-claimed total is only an input to the quality scorer, never the
// stored figure.
type DailyReport struct {
	ID             string          `json:"reportId"`
	VenueID        string          `json:"venueId"`
	Date           string          `json:"date"` // YYYY-MM-DD, derived from PrintedAt in UTC
	PrintedAt      time.Time       `json:"printedAt"`
	MachineLines   []MachineLine   `json:"machineLines"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	QualityScore   int             `json:"qualityScore"`
	AnomalyReasons []string        `json:"anomalyReasons"`
	NeedsReview    bool            `json:"needsReview"`
	Status         Status          `json:"reconciliationStatus"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Store persists daily reports. Reports are append-only apart from the
// mutable status field; nothing is ever deleted.
type Store interface {
	Create(ctx context.Context, r *DailyReport) error
	Get(ctx context.Context, id string) (*DailyReport, error)
	ListByVenueDate(ctx context.Context, venueID, date string) ([]*DailyReport, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*DailyReport, error)
	// LatestBefore returns the venue's most recent report printed strictly
	// before the given time, for timing-regularity checks.
	LatestBefore(ctx context.Context, venueID string, before time.Time) (*DailyReport, error)
}

// MachineLister exposes the machines a venue is expected to report on.
type MachineLister interface {
	KnownMachines(ctx context.Context, venueID string) ([]string, error)
}

// EventEmitter pushes reconciliation events to live dashboard clients.
type EventEmitter interface {
	EmitReportIngested(report *DailyReport)
	EmitStatusChanged(reportID, venueID, date string, from, to Status)
}
