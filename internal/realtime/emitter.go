package realtime

import (
	"time"

	"github.com/gambino-gaming/reconciliation/internal/reports"
	"github.com/gambino-gaming/reconciliation/internal/vouchers"
)

// Emitter adapts the hub to the event interfaces the domain services expect.
// Payloads are flattened to plain maps so subscription filters can match on
// venueId without knowing domain types.
type Emitter struct {
	hub *Hub
}

// NewEmitter creates an emitter that broadcasts through the given hub.
func NewEmitter(hub *Hub) *Emitter {
	return &Emitter{hub: hub}
}

var (
	_ reports.EventEmitter  = (*Emitter)(nil)
	_ vouchers.EventEmitter = (*Emitter)(nil)
)

func (e *Emitter) EmitReportIngested(r *reports.DailyReport) {
	e.hub.Broadcast(&Event{
		Type:      EventReportIngested,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"reportId":     r.ID,
			"venueId":      r.VenueID,
			"date":         r.Date,
			"totalRevenue": r.TotalRevenue.StringFixed(2),
			"qualityScore": r.QualityScore,
			"anomalies":    len(r.AnomalyReasons),
		},
	})
}

func (e *Emitter) EmitStatusChanged(reportID, venueID, date string, from, to reports.Status) {
	e.hub.Broadcast(&Event{
		Type:      EventStatusChanged,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"reportId": reportID,
			"venueId":  venueID,
			"date":     date,
			"from":     string(from),
			"to":       string(to),
		},
	})
}

func (e *Emitter) EmitVoucherRecorded(v *vouchers.Event) {
	e.hub.Broadcast(&Event{
		Type:      EventVoucherRecorded,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"voucherId": v.ID,
			"venueId":   v.VenueID,
			"machineId": v.MachineID,
			"date":      v.Date,
			"amount":    v.Amount.StringFixed(2),
		},
	})
}
