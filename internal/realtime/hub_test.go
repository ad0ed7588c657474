package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventReportIngested, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventReportIngested, EventStatusChanged},
	}}

	reportEvent := &Event{Type: EventReportIngested}
	statusEvent := &Event{Type: EventStatusChanged}
	voucherEvent := &Event{Type: EventVoucherRecorded}

	if !h.shouldSend(client, reportEvent) {
		t.Error("Should receive report_ingested events")
	}
	if !h.shouldSend(client, statusEvent) {
		t.Error("Should receive status_changed events")
	}
	if h.shouldSend(client, voucherEvent) {
		t.Error("Should NOT receive voucher_recorded events")
	}
}

func TestShouldSend_VenueFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		VenueIDs: []string{"ven_1"},
	}}

	matching := &Event{
		Type: EventReportIngested,
		Data: map[string]interface{}{"venueId": "ven_1"},
	}
	notMatching := &Event{
		Type: EventReportIngested,
		Data: map[string]interface{}{"venueId": "ven_2"},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on venueId")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match other venues")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventReportIngested}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonMapData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		VenueIDs: []string{"ven_1"},
	}}

	// Event with non-map data should not crash
	event := &Event{
		Type: EventStatusChanged,
		Data: "string data not a map",
	}

	// Venue filter skips non-map data (can't extract venueId), so event passes through
	if !h.shouldSend(client, event) {
		t.Error("Non-map data should pass through when venue filter can't extract venueId")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(&Event{Type: EventReportIngested, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(&Event{
		Type:      EventVoucherRecorded,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"venueId": "ven_1", "amount": "5.00"},
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants status changes
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventStatusChanged}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a report event (should be filtered out)
	h.Broadcast(&Event{Type: EventReportIngested, Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive report_ingested event")
	default:
		// Good - filtered out
	}

	// Send a status event (should be received)
	h.Broadcast(&Event{Type: EventStatusChanged, Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive status_changed event")
	}
}
