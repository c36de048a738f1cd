package websocket

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestShouldBroadcastEvent(t *testing.T) {
	t.Run("PerTypeToggles", func(t *testing.T) {
		hub := NewHub(&HubConfig{
			BroadcastDetections:  true,
			BroadcastSystem:      false,
			BroadcastConnections: true,
		}, zap.NewNop())

		if !hub.shouldBroadcastEvent(EventTypeDetection) {
			t.Error("Detection events should be enabled")
		}
		if hub.shouldBroadcastEvent(EventTypeSystemStatus) {
			t.Error("System events should be disabled")
		}
		if !hub.shouldBroadcastEvent(EventTypeConnection) {
			t.Error("Connection events should be enabled")
		}
	})

	t.Run("NilConfigBroadcastsNothing", func(t *testing.T) {
		hub := NewHub(nil, zap.NewNop())
		if hub.shouldBroadcastEvent(EventTypeDetection) {
			t.Error("Nil config must disable broadcasting")
		}
	})

	t.Run("UnknownTypeDropped", func(t *testing.T) {
		hub := NewHub(&HubConfig{BroadcastDetections: true}, zap.NewNop())
		if hub.shouldBroadcastEvent("made_up_event") {
			t.Error("Unknown event types must not broadcast")
		}
	})
}

func TestBroadcastEventNonBlocking(t *testing.T) {
	// Nothing drains the broadcast channel here; sends past the buffer must
	// drop rather than block the caller.
	hub := NewHub(&HubConfig{BroadcastDetections: true}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.BroadcastEvent(Event{Type: EventTypeDetection, Timestamp: time.Now()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("BroadcastEvent blocked on a full channel")
	}
}

func TestShouldSendToClient(t *testing.T) {
	hub := NewHub(&HubConfig{}, zap.NewNop())

	t.Run("NoSubscriptionReceivesAll", func(t *testing.T) {
		client := &Client{}
		if !hub.shouldSendToClient(client, Event{Type: EventTypeDetection}) {
			t.Error("Unsubscribed client should receive every event")
		}
	})

	t.Run("SubscriptionFilters", func(t *testing.T) {
		client := &Client{Subscription: &SubscriptionRequest{
			Events: []EventType{EventTypeSystemStatus},
		}}
		if hub.shouldSendToClient(client, Event{Type: EventTypeDetection}) {
			t.Error("Client subscribed to system events should not receive detections")
		}
		if !hub.shouldSendToClient(client, Event{Type: EventTypeSystemStatus}) {
			t.Error("Client should receive subscribed event type")
		}
	})
}

func TestDetectionEventCarriesNoPHI(t *testing.T) {
	// The detection event is the only payload derived from analysis output;
	// it must serialize to counts and timing only.
	event := DetectionEvent{
		RequestID:     "req-1",
		EntityCounts:  map[string]int{"US_SSN": 1, "PERSON": 2},
		TotalEntities: 3,
		Failed:        false,
		ProcessingMS:  1.25,
	}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	payload := string(data)
	for _, field := range []string{"text", "masked", "entities_found"} {
		if strings.Contains(payload, `"`+field+`"`) {
			t.Errorf("Detection event exposes field %q: %s", field, payload)
		}
	}
}

func TestHubStats(t *testing.T) {
	hub := NewHub(&HubConfig{}, zap.NewNop())
	stats := hub.GetStats()
	if stats.ActiveConnections != 0 || stats.TotalConnections != 0 {
		t.Errorf("Fresh hub should have zero stats: %+v", stats)
	}
}
