package server

import (
	"testing"
	"time"
)

func TestClientLimiter(t *testing.T) {
	t.Run("BurstThenLimited", func(t *testing.T) {
		limiter := NewClientLimiter(1, 2)

		if !limiter.Allow("10.0.0.1") {
			t.Error("First request should be allowed")
		}
		if !limiter.Allow("10.0.0.1") {
			t.Error("Second request should be within burst")
		}
		if limiter.Allow("10.0.0.1") {
			t.Error("Third request should be limited")
		}
	})

	t.Run("ClientsAreIndependent", func(t *testing.T) {
		limiter := NewClientLimiter(1, 1)

		if !limiter.Allow("10.0.0.1") {
			t.Error("First client should be allowed")
		}
		if limiter.Allow("10.0.0.1") {
			t.Error("First client should be exhausted")
		}
		if !limiter.Allow("10.0.0.2") {
			t.Error("Second client has its own bucket")
		}
	})

	t.Run("CleanupRemovesIdleClients", func(t *testing.T) {
		limiter := NewClientLimiter(1, 1)
		limiter.Allow("10.0.0.1")

		limiter.mu.Lock()
		limiter.clients["10.0.0.1"].lastSeen = time.Now().Add(-2 * time.Hour)
		limiter.mu.Unlock()

		limiter.CleanupOldEntries()

		limiter.mu.Lock()
		_, exists := limiter.clients["10.0.0.1"]
		limiter.mu.Unlock()
		if exists {
			t.Error("Idle client should have been removed")
		}
	})

	t.Run("CleanupKeepsRecentClients", func(t *testing.T) {
		limiter := NewClientLimiter(1, 1)
		limiter.Allow("10.0.0.1")
		limiter.CleanupOldEntries()

		limiter.mu.Lock()
		_, exists := limiter.clients["10.0.0.1"]
		limiter.mu.Unlock()
		if !exists {
			t.Error("Recent client should survive cleanup")
		}
	})
}
