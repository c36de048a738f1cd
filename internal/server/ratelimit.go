package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClientLimiter tracks a token bucket per client IP for DoS protection.
type ClientLimiter struct {
	clients map[string]*clientEntry
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter creates a limiter allowing rps requests per second
// with the given burst per client.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		clients: make(map[string]*clientEntry),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

// Allow checks if a request from the given client IP is allowed
func (cl *ClientLimiter) Allow(clientIP string) bool {
	cl.mu.Lock()
	entry, exists := cl.clients[clientIP]
	if !exists {
		entry = &clientEntry{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[clientIP] = entry
	}
	entry.lastSeen = time.Now()
	cl.mu.Unlock()

	return entry.limiter.Allow()
}

// CleanupOldEntries removes idle clients to prevent unbounded growth.
func (cl *ClientLimiter) CleanupOldEntries() {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour)
	for ip, entry := range cl.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(cl.clients, ip)
		}
	}
}

// StartCleanupRoutine starts a background routine to clean up idle clients
func (cl *ClientLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			cl.CleanupOldEntries()
		}
	}()
}
