package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/phi-sentinel/internal/audit"
	"github.com/raaihank/phi-sentinel/internal/cache"
	"github.com/raaihank/phi-sentinel/internal/metrics"
	"github.com/raaihank/phi-sentinel/internal/websocket"
)

// DeidentifyRequest is the body of POST /v1/deidentify.
type DeidentifyRequest struct {
	Text string `json:"text"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":          "phi-sentinel",
		"version":       "0.1.0",
		"recognizers":   s.service.Registry().Names(),
		"cache_enabled": s.cache != nil,
		"audit_enabled": s.audit != nil,
		"uptime":        time.Since(s.startTime).String(),
	}
	writeJSON(w, http.StatusOK, info)
}

// handleDeidentify runs the de-identification pipeline over the request
// text and returns the masked text with the list of findings. The handler
// never echoes the input on any error path.
func (s *Server) handleDeidentify(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)
	start := time.Now()

	if s.config.Masking.MaxTextLength > 0 {
		// Allow some slack for JSON framing around the text field.
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.config.Masking.MaxTextLength)+4096)
	}

	var req DeidentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Invalid request body", zap.String("error_type", fmt.Sprintf("%T", err)))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if s.config.Masking.MaxTextLength > 0 && len(req.Text) > s.config.Masking.MaxTextLength {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "text too large"})
		return
	}

	// Serve identical inputs from the cache when available.
	if s.cache != nil {
		if cached, ok := s.cache.Get(r.Context(), req.Text); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			writeJSON(w, http.StatusOK, cached.Result)
			return
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	result := s.service.Deidentify(r.Context(), req.Text)
	duration := time.Since(start)

	failed := result.Failed
	status := audit.StatusOK
	if failed {
		status = audit.StatusFailed
	}

	counts := result.TypeCounts()
	metrics.ObserveResult("api", status, duration.Seconds(), counts)

	s.recordAudit(requestID, status, counts, len(result.EntitiesFound), duration)

	if len(result.EntitiesFound) > 0 || failed {
		s.wsHub.BroadcastEvent(websocket.Event{
			Type:      websocket.EventTypeDetection,
			Timestamp: time.Now(),
			RequestID: requestID,
			Data: websocket.DetectionEvent{
				RequestID:     requestID,
				EntityCounts:  counts,
				TotalEntities: len(result.EntitiesFound),
				Failed:        failed,
				ProcessingMS:  float64(duration.Microseconds()) / 1000.0,
			},
		})
	}

	if s.cache != nil && !failed {
		s.cache.Store(r.Context(), req.Text, &cache.CachedResult{Result: *result})
	}

	writeJSON(w, http.StatusOK, result)
}

// recordAudit persists the per-request aggregates without blocking the
// response path. The event carries counts and timing only.
func (s *Server) recordAudit(requestID, status string, counts map[string]int, total int, duration time.Duration) {
	if s.audit == nil {
		return
	}
	event := &audit.Event{
		RequestID:    requestID,
		Source:       "api",
		Status:       status,
		EntityTotal:  total,
		EntityCounts: audit.Counts(counts),
		DurationMs:   float64(duration.Microseconds()) / 1000.0,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.Record(ctx, event); err != nil {
			s.logger.Error("Audit write failed", zap.Error(err))
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
