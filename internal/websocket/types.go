package websocket

import (
	"time"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeDetection represents a PHI detection summary event
	EventTypeDetection EventType = "phi_detection"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// DetectionEvent summarizes one de-identification request. It carries
// per-type counts only: never the input, the masked output, or any
// detected value.
type DetectionEvent struct {
	RequestID     string         `json:"request_id"`
	EntityCounts  map[string]int `json:"entity_counts"`
	TotalEntities int            `json:"total_entities"`
	Failed        bool           `json:"failed"`
	ProcessingMS  float64        `json:"processing_ms"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status            string `json:"status"`
	Uptime            string `json:"uptime"`
	TotalRequests     int64  `json:"total_requests"`
	TotalDetections   int64  `json:"total_detections"`
	ActiveRecognizers int    `json:"active_recognizers"`
	ConnectedClients  int    `json:"connected_clients"`
	MemoryUsage       string `json:"memory_usage"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         interface{} // Will be *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
}
