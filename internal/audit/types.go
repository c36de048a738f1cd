package audit

import (
	"time"
)

// Request statuses recorded in the audit trail.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Event is one de-identification request's audit record. Only aggregates
// cross this boundary: no input text, no masked text, no entity values.
type Event struct {
	ID           int64     `db:"id" json:"id"`
	RequestID    string    `db:"request_id" json:"request_id"`
	Source       string    `db:"source" json:"source"` // api or etl
	Status       string    `db:"status" json:"status"`
	EntityTotal  int       `db:"entity_total" json:"entity_total"`
	EntityCounts Counts    `db:"entity_counts" json:"entity_counts"`
	DurationMs   float64   `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Stats represents aggregate audit statistics
type Stats struct {
	TotalRequests  int64   `db:"total_requests" json:"total_requests"`
	FailedRequests int64   `db:"failed_requests" json:"failed_requests"`
	TotalEntities  int64   `db:"total_entities" json:"total_entities"`
	AvgDurationMs  float64 `db:"avg_duration_ms" json:"avg_duration_ms"`
}

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}
