package audit

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Counts maps entity type to its occurrence count, stored as JSONB.
type Counts map[string]int

// Value implements driver.Valuer.
func (c Counts) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *Counts) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = Counts{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into audit.Counts", src)
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS deidentification_events (
	id            BIGSERIAL PRIMARY KEY,
	request_id    TEXT NOT NULL,
	source        TEXT NOT NULL,
	status        TEXT NOT NULL,
	entity_total  INTEGER NOT NULL,
	entity_counts JSONB NOT NULL DEFAULT '{}',
	duration_ms   DOUBLE PRECISION NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_deid_events_created_at ON deidentification_events (created_at);
CREATE INDEX IF NOT EXISTS idx_deid_events_status ON deidentification_events (status);
`

// Store persists audit events in PostgreSQL. The table holds counts and
// timings only; the schema has no column that could carry text.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStore creates a new audit store instance
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Audit store initialized successfully",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)))

	return store, nil
}

// initialize checks the database connection and bootstraps the schema
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}

	return nil
}

// Record inserts one audit event
func (s *Store) Record(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO deidentification_events (request_id, source, status, entity_total, entity_counts, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		event.RequestID,
		event.Source,
		event.Status,
		event.EntityTotal,
		event.EntityCounts,
		event.DurationMs,
	).Scan(&event.ID, &event.CreatedAt)

	if err != nil {
		s.logger.Error("Failed to insert audit event",
			zap.Error(err),
			zap.String("request_id", event.RequestID),
			zap.String("status", event.Status))
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	s.logger.Debug("Audit event recorded",
		zap.Int64("id", event.ID),
		zap.String("request_id", event.RequestID))

	return nil
}

// GetStats returns aggregate audit statistics
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total_requests,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed_requests,
			COALESCE(SUM(entity_total), 0) AS total_entities,
			COALESCE(AVG(duration_ms), 0) AS avg_duration_ms
		FROM deidentification_events`

	stats := &Stats{}
	if err := s.db.GetContext(ctx, stats, query); err != nil {
		return nil, fmt.Errorf("failed to get audit stats: %w", err)
	}

	return stats, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(url string) string {
	// Simple masking - replace password with ***
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
