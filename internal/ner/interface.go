package ner

import (
	"context"
)

// Span is one entity claim over the input text. Offsets are byte offsets
// into the exact string passed to Recognize.
type Span struct {
	EntityType string
	Start      int
	End        int
	Score      float64
}

// Engine produces entity spans for the open-ended classes (person,
// organization, location, date/time) that fixed patterns cannot cover.
// Implementations must be safe for concurrent use.
type Engine interface {
	Recognize(ctx context.Context, text string) ([]Span, error)
	Close() error
}

// Ensure HeuristicEngine implements the interface
var _ Engine = (*HeuristicEngine)(nil)
