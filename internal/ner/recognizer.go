package ner

import (
	"context"
	"fmt"
	"time"

	"github.com/raaihank/phi-sentinel/internal/masking"
)

// RecognizerName is the registry name of the statistical recognizer.
const RecognizerName = "StatisticalRecognizer"

// StatisticalRecognizer adapts an Engine to the recognizer contract so it
// can sit in the same registry as the pattern detectors.
type StatisticalRecognizer struct {
	engine  Engine
	timeout time.Duration
}

// NewStatisticalRecognizer wraps engine. A positive timeout bounds each
// Detect call; zero disables the bound.
func NewStatisticalRecognizer(engine Engine, timeout time.Duration) *StatisticalRecognizer {
	return &StatisticalRecognizer{engine: engine, timeout: timeout}
}

// Name returns the registry name.
func (r *StatisticalRecognizer) Name() string { return RecognizerName }

// Detect runs the engine and converts its spans to detections. An engine
// failure propagates as an error, which fails the whole analysis rather
// than silently returning partially masked text.
func (r *StatisticalRecognizer) Detect(ctx context.Context, text string) ([]masking.Detection, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	spans, err := r.engine.Recognize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ner engine: %w", err)
	}

	detections := make([]masking.Detection, 0, len(spans))
	for _, s := range spans {
		detections = append(detections, masking.Detection{
			EntityType:     s.EntityType,
			Start:          s.Start,
			End:            s.End,
			Score:          s.Score,
			RecognizerName: RecognizerName,
		})
	}
	return detections, nil
}

// Close releases the underlying engine.
func (r *StatisticalRecognizer) Close() error { return r.engine.Close() }
