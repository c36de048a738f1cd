package masking

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// AnalyzerEngine runs every registered recognizer against a text and
// resolves the raw, possibly overlapping detections into a final
// non-overlapping set ordered by start offset.
type AnalyzerEngine struct {
	registry *Registry
	logger   *zap.Logger
}

// NewAnalyzerEngine creates an analyzer over the given registry.
func NewAnalyzerEngine(registry *Registry, logger *zap.Logger) *AnalyzerEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyzerEngine{registry: registry, logger: logger}
}

// Registry exposes the analyzer's recognizer registry.
func (a *AnalyzerEngine) Registry() *Registry { return a.registry }

// Analyze returns the resolved detection set for text. If any recognizer
// fails, the whole analysis fails: a partially analyzed text must never be
// returned as if it were complete.
func (a *AnalyzerEngine) Analyze(ctx context.Context, text string) ([]Detection, error) {
	var raw []Detection
	for _, rec := range a.registry.List() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		detections, err := rec.Detect(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("recognizer %q failed: %w", rec.Name(), err)
		}
		for _, d := range detections {
			if d.Start < 0 || d.Start >= d.End || d.End > len(text) {
				return nil, fmt.Errorf("recognizer %q produced invalid span [%d,%d) for text of length %d",
					rec.Name(), d.Start, d.End, len(text))
			}
		}
		raw = append(raw, detections...)
	}

	resolved := resolveOverlaps(raw)

	a.logger.Debug("Analysis complete",
		zap.Int("raw_detections", len(raw)),
		zap.Int("accepted_detections", len(resolved)),
	)
	return resolved, nil
}

// resolveOverlaps applies the greedy highest-score-first interval selection:
// sort by descending score, then descending span length, then ascending
// start; accept a detection only if it does not overlap anything already
// accepted. The result is deterministic for a given input and registry.
func resolveOverlaps(raw []Detection) []Detection {
	if len(raw) == 0 {
		return []Detection{}
	}

	candidates := make([]Detection, len(raw))
	copy(candidates, raw)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Len() != candidates[j].Len() {
			return candidates[i].Len() > candidates[j].Len()
		}
		return candidates[i].Start < candidates[j].Start
	})

	accepted := make([]Detection, 0, len(candidates))
	for _, cand := range candidates {
		conflict := false
		for _, acc := range accepted {
			if cand.overlaps(acc) {
				conflict = true
				break
			}
		}
		if !conflict {
			accepted = append(accepted, cand)
		}
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}
