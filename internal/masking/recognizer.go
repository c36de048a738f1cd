package masking

import (
	"context"
	"fmt"
	"regexp"
)

// Recognizer is the shared contract for all detectors, pattern-based and
// statistical alike. Implementations must be safe for concurrent reuse
// across texts and must not retain references to the input.
type Recognizer interface {
	// Name identifies the recognizer inside a Registry.
	Name() string
	// Detect returns every detection the recognizer claims in text.
	Detect(ctx context.Context, text string) ([]Detection, error)
}

// Pattern is a single scored regular expression owned by a PatternRecognizer.
// Immutable after construction.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
	Score float64

	// Group selects the capture group whose bounds become the detection
	// span. Zero means the whole match. RE2 has no lookbehind, so guards
	// like ZIP's "not preceded by - or digit" are written as a consumed
	// prefix with the payload in a capture group.
	Group int
}

// NewPattern compiles expr and returns a pattern spanning the whole match.
func NewPattern(name, expr string, score float64) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("compiling pattern %q: %w", name, err)
	}
	return Pattern{Name: name, Regex: re, Score: score}, nil
}

// MustPattern is NewPattern for the built-in definitions, which are
// compile-time constants.
func MustPattern(name, expr string, score float64) Pattern {
	p, err := NewPattern(name, expr, score)
	if err != nil {
		panic(err)
	}
	return p
}

func mustCompile(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}

// PatternRecognizer matches a fixed set of regular expressions and emits a
// detection per match with the pattern's score. It is stateless aside from
// its compiled patterns.
type PatternRecognizer struct {
	name            string
	supportedEntity string
	patterns        []Pattern
}

// NewPatternRecognizer builds a recognizer for the given entity type.
func NewPatternRecognizer(name, supportedEntity string, patterns ...Pattern) *PatternRecognizer {
	return &PatternRecognizer{
		name:            name,
		supportedEntity: supportedEntity,
		patterns:        patterns,
	}
}

// Name returns the recognizer's display name.
func (r *PatternRecognizer) Name() string { return r.name }

// SupportedEntity returns the entity type this recognizer emits.
func (r *PatternRecognizer) SupportedEntity() string { return r.supportedEntity }

// Detect finds every non-overlapping match of each owned pattern. Patterns
// match independently; overlapping claims from sibling patterns are left to
// the analyzer's resolution step.
func (r *PatternRecognizer) Detect(_ context.Context, text string) ([]Detection, error) {
	var detections []Detection
	for _, p := range r.patterns {
		for _, loc := range p.Regex.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if p.Group > 0 {
				gi := 2 * p.Group
				if gi+1 >= len(loc) || loc[gi] < 0 {
					continue
				}
				start, end = loc[gi], loc[gi+1]
			}
			if start >= end {
				continue
			}
			detections = append(detections, Detection{
				EntityType:     r.supportedEntity,
				Start:          start,
				End:            end,
				Score:          p.Score,
				RecognizerName: r.name,
			})
		}
	}
	return detections, nil
}
