package masking

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Options configures service construction. Everything here is consumed at
// build time; the resulting Service owns immutable copies.
type Options struct {
	// Statistical is the model-based recognizer for open-ended entity
	// classes (person, organization, location, date/time). Optional: a
	// nil value builds a pattern-only service.
	Statistical Recognizer

	// Additional recognizers are appended after the defaults, e.g. ones
	// loaded from a recognizer YAML file.
	Additional []Recognizer

	// Operators overrides or extends the default placeholder table.
	Operators OperatorTable

	Logger *zap.Logger
}

// Service is the de-identification orchestrator. It owns the analyzer, the
// anonymizer, and the operator table, all of which are read-only after
// construction, so concurrent Deidentify calls on one instance are safe.
type Service struct {
	analyzer   *AnalyzerEngine
	anonymizer *AnonymizerEngine
	operators  OperatorTable
	logger     *zap.Logger
}

// NewService builds the curated default registry and wires the engines.
//
// Construction order: the statistical recognizer and the built-in pattern
// detectors load first, then the built-ins superseded by high-confidence
// overrides (SSN, ITIN, passport) are removed by name, then the HIPAA
// overrides load, then any caller-supplied recognizers. Removal is
// best-effort: a missing name is logged and skipped, never fatal.
func NewService(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := NewRegistry(logger)
	if opts.Statistical != nil {
		registry.Add(opts.Statistical)
	}
	for _, rec := range BuiltinRecognizers() {
		registry.Add(rec)
	}
	for _, name := range supersededBuiltins {
		if !registry.Remove(name) {
			logger.Warn("Could not remove default recognizer", zap.String("recognizer", name))
		}
	}
	for _, rec := range HIPAARecognizers() {
		registry.Add(rec)
	}
	for _, rec := range opts.Additional {
		registry.Add(rec)
	}

	operators := DefaultOperators()
	for entityType, op := range opts.Operators {
		operators[entityType] = op
	}
	if err := operators.Validate(); err != nil {
		return nil, fmt.Errorf("invalid operator table: %w", err)
	}

	logger.Info("Masking service initialized",
		zap.Int("recognizers", registry.Len()),
		zap.Int("operators", len(operators)),
	)

	return &Service{
		analyzer:   NewAnalyzerEngine(registry, logger),
		anonymizer: NewAnonymizerEngine(),
		operators:  operators,
		logger:     logger,
	}, nil
}

// Registry exposes the recognizer registry for introspection (names only;
// callers must not mutate it after construction).
func (s *Service) Registry() *Registry { return s.analyzer.Registry() }

// Deidentify analyzes text and returns the masked text plus the list of
// findings. It never returns an error: any failure inside the pipeline
// yields the fixed sentinel result, and the diagnostic log records only
// the error's category, never the input or the detected spans.
func (s *Service) Deidentify(ctx context.Context, text string) *Result {
	if text == "" {
		return &Result{MaskedText: "", EntitiesFound: []Entity{}}
	}

	result, err := s.deidentify(ctx, text)
	if err != nil {
		s.logger.Error("De-identification process failed",
			zap.String("error_type", fmt.Sprintf("%T", err)),
		)
		return &Result{MaskedText: FailedText, EntitiesFound: []Entity{}, Failed: true}
	}
	return result
}

func (s *Service) deidentify(ctx context.Context, text string) (result *Result, err error) {
	// A recognizer or operator panic must degrade to the sentinel result,
	// same as an error: a crash must never leak PHI upward.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("pipeline panic: %v", panicCategory(r))
		}
	}()

	detections, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	entities := make([]Entity, 0, len(detections))
	for _, d := range detections {
		entities = append(entities, Entity{
			Text:       text[d.Start:d.End],
			EntityType: d.EntityType,
			Start:      d.Start,
			End:        d.End,
			Score:      d.Score,
		})
	}

	masked, err := s.anonymizer.Anonymize(text, detections, s.operators)
	if err != nil {
		return nil, err
	}

	if len(entities) > 0 {
		s.logger.Info("De-identification complete", zap.Int("entities_found", len(entities)))
	} else {
		s.logger.Debug("De-identification complete: no entities found")
	}

	return &Result{MaskedText: masked, EntitiesFound: entities}, nil
}

// DeidentifyValue normalizes non-string input before processing: nil maps
// to the empty string, anything else to its textual representation. The
// conversion is deliberate, not a silent drop.
func (s *Service) DeidentifyValue(ctx context.Context, value any) *Result {
	switch v := value.(type) {
	case nil:
		return s.Deidentify(ctx, "")
	case string:
		return s.Deidentify(ctx, v)
	default:
		s.logger.Warn("De-identification called with non-string input",
			zap.String("input_type", fmt.Sprintf("%T", value)),
		)
		return s.Deidentify(ctx, fmt.Sprint(v))
	}
}

// panicCategory reduces a recovered value to its type so panic diagnostics
// cannot carry text fragments.
func panicCategory(r any) string {
	return fmt.Sprintf("%T", r)
}
