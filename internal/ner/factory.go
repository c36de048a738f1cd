package ner

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// EngineType selects the NER implementation.
type EngineType string

const (
	// HeuristicNER uses deterministic gazetteers and date grammars. No
	// model files, no external runtime.
	HeuristicNER EngineType = "heuristic"

	// ModelNER uses an ONNX token-classification model. Requires the
	// 'onnx' build tag and a model on disk.
	ModelNER EngineType = "model"
)

// EngineConfig contains configuration for NER engine selection.
type EngineConfig struct {
	Type           EngineType    `yaml:"type" mapstructure:"type"`
	ModelPath      string        `yaml:"model_path" mapstructure:"model_path"`
	VocabPath      string        `yaml:"vocab_path" mapstructure:"vocab_path"`
	LabelsPath     string        `yaml:"labels_path" mapstructure:"labels_path"`
	MaxLength      int           `yaml:"max_length" mapstructure:"max_length"`
	ScoreThreshold float64       `yaml:"score_threshold" mapstructure:"score_threshold"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DefaultEngineConfig returns the configuration used when none is supplied.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Type:           HeuristicNER,
		MaxLength:      512,
		ScoreThreshold: 0.4,
		Timeout:        5 * time.Second,
	}
}

// Factory creates NER engines based on configuration.
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates a new NER engine factory.
func NewFactory(logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{logger: logger}
}

// CreateEngine builds the configured engine. When the model backend is
// requested but unavailable (no build tag, no model, init failure) the
// factory degrades to the heuristic engine with a warning rather than
// failing startup: the pattern recognizers still run either way.
func (f *Factory) CreateEngine(config EngineConfig) (Engine, error) {
	if err := ValidateEngineConfig(config); err != nil {
		return nil, err
	}
	switch config.Type {
	case HeuristicNER:
		f.logger.Info("Created heuristic NER engine")
		return NewHeuristicEngine(f.logger), nil
	case ModelNER:
		engine := newModelEngine(f.logger, config)
		if engine == nil {
			f.logger.Warn("Model NER backend unavailable, falling back to heuristic engine",
				zap.String("model_path", config.ModelPath))
			return NewHeuristicEngine(f.logger), nil
		}
		f.logger.Info("Created model NER engine", zap.String("model_path", config.ModelPath))
		return engine, nil
	default:
		return nil, fmt.Errorf("unknown NER engine type: %s", config.Type)
	}
}

// ValidateEngineConfig validates the NER engine configuration.
func ValidateEngineConfig(config EngineConfig) error {
	switch config.Type {
	case HeuristicNER:
	case ModelNER:
		if config.ModelPath == "" {
			return fmt.Errorf("model_path is required for the model engine")
		}
		if config.MaxLength <= 0 {
			return fmt.Errorf("max_length must be positive")
		}
	default:
		return fmt.Errorf("invalid NER engine type: %s (must be one of: heuristic, model)", config.Type)
	}
	return nil
}
