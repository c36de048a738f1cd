package masking

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RecognizerFile is the top-level YAML structure for caller-supplied
// recognizers.
type RecognizerFile struct {
	Recognizers []RecognizerConfig `yaml:"recognizers"`
}

// RecognizerConfig declares one pattern recognizer.
type RecognizerConfig struct {
	Name            string          `yaml:"name"`
	SupportedEntity string          `yaml:"supported_entity"`
	Enabled         *bool           `yaml:"enabled,omitempty"`
	Patterns        []PatternConfig `yaml:"patterns"`
}

// PatternConfig is a single regex pattern within a recognizer. Group
// optionally selects the capture group that bounds the detection span.
type PatternConfig struct {
	Name  string  `yaml:"name"`
	Regex string  `yaml:"regex"`
	Score float64 `yaml:"score"`
	Group int     `yaml:"group,omitempty"`
}

func (r *RecognizerConfig) enabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ParseRecognizerFile parses recognizer YAML bytes.
func ParseRecognizerFile(data []byte) (*RecognizerFile, error) {
	var rf RecognizerFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	return &rf, nil
}

// LoadRecognizerFile reads, parses, and compiles a recognizer YAML file.
// A missing file is not an error: callers treat an absent config as no
// additional recognizers.
func LoadRecognizerFile(path string) ([]Recognizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	rf, err := ParseRecognizerFile(data)
	if err != nil {
		return nil, err
	}
	return rf.Compile()
}

// Compile turns the parsed configs into pattern recognizers, skipping
// disabled entries.
func (rf *RecognizerFile) Compile() ([]Recognizer, error) {
	var out []Recognizer
	for _, rc := range rf.Recognizers {
		if !rc.enabled() {
			continue
		}
		if rc.Name == "" || rc.SupportedEntity == "" {
			return nil, fmt.Errorf("recognizer entry missing name or supported_entity")
		}
		patterns := make([]Pattern, 0, len(rc.Patterns))
		for _, pc := range rc.Patterns {
			p, err := NewPattern(pc.Name, pc.Regex, pc.Score)
			if err != nil {
				return nil, fmt.Errorf("recognizer %q: %w", rc.Name, err)
			}
			p.Group = pc.Group
			patterns = append(patterns, p)
		}
		out = append(out, NewPatternRecognizer(rc.Name, rc.SupportedEntity, patterns...))
	}
	return out, nil
}
