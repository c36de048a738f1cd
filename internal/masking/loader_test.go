package masking

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const recognizerYAML = `
recognizers:
  - name: "Ticket Recognizer"
    supported_entity: "TICKET_ID"
    patterns:
      - name: "Ticket (TKT-####)"
        regex: '\bTKT-\d{4}\b'
        score: 0.9
  - name: "Disabled Recognizer"
    supported_entity: "UNUSED"
    enabled: false
    patterns:
      - name: "never"
        regex: 'never'
        score: 0.1
  - name: "Grouped Recognizer"
    supported_entity: "BADGE_ID"
    patterns:
      - name: "Badge (prefix consumed)"
        regex: 'badge (\d{6})'
        score: 0.8
        group: 1
`

func TestParseRecognizerFile(t *testing.T) {
	rf, err := ParseRecognizerFile([]byte(recognizerYAML))
	if err != nil {
		t.Fatalf("ParseRecognizerFile failed: %v", err)
	}
	if len(rf.Recognizers) != 3 {
		t.Fatalf("Expected 3 recognizer entries, got %d", len(rf.Recognizers))
	}
	if rf.Recognizers[0].Name != "Ticket Recognizer" {
		t.Errorf("Unexpected first recognizer: %s", rf.Recognizers[0].Name)
	}
	if rf.Recognizers[1].enabled() {
		t.Error("Second recognizer should be disabled")
	}
	if rf.Recognizers[2].Patterns[0].Group != 1 {
		t.Errorf("Expected group 1, got %d", rf.Recognizers[2].Patterns[0].Group)
	}
}

func TestCompileRecognizerFile(t *testing.T) {
	rf, err := ParseRecognizerFile([]byte(recognizerYAML))
	if err != nil {
		t.Fatalf("ParseRecognizerFile failed: %v", err)
	}
	recognizers, err := rf.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(recognizers) != 2 {
		t.Fatalf("Expected 2 compiled recognizers (disabled entry skipped), got %d", len(recognizers))
	}

	t.Run("TicketPattern", func(t *testing.T) {
		detections, err := recognizers[0].Detect(context.Background(), "see TKT-1234 for details")
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(detections) != 1 || detections[0].EntityType != "TICKET_ID" {
			t.Errorf("Unexpected detections: %+v", detections)
		}
	})

	t.Run("GroupBoundsSpan", func(t *testing.T) {
		text := "badge 123456 issued"
		detections, err := recognizers[1].Detect(context.Background(), text)
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(detections) != 1 {
			t.Fatalf("Expected 1 detection, got %d", len(detections))
		}
		if text[detections[0].Start:detections[0].End] != "123456" {
			t.Errorf("Span should cover only the digits, got %q", text[detections[0].Start:detections[0].End])
		}
	})
}

func TestCompileErrors(t *testing.T) {
	t.Run("BadRegex", func(t *testing.T) {
		rf := &RecognizerFile{Recognizers: []RecognizerConfig{{
			Name:            "Broken",
			SupportedEntity: "X",
			Patterns:        []PatternConfig{{Name: "bad", Regex: `([`, Score: 0.5}},
		}}}
		if _, err := rf.Compile(); err == nil {
			t.Error("Expected error for invalid regex")
		}
	})

	t.Run("MissingName", func(t *testing.T) {
		rf := &RecognizerFile{Recognizers: []RecognizerConfig{{
			SupportedEntity: "X",
		}}}
		if _, err := rf.Compile(); err == nil {
			t.Error("Expected error for entry without name")
		}
	})

	t.Run("MissingEntity", func(t *testing.T) {
		rf := &RecognizerFile{Recognizers: []RecognizerConfig{{
			Name: "NoEntity",
		}}}
		if _, err := rf.Compile(); err == nil {
			t.Error("Expected error for entry without supported_entity")
		}
	})
}

func TestLoadRecognizerFile(t *testing.T) {
	t.Run("MissingFileIsNotAnError", func(t *testing.T) {
		recognizers, err := LoadRecognizerFile(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("Expected nil error for missing file, got %v", err)
		}
		if recognizers != nil {
			t.Errorf("Expected nil recognizers for missing file, got %d", len(recognizers))
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "recognizers.yaml")
		if err := os.WriteFile(path, []byte(recognizerYAML), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		recognizers, err := LoadRecognizerFile(path)
		if err != nil {
			t.Fatalf("LoadRecognizerFile failed: %v", err)
		}
		if len(recognizers) != 2 {
			t.Errorf("Expected 2 recognizers, got %d", len(recognizers))
		}
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		if err := os.WriteFile(path, []byte("recognizers: ["), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if _, err := LoadRecognizerFile(path); err == nil {
			t.Error("Expected error for malformed YAML")
		}
	})
}
