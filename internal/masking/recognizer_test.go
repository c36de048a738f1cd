package masking

import (
	"context"
	"testing"
)

func detectAll(t *testing.T, r Recognizer, text string) []Detection {
	t.Helper()
	detections, err := r.Detect(context.Background(), text)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	return detections
}

func TestPatternRecognizer(t *testing.T) {
	t.Run("WholeMatchSpan", func(t *testing.T) {
		r := NewPatternRecognizer("Test", "TEST",
			MustPattern("digits", `\d{3}`, 0.5),
		)
		detections := detectAll(t, r, "abc 123 def 456")
		if len(detections) != 2 {
			t.Fatalf("Expected 2 detections, got %d", len(detections))
		}
		if detections[0].Start != 4 || detections[0].End != 7 {
			t.Errorf("Unexpected span: [%d,%d)", detections[0].Start, detections[0].End)
		}
		if detections[0].RecognizerName != "Test" {
			t.Errorf("Unexpected recognizer name: %s", detections[0].RecognizerName)
		}
	})

	t.Run("CaptureGroupSpan", func(t *testing.T) {
		r := NewPatternRecognizer("Test", "TEST",
			Pattern{Name: "grouped", Regex: mustCompile(`x(\d+)y`), Score: 0.5, Group: 1},
		)
		detections := detectAll(t, r, "x123y")
		if len(detections) != 1 {
			t.Fatalf("Expected 1 detection, got %d", len(detections))
		}
		if detections[0].Start != 1 || detections[0].End != 4 {
			t.Errorf("Group span not used: [%d,%d)", detections[0].Start, detections[0].End)
		}
	})
}

func TestMRNRecognizer(t *testing.T) {
	r := findRecognizer(t, RecognizerCustomMRN)

	cases := []struct {
		name    string
		text    string
		matches int
	}{
		{"ExactFiveDigits", "His file is MRN-98765.", 1},
		{"TooFewDigits", "His file is MRN-123.", 0},
		{"TooManyDigits", "His file is MRN-123456.", 0},
		{"NoPrefix", "His file is 98765.", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			detections := detectAll(t, r, tc.text)
			if len(detections) != tc.matches {
				t.Errorf("Expected %d matches, got %d", tc.matches, len(detections))
			}
		})
	}
}

func TestZipCodeRecognizer(t *testing.T) {
	r := findRecognizer(t, RecognizerCustomZip)

	t.Run("PlainZip", func(t *testing.T) {
		detections := detectAll(t, r, "Anytown, CA 90210.")
		if len(detections) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(detections))
		}
		if detections[0].Start != 12 || detections[0].End != 17 {
			t.Errorf("Span should cover only the digits: [%d,%d)", detections[0].Start, detections[0].End)
		}
	})

	t.Run("ZipPlusFour", func(t *testing.T) {
		detections := detectAll(t, r, "ZIP 12345-6789 ok")
		if len(detections) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(detections))
		}
		if got := detections[0].End - detections[0].Start; got != 10 {
			t.Errorf("Expected 10-char span, got %d", got)
		}
	})

	t.Run("TextStart", func(t *testing.T) {
		detections := detectAll(t, r, "90210 is the zip")
		if len(detections) != 1 {
			t.Fatalf("Expected 1 match at start of text, got %d", len(detections))
		}
		if detections[0].Start != 0 {
			t.Errorf("Expected span at offset 0, got %d", detections[0].Start)
		}
	})

	t.Run("HyphenatedIdentifierTail", func(t *testing.T) {
		// The five digits in MRN-12345 are not a ZIP.
		detections := detectAll(t, r, "file MRN-12345 end")
		if len(detections) != 0 {
			t.Errorf("Expected no match for hyphen-prefixed digits, got %d", len(detections))
		}
	})

	t.Run("LongerNumberTail", func(t *testing.T) {
		detections := detectAll(t, r, "serial 123456789 end")
		if len(detections) != 0 {
			t.Errorf("Expected no match inside a longer number, got %d", len(detections))
		}
	})
}

func TestVINRecognizer(t *testing.T) {
	r := findRecognizer(t, RecognizerCustomVIN)

	t.Run("ValidVIN", func(t *testing.T) {
		detections := detectAll(t, r, "VIN 1HGBH41JXMN109186 reported")
		if len(detections) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(detections))
		}
	})

	t.Run("RejectsIAndO", func(t *testing.T) {
		// I, O, Q are not valid VIN characters.
		detections := detectAll(t, r, "VIN 1HGBH41JXMN1091I6 reported")
		if len(detections) != 0 {
			t.Errorf("Expected no match for VIN containing I, got %d", len(detections))
		}
	})

	t.Run("WrongLength", func(t *testing.T) {
		detections := detectAll(t, r, "VIN 1HGBH41JXMN10918 reported")
		if len(detections) != 0 {
			t.Errorf("Expected no match for 16-char string, got %d", len(detections))
		}
	})
}

func TestLicensePlateRecognizer(t *testing.T) {
	r := findRecognizer(t, RecognizerCustomPlate)

	cases := []struct {
		name    string
		text    string
		matches int
	}{
		{"DashFormat", "Her plate is ABC-123.", 1},
		{"VanityOne", "plate 2FAST4U spotted", 1},
		{"VanityTwo", "plate 8ABC123 spotted", 1},
		{"Lowercase", "her plate is abc-123.", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			detections := detectAll(t, r, tc.text)
			if len(detections) != tc.matches {
				t.Errorf("Expected %d matches, got %d", tc.matches, len(detections))
			}
		})
	}
}

func TestHealthPlanRecognizer(t *testing.T) {
	r := findRecognizer(t, RecognizerCustomHealthPlan)

	cases := []struct {
		name    string
		text    string
		matches int
	}{
		{"BCBS", "member BCBS123456789 active", 1},
		{"HPN", "member HPN-1234567 active", 1},
		{"UHC", "member UHC123456 active", 1},
		{"BCBSTooShort", "member BCBS12345678 active", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			detections := detectAll(t, r, tc.text)
			if len(detections) != tc.matches {
				t.Errorf("Expected %d matches, got %d", tc.matches, len(detections))
			}
		})
	}
}

func TestDeviceIDRecognizer(t *testing.T) {
	r := findRecognizer(t, RecognizerCustomDevice)

	t.Run("SerialNumber", func(t *testing.T) {
		detections := detectAll(t, r, "pump SN:ABC-12345 installed")
		if len(detections) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(detections))
		}
	})

	t.Run("DeviceID", func(t *testing.T) {
		detections := detectAll(t, r, "monitor DeviceID:XYZ-99 installed")
		if len(detections) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(detections))
		}
	})

	t.Run("TooShort", func(t *testing.T) {
		detections := detectAll(t, r, "pump SN:ABC installed")
		if len(detections) != 0 {
			t.Errorf("Expected no match for short serial, got %d", len(detections))
		}
	})
}

func TestITINRecognizer(t *testing.T) {
	r := findRecognizer(t, RecognizerCustomITIN)

	cases := []struct {
		name    string
		text    string
		matches int
	}{
		{"ValidGroup78", "ITIN 912-78-1234 filed", 1},
		{"ValidGroup90", "ITIN 900-90-1234 filed", 1},
		{"InvalidGroup93", "ITIN 912-93-1234 filed", 0},
		{"NotStartingWithNine", "ITIN 812-78-1234 filed", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			detections := detectAll(t, r, tc.text)
			if len(detections) != tc.matches {
				t.Errorf("Expected %d matches, got %d", tc.matches, len(detections))
			}
		})
	}
}

func TestPhoneRecognizer(t *testing.T) {
	var r Recognizer
	for _, rec := range BuiltinRecognizers() {
		if rec.Name() == RecognizerPhone {
			r = rec
		}
	}
	if r == nil {
		t.Fatal("Phone recognizer not found")
	}

	cases := []struct {
		name    string
		text    string
		matches int
	}{
		{"Dashed", "Call 555-123-4567 now.", 1},
		{"Dotted", "Call 555.123.4567 now.", 1},
		{"Parenthesized", "Call (555) 123-4567 now.", 1},
		{"SSNShape", "SSN 123-45-6789 is not a phone.", 0},
		{"BareDigits", "Number 5551234567 needs separators.", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			detections := detectAll(t, r, tc.text)
			if len(detections) != tc.matches {
				t.Errorf("Expected %d matches, got %d", tc.matches, len(detections))
			}
		})
	}
}

// findRecognizer returns the named HIPAA recognizer.
func findRecognizer(t *testing.T, name string) Recognizer {
	t.Helper()
	for _, rec := range HIPAARecognizers() {
		if rec.Name() == name {
			return rec
		}
	}
	t.Fatalf("Recognizer %q not found", name)
	return nil
}
