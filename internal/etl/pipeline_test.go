package etl

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/raaihank/phi-sentinel/internal/masking"
)

func newTestPipeline(t *testing.T, cfg *Config) *Pipeline {
	t.Helper()
	service, err := masking.NewService(masking.Options{Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if cfg == nil {
		cfg = &Config{
			BatchSize:    2,
			WorkerCount:  2,
			ValidateData: true,
		}
	}
	return NewPipeline(service, nil, cfg, zap.NewNop())
}

func TestDetectFileFormat(t *testing.T) {
	cases := []struct {
		filename string
		expected FileFormat
	}{
		{"data.csv", FormatCSV},
		{"data.parquet", FormatParquet},
		{"data.jsonl", FormatJSON},
		{"data.json", FormatJSON},
		{"data.txt", FormatCSV},
		{"data", FormatCSV},
	}
	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			if got := DetectFileFormat(tc.filename); got != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestProcessCSV(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "notes.csv")
	outputPath := filepath.Join(dir, "notes.masked.csv")

	input := "id,text\n" +
		"1,Patient file MRN-98765 on record.\n" +
		"2,\"SSN 123-45-6789, call 555-123-4567.\"\n" +
		"3,Nothing sensitive here.\n"
	if err := os.WriteFile(inputPath, []byte(input), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	pipeline := newTestPipeline(t, nil)
	result, err := pipeline.ProcessFile(context.Background(), inputPath, outputPath)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if result.TotalRecords != 3 {
		t.Errorf("Expected 3 records, got %d", result.TotalRecords)
	}
	if result.ProcessedOK != 3 || result.ProcessedFailed != 0 {
		t.Errorf("Unexpected ok/failed counts: %d/%d", result.ProcessedOK, result.ProcessedFailed)
	}
	if result.TotalEntities != 3 {
		t.Errorf("Expected 3 entities total, got %d", result.TotalEntities)
	}
	if result.EntityCounts[masking.EntityMRN] != 1 || result.EntityCounts[masking.EntityUSSSN] != 1 {
		t.Errorf("Unexpected entity counts: %v", result.EntityCounts)
	}

	out, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Open output failed: %v", err)
	}
	defer out.Close()

	rows, err := csv.NewReader(out).ReadAll()
	if err != nil {
		t.Fatalf("Reading output failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "masked_text" || rows[0][1] != "entity_count" || rows[0][2] != "failed" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[1][0] != "Patient file <MRN> on record." {
		t.Errorf("Unexpected masked text: %q", rows[1][0])
	}
	if rows[2][0] != "SSN <SSN>, call <PHONE>." {
		t.Errorf("Unexpected masked text: %q", rows[2][0])
	}
	if rows[2][1] != "2" || rows[2][2] != "false" {
		t.Errorf("Unexpected count/failed columns: %v", rows[2])
	}
	if rows[3][0] != "Nothing sensitive here." {
		t.Errorf("Clean text should pass through, got %q", rows[3][0])
	}

	// Raw identifiers must not survive in the output file.
	raw, _ := os.ReadFile(outputPath)
	for _, secret := range []string{"MRN-98765", "123-45-6789", "555-123-4567"} {
		if strings.Contains(string(raw), secret) {
			t.Errorf("Output file leaked %q", secret)
		}
	}
}

func TestProcessCSVWithoutTextColumn(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(inputPath, []byte("id,note\n1,hello\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	pipeline := newTestPipeline(t, nil)
	_, err := pipeline.ProcessFile(context.Background(), inputPath, filepath.Join(dir, "out.csv"))
	if err == nil {
		t.Fatal("Expected error for CSV without a text column")
	}
	if !strings.Contains(err.Error(), "text column") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestProcessJSONLines(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "notes.jsonl")
	outputPath := filepath.Join(dir, "notes.masked.jsonl")

	input := `{"text":"File MRN-12345 reviewed."}` + "\n" +
		`{"text":"Plate ABC-123 involved."}` + "\n"
	if err := os.WriteFile(inputPath, []byte(input), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	pipeline := newTestPipeline(t, nil)
	result, err := pipeline.ProcessFile(context.Background(), inputPath, outputPath)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.TotalRecords != 2 {
		t.Errorf("Expected 2 records, got %d", result.TotalRecords)
	}

	out, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Open output failed: %v", err)
	}
	defer out.Close()

	decoder := json.NewDecoder(out)
	var first, second MaskedRecord
	if err := decoder.Decode(&first); err != nil {
		t.Fatalf("Decoding first record failed: %v", err)
	}
	if err := decoder.Decode(&second); err != nil {
		t.Fatalf("Decoding second record failed: %v", err)
	}
	if first.MaskedText != "File <MRN> reviewed." || first.EntityCount != 1 || first.Failed {
		t.Errorf("Unexpected first record: %+v", first)
	}
	if second.MaskedText != "Plate <LICENSE_PLATE> involved." {
		t.Errorf("Unexpected second record: %+v", second)
	}
}

func TestValidateRecord(t *testing.T) {
	pipeline := newTestPipeline(t, &Config{
		BatchSize:     4,
		WorkerCount:   1,
		ValidateData:  true,
		MaxTextLength: 20,
	})

	cases := []struct {
		name  string
		text  string
		valid bool
	}{
		{"Normal", "short note", true},
		{"Empty", "", false},
		{"Whitespace", "   ", false},
		{"TooLong", strings.Repeat("x", 21), false},
		{"AtLimit", strings.Repeat("x", 20), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := pipeline.validateRecord(&Record{Text: tc.text}); got != tc.valid {
				t.Errorf("Expected valid=%v, got %v", tc.valid, got)
			}
		})
	}

	t.Run("ValidationDisabled", func(t *testing.T) {
		p := newTestPipeline(t, &Config{BatchSize: 1, WorkerCount: 1, ValidateData: false})
		if !p.validateRecord(&Record{Text: ""}) {
			t.Error("Disabled validation should accept everything")
		}
	})
}

func TestProcessCSVSentinelLookalikeText(t *testing.T) {
	// A record whose text happens to equal the failure sentinel is a clean
	// pass, not a pipeline failure, and must be counted as processed OK.
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "lookalike.csv")
	outputPath := filepath.Join(dir, "lookalike.masked.csv")

	input := "text\n" + masking.FailedText + "\n"
	if err := os.WriteFile(inputPath, []byte(input), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	pipeline := newTestPipeline(t, nil)
	result, err := pipeline.ProcessFile(context.Background(), inputPath, outputPath)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.ProcessedOK != 1 || result.ProcessedFailed != 0 {
		t.Errorf("Sentinel-shaped text miscounted: ok=%d failed=%d", result.ProcessedOK, result.ProcessedFailed)
	}

	out, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Open output failed: %v", err)
	}
	defer out.Close()

	rows, err := csv.NewReader(out).ReadAll()
	if err != nil {
		t.Fatalf("Reading output failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header plus 1 row, got %d", len(rows))
	}
	if rows[1][0] != masking.FailedText || rows[1][2] != "false" {
		t.Errorf("Unexpected output row: %v", rows[1])
	}
}

func TestProcessCSVSkipsInvalidRows(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "sparse.csv")
	input := "text\n" +
		"Patient file MRN-98765.\n" +
		"\n" +
		"   \n" +
		"Second valid note.\n"
	if err := os.WriteFile(inputPath, []byte(input), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	pipeline := newTestPipeline(t, nil)
	result, err := pipeline.ProcessFile(context.Background(), inputPath, filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.TotalRecords != 2 {
		t.Errorf("Expected blank rows to be skipped, got %d records", result.TotalRecords)
	}
}

func TestProcessFileCancelled(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "notes.csv")
	if err := os.WriteFile(inputPath, []byte("text\nhello there\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := newTestPipeline(t, nil)
	if _, err := pipeline.ProcessFile(ctx, inputPath, filepath.Join(dir, "out.csv")); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
