package etl

import (
	"time"
)

// Record represents a single input row. Batch files carry one text per
// row in a "text" column or field.
type Record struct {
	Text string `csv:"text" parquet:"text" json:"text"`
}

// MaskedRecord is the output row written for each input record.
type MaskedRecord struct {
	MaskedText  string `csv:"masked_text" parquet:"masked_text" json:"masked_text"`
	EntityCount int    `csv:"entity_count" parquet:"entity_count" json:"entity_count"`
	Failed      bool   `csv:"failed" parquet:"failed" json:"failed"`
}

// ProcessingResult represents the result of processing a dataset
type ProcessingResult struct {
	TotalRecords    int64          `json:"total_records"`
	ProcessedOK     int64          `json:"processed_ok"`
	ProcessedFailed int64          `json:"processed_failed"`
	TotalEntities   int64          `json:"total_entities"`
	EntityCounts    map[string]int `json:"entity_counts"`
	Duration        time.Duration  `json:"duration"`
	MaskingTime     time.Duration  `json:"masking_time"`
	WriteTime       time.Duration  `json:"write_time"`
	Errors          []string       `json:"errors,omitempty"`
}

// Config contains ETL pipeline configuration
type Config struct {
	BatchSize      int  `yaml:"batch_size" mapstructure:"batch_size"`           // 256
	WorkerCount    int  `yaml:"worker_count" mapstructure:"worker_count"`       // 4
	ValidateData   bool `yaml:"validate_data" mapstructure:"validate_data"`     // true
	MaxTextLength  int  `yaml:"max_text_length" mapstructure:"max_text_length"` // 0 = unbounded
	ProgressReport int  `yaml:"progress_report" mapstructure:"progress_report"` // 1000
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsValid   int64     `json:"records_valid"`
	RecordsInvalid int64     `json:"records_invalid"`
	CurrentBatch   int64     `json:"current_batch"`
	ProcessingRate float64   `json:"processing_rate"` // records per second
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch {
	case len(filename) >= 4 && filename[len(filename)-4:] == ".csv":
		return FormatCSV
	case len(filename) >= 8 && filename[len(filename)-8:] == ".parquet":
		return FormatParquet
	case len(filename) >= 6 && filename[len(filename)-6:] == ".jsonl":
		return FormatJSON
	case len(filename) >= 5 && filename[len(filename)-5:] == ".json":
		return FormatJSON
	default:
		return FormatCSV // Default to CSV
	}
}
