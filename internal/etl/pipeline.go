package etl

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/raaihank/phi-sentinel/internal/audit"
	"github.com/raaihank/phi-sentinel/internal/masking"
	"github.com/raaihank/phi-sentinel/internal/metrics"
)

// Pipeline runs batch de-identification over dataset files. Each input
// row's text is masked and written to the output file in the same format;
// raw text never reaches logs, metrics, or the audit store.
type Pipeline struct {
	service    *masking.Service
	auditStore *audit.Store
	config     *Config
	logger     *zap.Logger
	stats      *ProcessingStats
	mu         sync.RWMutex
}

// NewPipeline creates a new ETL pipeline. auditStore may be nil.
func NewPipeline(service *masking.Service, auditStore *audit.Store, config *Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		service:    service,
		auditStore: auditStore,
		config:     config,
		logger:     logger,
		stats: &ProcessingStats{
			StartTime: time.Now(),
		},
	}
}

// ProcessFile de-identifies a dataset file (CSV, Parquet, or JSON lines)
// and writes the masked rows to outputPath in the same format.
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath, outputPath string) (*ProcessingResult, error) {
	p.logger.Info("Starting ETL pipeline",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("workers", p.config.WorkerCount))

	start := time.Now()
	result := &ProcessingResult{EntityCounts: make(map[string]int)}

	format := DetectFileFormat(inputPath)
	p.logger.Info("Detected file format", zap.String("format", string(format)))

	p.resetStats()

	writer, err := newRecordWriter(outputPath, DetectFileFormat(outputPath))
	if err != nil {
		return result, fmt.Errorf("failed to open output: %w", err)
	}

	switch format {
	case FormatCSV:
		err = p.processCSV(ctx, inputPath, writer, result)
	case FormatParquet:
		err = p.processParquet(ctx, inputPath, writer, result)
	case FormatJSON:
		err = p.processJSON(ctx, inputPath, writer, result)
	default:
		err = fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		writer.close()
		return result, fmt.Errorf("%s processing failed: %w", format, err)
	}

	if err := writer.close(); err != nil {
		return result, fmt.Errorf("failed to finalize output: %w", err)
	}

	result.Duration = time.Since(start)

	p.recordAuditSummary(ctx, result)

	p.logger.Info("ETL pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("total_entities", result.TotalEntities),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("masking_time", result.MaskingTime),
		zap.Duration("write_time", result.WriteTime))

	return result, nil
}

// processCSV processes CSV files with a "text" column
func (p *Pipeline) processCSV(ctx context.Context, filePath string, writer recordWriter, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Read header and locate the text column
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	textCol := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "text") {
			textCol = i
			break
		}
	}
	if textCol < 0 {
		return fmt.Errorf("CSV header has no text column")
	}

	p.logger.Info("CSV header detected", zap.Strings("columns", header), zap.Int("text_column", textCol))

	return p.processBatches(ctx, func() ([]*Record, error) {
		var batch []*Record

		for len(batch) < p.config.BatchSize {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				continue
			}
			if textCol >= len(row) {
				p.logger.Warn("CSV record missing text column", zap.Int("length", len(row)))
				continue
			}

			record := &Record{Text: row[textCol]}
			if p.validateRecord(record) {
				batch = append(batch, record)
			}
		}

		return batch, nil
	}, writer, result)
}

// processParquet processes Parquet files
func (p *Pipeline) processParquet(ctx context.Context, filePath string, writer recordWriter, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return p.processBatches(ctx, func() ([]*Record, error) {
		var batch []*Record

		for len(batch) < p.config.BatchSize {
			var record Record
			err := reader.Read(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Error(err))
				continue
			}

			if p.validateRecord(&record) {
				batch = append(batch, &record)
			}
		}

		return batch, nil
	}, writer, result)
}

// processJSON processes JSON files (one JSON object per line)
func (p *Pipeline) processJSON(ctx context.Context, filePath string, writer recordWriter, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return p.processBatches(ctx, func() ([]*Record, error) {
		var batch []*Record

		for len(batch) < p.config.BatchSize {
			var record Record
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read JSON record", zap.Error(err))
				continue
			}

			if p.validateRecord(&record) {
				batch = append(batch, &record)
			}
		}

		return batch, nil
	}, writer, result)
}

// processBatches processes data in batches using the provided reader function
func (p *Pipeline) processBatches(ctx context.Context, readBatch func() ([]*Record, error), writer recordWriter, result *ProcessingResult) error {
	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}

		if len(batch) == 0 {
			break // End of file
		}

		if err := p.processBatch(ctx, batch, writer, result); err != nil {
			return err
		}

		// Progress reporting
		if p.config.ProgressReport > 0 && result.TotalRecords%int64(p.config.ProgressReport) < int64(p.config.BatchSize) {
			p.reportProgress(result)
		}
	}

	return nil
}

// processBatch masks a batch of records concurrently and writes the
// outputs in input order.
func (p *Pipeline) processBatch(ctx context.Context, batch []*Record, writer recordWriter, result *ProcessingResult) error {
	maskStart := time.Now()

	results := make([]*masking.Result, len(batch))
	workers := p.config.WorkerCount
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, record := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.service.Deidentify(ctx, text)
		}(i, record.Text)
	}
	wg.Wait()
	result.MaskingTime += time.Since(maskStart)

	writeStart := time.Now()
	for _, res := range results {
		failed := res.Failed

		status := audit.StatusOK
		if failed {
			status = audit.StatusFailed
			result.ProcessedFailed++
		} else {
			result.ProcessedOK++
		}
		result.TotalRecords++
		result.TotalEntities += int64(len(res.EntitiesFound))

		counts := res.TypeCounts()
		for entityType, n := range counts {
			result.EntityCounts[entityType] += n
		}
		metrics.ObserveResult("etl", status, time.Since(maskStart).Seconds()/float64(len(batch)), counts)

		out := &MaskedRecord{
			MaskedText:  res.MaskedText,
			EntityCount: len(res.EntitiesFound),
			Failed:      failed,
		}
		if err := writer.write(out); err != nil {
			return fmt.Errorf("failed to write output record: %w", err)
		}
	}
	result.WriteTime += time.Since(writeStart)

	return nil
}

// recordAuditSummary stores one aggregate event for the whole run.
func (p *Pipeline) recordAuditSummary(ctx context.Context, result *ProcessingResult) {
	if p.auditStore == nil {
		return
	}

	status := audit.StatusOK
	if result.ProcessedFailed > 0 {
		status = audit.StatusFailed
	}

	event := &audit.Event{
		RequestID:    uuid.NewString(),
		Source:       "etl",
		Status:       status,
		EntityTotal:  int(result.TotalEntities),
		EntityCounts: audit.Counts(result.EntityCounts),
		DurationMs:   float64(result.Duration.Microseconds()) / 1000.0,
	}
	if err := p.auditStore.Record(ctx, event); err != nil {
		p.logger.Error("Failed to record ETL audit summary", zap.Error(err))
	}
}

// validateRecord validates a data record
func (p *Pipeline) validateRecord(record *Record) bool {
	if !p.config.ValidateData {
		return true
	}

	if strings.TrimSpace(record.Text) == "" {
		p.logger.Debug("Invalid record: empty text")
		return false
	}

	if p.config.MaxTextLength > 0 && len(record.Text) > p.config.MaxTextLength {
		p.logger.Debug("Invalid record: text too long", zap.Int("length", len(record.Text)))
		return false
	}

	return true
}

// reportProgress reports current processing progress
func (p *Pipeline) reportProgress(result *ProcessingResult) {
	elapsed := time.Since(p.stats.StartTime)
	rate := float64(result.TotalRecords) / elapsed.Seconds()

	p.logger.Info("Processing progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("records_ok", result.ProcessedOK),
		zap.Int64("records_failed", result.ProcessedFailed),
		zap.Int64("entities_found", result.TotalEntities),
		zap.Float64("rate_per_sec", rate),
		zap.Duration("elapsed", elapsed))
}

// resetStats resets processing statistics
func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime: time.Now(),
	}
}

// GetStats returns current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Create a copy
	stats := *p.stats
	return &stats
}

// recordWriter abstracts the per-format output encoders.
type recordWriter interface {
	write(*MaskedRecord) error
	close() error
}

func newRecordWriter(path string, format FileFormat) (recordWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		w := csv.NewWriter(file)
		if err := w.Write([]string{"masked_text", "entity_count", "failed"}); err != nil {
			file.Close()
			return nil, err
		}
		return &csvRecordWriter{file: file, writer: w}, nil
	case FormatJSON:
		return &jsonRecordWriter{file: file, encoder: json.NewEncoder(file)}, nil
	case FormatParquet:
		return &parquetRecordWriter{file: file, writer: parquet.NewWriter(file)}, nil
	default:
		file.Close()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

type csvRecordWriter struct {
	file   *os.File
	writer *csv.Writer
}

func (w *csvRecordWriter) write(rec *MaskedRecord) error {
	return w.writer.Write([]string{rec.MaskedText, strconv.Itoa(rec.EntityCount), strconv.FormatBool(rec.Failed)})
}

func (w *csvRecordWriter) close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

type jsonRecordWriter struct {
	file    *os.File
	encoder *json.Encoder
}

func (w *jsonRecordWriter) write(rec *MaskedRecord) error {
	return w.encoder.Encode(rec)
}

func (w *jsonRecordWriter) close() error {
	return w.file.Close()
}

type parquetRecordWriter struct {
	file   *os.File
	writer *parquet.Writer
}

func (w *parquetRecordWriter) write(rec *MaskedRecord) error {
	return w.writer.Write(rec)
}

func (w *parquetRecordWriter) close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
