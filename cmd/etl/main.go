package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/raaihank/phi-sentinel/internal/audit"
	"github.com/raaihank/phi-sentinel/internal/config"
	"github.com/raaihank/phi-sentinel/internal/etl"
	"github.com/raaihank/phi-sentinel/internal/logger"
	"github.com/raaihank/phi-sentinel/internal/masking"
	"github.com/raaihank/phi-sentinel/internal/ner"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputFile  = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSON lines)")
		outputFile = flag.String("output", "", "Output file (defaults to <input>.masked.<ext>)")
		batchSize  = flag.Int("batch-size", 0, "Batch size for processing (overrides config)")
		workers    = flag.Int("workers", 0, "Number of worker goroutines (overrides config)")
		showStats  = flag.Bool("stats", false, "Show audit statistics and exit")
	)
	flag.Parse()

	if *inputFile == "" && !*showStats {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input notes.csv --output notes.masked.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input records.parquet --workers 8\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting PHI-Sentinel ETL Pipeline",
		zap.String("version", "0.1.0"),
		zap.String("config", *configPath))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	// Optional audit store
	var auditStore *audit.Store
	if cfg.Audit.Enabled {
		auditStore, err = audit.NewStore(&audit.Config{
			DatabaseURL: cfg.Audit.DatabaseURL,
		}, log.WithComponent("audit").Logger)
		if err != nil {
			log.Fatal("Failed to initialize audit store", zap.Error(err))
		}
		defer auditStore.Close()
	}

	if *showStats {
		if err := showAuditStats(ctx, auditStore); err != nil {
			log.Fatal("Failed to show stats", zap.Error(err))
		}
		return
	}

	// Build the de-identification service
	service, err := buildMaskingService(cfg, log)
	if err != nil {
		log.Fatal("Failed to build masking service", zap.Error(err))
	}

	etlConfig := &etl.Config{
		BatchSize:      cfg.ETL.BatchSize,
		WorkerCount:    cfg.ETL.Workers,
		ValidateData:   true,
		MaxTextLength:  cfg.Masking.MaxTextLength,
		ProgressReport: 1000,
	}
	if *batchSize > 0 {
		etlConfig.BatchSize = *batchSize
	}
	if *workers > 0 {
		etlConfig.WorkerCount = *workers
	}

	output := *outputFile
	if output == "" {
		output = defaultOutputPath(*inputFile)
	}

	if err := processDataset(ctx, service, auditStore, etlConfig, *inputFile, output, log); err != nil {
		log.Fatal("ETL processing failed", zap.Error(err))
	}

	log.Info("ETL pipeline completed successfully")
}

// buildMaskingService wires the NER engine and file-based recognizers
// into a masking service, same as the server does.
func buildMaskingService(cfg *config.Config, log *logger.Logger) (*masking.Service, error) {
	engine, err := ner.NewFactory(log.WithComponent("ner").Logger).CreateEngine(ner.EngineConfig{
		Type:           ner.EngineType(cfg.NER.Type),
		ModelPath:      cfg.NER.ModelPath,
		VocabPath:      cfg.NER.VocabPath,
		LabelsPath:     cfg.NER.LabelsPath,
		MaxLength:      cfg.NER.MaxLength,
		ScoreThreshold: cfg.NER.ScoreThreshold,
		Timeout:        cfg.NER.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create NER engine: %w", err)
	}

	var additional []masking.Recognizer
	if cfg.Masking.RecognizerFile != "" {
		additional, err = masking.LoadRecognizerFile(cfg.Masking.RecognizerFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load recognizer file: %w", err)
		}
	}

	operators := masking.OperatorTable{}
	for entityType, placeholder := range cfg.Masking.Operators {
		operators[entityType] = masking.ReplaceOperator{NewValue: placeholder}
	}

	return masking.NewService(masking.Options{
		Statistical: ner.NewStatisticalRecognizer(engine, cfg.NER.Timeout),
		Additional:  additional,
		Operators:   operators,
		Logger:      log.WithComponent("masking").Logger,
	})
}

// processDataset processes the input dataset file
func processDataset(ctx context.Context, service *masking.Service, auditStore *audit.Store, etlConfig *etl.Config, inputFile, outputFile string, log *logger.Logger) error {
	log.Info("Processing dataset",
		zap.String("input", inputFile),
		zap.String("output", outputFile))

	// Check if file exists
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	pipeline := etl.NewPipeline(service, auditStore, etlConfig, log.WithComponent("etl").Logger)

	result, err := pipeline.ProcessFile(ctx, inputFile, outputFile)
	if err != nil {
		return fmt.Errorf("pipeline processing failed: %w", err)
	}

	// Report results
	log.Info("Dataset processing completed",
		zap.String("input", inputFile),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("total_entities", result.TotalEntities),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("masking_time", result.MaskingTime),
		zap.Duration("write_time", result.WriteTime),
		zap.Float64("records_per_second", float64(result.TotalRecords)/result.Duration.Seconds()))

	if len(result.Errors) > 0 {
		log.Warn("Processing completed with errors", zap.Strings("errors", result.Errors))
	}

	return nil
}

// showAuditStats displays aggregate audit statistics
func showAuditStats(ctx context.Context, auditStore *audit.Store) error {
	if auditStore == nil {
		return fmt.Errorf("audit store is not enabled")
	}

	stats, err := auditStore.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get audit stats: %w", err)
	}

	fmt.Printf("\n=== PHI-Sentinel Audit Statistics ===\n")
	fmt.Printf("Total Requests:   %d\n", stats.TotalRequests)
	fmt.Printf("Failed Requests:  %d\n", stats.FailedRequests)
	fmt.Printf("Total Entities:   %d\n", stats.TotalEntities)
	fmt.Printf("Avg Duration:     %.2f ms\n", stats.AvgDurationMs)

	return nil
}

// defaultOutputPath derives <name>.masked.<ext> from the input path.
func defaultOutputPath(input string) string {
	if idx := strings.LastIndex(input, "."); idx > 0 {
		return input[:idx] + ".masked" + input[idx:]
	}
	return input + ".masked"
}
