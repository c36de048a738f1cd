package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/phi-sentinel/internal/audit"
	"github.com/raaihank/phi-sentinel/internal/cache"
	"github.com/raaihank/phi-sentinel/internal/config"
	"github.com/raaihank/phi-sentinel/internal/logger"
	"github.com/raaihank/phi-sentinel/internal/masking"
	"github.com/raaihank/phi-sentinel/internal/ner"
	"github.com/raaihank/phi-sentinel/internal/server"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("PHI-Sentinel %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled:  cfg.Logging.File.Enabled,
			Path:     cfg.Logging.File.Path,
			MaxSize:  cfg.Logging.File.MaxSize,
			MaxAge:   cfg.Logging.File.MaxAge,
			Compress: cfg.Logging.File.Compress,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting PHI-Sentinel",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Build the de-identification service
	service, err := buildMaskingService(cfg, log)
	if err != nil {
		log.Fatal("Failed to build masking service", zap.Error(err))
	}

	// Optional result cache
	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		resultCache, err = cache.NewResultCache(&cache.Config{
			RedisURL:   cfg.Cache.RedisURL,
			DefaultTTL: cfg.Cache.TTL,
			KeyPrefix:  cfg.Cache.KeyPrefix,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			log.Fatal("Failed to initialize result cache", zap.Error(err))
		}
		defer resultCache.Close()
	}

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

	// Create server
	srv, err := server.New(server.Options{
		Config:  cfg,
		Logger:  log,
		Service: service,
		Cache:   resultCache,
		Audit:   auditStore,
	})
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Log when the configuration file changes on disk. Recognizer and
	// operator changes require a restart; this makes drift visible.
	if err := config.Watch(cfg, func(newCfg *config.Config) {
		log.Info("Configuration file changed; restart to apply pipeline changes")
	}); err != nil {
		log.Warn("Failed to watch configuration file", zap.Error(err))
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// buildMaskingService wires the NER engine, file-based recognizers, and
// operator overrides into a masking service.
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
		log.Info("Loaded additional recognizers",
			zap.String("file", cfg.Masking.RecognizerFile),
			zap.Int("count", len(additional)))
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

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
