package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Set defaults
	config := GetDefaults()

	// Configure viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/phi-sentinel/")
	viper.AddConfigPath("$HOME/.phi-sentinel/")

	// Environment variable overrides
	viper.SetEnvPrefix("PHI_SENTINEL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Use specific config file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.NER.Type != "heuristic" && config.NER.Type != "model" {
		return fmt.Errorf("invalid ner type: %s (must be heuristic or model)", config.NER.Type)
	}

	if config.Masking.MaxTextLength < 0 {
		return fmt.Errorf("invalid max_text_length: %d", config.Masking.MaxTextLength)
	}

	if config.Server.RateLimit.Enabled {
		if config.Server.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("invalid requests_per_second: %v", config.Server.RateLimit.RequestsPerSecond)
		}
		if config.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid rate limit burst: %d", config.Server.RateLimit.Burst)
		}
	}

	if config.Cache.Enabled {
		if config.Cache.RedisURL == "" {
			return fmt.Errorf("cache enabled but redis_url is empty")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl: %v", config.Cache.TTL)
		}
	}

	if config.Audit.Enabled && config.Audit.DatabaseURL == "" {
		return fmt.Errorf("audit enabled but database_url is empty")
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if config.ETL.Workers <= 0 {
		return fmt.Errorf("invalid etl workers: %d", config.ETL.Workers)
	}
	if config.ETL.BatchSize <= 0 {
		return fmt.Errorf("invalid etl batch_size: %d", config.ETL.BatchSize)
	}

	return nil
}

// Watch starts watching the configuration file for changes
func Watch(config *Config, callback func(*Config)) error {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := &Config{}
		if err := viper.Unmarshal(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		if err := validateConfig(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		callback(newConfig)
	})

	return nil
}
