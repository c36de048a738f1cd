package config

import (
	"testing"
)

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("Unexpected default port: %d", cfg.Server.Port)
	}
	if cfg.NER.Type != "heuristic" {
		t.Errorf("Unexpected default NER type: %s", cfg.NER.Type)
	}
	if cfg.Cache.Enabled || cfg.Audit.Enabled {
		t.Error("Cache and audit should be disabled by default")
	}
	if !cfg.Server.RateLimit.Enabled {
		t.Error("Rate limiting should be enabled by default")
	}
	if cfg.Masking.MaxTextLength <= 0 {
		t.Errorf("Expected a positive default max_text_length, got %d", cfg.Masking.MaxTextLength)
	}

	if err := validateConfig(cfg); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config { return GetDefaults() }

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ZeroPort", func(c *Config) { c.Server.Port = 0 }},
		{"PortTooLarge", func(c *Config) { c.Server.Port = 70000 }},
		{"UnknownNERType", func(c *Config) { c.NER.Type = "quantum" }},
		{"NegativeMaxTextLength", func(c *Config) { c.Masking.MaxTextLength = -1 }},
		{"RateLimitZeroRPS", func(c *Config) { c.Server.RateLimit.RequestsPerSecond = 0 }},
		{"RateLimitZeroBurst", func(c *Config) { c.Server.RateLimit.Burst = 0 }},
		{"CacheWithoutURL", func(c *Config) { c.Cache.Enabled = true; c.Cache.RedisURL = "" }},
		{"CacheZeroTTL", func(c *Config) { c.Cache.Enabled = true; c.Cache.TTL = 0 }},
		{"AuditWithoutURL", func(c *Config) { c.Audit.Enabled = true; c.Audit.DatabaseURL = "" }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "verbose" }},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }},
		{"ZeroETLWorkers", func(c *Config) { c.ETL.Workers = 0 }},
		{"ZeroETLBatch", func(c *Config) { c.ETL.BatchSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			if err := validateConfig(cfg); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	t.Run("DisabledIntegrationsSkipChecks", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Enabled = false
		cfg.Cache.RedisURL = ""
		cfg.Audit.Enabled = false
		cfg.Audit.DatabaseURL = ""
		if err := validateConfig(cfg); err != nil {
			t.Errorf("Disabled integrations should not be validated: %v", err)
		}
	})
}
