package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if !cfg.Cache.Enabled {
		t.Error("cache should default to enabled")
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("cache ttl = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Cache.MaxSize != 1000 {
		t.Errorf("cache max size = %d, want 1000", cfg.Cache.MaxSize)
	}
	if cfg.ML.AssistThreshold != 0.70 {
		t.Errorf("assist threshold = %f, want 0.70", cfg.ML.AssistThreshold)
	}
	if cfg.ML.MinSamples != 10 {
		t.Errorf("min samples = %d, want 10", cfg.ML.MinSamples)
	}
	if cfg.Parser.MaxLineItems != 50 {
		t.Errorf("max line items = %d, want 50", cfg.Parser.MaxLineItems)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
cache:
  enabled: false
  max_size: 25
ml:
  assist_threshold: 0.8
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cache.Enabled {
		t.Error("yaml should disable the cache")
	}
	if cfg.Cache.MaxSize != 25 {
		t.Errorf("cache max size = %d, want 25", cfg.Cache.MaxSize)
	}
	if cfg.ML.AssistThreshold != 0.8 {
		t.Errorf("assist threshold = %f, want 0.8", cfg.ML.AssistThreshold)
	}
	// untouched keys keep their defaults
	if cfg.ML.MinSamples != 10 {
		t.Errorf("min samples = %d, want 10", cfg.ML.MinSamples)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PARSER_CACHE_MAX_SIZE", "7")
	t.Setenv("ML_ASSIST_THRESHOLD", "0.55")
	t.Setenv("FEEDBACK_DB_PATH", "/tmp/fb.db")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cache.MaxSize != 7 {
		t.Errorf("cache max size = %d, want 7", cfg.Cache.MaxSize)
	}
	if cfg.ML.AssistThreshold != 0.55 {
		t.Errorf("assist threshold = %f, want 0.55", cfg.ML.AssistThreshold)
	}
	if cfg.Feedback.DBPath != "/tmp/fb.db" {
		t.Errorf("db path = %s", cfg.Feedback.DBPath)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("explicit missing config file should error")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}

	cfg.Cache.MaxSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero cache size should fail validation")
	}

	cfg, _ = LoadConfig("")
	cfg.ML.AssistThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("out-of-range threshold should fail validation")
	}
}
