package common

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Cache    CacheConfig    `yaml:"cache"`
	ML       MLConfig       `yaml:"ml"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Template TemplateConfig `yaml:"templates"`
	Parser   ParserConfig   `yaml:"parser"`
}

// CacheConfig holds detection-cache configuration
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"max_size"`
}

// MLConfig holds ML-assist classifier configuration
type MLConfig struct {
	WeightsPath     string  `yaml:"weights_path"`
	AssistThreshold float64 `yaml:"assist_threshold"`
	MinSamples      int     `yaml:"min_samples"`
}

// FeedbackConfig holds feedback store configuration
type FeedbackConfig struct {
	DBPath string `yaml:"db_path"`
}

// TemplateConfig holds community template storage configuration
type TemplateConfig struct {
	Dir string `yaml:"dir"`
}

// ParserConfig holds orchestrator limits
type ParserConfig struct {
	MaxLineItems int `yaml:"max_line_items"`
}

// LoadConfig loads configuration from an optional YAML file, then applies
// environment variable overrides on top.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
			MaxSize: 1000,
		},
		ML: MLConfig{
			WeightsPath:     "data/ml_model.json",
			AssistThreshold: 0.70,
			MinSamples:      10,
		},
		Feedback: FeedbackConfig{
			DBPath: "data/feedback.db",
		},
		Template: TemplateConfig{
			Dir: "community_templates",
		},
		Parser: ParserConfig{
			MaxLineItems: 50,
		},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapError(err, "reading config file")
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, WrapError(err, "parsing config file")
		}
	}

	cfg.Cache.Enabled = getEnvAsBool("PARSER_CACHE_ENABLED", cfg.Cache.Enabled)
	cfg.Cache.TTL = getEnvAsDuration("PARSER_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.MaxSize = getEnvAsInt("PARSER_CACHE_MAX_SIZE", cfg.Cache.MaxSize)
	cfg.ML.WeightsPath = getEnv("ML_WEIGHTS_PATH", cfg.ML.WeightsPath)
	cfg.ML.AssistThreshold = getEnvAsFloat64("ML_ASSIST_THRESHOLD", cfg.ML.AssistThreshold)
	cfg.ML.MinSamples = getEnvAsInt("ML_MIN_SAMPLES", cfg.ML.MinSamples)
	cfg.Feedback.DBPath = getEnv("FEEDBACK_DB_PATH", cfg.Feedback.DBPath)
	cfg.Template.Dir = getEnv("TEMPLATES_DIR", cfg.Template.Dir)
	cfg.Parser.MaxLineItems = getEnvAsInt("PARSER_MAX_LINE_ITEMS", cfg.Parser.MaxLineItems)

	return cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Cache.MaxSize <= 0 {
		return NewAppError("CONFIG_ERROR", "cache max_size must be positive", ErrInvalidInput)
	}
	if c.ML.AssistThreshold < 0 || c.ML.AssistThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "ml assist_threshold must be in [0,1]", ErrInvalidInput)
	}
	if c.Parser.MaxLineItems <= 0 {
		return NewAppError("CONFIG_ERROR", "parser max_line_items must be positive", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
