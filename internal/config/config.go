// Package config provides configuration loading and validation for the service and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the service configuration. Values come from built-in defaults,
// an optional YAML file and the environment, in increasing order of precedence.
type Config struct {
	AppEnv   string `yaml:"app_env" validate:"oneof=development production test"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	LogLevel string `yaml:"log_level"`

	// FrontendURL is allowed as a CORS origin in addition to the local dev origins
	FrontendURL string `yaml:"frontend_url" validate:"omitempty,url"`

	StoreDriver string `yaml:"store_driver" validate:"oneof=postgres memory"`
	DatabaseURL string `yaml:"database_url" validate:"required_if=StoreDriver postgres"`

	LLMProvider string `yaml:"llm_provider" validate:"oneof=gemini"`
	APIKey      string `yaml:"api_key"`

	Pipeline PipelineConfig `yaml:"pipeline"`
	Events   EventsConfig   `yaml:"events"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Research ResearchConfig `yaml:"research"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// PipelineConfig controls batch runs
type PipelineConfig struct {
	BatchSize        int           `yaml:"batch_size" validate:"min=1,max=50"`
	InitialCount     int           `yaml:"initial_count" validate:"min=1,max=500"`
	SourceMoreCount  int           `yaml:"source_more_count" validate:"min=1,max=500"`
	PitchThreshold   float64       `yaml:"pitch_threshold" validate:"min=0,max=100"`
	PitchConcurrency int           `yaml:"pitch_concurrency" validate:"min=0"`
	BatchPause       time.Duration `yaml:"batch_pause" validate:"min=0"`
}

// EventsConfig controls live event streaming
type EventsConfig struct {
	KeepAlive         time.Duration `yaml:"keepalive" validate:"min=0"`
	FinishedRetention time.Duration `yaml:"finished_retention" validate:"min=0"`
}

// SMTPConfig holds outbound mail settings. Mail is only logged when Host or From is empty.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"min=0,max=65535"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from" validate:"omitempty,email"`
}

// ResearchConfig controls company research for pitches
type ResearchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Browser  bool          `yaml:"browser"`
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"min=0"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		AppEnv:      "development",
		Port:        8000,
		StoreDriver: "postgres",
		LLMProvider: "gemini",
		Pipeline: PipelineConfig{
			BatchSize:       5,
			InitialCount:    25,
			SourceMoreCount: 15,
			PitchThreshold:  75,
			BatchPause:      100 * time.Millisecond,
		},
		Events: EventsConfig{
			KeepAlive:         120 * time.Second,
			FinishedRetention: 24 * time.Hour,
		},
		SMTP: SMTPConfig{Port: 587},
		Research: ResearchConfig{
			Enabled:  true,
			CacheTTL: 6 * time.Hour,
		},
		MetricsEnabled: true,
	}
}

// LoadConfig loads configuration from a YAML file on top of the built-in defaults.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return cfg, nil
}

// Load builds the effective configuration: defaults, then the YAML file at path
// (if any), then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables found via lookup.
// Malformed values are reported rather than silently ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("APP_ENV", &c.AppEnv)
	e.integer("PORT", &c.Port)
	e.str("LOG_LEVEL", &c.LogLevel)
	e.str("FRONTEND_URL", &c.FrontendURL)
	e.str("STORE_DRIVER", &c.StoreDriver)
	e.str("DATABASE_URL", &c.DatabaseURL)
	e.str("LLM_PROVIDER", &c.LLMProvider)
	e.str("GEMINI_API_KEY", &c.APIKey)

	e.integer("PIPELINE_BATCH_SIZE", &c.Pipeline.BatchSize)
	e.integer("PIPELINE_INITIAL_COUNT", &c.Pipeline.InitialCount)
	e.integer("PIPELINE_SOURCE_MORE_COUNT", &c.Pipeline.SourceMoreCount)
	e.float("PIPELINE_PITCH_THRESHOLD", &c.Pipeline.PitchThreshold)
	e.integer("PIPELINE_PITCH_CONCURRENCY", &c.Pipeline.PitchConcurrency)
	e.duration("PIPELINE_BATCH_PAUSE", &c.Pipeline.BatchPause)

	e.duration("SSE_KEEPALIVE", &c.Events.KeepAlive)
	e.duration("EVENTS_FINISHED_RETENTION", &c.Events.FinishedRetention)

	e.str("SMTP_HOST", &c.SMTP.Host)
	e.integer("SMTP_PORT", &c.SMTP.Port)
	e.str("SMTP_USERNAME", &c.SMTP.Username)
	e.str("SMTP_PASSWORD", &c.SMTP.Password)
	e.str("SMTP_FROM", &c.SMTP.From)

	e.boolean("COMPANY_RESEARCH_ENABLED", &c.Research.Enabled)
	e.boolean("COMPANY_RESEARCH_BROWSER", &c.Research.Browser)
	e.duration("COMPANY_RESEARCH_CACHE_TTL", &c.Research.CacheTTL)

	e.boolean("METRICS_ENABLED", &c.MetricsEnabled)

	if len(e.errs) > 0 {
		return fmt.Errorf("config error: %w", errors.Join(e.errs...))
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required_if":
		return fmt.Sprintf("'%s' is required when %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("'%s' must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("'%s' must satisfy %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("'%s' failed %s validation", field, fe.Tag())
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	mergeString(&result.AppEnv, defaults.AppEnv)
	mergeString(&result.LogLevel, defaults.LogLevel)
	mergeString(&result.FrontendURL, defaults.FrontendURL)
	mergeString(&result.StoreDriver, defaults.StoreDriver)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.LLMProvider, defaults.LLMProvider)
	mergeString(&result.APIKey, defaults.APIKey)
	mergeString(&result.SMTP.Host, defaults.SMTP.Host)
	mergeString(&result.SMTP.Username, defaults.SMTP.Username)
	mergeString(&result.SMTP.Password, defaults.SMTP.Password)
	mergeString(&result.SMTP.From, defaults.SMTP.From)

	// Numeric fields: use default if zero
	mergeInt(&result.Port, defaults.Port)
	mergeInt(&result.SMTP.Port, defaults.SMTP.Port)
	mergeInt(&result.Pipeline.BatchSize, defaults.Pipeline.BatchSize)
	mergeInt(&result.Pipeline.InitialCount, defaults.Pipeline.InitialCount)
	mergeInt(&result.Pipeline.SourceMoreCount, defaults.Pipeline.SourceMoreCount)
	mergeInt(&result.Pipeline.PitchConcurrency, defaults.Pipeline.PitchConcurrency)
	if result.Pipeline.PitchThreshold == 0 {
		result.Pipeline.PitchThreshold = defaults.Pipeline.PitchThreshold
	}
	mergeDuration(&result.Pipeline.BatchPause, defaults.Pipeline.BatchPause)
	mergeDuration(&result.Events.KeepAlive, defaults.Events.KeepAlive)
	mergeDuration(&result.Events.FinishedRetention, defaults.Events.FinishedRetention)
	mergeDuration(&result.Research.CacheTTL, defaults.Research.CacheTTL)

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func mergeDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}

// envReader applies environment overrides and collects parse failures
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: invalid number %q", key, v))
			return
		}
		*dst = f
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
			return
		}
		*dst = d
	}
}
