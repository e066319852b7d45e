// Package config loads framelai configuration from a YAML file, FRAMELAI_*
// environment variables and bound command line flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ZaguanLabs/framelai"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "FRAMELAI"

// Config is the full configuration.
type Config struct {
	Enabled          bool                     `mapstructure:"enabled"`
	ContentID        string                   `mapstructure:"content_id"`
	ExcludedSelector string                   `mapstructure:"excluded_selector"`
	Dictionary       string                   `mapstructure:"dictionary"`
	Logger           LoggerConfig             `mapstructure:"logger"`
	Storage          StorageConfig            `mapstructure:"storage"`
	OpenAI           OpenAIConfig             `mapstructure:"openai"`
	RateLimit        framelai.RateLimitConfig `mapstructure:"rate_limit"`
	Timing           TimingConfig             `mapstructure:"timing"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// StorageConfig selects where the translation cache is persisted.
type StorageConfig struct {
	Backend     string        `mapstructure:"backend"` // memory, file, redis or sqlite
	Path        string        `mapstructure:"path"`    // directory (file) or database file (sqlite)
	Key         string        `mapstructure:"key"`
	Debounce    time.Duration `mapstructure:"debounce"`
	RedisURL    string        `mapstructure:"redis_url"`
	RedisTTL    int           `mapstructure:"redis_ttl"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
}

// OpenAIConfig configures the remote translator.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	TargetLang  string  `mapstructure:"target_lang"`
}

// TimingConfig holds the pipeline delays.
type TimingConfig struct {
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	InterUnitDelay  time.Duration `mapstructure:"inter_unit_delay"`
	BatchRetryDelay time.Duration `mapstructure:"batch_retry_delay"`
	WatchDebounce   time.Duration `mapstructure:"watch_debounce"`
	KeyUpDelay      time.Duration `mapstructure:"key_up_delay"`
}

// Timing converts the delays for the pipeline.
func (t TimingConfig) Timing() framelai.Timing {
	return framelai.Timing{
		RetryBackoff:    t.RetryBackoff,
		InterUnitDelay:  t.InterUnitDelay,
		BatchRetryDelay: t.BatchRetryDelay,
		WatchDebounce:   t.WatchDebounce,
		KeyUpDelay:      t.KeyUpDelay,
	}
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads path (if not empty) into v and decodes the result. Without a
// path, framelai.yaml is looked up in the working directory and
// $HOME/.config/framelai; a missing file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("framelai")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/framelai")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Env-only keys are invisible to Unmarshal unless bound.
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("enabled", true)
	v.SetDefault("content_id", framelai.DefaultContentID)
	v.SetDefault("excluded_selector", framelai.DefaultExcludedSelector)
	v.SetDefault("dictionary", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stderr")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", ".framelai")
	v.SetDefault("storage.key", "framelai:translations")
	v.SetDefault("storage.debounce", "2s")
	v.SetDefault("storage.redis_url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis_ttl", 0)
	v.SetDefault("storage.redis_prefix", "framelai:")

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.target_lang", framelai.DefaultTargetLang)

	v.SetDefault("rate_limit.requests_per_minute", 0)
	v.SetDefault("rate_limit.burst_size", 1)

	d := framelai.DefaultTiming()
	v.SetDefault("timing.retry_backoff", d.RetryBackoff.String())
	v.SetDefault("timing.inter_unit_delay", d.InterUnitDelay.String())
	v.SetDefault("timing.batch_retry_delay", d.BatchRetryDelay.String())
	v.SetDefault("timing.watch_debounce", d.WatchDebounce.String())
	v.SetDefault("timing.key_up_delay", d.KeyUpDelay.String())
}

// Source supplies session settings from viper.
type Source struct {
	v *viper.Viper
}

// NewSource wraps v.
func NewSource(v *viper.Viper) *Source {
	return &Source{v: v}
}

// Settings returns the configured settings, keeping defaults for keys that
// are not set.
func (s *Source) Settings(ctx context.Context, defaults framelai.Settings) (framelai.Settings, error) {
	if err := ctx.Err(); err != nil {
		return defaults, err
	}
	out := defaults
	if s.v.IsSet("enabled") {
		out.Enabled = s.v.GetBool("enabled")
	}
	return out, nil
}

// Verify Source implements framelai.SettingsSource
var _ framelai.SettingsSource = (*Source)(nil)
