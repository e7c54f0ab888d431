package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Source   SourceConfig   `koanf:"source"`
	Baseline BaselineConfig `koanf:"baseline"`
	Rules    RulesConfig    `koanf:"rules"`
}

// SourceConfig locates the transaction source and paces its consumption.
// A zero pacing delay disables pacing.
type SourceConfig struct {
	Path        string        `koanf:"path" validate:"required"`
	PacingDelay time.Duration `koanf:"pacing_delay" validate:"min=0"`
}

// BaselineConfig drives the median recalculation cycle.
type BaselineConfig struct {
	RecalcInterval time.Duration `koanf:"recalc_interval" validate:"gt=0"`
	WindowMonths   int           `koanf:"window_months" validate:"gte=1"`
}

// RulesConfig carries the fixed fraud-rule thresholds. The odd-time bounds
// are offsets from local midnight, exclusive on both ends.
type RulesConfig struct {
	HighAmountFactor            int64         `koanf:"high_amount_factor" validate:"gte=1"`
	OddTimeStart                time.Duration `koanf:"odd_time_start" validate:"gte=0,ltefield=OddTimeEnd"`
	OddTimeEnd                  time.Duration `koanf:"odd_time_end" validate:"lte=24h"`
	BurstWindow                 time.Duration `koanf:"burst_window" validate:"gt=0"`
	BurstMax                    int           `koanf:"burst_max" validate:"gte=1"`
	HourlyWindow                time.Duration `koanf:"hourly_window" validate:"gt=0"`
	HourlyMax                   int           `koanf:"hourly_max" validate:"gte=1"`
	SameMerchantWindow          time.Duration `koanf:"same_merchant_window" validate:"gt=0"`
	SameMerchantMax             int           `koanf:"same_merchant_max" validate:"gte=1"`
	FraudulentMerchantThreshold int           `koanf:"fraudulent_merchant_threshold" validate:"gte=1"`
}

// Load builds the configuration from defaults, an optional YAML file and
// GW_-prefixed environment variables, in increasing priority. An empty path
// falls back to configs/guardianwatch.yaml; a missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = "configs/guardianwatch.yaml"
	}
	// Config file is optional.
	_ = k.Load(file.Provider(path), yaml.Parser())

	// Both "." and "_" in a koanf path flatten to "_" in an env name, so a
	// blind replacement cannot recover multi-word keys like log_level.
	// Resolve env names against the known key set instead; unknown names
	// are ignored.
	envKeys := make(map[string]string, len(k.Keys()))
	for _, key := range k.Keys() {
		envKeys[strings.ReplaceAll(strings.ToUpper(key), ".", "_")] = key
	}
	if err := k.Load(env.Provider("GW_", ".", func(s string) string {
		return envKeys[strings.TrimPrefix(s, "GW_")]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns the reference configuration values.
func Defaults() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Source: SourceConfig{
			Path:        "transactions.csv",
			PacingDelay: 2 * time.Second,
		},
		Baseline: BaselineConfig{
			RecalcInterval: time.Second,
			WindowMonths:   6,
		},
		Rules: RulesConfig{
			HighAmountFactor:            10,
			OddTimeStart:                2 * time.Hour,
			OddTimeEnd:                  6 * time.Hour,
			BurstWindow:                 60 * time.Second,
			BurstMax:                    3,
			HourlyWindow:                60 * time.Minute,
			HourlyMax:                   5,
			SameMerchantWindow:          24 * time.Hour,
			SameMerchantMax:             10,
			FraudulentMerchantThreshold: 10,
		},
	}
}
