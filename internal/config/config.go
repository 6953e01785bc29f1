package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	HTTPAddr    string `yaml:"http_addr"`
	JWTSecret   string `yaml:"jwt_secret"`

	// Bootstrap operator, registered at API startup when absent. Without it a
	// fresh deployment has no login to reach the command API with.
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Intake      IntakeConfig      `yaml:"intake"`
	Validation  ValidationConfig  `yaml:"validation"`
	Publication PublicationConfig `yaml:"publication"`
	Tracking    TrackingConfig    `yaml:"tracking"`
}

// PipelineConfig controls the batch runner.
type PipelineConfig struct {
	Schedule string `yaml:"schedule"` // cron spec, e.g. "*/30 * * * *"
	Timezone string `yaml:"timezone"`
}

// IntakeConfig controls candidate intake and deduplication.
type IntakeConfig struct {
	FeedURL           string  `yaml:"feed_url"`
	FeedTimeoutSecs   int     `yaml:"feed_timeout_secs"`
	FeedRatePerSec    float64 `yaml:"feed_rate_per_sec"`
	Workers           int     `yaml:"workers"`
	MinDiscountPct    float64 `yaml:"min_discount_pct"`
	RequireTagMatch   bool    `yaml:"require_tag_match"`
	StorePolicy       string  `yaml:"store_policy"` // reject | stub
	AutoTag           bool    `yaml:"auto_tag"`
	AffiliateTemplate string  `yaml:"affiliate_template"` // %s replaced by the source URL
}

// ValidationConfig controls discount annotation.
type ValidationConfig struct {
	WindowDays        int     `yaml:"window_days"`
	AutoGate          bool    `yaml:"auto_gate"`
	AutoGateThreshold float64 `yaml:"auto_gate_threshold"`
}

// PublicationConfig controls fan-out delivery.
type PublicationConfig struct {
	Workers             int    `yaml:"workers"`
	ChannelTimeoutSecs  int    `yaml:"channel_timeout_secs"`
	TelegramToken       string `yaml:"telegram_token"`
	ShortenerAPIURL     string `yaml:"shortener_api_url"`
	ShortenerToken      string `yaml:"shortener_token"`
	ShortenerTimeoutSec int    `yaml:"shortener_timeout_secs"`
}

// TrackingConfig controls post-publication metrics collection.
type TrackingConfig struct {
	ClicksAPIURL string `yaml:"clicks_api_url"`
	ClicksToken  string `yaml:"clicks_token"`
}

const (
	StorePolicyReject = "reject"
	StorePolicyStub   = "stub"
)

// Load reads configuration from a YAML file, applies defaults,
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// Missing file is fine: everything can come from the environment.
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Path returns the config file path from the environment or the default.
func Path() string {
	if p := os.Getenv("DEALCURATOR_CONFIG"); p != "" {
		return p
	}
	return "./config.yaml"
}

func applyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Pipeline.Schedule == "" {
		cfg.Pipeline.Schedule = "*/30 * * * *"
	}
	if cfg.Pipeline.Timezone == "" {
		cfg.Pipeline.Timezone = "UTC"
	}
	if cfg.Intake.FeedTimeoutSecs == 0 {
		cfg.Intake.FeedTimeoutSecs = 15
	}
	if cfg.Intake.FeedRatePerSec == 0 {
		cfg.Intake.FeedRatePerSec = 2
	}
	if cfg.Intake.Workers == 0 {
		cfg.Intake.Workers = 4
	}
	if cfg.Intake.StorePolicy == "" {
		cfg.Intake.StorePolicy = StorePolicyReject
	}
	if cfg.Validation.WindowDays == 0 {
		cfg.Validation.WindowDays = 90
	}
	if cfg.Validation.AutoGateThreshold == 0 {
		cfg.Validation.AutoGateThreshold = 10
	}
	if cfg.Publication.Workers == 0 {
		cfg.Publication.Workers = 4
	}
	if cfg.Publication.ChannelTimeoutSecs == 0 {
		cfg.Publication.ChannelTimeoutSecs = 10
	}
	if cfg.Publication.ShortenerTimeoutSec == 0 {
		cfg.Publication.ShortenerTimeoutSec = 5
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("APP_PORT"); v != "" {
		cfg.HTTPAddr = ":" + v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_EMAIL"); v != "" {
		cfg.AdminEmail = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		cfg.AdminPassword = v
	}
	if v := os.Getenv("FEED_URL"); v != "" {
		cfg.Intake.FeedURL = v
	}
	if v := os.Getenv("MIN_DISCOUNT_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Intake.MinDiscountPct = f
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Publication.TelegramToken = v
	}
	if v := os.Getenv("SHORTENER_TOKEN"); v != "" {
		cfg.Publication.ShortenerToken = v
	}
	if v := os.Getenv("CLICKS_TOKEN"); v != "" {
		cfg.Tracking.ClicksToken = v
	}
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database_url is required (or set DATABASE_URL)")
	}
	if cfg.Intake.StorePolicy != StorePolicyReject && cfg.Intake.StorePolicy != StorePolicyStub {
		return fmt.Errorf("intake.store_policy must be %q or %q, got %q",
			StorePolicyReject, StorePolicyStub, cfg.Intake.StorePolicy)
	}
	if cfg.Intake.MinDiscountPct < 0 || cfg.Intake.MinDiscountPct > 100 {
		return fmt.Errorf("intake.min_discount_pct must be within [0,100], got %v", cfg.Intake.MinDiscountPct)
	}
	if cfg.Validation.WindowDays < 1 {
		return fmt.Errorf("validation.window_days must be >= 1, got %d", cfg.Validation.WindowDays)
	}
	return nil
}
