package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	Analysis Analysis `yaml:"analysis"`
	Wiki     Wiki     `yaml:"wiki"`
	Sources  Sources  `yaml:"sources"`
	API      API      `yaml:"api"`
	Logging  Logging  `yaml:"logging"`
}

// Analysis configures the scoring pipeline.
type Analysis struct {
	DefaultLanguage string        `yaml:"default_language"`
	BatchSize       int           `yaml:"batch_size"`
	BaseWorkers     int           `yaml:"base_workers"`
	WorkItemTimeout time.Duration `yaml:"work_item_timeout"`
	ExcludeBots     bool          `yaml:"exclude_bots"`
	// ExcludePrivileged filters admin and bot revisions out of the
	// add/delete-ratio sample.
	ExcludePrivileged bool `yaml:"exclude_privileged"`
}

// Wiki configures the upstream HTTP clients.
type Wiki struct {
	UserAgent         string        `yaml:"user_agent"`
	ActionAPITemplate string        `yaml:"action_api_template"` // printf template with one %s for the language
	PageviewsBaseURL  string        `yaml:"pageviews_base_url"`
	LiftWingBaseURL   string        `yaml:"lift_wing_base_url"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	InferenceTimeout  time.Duration `yaml:"inference_timeout"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay"`
	RateLimit         float64       `yaml:"rate_limit"` // requests/second per language edition
	RateBurst         int           `yaml:"rate_burst"`
}

// Sources configures the on-disk reference lists.
type Sources struct {
	BlacklistPath  string `yaml:"blacklist_path"`
	SockpuppetPath string `yaml:"sockpuppet_path"`
}

// API configuration
type API struct {
	Port        int           `yaml:"port"`
	RateLimit   int           `yaml:"rate_limit"`
	MaxTasks    int           `yaml:"max_tasks"`
	TaskTTL     time.Duration `yaml:"task_ttl"`
	MetricsPort int           `yaml:"metrics_port"`
}

// Logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&config)
	overrideWithEnv(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every field at its default value,
// for callers that run without a config file (CLI, tests).
func Default() *Config {
	var config Config
	setDefaults(&config)
	return &config
}

// setDefaults sets default values for optional fields
func setDefaults(config *Config) {
	// Analysis defaults
	if config.Analysis.DefaultLanguage == "" {
		config.Analysis.DefaultLanguage = "fr"
	}
	if config.Analysis.BatchSize == 0 {
		config.Analysis.BatchSize = 20
	}
	if config.Analysis.BaseWorkers == 0 {
		config.Analysis.BaseWorkers = 16
	}
	if config.Analysis.WorkItemTimeout == 0 {
		config.Analysis.WorkItemTimeout = 120 * time.Second
	}

	// Wiki defaults
	if config.Wiki.UserAgent == "" {
		config.Wiki.UserAgent = "WikimetronPipeline/1.0 (analysis@opsci.ai)"
	}
	if config.Wiki.ActionAPITemplate == "" {
		config.Wiki.ActionAPITemplate = "https://%s.wikipedia.org/w/api.php"
	}
	if config.Wiki.PageviewsBaseURL == "" {
		config.Wiki.PageviewsBaseURL = "https://wikimedia.org/api/rest_v1/metrics/pageviews/per-article"
	}
	if config.Wiki.LiftWingBaseURL == "" {
		config.Wiki.LiftWingBaseURL = "https://api.wikimedia.org/service/lw/inference/v1/models"
	}
	if config.Wiki.RequestTimeout == 0 {
		config.Wiki.RequestTimeout = 15 * time.Second
	}
	if config.Wiki.InferenceTimeout == 0 {
		config.Wiki.InferenceTimeout = 30 * time.Second
	}
	if config.Wiki.RetryAttempts == 0 {
		config.Wiki.RetryAttempts = 3
	}
	if config.Wiki.RetryInitialDelay == 0 {
		config.Wiki.RetryInitialDelay = 500 * time.Millisecond
	}
	if config.Wiki.RateLimit == 0 {
		config.Wiki.RateLimit = 10
	}
	if config.Wiki.RateBurst == 0 {
		config.Wiki.RateBurst = 5
	}

	// API defaults
	if config.API.Port == 0 {
		config.API.Port = 8200
	}
	if config.API.RateLimit == 0 {
		config.API.RateLimit = 100
	}
	if config.API.MaxTasks == 0 {
		config.API.MaxTasks = 200
	}
	if config.API.TaskTTL == 0 {
		config.API.TaskTTL = 2 * time.Hour
	}
	if config.API.MetricsPort == 0 {
		config.API.MetricsPort = 2114
	}

	// Logging defaults
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "json"
	}
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if port := os.Getenv("API_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.API.Port = p
		}
	}
	if ua := os.Getenv("WIKI_USER_AGENT"); ua != "" {
		config.Wiki.UserAgent = ua
	}
	if path := os.Getenv("BLACKLIST_PATH"); path != "" {
		config.Sources.BlacklistPath = path
	}
	if path := os.Getenv("SOCKPUPPET_PATH"); path != "" {
		config.Sources.SockpuppetPath = path
	}
	if lang := os.Getenv("DEFAULT_LANGUAGE"); lang != "" {
		config.Analysis.DefaultLanguage = lang
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Analysis.BatchSize <= 0 {
		return fmt.Errorf("analysis batch_size must be positive")
	}
	if config.Analysis.BaseWorkers <= 0 || config.Analysis.BaseWorkers > 256 {
		return fmt.Errorf("analysis base_workers must be in (0, 256]")
	}
	if len(config.Analysis.DefaultLanguage) < 2 {
		return fmt.Errorf("analysis default_language must be a wiki language code")
	}
	if config.Wiki.UserAgent == "" {
		return fmt.Errorf("wiki user_agent must not be empty")
	}
	if config.Wiki.RateLimit <= 0 {
		return fmt.Errorf("wiki rate_limit must be positive")
	}
	if config.API.Port <= 0 || config.API.Port > 65535 {
		return fmt.Errorf("api port must be a valid TCP port")
	}
	return nil
}
