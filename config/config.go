package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stefanbuck/random-k8s/scheduler"
	"github.com/stefanbuck/random-k8s/selector"
	"github.com/stefanbuck/random-k8s/tweet"
)

// Config holds all application configuration.
type Config struct {
	Sitemap           string   `yaml:"sitemap"`
	GlossaryPath      string   `yaml:"glossary_path"`
	Allow             []string `yaml:"allow"`
	Ignore            []string `yaml:"ignore"`
	Hashtag           string   `yaml:"hashtag"`
	TitlePrefix       string   `yaml:"title_prefix"`
	MaxTitleLength    int      `yaml:"max_title_length"`
	Rules             []string `yaml:"rules"`
	MaxWeightedLength int      `yaml:"max_weighted_length"`
	URLLength         int      `yaml:"url_length"`
	RetryLimit        int      `yaml:"retry_limit"`
	FetchTimeoutSecs  int      `yaml:"fetch_timeout_secs"`
	RecencyDays       int      `yaml:"recency_days"`
	DBPath            string   `yaml:"db_path"`
	Schedule          string   `yaml:"schedule"`
	Timezone          string   `yaml:"timezone"`
	LogLevel          string   `yaml:"log_level"`
	DryRun            bool     `yaml:"dry_run"`
	Twitter           Twitter  `yaml:"twitter"`
	Telegram          Telegram `yaml:"telegram"`
}

// Twitter configures the primary sender.
type Twitter struct {
	BearerToken string `yaml:"bearer_token"`
	BaseURL     string `yaml:"base_url"`
}

// Telegram configures the optional mirror channel.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// DefaultAllow is the curated set of documentation sections worth posting.
var DefaultAllow = []string{
	"https://kubernetes.io/docs/concepts/*",
	"https://kubernetes.io/docs/reference/*",
	"https://kubernetes.io/docs/tasks/*",
	"https://kubernetes.io/docs/concepts/containers/",
	"https://kubernetes.io/docs/concepts/extend-kubernetes/",
	"https://kubernetes.io/docs/concepts/scheduling-eviction/",
	"https://kubernetes.io/docs/concepts/services-networking/",
	"https://kubernetes.io/docs/concepts/workloads/",
	"https://kubernetes.io/docs/concepts/workloads/pods/",
	"https://kubernetes.io/docs/reference/setup-tools/kubeadm/",
}

// DefaultIgnore excludes pages that make poor posts.
var DefaultIgnore = []string{
	"https://kubernetes.io/docs/tasks/tools/*",
}

// LoadOption adjusts a loaded configuration before it is validated.
type LoadOption func(*Config)

// WithDryRun forces dry-run mode regardless of the file contents.
func WithDryRun() LoadOption {
	return func(c *Config) {
		c.DryRun = true
	}
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string, opts ...LoadOption) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("RANDOM_K8S_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

// SelectorRules returns the allow and ignore patterns.
func (c *Config) SelectorRules() selector.Rules {
	return selector.Rules{Allow: c.Allow, Ignore: c.Ignore}
}

// FetchTimeout returns the page fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// RecencyWindow returns how long a posted URL is skipped.
func (c *Config) RecencyWindow() time.Duration {
	return time.Duration(c.RecencyDays) * 24 * time.Hour
}

func applyDefaults(cfg *Config) {
	if cfg.Sitemap == "" {
		cfg.Sitemap = "./sitemap.xml"
	}
	if len(cfg.Allow) == 0 {
		cfg.Allow = DefaultAllow
	}
	if cfg.Ignore == nil {
		cfg.Ignore = DefaultIgnore
	}
	if cfg.Hashtag == "" {
		cfg.Hashtag = tweet.DefaultHashtag
	}
	if cfg.TitlePrefix == "" {
		cfg.TitlePrefix = "Random K8s"
	}
	if cfg.MaxTitleLength == 0 {
		cfg.MaxTitleLength = 40
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = tweet.DefaultRuleNames
	}
	if cfg.MaxWeightedLength == 0 {
		cfg.MaxWeightedLength = 280
	}
	if cfg.URLLength == 0 {
		cfg.URLLength = tweet.DefaultURLLength
	}
	if cfg.RetryLimit == 0 {
		cfg.RetryLimit = 10
	}
	if cfg.FetchTimeoutSecs == 0 {
		cfg.FetchTimeoutSecs = 10
	}
	if cfg.RecencyDays == 0 {
		cfg.RecencyDays = 30
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./random-k8s.db"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if dbPath := os.Getenv("RANDOM_K8S_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if token := os.Getenv("TWITTER_BEARER_TOKEN"); token != "" {
		cfg.Twitter.BearerToken = token
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
}

func validate(cfg *Config) error {
	if !cfg.DryRun && cfg.Twitter.BearerToken == "" {
		return fmt.Errorf("twitter.bearer_token is required unless dry_run is set")
	}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram.token is set")
	}
	if _, err := tweet.RulesByName(cfg.Rules); err != nil {
		return err
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"retry_limit", cfg.RetryLimit},
		{"max_title_length", cfg.MaxTitleLength},
		{"max_weighted_length", cfg.MaxWeightedLength},
		{"url_length", cfg.URLLength},
		{"recency_days", cfg.RecencyDays},
		{"fetch_timeout_secs", cfg.FetchTimeoutSecs},
	} {
		if f.value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", f.name, f.value)
		}
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.Schedule != "" {
		if _, err := scheduler.ParseSpec(cfg.Schedule); err != nil {
			return fmt.Errorf("invalid schedule: %w", err)
		}
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	return nil
}
