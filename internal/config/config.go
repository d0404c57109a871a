// Package config builds the explicit configuration struct the services are
// wired from. It is read once at start-up; nothing else reads the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Store     StoreConfig     `mapstructure:"store"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Notion    NotionConfig    `mapstructure:"notion"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LLMConfig configures the completion service.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects the data store. An empty Driver means no store is configured.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	URL       string `mapstructure:"url"`
	ProjectID string `mapstructure:"project_id"`
	Dataset   string `mapstructure:"dataset"`
}

// Configured reports whether a store backend was selected.
func (s StoreConfig) Configured() bool {
	return s.Driver != ""
}

type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	JWTPublicKey string `mapstructure:"jwt_public_key"`
	Issuer       string `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	ChatPerMinute int `mapstructure:"chat_per_minute"`
}

type DashboardConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
}

// Enabled reports whether Notion export is configured.
func (n NotionConfig) Enabled() bool {
	return n.Token != "" && n.DatabaseID != ""
}

type ArchiveConfig struct {
	Bucket string `mapstructure:"bucket"`
}

type JobsConfig struct {
	Buffer  int `mapstructure:"buffer"`
	Workers int `mapstructure:"workers"`
}

// envAliases binds the conventional bare variable names next to the prefixed ones.
var envAliases = map[string][]string{
	"llm.api_key":        {"FINANCE_LLM_API_KEY", "GROQ_API_KEY", "GEMINI_API_KEY"},
	"store.url":          {"FINANCE_STORE_URL", "DATABASE_URL"},
	"auth.jwt_secret":    {"FINANCE_AUTH_JWT_SECRET", "AUTH_JWT_SECRET"},
	"notion.token":       {"FINANCE_NOTION_TOKEN", "NOTION_TOKEN"},
	"notion.database_id": {"FINANCE_NOTION_DATABASE_ID", "NOTION_DATABASE_ID"},
	"archive.bucket":     {"FINANCE_ARCHIVE_BUCKET", "GCS_BUCKET"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("store.driver", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.project_id", "")
	v.SetDefault("store.dataset", "finance")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_public_key", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("ratelimit.chat_per_minute", 30)
	v.SetDefault("dashboard.cache_ttl", 5*time.Minute)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("jobs.buffer", 100)
	v.SetDefault("jobs.workers", 2)
}

// Load reads configuration from the optional file at path and the environment.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied viper instance, so CLI flags can be bound first.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("FINANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that can never work. Missing credentials are not
// errors here: they degrade individual features at runtime.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LLM.Provider) {
	case "groq", "gemini":
	default:
		errs = append(errs, fmt.Errorf("config: unsupported llm.provider %q", c.LLM.Provider))
	}

	switch c.Store.Driver {
	case "":
	case "postgres", "sqlite":
		if c.Store.URL == "" {
			errs = append(errs, fmt.Errorf("config: store.url is required for driver %q", c.Store.Driver))
		}
	case "bigquery":
		if c.Store.ProjectID == "" {
			errs = append(errs, errors.New("config: store.project_id is required for driver bigquery"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("config: unsupported store.driver %q", c.Store.Driver))
	}

	if c.Jobs.Workers < 0 || c.Jobs.Buffer < 0 {
		errs = append(errs, errors.New("config: jobs.workers and jobs.buffer must not be negative"))
	}

	return errors.Join(errs...)
}

// Redacted reports which secrets are present without exposing them.
func (c *Config) Redacted() map[string]string {
	state := func(s string) string {
		if s == "" {
			return "MISSING"
		}
		return "SET"
	}
	return map[string]string{
		"llm.api_key":     state(c.LLM.APIKey),
		"store.url":       state(c.Store.URL),
		"auth.jwt_secret": state(c.Auth.JWTSecret),
		"notion.token":    state(c.Notion.Token),
	}
}
