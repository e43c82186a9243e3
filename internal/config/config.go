package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediachat/internal/models"
)

const defaultConfigFile = "config.json"

// Unknown-extension policies for asset uploads.
const (
	MIMEPolicyReject      = "reject"
	MIMEPolicyOctetStream = "octet-stream"
	MIMEPolicySniff       = "sniff"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Models      []models.ModelOption      `json:"models"`
	Modes       map[string]ModeConfig     `json:"modes"`
	Asset       AssetConfig               `json:"asset"`
	Scrape      ScrapeConfig              `json:"scrape"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	MaxUploadMB       int    `json:"max_upload_mb"`
	ContentTTLMinutes int    `json:"content_ttl_minutes"`
	MinWorkers        int    `json:"min_workers"`
	MaxWorkers        int    `json:"max_workers"`
	QueueSize         int    `json:"queue_size"`
	WorkerIdleSeconds int    `json:"worker_idle_seconds"`
	WorkerDebug       bool   `json:"worker_debug"`
}

type ProviderConfig struct {
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	MaxTokens int    `json:"max_tokens"`
}

// ModeConfig carries the per-mode request options.
// A zero TimeoutSeconds keeps the provider's default timeout.
type ModeConfig struct {
	TimeoutSeconds   int    `json:"timeout_seconds"`
	ResponseMIMEType string `json:"response_mime_type"`
}

type AssetConfig struct {
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	MaxPollAttempts     int    `json:"max_poll_attempts"`
	UnknownMIMEPolicy   string `json:"unknown_mime_policy"`
	RetentionMinutes    int    `json:"retention_minutes"`
	SweepSchedule       string `json:"sweep_schedule"`
}

type ScrapeConfig struct {
	TimeoutSeconds int    `json:"timeout_seconds"`
	UserAgent      string `json:"user_agent"`
	MaxBodyMB      int    `json:"max_body_mb"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the provided path (defaults to config.json).
// A missing default file is not an error; an explicitly named one is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = defaultConfigFile
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	var cfg Config
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if sqliteCfg, ok := cfg.Databases["sqlite3"]; ok && sqliteCfg.DSN != ":memory:" && !filepath.IsAbs(sqliteCfg.DSN) && !strings.HasPrefix(sqliteCfg.DSN, "file:") {
		sqliteCfg.DSN = filepath.Join(filepath.Dir(absPath), sqliteCfg.DSN)
		cfg.Databases["sqlite3"] = sqliteCfg
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = ":8090"
	}
	if c.BasicConfig.MaxUploadMB <= 0 {
		c.BasicConfig.MaxUploadMB = 200
	}
	if c.BasicConfig.ContentTTLMinutes <= 0 {
		c.BasicConfig.ContentTTLMinutes = 60
	}
	if c.BasicConfig.MinWorkers <= 0 {
		c.BasicConfig.MinWorkers = 2
	}
	if c.BasicConfig.MaxWorkers <= 0 {
		c.BasicConfig.MaxWorkers = 8
	}
	if c.BasicConfig.MaxWorkers < c.BasicConfig.MinWorkers {
		c.BasicConfig.MaxWorkers = c.BasicConfig.MinWorkers
	}
	if c.BasicConfig.QueueSize <= 0 {
		c.BasicConfig.QueueSize = 64
	}
	if c.BasicConfig.WorkerIdleSeconds <= 0 {
		c.BasicConfig.WorkerIdleSeconds = 60
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	if _, ok := c.Providers["gemini"]; !ok {
		c.Providers["gemini"] = ProviderConfig{}
	}
	if len(c.Models) == 0 {
		c.Models = []models.ModelOption{
			{Name: "gemini-1.5-flash", Provider: "gemini"},
			{Name: "gemini-1.5-pro", Provider: "gemini"},
		}
	}
	if c.Modes == nil {
		c.Modes = make(map[string]ModeConfig)
	}
	for mode, def := range defaultModes() {
		if _, ok := c.Modes[mode]; !ok {
			c.Modes[mode] = def
		}
	}
	if c.Asset.PollIntervalSeconds <= 0 {
		c.Asset.PollIntervalSeconds = 10
	}
	if c.Asset.MaxPollAttempts <= 0 {
		c.Asset.MaxPollAttempts = 90
	}
	if c.Asset.UnknownMIMEPolicy == "" {
		c.Asset.UnknownMIMEPolicy = MIMEPolicyReject
	}
	if c.Asset.RetentionMinutes <= 0 {
		c.Asset.RetentionMinutes = 120
	}
	if c.Asset.SweepSchedule == "" {
		c.Asset.SweepSchedule = "@every 30m"
	}
	if c.Scrape.TimeoutSeconds <= 0 {
		c.Scrape.TimeoutSeconds = 30
	}
	if c.Scrape.UserAgent == "" {
		c.Scrape.UserAgent = "mediachat/1.0"
	}
	if c.Scrape.MaxBodyMB <= 0 {
		c.Scrape.MaxBodyMB = 10
	}
	if c.Databases == nil {
		c.Databases = make(map[string]DatabaseConfig)
	}
	if _, ok := c.Databases["sqlite3"]; !ok {
		c.Databases["sqlite3"] = DatabaseConfig{DSN: "data/mediachat.db"}
	}
}

// defaultModes mirrors how each mode has always been called: text modes ask for
// plain text with the provider timeout, asset modes get a 600s request timeout.
func defaultModes() map[string]ModeConfig {
	return map[string]ModeConfig{
		string(models.MediaPDF):   {ResponseMIMEType: "text/plain"},
		string(models.MediaURL):   {ResponseMIMEType: "text/plain"},
		string(models.MediaImage): {TimeoutSeconds: 600},
		string(models.MediaVideo): {TimeoutSeconds: 600},
		string(models.MediaAudio): {TimeoutSeconds: 600},
	}
}

func (c *Config) applyEnv() {
	setKey := func(provider string, envs ...string) {
		for _, env := range envs {
			if v := strings.TrimSpace(os.Getenv(env)); v != "" {
				p := c.Providers[provider]
				p.APIKey = v
				c.Providers[provider] = p
				return
			}
		}
	}
	setKey("gemini", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	if _, ok := c.Providers["openai"]; ok {
		setKey("openai", "OPENAI_API_KEY")
	}
	if _, ok := c.Providers["claude"]; ok {
		setKey("claude", "ANTHROPIC_API_KEY")
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	for _, m := range c.Models {
		if strings.TrimSpace(m.Name) == "" {
			return errors.New("models: name must not be empty")
		}
		if _, ok := c.Providers[m.Provider]; !ok {
			return fmt.Errorf("models: %s uses unconfigured provider %q", m.Name, m.Provider)
		}
	}
	for mode, mc := range c.Modes {
		if _, err := models.ParseMediaType(mode); err != nil {
			return fmt.Errorf("modes: %w", err)
		}
		if mc.TimeoutSeconds < 0 {
			return fmt.Errorf("modes: %s timeout must not be negative", mode)
		}
	}
	switch c.Asset.UnknownMIMEPolicy {
	case MIMEPolicyReject, MIMEPolicyOctetStream, MIMEPolicySniff:
	default:
		return fmt.Errorf("asset: unknown_mime_policy %q not supported", c.Asset.UnknownMIMEPolicy)
	}
	return nil
}

// DefaultModel is the first catalog entry.
func (c *Config) DefaultModel() string {
	if len(c.Models) == 0 {
		return ""
	}
	return c.Models[0].Name
}

// Mode returns the request options for a media type.
func (c *Config) Mode(mt models.MediaType) ModeConfig {
	return c.Modes[string(mt)]
}

// Timeout converts the configured seconds to a duration.
func (m ModeConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

func (a AssetConfig) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalSeconds) * time.Second
}

func (a AssetConfig) Retention() time.Duration {
	return time.Duration(a.RetentionMinutes) * time.Minute
}

func (b BasicConfig) ContentTTL() time.Duration {
	return time.Duration(b.ContentTTLMinutes) * time.Minute
}

func (b BasicConfig) WorkerIdleTimeout() time.Duration {
	return time.Duration(b.WorkerIdleSeconds) * time.Second
}

func (b BasicConfig) MaxUploadBytes() int64 {
	return int64(b.MaxUploadMB) << 20
}
