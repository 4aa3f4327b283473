// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port              int           `yaml:"port"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type StoreConfig struct {
	Backend   string        `yaml:"backend"` // redis | postgres
	TTL       time.Duration `yaml:"ttl"`     // record retention (redis only)
	KeyPrefix string        `yaml:"key_prefix"`
	QueueKey  string        `yaml:"queue_key"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type WorkerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Concurrency  int           `yaml:"concurrency"`
	IdleBackoff  time.Duration `yaml:"idle_backoff"`
	ErrorBackoff time.Duration `yaml:"error_backoff"`
	JobTimeout   time.Duration `yaml:"job_timeout"`
}

type AIConfig struct {
	Provider        string  `yaml:"provider"` // openai | gemini | static
	OpenAIKey       string  `yaml:"openai_key"`
	OpenAIBaseURL   string  `yaml:"openai_base_url"`
	GeminiKey       string  `yaml:"gemini_key"`
	GeminiURL       string  `yaml:"gemini_url"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	Streaming       bool    `yaml:"streaming"`
	ConcurrentLimit int     `yaml:"concurrent_limit"` // max concurrent generator calls
}

type SearchConfig struct {
	Provider   string        `yaml:"provider"` // tavily | static
	TavilyKey  string        `yaml:"tavily_key"`
	TavilyURL  string        `yaml:"tavily_url"`
	MaxResults int           `yaml:"max_results"`
	Timeout    time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"` // 0 disables
	Window   time.Duration `yaml:"window"`
}

type AdminConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type MetricsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	QueueInterval time.Duration `yaml:"queue_interval"` // queue depth sampling period
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Worker    WorkerConfig    `yaml:"worker"`
	AI        AIConfig        `yaml:"ai"`
	Search    SearchConfig    `yaml:"search"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Admin     AdminConfig     `yaml:"admin"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	return Config{
		HTTP:      HTTPConfig{Port: 8080, RequestTimeout: 15 * time.Second, ReadHeaderTimeout: 5 * time.Second},
		Log:       LogConfig{Level: "info", Format: "json"},
		Store:     StoreConfig{Backend: "redis", TTL: 24 * time.Hour, KeyPrefix: "chat", QueueKey: "chat:queue"},
		Database:  DatabaseConfig{MaxConns: 10},
		Worker:    WorkerConfig{Enabled: true, Concurrency: 1, IdleBackoff: time.Second, ErrorBackoff: 5 * time.Second, JobTimeout: 2 * time.Minute},
		AI:        AIConfig{Provider: "openai", Model: "gpt-4", Temperature: 0.7, Streaming: true, ConcurrentLimit: 4},
		Search:    SearchConfig{Provider: "tavily", TavilyURL: "https://api.tavily.com", MaxResults: 5, Timeout: 15 * time.Second},
		RateLimit: RateLimitConfig{Requests: 30, Window: time.Minute},
		Admin:     AdminConfig{TokenTTL: time.Hour},
		Metrics:   MetricsConfig{Enabled: true, Path: "/metrics", QueueInterval: 15 * time.Second},
	}
}

// LoadConfig reads the YAML file at path on top of Default, applies secret
// overrides from the environment and validates the result. In dev mode a
// missing file is tolerated and providers fall back to static ones; the
// job store still needs redis.url (or REDIS_URL).
func LoadConfig(path string, dev bool) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && dev:
		cfg.AI.Provider = "static"
		cfg.Search.Provider = "static"
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	normalize(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	override(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	override(&cfg.Search.TavilyKey, "TAVILY_API_KEY")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Admin.JWTSecret, "ADMIN_JWT_SECRET")
}

func normalize(cfg *Config) {
	def := Default()
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	cfg.Search.Provider = strings.ToLower(strings.TrimSpace(cfg.Search.Provider))

	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = def.Worker.Concurrency
	}
	if cfg.Worker.IdleBackoff <= 0 {
		cfg.Worker.IdleBackoff = def.Worker.IdleBackoff
	}
	if cfg.Worker.ErrorBackoff <= 0 {
		cfg.Worker.ErrorBackoff = def.Worker.ErrorBackoff
	}
	if cfg.Store.TTL < 0 {
		cfg.Store.TTL = 0
	}
	if cfg.Store.KeyPrefix == "" {
		cfg.Store.KeyPrefix = def.Store.KeyPrefix
	}
	if cfg.Store.QueueKey == "" {
		cfg.Store.QueueKey = cfg.Store.KeyPrefix + ":queue"
	}
	if cfg.Search.MaxResults <= 0 {
		cfg.Search.MaxResults = def.Search.MaxResults
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = def.AI.Model
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = def.Metrics.Path
	}
	if cfg.Metrics.QueueInterval <= 0 {
		cfg.Metrics.QueueInterval = def.Metrics.QueueInterval
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = def.Admin.TokenTTL
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for store.backend=redis")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for store.backend=postgres")
		}
	default:
		return fmt.Errorf("store.backend %q not supported", c.Store.Backend)
	}

	switch c.AI.Provider {
	case "openai":
		if c.AI.OpenAIKey == "" {
			return errors.New("ai.openai_key (or OPENAI_API_KEY) is required for ai.provider=openai")
		}
	case "gemini":
		if c.AI.GeminiKey == "" {
			return errors.New("ai.gemini_key (or GEMINI_API_KEY) is required for ai.provider=gemini")
		}
	case "static":
	default:
		return fmt.Errorf("ai.provider %q not supported", c.AI.Provider)
	}

	switch c.Search.Provider {
	case "tavily":
		if c.Search.TavilyKey == "" {
			return errors.New("search.tavily_key (or TAVILY_API_KEY) is required for search.provider=tavily")
		}
	case "static":
	default:
		return fmt.Errorf("search.provider %q not supported", c.Search.Provider)
	}

	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive when rate_limit.requests is set")
	}
	return nil
}
