package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor JOBSIFT_CONFIG is set.
const DefaultPath = "config.yaml"

// EnvPath names the environment variable that overrides DefaultPath.
const EnvPath = "JOBSIFT_CONFIG"

// Config is the root configuration for jobsift.
type Config struct {
	Search       SearchConfig
	Sources      SourcesConfig
	Firecrawl    FirecrawlConfig
	Filters      FilterConfig
	Cache        CacheConfig
	RateLimit    RateLimitConfig
	Retry        RetryConfig
	AI           AIConfig
	Notification NotificationConfig
	Watch        WatchConfig
	Server       ServerConfig
}

// SearchConfig holds request defaults.
type SearchConfig struct {
	RecencyHours  int
	MaxResults    int
	Sequential    bool
	SourceTimeout time.Duration
}

// SourcesConfig enables and tunes each source.
type SourcesConfig struct {
	Crawler CrawlerConfig
	Search  WebSearchConfig
	Boards  BoardsConfig
	Sample  SampleConfig
}

// CrawlerConfig controls the LinkedIn guest search crawler.
type CrawlerConfig struct {
	Enabled bool
	Browser bool // try a headless browser before plain HTTP
}

// WebSearchConfig controls the web-search source.
type WebSearchConfig struct {
	Enabled           bool
	Endpoint          string
	MaxQueries        int
	RequestsPerSecond float64
	Burst             int
}

// BoardsConfig lists company career boards to search.
type BoardsConfig struct {
	Enabled   bool
	Companies []CompanyConfig
}

// CompanyConfig is one company's board on an applicant tracking system.
type CompanyConfig struct {
	Name  string `yaml:"name"`
	ATS   string `yaml:"ats"`   // greenhouse, lever or ashby
	Token string `yaml:"token"` // board token, or the company slug on lever
}

// SampleConfig controls generated sample postings.
type SampleConfig struct {
	Enabled  bool // register the generator as its own source
	Fallback bool // fill in for real sources that return nothing
	Seed     uint64
}

// FirecrawlConfig configures the optional scraping API.
type FirecrawlConfig struct {
	APIKey  string
	BaseURL string
}

// Configured reports whether an API key is present.
func (f FirecrawlConfig) Configured() bool { return f.APIKey != "" }

// FilterConfig holds keyword and location filter settings.
type FilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
	Locations            []string `yaml:"locations"`
	ExcludeLocations     []string `yaml:"exclude_locations"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// RateLimitConfig controls per-keyword and per-source pacing.
type RateLimitConfig struct {
	MinInterval    time.Duration // between two searches for the same keywords
	SourceInterval time.Duration // between two fetches from the same source, zero disables
}

// RetryConfig is the retry policy for outbound HTTP calls.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// AIConfig controls the optional LLM summaries.
type AIConfig struct {
	Enabled     bool
	BaseURL     string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Configured reports whether summaries can be requested.
func (a AIConfig) Configured() bool { return a.Enabled && a.APIKey != "" }

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// WatchConfig controls the watch loop.
type WatchConfig struct {
	Interval     time.Duration
	Gap          time.Duration
	StateDB      string
	Retention    time.Duration
	SeedSilently bool
	Summarize    bool
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// rawConfig is used for YAML unmarshaling (snake_case fields, durations as
// strings, pointers where an unset value must keep its default).
type rawConfig struct {
	Search struct {
		RecencyHours  int    `yaml:"recency_hours"`
		MaxResults    int    `yaml:"max_results"`
		Sequential    bool   `yaml:"sequential"`
		SourceTimeout string `yaml:"source_timeout"`
	} `yaml:"search"`
	Sources struct {
		Crawler struct {
			Enabled *bool `yaml:"enabled"`
			Browser *bool `yaml:"browser"`
		} `yaml:"crawler"`
		Search struct {
			Enabled           *bool   `yaml:"enabled"`
			Endpoint          string  `yaml:"endpoint"`
			MaxQueries        int     `yaml:"max_queries"`
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"search"`
		Boards struct {
			Enabled   *bool           `yaml:"enabled"`
			Companies []CompanyConfig `yaml:"companies"`
		} `yaml:"boards"`
		Sample struct {
			Enabled  bool   `yaml:"enabled"`
			Fallback *bool  `yaml:"fallback"`
			Seed     uint64 `yaml:"seed"`
		} `yaml:"sample"`
	} `yaml:"sources"`
	Firecrawl struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"firecrawl"`
	Filters FilterConfig `yaml:"filters"`
	Cache   struct {
		Enabled *bool  `yaml:"enabled"`
		TTL     string `yaml:"ttl"`
	} `yaml:"cache"`
	RateLimit struct {
		MinInterval    string `yaml:"min_interval"`
		SourceInterval string `yaml:"source_interval"`
	} `yaml:"rate_limit"`
	Retry struct {
		MaxRetries *int   `yaml:"max_retries"`
		BaseDelay  string `yaml:"base_delay"`
	} `yaml:"retry"`
	AI struct {
		Enabled     bool     `yaml:"enabled"`
		BaseURL     string   `yaml:"base_url"`
		Model       string   `yaml:"model"`
		APIKey      string   `yaml:"api_key"`
		MaxTokens   int      `yaml:"max_tokens"`
		Temperature *float32 `yaml:"temperature"`
		Timeout     string   `yaml:"timeout"`
	} `yaml:"ai"`
	Notification NotificationConfig `yaml:"notification"`
	Watch        struct {
		Interval     string `yaml:"interval"`
		Gap          string `yaml:"gap"`
		StateDB      string `yaml:"state_db"`
		Retention    string `yaml:"retention"`
		SeedSilently bool   `yaml:"seed_silently"`
		Summarize    bool   `yaml:"summarize"`
	} `yaml:"watch"`
	Server struct {
		Addr         string `yaml:"addr"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
}

// LoadDotEnv loads .env.local then .env into the process environment.
// Missing files are ignored; variables already set are never overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ResolvePath picks the config file: the flag value, then JOBSIFT_CONFIG,
// then DefaultPath. explicit is false only for the default, which may be absent.
func ResolvePath(flag string) (path string, explicit bool) {
	if flag != "" {
		return flag, true
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env, true
	}
	return DefaultPath, false
}

// Load reads and parses the YAML config file at path, applies defaults,
// validates it, and returns Config. A missing file is an error only when
// required is set; otherwise defaults are returned.
func Load(path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		data = nil
	}

	return Parse(data)
}

// Parse builds a Config from YAML bytes. Environment variables are expanded
// before parsing.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	var err error
	cfg := &Config{}

	cfg.Search = SearchConfig{
		RecencyHours: orInt(raw.Search.RecencyHours, 24),
		MaxResults:   orInt(raw.Search.MaxResults, 10),
		Sequential:   raw.Search.Sequential,
	}
	if cfg.Search.SourceTimeout, err = duration("search.source_timeout", raw.Search.SourceTimeout, 60*time.Second); err != nil {
		return nil, err
	}

	cfg.Sources = SourcesConfig{
		Crawler: CrawlerConfig{
			Enabled: orBool(raw.Sources.Crawler.Enabled, true),
			Browser: orBool(raw.Sources.Crawler.Browser, false),
		},
		Search: WebSearchConfig{
			Enabled:           orBool(raw.Sources.Search.Enabled, true),
			Endpoint:          raw.Sources.Search.Endpoint,
			MaxQueries:        orInt(raw.Sources.Search.MaxQueries, 5),
			RequestsPerSecond: raw.Sources.Search.RequestsPerSecond,
			Burst:             orInt(raw.Sources.Search.Burst, 1),
		},
		Boards: BoardsConfig{
			// On by default as soon as any company is listed.
			Enabled:   orBool(raw.Sources.Boards.Enabled, len(raw.Sources.Boards.Companies) > 0),
			Companies: raw.Sources.Boards.Companies,
		},
		Sample: SampleConfig{
			Enabled:  raw.Sources.Sample.Enabled,
			Fallback: orBool(raw.Sources.Sample.Fallback, true),
			Seed:     raw.Sources.Sample.Seed,
		},
	}
	if cfg.Sources.Search.RequestsPerSecond == 0 {
		cfg.Sources.Search.RequestsPerSecond = 1
	}

	cfg.Firecrawl = FirecrawlConfig{
		APIKey:  orString(raw.Firecrawl.APIKey, os.Getenv("FIRECRAWL_API_KEY")),
		BaseURL: raw.Firecrawl.BaseURL,
	}

	cfg.Filters = raw.Filters

	cfg.Cache.Enabled = orBool(raw.Cache.Enabled, true)
	if cfg.Cache.TTL, err = duration("cache.ttl", raw.Cache.TTL, 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.RateLimit.MinInterval, err = duration("rate_limit.min_interval", raw.RateLimit.MinInterval, 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimit.SourceInterval, err = duration("rate_limit.source_interval", raw.RateLimit.SourceInterval, 0); err != nil {
		return nil, err
	}

	cfg.Retry.MaxRetries = 2
	if raw.Retry.MaxRetries != nil {
		cfg.Retry.MaxRetries = *raw.Retry.MaxRetries
	}
	if cfg.Retry.BaseDelay, err = duration("retry.base_delay", raw.Retry.BaseDelay, time.Second); err != nil {
		return nil, err
	}

	cfg.AI = AIConfig{
		Enabled:     raw.AI.Enabled,
		BaseURL:     orString(raw.AI.BaseURL, "https://openrouter.ai/api/v1"),
		Model:       orString(raw.AI.Model, "openai/gpt-oss-20b:free"),
		APIKey:      orString(raw.AI.APIKey, os.Getenv("OPENROUTER_API_KEY")),
		MaxTokens:   orInt(raw.AI.MaxTokens, 150),
		Temperature: 0.7,
	}
	if raw.AI.Temperature != nil {
		cfg.AI.Temperature = *raw.AI.Temperature
	}
	if cfg.AI.Timeout, err = duration("ai.timeout", raw.AI.Timeout, 30*time.Second); err != nil {
		return nil, err
	}

	cfg.Notification = raw.Notification
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}

	cfg.Watch = WatchConfig{
		StateDB:      orString(raw.Watch.StateDB, ":memory:"),
		SeedSilently: raw.Watch.SeedSilently,
		Summarize:    raw.Watch.Summarize,
	}
	if cfg.Watch.Interval, err = duration("watch.interval", raw.Watch.Interval, 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.Watch.Gap, err = duration("watch.gap", raw.Watch.Gap, time.Second); err != nil {
		return nil, err
	}
	if cfg.Watch.Retention, err = duration("watch.retention", raw.Watch.Retention, 7*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.Server.Addr = orString(raw.Server.Addr, ":8080")
	if cfg.Server.ReadTimeout, err = duration("server.read_timeout", raw.Server.ReadTimeout, 10*time.Second); err != nil {
		return nil, err
	}
	// Searches can take a full source timeout.
	if cfg.Server.WriteTimeout, err = duration("server.write_timeout", raw.Server.WriteTimeout, 2*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Search.RecencyHours < 0 {
		return fmt.Errorf("search.recency_hours must not be negative, got %d", cfg.Search.RecencyHours)
	}
	if cfg.Search.MaxResults < 1 || cfg.Search.MaxResults > 100 {
		return fmt.Errorf("search.max_results must be between 1 and 100, got %d", cfg.Search.MaxResults)
	}
	if cfg.Search.SourceTimeout <= 0 {
		return fmt.Errorf("search.source_timeout must be positive, got %v", cfg.Search.SourceTimeout)
	}

	if !cfg.Sources.Crawler.Enabled && !cfg.Sources.Search.Enabled && !cfg.Sources.Boards.Enabled && !cfg.Sources.Sample.Enabled {
		return errors.New("at least one source must be enabled")
	}
	if cfg.Sources.Boards.Enabled {
		if len(cfg.Sources.Boards.Companies) == 0 {
			return errors.New("sources.boards.companies must list at least one company when boards are enabled")
		}
		for i, c := range cfg.Sources.Boards.Companies {
			if c.Name == "" || c.Token == "" {
				return fmt.Errorf("sources.boards.companies[%d]: name and token are required", i)
			}
			switch c.ATS {
			case "greenhouse", "lever", "ashby":
			default:
				return fmt.Errorf("sources.boards.companies[%d] (%s): ats must be greenhouse, lever or ashby, got %q", i, c.Name, c.ATS)
			}
		}
	}
	if cfg.Sources.Search.MaxQueries < 1 {
		return fmt.Errorf("sources.search.max_queries must be positive, got %d", cfg.Sources.Search.MaxQueries)
	}

	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %v", cfg.Cache.TTL)
	}
	if cfg.RateLimit.MinInterval < 0 || cfg.RateLimit.SourceInterval < 0 {
		return errors.New("rate_limit intervals must not be negative")
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
			return fmt.Errorf("ai.temperature must be between 0 and 2, got %v", cfg.AI.Temperature)
		}
	}

	if cfg.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %v", cfg.Watch.Interval)
	}

	return nil
}

func duration(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orBool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
