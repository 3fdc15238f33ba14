package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the askweb service
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Search     SearchConfig     `mapstructure:"search"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Index      IndexConfig      `mapstructure:"index"`
	Session    SessionConfig    `mapstructure:"session"`
	Gate       GateConfig       `mapstructure:"gate"`
	Generation GenerationConfig `mapstructure:"generation"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug   bool   `mapstructure:"debug"`
	LogFile string `mapstructure:"log_file"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.Address) == "" {
		return fmt.Errorf("server.address required")
	}
	if s.RequestTimeout < 0 {
		return fmt.Errorf("server.request_timeout cannot be negative")
	}
	return nil
}

// LLMConfig configures the OpenAI-compatible completion and embedding endpoint.
// Groq, OpenAI and local gateways all speak the same wire format, only BaseURL differs.
type LLMConfig struct {
	Provider        string  `mapstructure:"provider"`
	APIKey          string  `mapstructure:"api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	CompletionModel string  `mapstructure:"completion_model"`
	EmbeddingModel  string  `mapstructure:"embedding_model"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	TopP            float64 `mapstructure:"top_p"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.Provider) == "" {
		return fmt.Errorf("llm.provider required")
	}
	if strings.TrimSpace(l.CompletionModel) == "" {
		return fmt.Errorf("llm.completion_model required")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	if l.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be > 0")
	}
	return nil
}

// SearchConfig contains web search settings
type SearchConfig struct {
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	CSEID      string        `mapstructure:"cse_id"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (s SearchConfig) Validate() error {
	switch s.Provider {
	case "serper", "brave":
	case "google":
		if strings.TrimSpace(s.CSEID) == "" {
			return fmt.Errorf("search.cse_id required for the google provider")
		}
	default:
		return fmt.Errorf("search.provider %q not supported", s.Provider)
	}
	if s.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0")
	}
	return nil
}

// FetchConfig controls page scraping.
type FetchConfig struct {
	Driver    string        `mapstructure:"driver"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxChars  int           `mapstructure:"max_chars"`
	Workers   int           `mapstructure:"workers"`
	UserAgent string        `mapstructure:"user_agent"`

	Policy CrawlPolicyConfig `mapstructure:"policy"`
}

func (f FetchConfig) Validate() error {
	switch f.Driver {
	case "chromedp", "static":
	default:
		return fmt.Errorf("fetch.driver %q not supported", f.Driver)
	}
	if f.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be > 0")
	}
	return f.Policy.Validate()
}

// CacheConfig selects the scraped page cache.
type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
}

func (c CacheConfig) Validate() error {
	switch c.Driver {
	case "none", "memory", "redis":
		return nil
	}
	return fmt.Errorf("cache.driver %q not supported", c.Driver)
}

// StorageConfig contains storage settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

// IndexConfig controls chunking and the per-session retrieval index.
type IndexConfig struct {
	ChunkSize    int           `mapstructure:"chunk_size"`
	ChunkOverlap int           `mapstructure:"chunk_overlap"`
	Embedding    string        `mapstructure:"embedding"`
	ProbeK       int           `mapstructure:"probe_k"`
	ContextK     int           `mapstructure:"context_k"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

func (i IndexConfig) Validate() error {
	if i.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be > 0")
	}
	if i.ChunkOverlap < 0 || i.ChunkOverlap >= i.ChunkSize {
		return fmt.Errorf("index.chunk_overlap must be within [0, chunk_size)")
	}
	switch i.Embedding {
	case "none", "tfidf", "provider":
	default:
		return fmt.Errorf("index.embedding %q not supported", i.Embedding)
	}
	if i.ProbeK <= 0 || i.ContextK <= 0 {
		return fmt.Errorf("index.probe_k and index.context_k must be > 0")
	}
	return nil
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	MaxSessions   int           `mapstructure:"max_sessions"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

func (s SessionConfig) Validate() error {
	if s.TTL < 0 {
		return fmt.Errorf("session.ttl cannot be negative")
	}
	if s.MaxSessions < 0 {
		return fmt.Errorf("session.max_sessions cannot be negative")
	}
	return nil
}

// GateConfig controls the topic relevance check.
type GateConfig struct {
	OnFailure     string        `mapstructure:"on_failure"`
	MinSimilarity float64       `mapstructure:"min_similarity"`
	ContextChars  int           `mapstructure:"context_chars"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

func (g GateConfig) Validate() error {
	switch g.OnFailure {
	case "assume_relevant", "assume_irrelevant":
	default:
		return fmt.Errorf("gate.on_failure %q not supported", g.OnFailure)
	}
	if g.MinSimilarity < 0 || g.MinSimilarity > 1 {
		return fmt.Errorf("gate.min_similarity must be within [0, 1]")
	}
	return nil
}

// GenerationConfig controls answer generation.
type GenerationConfig struct {
	OnFailure string        `mapstructure:"on_failure"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func (g GenerationConfig) Validate() error {
	switch g.OnFailure {
	case "return_error_text", "abort":
		return nil
	}
	return fmt.Errorf("generation.on_failure %q not supported", g.OnFailure)
}

// TelemetryConfig contains monitoring settings
type TelemetryConfig struct {
	MetricsEnabled bool    `mapstructure:"metrics_enabled"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

func (t TelemetryConfig) Validate() error {
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}
	if t.TracingEnabled && strings.TrimSpace(t.OTLPEndpoint) == "" {
		return fmt.Errorf("telemetry.otlp_endpoint required when tracing is enabled")
	}
	return nil
}

// Normalize fills values that have a sane zero-value fallback.
func (c *Config) Normalize() {
	c.Search.Provider = strings.ToLower(strings.TrimSpace(c.Search.Provider))
	c.Fetch.Driver = strings.ToLower(strings.TrimSpace(c.Fetch.Driver))
	c.Cache.Driver = strings.ToLower(strings.TrimSpace(c.Cache.Driver))
	c.Index.Embedding = strings.ToLower(strings.TrimSpace(c.Index.Embedding))
	c.Fetch.Policy = c.Fetch.Policy.Normalize()
	if c.Server.Address != "" && !strings.Contains(c.Server.Address, ":") {
		c.Server.Address = ":" + c.Server.Address
	}
	if len(c.Server.AllowOrigins) == 0 {
		c.Server.AllowOrigins = []string{"*"}
	}
	if c.Gate.ContextChars <= 0 {
		c.Gate.ContextChars = 500
	}
	if c.Storage.Redis.Timeout <= 0 {
		c.Storage.Redis.Timeout = 5 * time.Second
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	validators := []func() error{
		c.Server.Validate,
		c.LLM.Validate,
		c.Search.Validate,
		c.Fetch.Validate,
		c.Cache.Validate,
		c.Index.Validate,
		c.Session.Validate,
		c.Gate.Validate,
		c.Generation.Validate,
		c.Telemetry.Validate,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	if c.Cache.Driver == "redis" {
		if err := c.Storage.Redis.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.request_timeout", 2*time.Minute)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.completion_model", "llama3-8b-8192")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.top_p", 1.0)

	v.SetDefault("search.provider", "serper")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.timeout", 15*time.Second)

	v.SetDefault("fetch.driver", "chromedp")
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.max_chars", 20000)
	v.SetDefault("fetch.workers", 4)
	v.SetDefault("fetch.user_agent", "askweb/1.0 (+https://github.com/mohammad-safakhou/askweb)")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", 30*time.Minute)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 5*time.Second)

	v.SetDefault("index.chunk_size", 1000)
	v.SetDefault("index.chunk_overlap", 200)
	v.SetDefault("index.embedding", "tfidf")
	v.SetDefault("index.probe_k", 3)
	v.SetDefault("index.context_k", 1)
	v.SetDefault("index.timeout", 30*time.Second)

	v.SetDefault("session.ttl", 2*time.Hour)
	v.SetDefault("session.max_sessions", 1000)
	v.SetDefault("session.sweep_schedule", "* * * * *")

	v.SetDefault("gate.on_failure", "assume_relevant")
	v.SetDefault("gate.min_similarity", 0.0)
	v.SetDefault("gate.context_chars", 500)
	v.SetDefault("gate.temperature", 0.1)
	v.SetDefault("gate.max_tokens", 10)
	v.SetDefault("gate.timeout", 10*time.Second)

	v.SetDefault("generation.on_failure", "return_error_text")
	v.SetDefault("generation.timeout", 60*time.Second)

	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// provider keys read from the conventional variable names when the prefixed ones are absent
var envFallbacks = map[string][]string{
	"llm.api_key":    {"GROQ_API_KEY", "OPENAI_API_KEY"},
	"search.api_key": {"SERPER_API_KEY", "BRAVE_API_KEY", "GOOGLE_API_KEY"},
	"search.cse_id":  {"GOOGLE_CSE_ID"},
}

// Load reads configuration from path (or the default search locations when empty),
// the environment (ASKWEB_*), and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("askweb")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("ASKWEB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envFallbacks {
		_ = v.BindEnv(append([]string{key, "ASKWEB_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)...)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig is Load for entrypoints that cannot continue without configuration.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return cfg
}
