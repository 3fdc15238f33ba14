package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.ChunkSize != 1000 || cfg.Index.ChunkOverlap != 200 {
		t.Fatalf("unexpected chunk policy: %+v", cfg.Index)
	}
	if cfg.Index.ProbeK != 3 || cfg.Index.ContextK != 1 {
		t.Fatalf("unexpected k values: %+v", cfg.Index)
	}
	if cfg.Gate.OnFailure != "assume_relevant" || cfg.Generation.OnFailure != "return_error_text" {
		t.Fatalf("unexpected failure policies: gate=%s generation=%s", cfg.Gate.OnFailure, cfg.Generation.OnFailure)
	}
	if cfg.Gate.ContextChars != 500 || cfg.Gate.MaxTokens != 10 {
		t.Fatalf("unexpected gate config: %+v", cfg.Gate)
	}
	if cfg.Session.TTL != 2*time.Hour || cfg.Session.MaxSessions != 1000 {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if len(cfg.Server.AllowOrigins) != 1 || cfg.Server.AllowOrigins[0] != "*" {
		t.Fatalf("unexpected allow origins: %v", cfg.Server.AllowOrigins)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ASKWEB_SEARCH_PROVIDER", "brave")
	t.Setenv("ASKWEB_FETCH_WORKERS", "8")
	t.Setenv("ASKWEB_SESSION_TTL", "15m")
	t.Setenv("ASKWEB_LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.Provider != "brave" {
		t.Fatalf("expected brave provider, got %s", cfg.Search.Provider)
	}
	if cfg.Fetch.Workers != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.Fetch.Workers)
	}
	if cfg.Session.TTL != 15*time.Minute {
		t.Fatalf("expected 15m ttl, got %s", cfg.Session.TTL)
	}
	if cfg.LLM.APIKey != "gsk-test" {
		t.Fatalf("expected api key from GROQ_API_KEY, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "askweb.yaml")
	body := `
server:
  address: "8081"
search:
  provider: google
  cse_id: abc123
index:
  embedding: none
cache:
  driver: none
fetch:
  policy:
    disallow: ["WWW.Pinterest.com"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":8081" {
		t.Fatalf("address not normalized: %q", cfg.Server.Address)
	}
	if cfg.Search.Provider != "google" || cfg.Search.CSEID != "abc123" {
		t.Fatalf("unexpected search config: %+v", cfg.Search)
	}
	if len(cfg.Fetch.Policy.Disallow) != 1 || cfg.Fetch.Policy.Disallow[0] != "pinterest.com" {
		t.Fatalf("crawl policy not normalized: %+v", cfg.Fetch.Policy)
	}
	if cfg.Index.Embedding != "none" || cfg.Cache.Driver != "none" {
		t.Fatalf("file values not applied: index=%s cache=%s", cfg.Index.Embedding, cfg.Cache.Driver)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"overlap too big", func(c *Config) { c.Index.ChunkOverlap = c.Index.ChunkSize }, "index.chunk_overlap"},
		{"unknown provider", func(c *Config) { c.Search.Provider = "bing" }, "search.provider"},
		{"google without cse", func(c *Config) { c.Search.Provider = "google"; c.Search.CSEID = "" }, "search.cse_id"},
		{"unknown gate policy", func(c *Config) { c.Gate.OnFailure = "panic" }, "gate.on_failure"},
		{"unknown generation policy", func(c *Config) { c.Generation.OnFailure = "retry" }, "generation.on_failure"},
		{"similarity out of range", func(c *Config) { c.Gate.MinSimilarity = 1.5 }, "gate.min_similarity"},
		{"redis without host", func(c *Config) { c.Cache.Driver = "redis"; c.Storage.Redis.Host = "" }, "storage.redis.host"},
		{"negative ttl", func(c *Config) { c.Session.TTL = -time.Second }, "session.ttl"},
		{"zero workers", func(c *Config) { c.Fetch.Workers = 0 }, "fetch.workers"},
		{"sample ratio", func(c *Config) { c.Telemetry.SampleRatio = 2 }, "telemetry.sample_ratio"},
		{"policy conflict", func(c *Config) {
			c.Fetch.Policy = CrawlPolicyConfig{Allow: []string{"a.com"}, Disallow: []string{"a.com"}}
		}, "fetch.policy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tc.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}
