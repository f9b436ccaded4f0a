package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Cache.Backend != "file" || c.Cache.TTL != 24*time.Hour {
		t.Errorf("cache defaults = %+v", c.Cache)
	}
	if c.Cache.Redis.ScanCount != 200 || c.Cache.MemoryCleanup != time.Minute {
		t.Errorf("cache tuning defaults = %+v", c.Cache)
	}
	if c.Analysis.MaxParallel != 4 || c.Analysis.ItemTimeout != 30*time.Second {
		t.Errorf("analysis defaults = %+v", c.Analysis)
	}
	if !c.Server.CORS || !c.RateLimit.Enabled {
		t.Error("bool defaults not applied")
	}
	if diff := cmp.Diff([]string{"*"}, c.Server.CORSOrigins); diff != "" {
		t.Errorf("cors origins (-want +got):\n%s", diff)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestParseExplicitValuesWin(t *testing.T) {
	yml := `
environment: prod
server:
  port: 9090
  cors: false
  cors_origins: [https://dash.example]
cache:
  backend: redis
  ttl: 2h
  redis:
    addr: cache:6379
ratelimit:
  enabled: false
scheduler:
  watchlist:
    - {market: us, symbol: AAPL, interval: 1d}
`
	c, err := Parse([]byte(yml))
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Port != 9090 || c.Server.CORS || c.RateLimit.Enabled {
		t.Errorf("explicit values overwritten: server=%+v ratelimit=%+v", c.Server, c.RateLimit)
	}
	if c.Cache.TTL != 2*time.Hour || c.Cache.Redis.Addr != "cache:6379" || c.Cache.Redis.Prefix != "stockresearch" {
		t.Errorf("cache = %+v", c.Cache)
	}
	if diff := cmp.Diff([]string{"https://dash.example"}, c.Server.CORSOrigins); diff != "" {
		t.Errorf("cors origins (-want +got):\n%s", diff)
	}
	want := []WatchItem{{Market: "us", Symbol: "AAPL", Interval: "1d"}}
	if diff := cmp.Diff(want, c.Scheduler.Watchlist); diff != "" {
		t.Errorf("watchlist (-want +got):\n%s", diff)
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatal(err)
	}
	env := map[string]string{
		"LOG_LEVEL":       "debug",
		"CACHE_BACKEND":   "memory",
		"KAFKA_BROKERS":   "k1:9092, k2:9092,",
		"CLICKHOUSE_HOST": "ch",
		"HTTP_PORT":       "8181",
		"CORS_ORIGINS":    "https://a.example,https://b.example",
	}
	if err := c.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatal(err)
	}
	if c.Log.Level != "debug" || c.Cache.Backend != "memory" || c.Server.Port != 8181 {
		t.Errorf("overrides not applied: %+v", c)
	}
	if diff := cmp.Diff([]string{"k1:9092", "k2:9092"}, c.Kafka.Brokers); diff != "" || !c.Kafka.Enabled {
		t.Errorf("kafka brokers (-want +got):\n%s", diff)
	}
	if !c.ClickHouse.Enabled || c.ClickHouse.Host != "ch" {
		t.Errorf("clickhouse = %+v", c.ClickHouse)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, c.Server.CORSOrigins); diff != "" {
		t.Errorf("cors origins (-want +got):\n%s", diff)
	}

	if err := c.ApplyEnv(func(k string) string {
		if k == "HTTP_PORT" {
			return "http"
		}
		return ""
	}); err == nil {
		t.Error("expected HTTP_PORT parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yml  string
		want string
	}{
		{"bad backend", "cache: {backend: s3}", "cache.backend"},
		{"kafka without brokers", "kafka: {enabled: true}", "kafka.brokers"},
		{"digest without kafka", "log: {digest: {enabled: true}}", "log.digest"},
		{"watchlist without clickhouse", "scheduler: {enabled: true, watchlist: [{market: us, symbol: A}]}", "requires clickhouse"},
		{"bad format", "log: {format: xml}", "log.format"},
		{"zero parallel", "analysis: {max_parallel: 0}", "max_parallel"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Parse([]byte(tc.yml))
			if err != nil {
				t.Fatal(err)
			}
			err = c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("environment: test\ncache: {backend: memory}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Cache.Backend != "memory" {
		t.Errorf("backend = %q", c.Cache.Backend)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("environment: test\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CACHE_DIR", filepath.Join(dir, "cache"))
	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Cache.Dir != filepath.Join(dir, "cache") {
		t.Errorf("dir = %q", c.Cache.Dir)
	}
}

func TestShippedConfigIsValid(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("config/config.yaml: %v", err)
	}
	if c.Kafka.Enabled || c.ClickHouse.Enabled {
		t.Error("shipped config should run without external services")
	}
}
