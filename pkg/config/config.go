package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	Output     string `yaml:"output" default:"stdout"`
	TimeFormat string `yaml:"time_format" default:"2006-01-02T15:04:05.000Z07:00"`
	Digest     struct {
		Enabled   bool          `yaml:"enabled"`
		Topic     string        `yaml:"topic" default:"analysis.log-digest"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100"`
	} `yaml:"digest"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
	CORS            bool          `yaml:"cors" default:"true"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" default:"file"`
	Dir           string        `yaml:"dir" default:"data/cache"`
	TTL           time.Duration `yaml:"ttl" default:"24h"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"10000"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" default:"5m"`
	MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"1m"`
	Redis         struct {
		Addr      string `yaml:"addr" default:"localhost:6379"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		Prefix    string `yaml:"prefix" default:"stockresearch"`
		PoolSize  int    `yaml:"pool_size" default:"10"`
		ScanCount int64  `yaml:"scan_count" default:"200"`
	} `yaml:"redis"`
}

type AnalysisConfig struct {
	MaxParallel    int           `yaml:"max_parallel" default:"4"`
	ItemTimeout    time.Duration `yaml:"item_timeout" default:"30s"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"60s"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	RequestTopic string   `yaml:"request_topic" default:"analysis.requests"`
	ResultTopic  string   `yaml:"result_topic" default:"analysis.results"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"snappy"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		Linger       time.Duration `yaml:"linger" default:"10ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"stockresearch"`
		Workers    int           `yaml:"workers" default:"4"`
		BufferSize int           `yaml:"buffer_size" default:"256"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"analysis.requests.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"market"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
	MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
	EnsureSchema     bool          `yaml:"ensure_schema"`
}

type WatchItem struct {
	Market   string `yaml:"market"`
	Symbol   string `yaml:"symbol"`
	Interval string `yaml:"interval"`
}

type SchedulerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	PurgeCron   string        `yaml:"purge_cron" default:"0 0 * * * *"`
	RefreshCron string        `yaml:"refresh_cron" default:"0 */15 * * * *"`
	SweepCron   string        `yaml:"sweep_cron" default:"0 */5 * * * *"`
	JobTimeout  time.Duration `yaml:"job_timeout" default:"5m"`
	Candles     int           `yaml:"candles" default:"250"`
	Watchlist   []WatchItem   `yaml:"watchlist"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	RPS     float64 `yaml:"rps" default:"10"`
	Burst   int     `yaml:"burst" default:"20"`
}

type Config struct {
	Environment string       `yaml:"environment" default:"development"`
	Log         LogConfig    `yaml:"log"`
	Server      ServerConfig `yaml:"server"`
	Metrics     struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Cache      CacheConfig      `yaml:"cache"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
}

// Load reads and parses a YAML configuration file and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse fills defaults, then decodes YAML over them without validating.
// Keys present in the YAML win, including explicit false and zero values.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads a .env file next to the process (a missing file is
// fine), then the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be 'json' or 'console', got '%s'", c.Log.Format)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	switch c.Cache.Backend {
	case "file":
		if c.Cache.Dir == "" {
			return fmt.Errorf("cache.dir is required for the file backend")
		}
	case "memory":
	case "redis", "layered":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the %s backend", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("cache.backend must be one of file, memory, redis, layered, got '%s'", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}

	if c.Analysis.MaxParallel < 1 {
		return fmt.Errorf("analysis.max_parallel must be at least 1")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.RequestTopic == "" || c.Kafka.ResultTopic == "" {
			return fmt.Errorf("kafka.request_topic and kafka.result_topic are required")
		}
	}
	if c.Log.Digest.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.digest requires kafka")
	}

	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}

	if c.Scheduler.Enabled {
		if len(c.Scheduler.Watchlist) > 0 && !c.ClickHouse.Enabled {
			return fmt.Errorf("scheduler.watchlist requires clickhouse")
		}
		for i, w := range c.Scheduler.Watchlist {
			if w.Market == "" || w.Symbol == "" {
				return fmt.Errorf("scheduler.watchlist[%d]: market and symbol are required", i)
			}
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must be positive")
	}
	return nil
}
