package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"StockResearch/internal/domain/repository"
	"StockResearch/internal/handler/api"
	internalrepo "StockResearch/internal/repository"
	"StockResearch/internal/scheduler"
	icache "StockResearch/internal/service/cache"
	"StockResearch/internal/service/ratelimit"
	"StockResearch/internal/usecase"
	"StockResearch/pkg/cache"
	pkgch "StockResearch/pkg/clickhouse"
	"StockResearch/pkg/config"
	xhttp "StockResearch/pkg/http"
	pkgkafka "StockResearch/pkg/kafka"
	applogger "StockResearch/pkg/logger"
	"StockResearch/pkg/metrics"
	"StockResearch/pkg/server"

	emw "github.com/labstack/echo/v4/middleware"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideCacheStore builds the indicator cache backend selected by cache.backend.
func ProvideCacheStore(cfg *config.Config) (cache.Service, error) {
	c := cfg.Cache
	switch c.Backend {
	case "memory":
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(c.MemoryMaxSize),
			cache.WithMemoryCleanup(c.MemoryCleanup),
		), nil
	case "redis", "layered":
		rc, err := newRedisCache(c)
		if err != nil {
			return nil, err
		}
		if c.Backend == "redis" {
			return rc, nil
		}
		return cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(c.MemoryMaxSize),
			cache.WithLayeredMemoryTTL(c.MemoryTTL),
		), nil
	default:
		fc, err := cache.NewFileCache(cache.WithFileDir(c.Dir))
		if err != nil {
			return nil, fmt.Errorf("file cache: %w", err)
		}
		return fc, nil
	}
}

func newRedisCache(c config.CacheConfig) (*cache.RedisCache, error) {
	host, portStr, err := net.SplitHostPort(c.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("cache.redis.addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("cache.redis.addr port: %w", err)
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(c.Redis.Password),
		cache.WithRedisDB(c.Redis.DB),
		cache.WithRedisPool(c.Redis.PoolSize, c.Redis.PoolSize/2, 30*time.Second),
		cache.WithRedisPrefix(c.Redis.Prefix),
		cache.WithRedisScanCount(c.Redis.ScanCount),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideIndicatorCache wraps the store with fingerprint/TTL invalidation.
func ProvideIndicatorCache(store cache.Service, cfg *config.Config, l *applogger.Logger, m repository.Metrics) *icache.IndicatorCache {
	return icache.NewIndicatorCache(store,
		icache.WithTTL(cfg.Cache.TTL),
		icache.WithLogger(l.With(applogger.String("component", "indicator_cache"))),
		icache.WithMetrics(m),
	)
}

// ProvideOrchestrator registers the default analyzers over the indicator cache.
func ProvideOrchestrator(ic *icache.IndicatorCache, cfg *config.Config, l *applogger.Logger, m repository.Metrics) *usecase.Orchestrator {
	return usecase.NewOrchestrator(ic,
		usecase.WithLogger(l.With(applogger.String("component", "orchestrator"))),
		usecase.WithMetrics(m),
		usecase.WithMaxParallel(cfg.Analysis.MaxParallel),
		usecase.WithItemTimeout(cfg.Analysis.ItemTimeout),
	)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if cfg.ClickHouse.EnsureSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, pkgch.CandleSchema(client.Database())); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return client, nil
}

// ProvideCandleStore returns nil when ClickHouse is disabled.
func ProvideCandleStore(ch *pkgch.Client, l *applogger.Logger) repository.CandleStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHCandleStore(ch, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideResultPublisher returns nil when Kafka is disabled.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger, m repository.Metrics) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultTopic, l, m)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l.With(applogger.String("component", "kafka_consumer"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideAnalysisRequestHandler handles the request topic; nil when Kafka is disabled.
func ProvideAnalysisRequestHandler(cfg *config.Config, orch *usecase.Orchestrator, pub repository.ResultPublisher, m repository.Metrics, l *applogger.Logger) *usecase.AnalysisRequestHandler {
	if !cfg.Kafka.Enabled || pub == nil {
		return nil
	}
	h := usecase.NewAnalysisRequestHandler(cfg.Kafka.RequestTopic, orch, pub, m, l)
	h.SetTimeout(cfg.Analysis.RequestTimeout)
	return h
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideAnalysisHandler creates the /api handler.
func ProvideAnalysisHandler(
	cfg *config.Config,
	l *applogger.Logger,
	orch *usecase.Orchestrator,
	ic *icache.IndicatorCache,
	store repository.CandleStore,
	limiter *ratelimit.Limiter,
) *api.AnalysisEchoHandler {
	opts := []api.HandlerOption{api.WithRequestTimeout(cfg.Analysis.RequestTimeout)}
	if store != nil {
		opts = append(opts, api.WithCandleStore(store))
	}
	if limiter != nil {
		opts = append(opts, api.WithGroupMiddleware(limiter.Middleware()))
	}
	return api.NewAnalysisEchoHandler(l, orch, ic, opts...)
}

// ProvideHTTPServer creates the echo server with the API routes mounted.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.AnalysisEchoHandler, ch *pkgch.Client) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS, cfg.Server.CORSOrigins...),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithLogger(l.With(applogger.String("component", "http"))),
		xhttp.WithMiddleware(emw.BodyLimit("32M")),
	}
	if ch != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", ch.Health))
	}
	return xhttp.NewServer([]xhttp.Handler{h}, opts...)
}

// ProvideScheduler registers cron jobs; nil when the scheduler is disabled.
func ProvideScheduler(
	cfg *config.Config,
	l *applogger.Logger,
	ic *icache.IndicatorCache,
	orch *usecase.Orchestrator,
	store repository.CandleStore,
	pub repository.ResultPublisher,
	limiter *ratelimit.Limiter,
) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	watch := make([]scheduler.WatchItem, 0, len(cfg.Scheduler.Watchlist))
	for _, w := range cfg.Scheduler.Watchlist {
		watch = append(watch, scheduler.WatchItem{Market: w.Market, Symbol: w.Symbol, Interval: w.Interval})
	}

	opts := []scheduler.Option{
		scheduler.WithLogger(l.With(applogger.String("component", "scheduler"))),
		scheduler.WithJobTimeout(cfg.Scheduler.JobTimeout),
	}
	if store != nil {
		opts = append(opts, scheduler.WithRefresh(store, pub, watch, cfg.Scheduler.Candles))
	}
	if limiter != nil {
		opts = append(opts, scheduler.WithSweeper(limiter))
	}

	s := scheduler.NewScheduler(context.Background(), ic, orch, opts...)
	if err := s.RegisterAll(cfg.Scheduler.PurgeCron, cfg.Scheduler.RefreshCron, cfg.Scheduler.SweepCron); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return s, nil
}

// ProvideApp assembles the lifecycle. Optional components that are nil are skipped.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	store cache.Service,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh *usecase.AnalysisRequestHandler,
	sched *scheduler.Scheduler,
) *server.App {
	opts := []server.Option{
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout + 5*time.Second),
		server.WithCloser("cache", store),
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka producer", producer))
		if cfg.Log.Digest.Enabled {
			l.AddCollector(&applogger.CollectionConfig{
				TimeInterval:   cfg.Log.Digest.Interval,
				CountThreshold: cfg.Log.Digest.Threshold,
				Topic:          cfg.Log.Digest.Topic,
				Publisher:      producer,
			})
		}
	}
	if consumer != nil && kh != nil {
		opts = append(opts, server.WithConsumer(consumer, kh))
	}
	if sched != nil {
		opts = append(opts, server.WithScheduler(sched))
	}
	return server.New(l, httpServer, opts...)
}
