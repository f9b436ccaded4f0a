package scheduler

import (
	"context"
	"fmt"
	"time"

	"StockResearch/internal/domain/models"
	"StockResearch/internal/domain/repository"
	"StockResearch/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Purger drops expired indicator cache records.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// BatchRunner analyzes a list of instruments.
type BatchRunner interface {
	BatchAnalyze(ctx context.Context, reqs []models.StockRequest) []models.BatchResult
}

// Sweeper releases idle per-client state, e.g. rate limiter buckets.
type Sweeper interface {
	Sweep() int
}

// WatchItem is one instrument refreshed on every refresh run.
type WatchItem struct {
	Market   string `yaml:"market"`
	Symbol   string `yaml:"symbol"`
	Interval string `yaml:"interval"`
}

// RefreshReport summarizes one refresh run.
type RefreshReport struct {
	Requested int
	Loaded    int
	Analyzed  int
	Failed    int
	Published int
}

type Option func(*Scheduler)

// WithRefresh enables the watchlist job. store is required for it to run;
// pub may be nil, in which case results only warm the cache.
func WithRefresh(store repository.CandleStore, pub repository.ResultPublisher, watchlist []WatchItem, candles int) Option {
	return func(s *Scheduler) {
		s.Store = store
		s.Publisher = pub
		s.Watchlist = watchlist
		if candles > 0 {
			s.Candles = candles
		}
	}
}

func WithSweeper(sw Sweeper) Option {
	return func(s *Scheduler) { s.Sweeper = sw }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithJobTimeout bounds each job run.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.JobTimeout = d }
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron       *cron.Cron
	Purger     Purger
	Runner     BatchRunner
	Store      repository.CandleStore
	Publisher  repository.ResultPublisher
	Sweeper    Sweeper
	Watchlist  []WatchItem
	Candles    int
	JobTimeout time.Duration
	Ctx        context.Context

	log *logger.Logger
}

// NewScheduler creates a Scheduler using six-field cron specs (with seconds).
func NewScheduler(ctx context.Context, purger Purger, runner BatchRunner, opts ...Option) *Scheduler {
	s := &Scheduler{
		Purger:     purger,
		Runner:     runner,
		Candles:    250,
		JobTimeout: 5 * time.Minute,
		Ctx:        ctx,
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	cl := cronLogger{l: s.log}
	s.Cron = cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// RegisterAll registers the purge, refresh and sweep jobs. Empty specs skip a job.
func (s *Scheduler) RegisterAll(purgeCron, refreshCron, sweepCron string) error {
	if purgeCron != "" {
		if _, err := s.Cron.AddFunc(purgeCron, s.purgeTask); err != nil {
			return fmt.Errorf("register purge task: %w", err)
		}
	}
	if refreshCron != "" && s.Store != nil && len(s.Watchlist) > 0 {
		if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
			return fmt.Errorf("register refresh task: %w", err)
		}
	}
	if sweepCron != "" && s.Sweeper != nil {
		if _, err := s.Cron.AddFunc(sweepCron, func() {
			if n := s.Sweeper.Sweep(); n > 0 {
				s.log.Debug("idle clients swept", logger.Int("count", n))
			}
		}); err != nil {
			return fmt.Errorf("register sweep task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", logger.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.Cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	base := s.Ctx
	if base == nil {
		base = context.Background()
	}
	if s.JobTimeout > 0 {
		return context.WithTimeout(base, s.JobTimeout)
	}
	return context.WithCancel(base)
}

func (s *Scheduler) purgeTask() {
	ctx, cancel := s.jobContext()
	defer cancel()
	if _, err := s.RunPurgeNow(ctx); err != nil {
		s.log.Error("purge task failed", logger.Error(err))
	}
}

func (s *Scheduler) refreshTask() {
	ctx, cancel := s.jobContext()
	defer cancel()
	s.RunRefreshNow(ctx)
}

// RunPurgeNow executes the purge job immediately.
func (s *Scheduler) RunPurgeNow(ctx context.Context) (int, error) {
	n, err := s.Purger.PurgeExpired(ctx)
	if err != nil {
		return n, fmt.Errorf("purge expired: %w", err)
	}
	s.log.Info("expired indicator records purged", logger.Int("count", n))
	return n, nil
}

// RunRefreshNow loads candles for the watchlist, analyzes them in one batch
// and publishes the successful results. Per-item failures are logged and counted.
func (s *Scheduler) RunRefreshNow(ctx context.Context) RefreshReport {
	rep := RefreshReport{Requested: len(s.Watchlist)}
	if s.Store == nil {
		return rep
	}

	reqs := make([]models.StockRequest, 0, len(s.Watchlist))
	for _, w := range s.Watchlist {
		iv := repository.NormalizeInterval(w.Interval)
		candles, err := s.Store.GetLatestNCandles(ctx, w.Market, w.Symbol, iv, s.Candles)
		if err != nil {
			rep.Failed++
			s.log.Warn("watchlist candles unavailable",
				logger.String("market", w.Market),
				logger.String("symbol", w.Symbol),
				logger.String("interval", string(iv)),
				logger.Error(err))
			continue
		}
		reqs = append(reqs, models.StockRequest{Market: w.Market, Symbol: w.Symbol, Interval: string(iv), Candles: candles})
	}
	rep.Loaded = len(reqs)

	results := make([]*models.AggregateResult, 0, len(reqs))
	for _, br := range s.Runner.BatchAnalyze(ctx, reqs) {
		if br.Result == nil {
			rep.Failed++
			continue
		}
		results = append(results, br.Result)
	}
	rep.Analyzed = len(results)

	if s.Publisher != nil && len(results) > 0 {
		if err := s.Publisher.PublishBatch(ctx, results); err != nil {
			s.log.Error("publish refresh results", logger.Int("count", len(results)), logger.Error(err))
		} else {
			rep.Published = len(results)
		}
	}

	s.log.Info("watchlist refreshed",
		logger.Int("requested", rep.Requested),
		logger.Int("analyzed", rep.Analyzed),
		logger.Int("failed", rep.Failed),
		logger.Int("published", rep.Published))
	return rep
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		out = append(out, logger.Any(key, kv[i+1]))
	}
	return out
}
