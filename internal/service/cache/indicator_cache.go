// Package cache keeps computed indicator bundles per (market, symbol,
// interval), invalidated by candle fingerprint and age.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"StockResearch/internal/domain/models"
	"StockResearch/internal/domain/repository"
	"StockResearch/internal/services/indicators"
	"StockResearch/pkg/cache"
	"StockResearch/pkg/logger"
)

const (
	KeyPrefix  = "indicators"
	DefaultTTL = 24 * time.Hour
)

// ErrMissingMarket is returned by ClearIndicatorsCache without a market.
var ErrMissingMarket = errors.New("indicator cache: market is required")

// Lookup outcomes reported to metrics.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeStale = "stale"
	OutcomeError = "error"
)

// Record is the persisted value per key.
type Record struct {
	Indicators  *models.IndicatorBundle `json:"indicators"`
	DataHash    string                  `json:"dataHash"`
	LastUpdated time.Time               `json:"lastUpdated"`
}

// Stats summarises what the store holds.
type Stats struct {
	TotalFiles int      `json:"totalFiles"`
	TotalSize  int64    `json:"totalSize"`
	Markets    []string `json:"markets"`
}

// ComputeFunc builds a bundle from candles.
type ComputeFunc func(candles []models.Candle) *models.IndicatorBundle

type Option func(*IndicatorCache)

func WithComputeFunc(fn ComputeFunc) Option {
	return func(c *IndicatorCache) {
		if fn != nil {
			c.compute = fn
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(c *IndicatorCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *IndicatorCache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *IndicatorCache) {
		if l != nil {
			c.log = l
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(c *IndicatorCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// IndicatorCache is best effort: storage failures are logged and turn into
// misses or skipped writes, never into caller errors.
//
// CalculateAndCacheIndicators is not single-flight. Concurrent misses on one
// key both compute and both write; the store replaces a key atomically so
// the last write wins.
type IndicatorCache struct {
	store   cache.Service
	compute ComputeFunc
	ttl     time.Duration
	now     func() time.Time
	log     *logger.Logger
	metrics repository.Metrics
}

func NewIndicatorCache(store cache.Service, opts ...Option) *IndicatorCache {
	c := &IndicatorCache{
		store:   store,
		compute: indicators.Calculate,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     logger.NewNop(),
		metrics: repository.NopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the storage key. Identifiers are query-escaped so each stays
// one key segment and distinct identifiers never share a key.
func Key(market, symbol, interval string) string {
	return cache.GenerateKeyWithParams(KeyPrefix, segment(market), segment(symbol), segment(interval))
}

func segment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	return url.QueryEscape(s)
}

// GetCachedIndicators returns nil when there is no record, when the record
// was built from different candles, or when it is older than the TTL.
func (c *IndicatorCache) GetCachedIndicators(ctx context.Context, market, symbol, interval string, candles []models.Candle) *models.IndicatorBundle {
	key := Key(market, symbol, interval)

	var rec Record
	if err := c.store.Get(ctx, key, &rec); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			c.metrics.RecordCacheLookup(OutcomeMiss)
			return nil
		}
		c.metrics.RecordCacheLookup(OutcomeError)
		c.log.Warn("indicator cache read failed",
			logger.String("key", key),
			logger.Error(err))
		return nil
	}

	if rec.Indicators == nil || rec.DataHash != Fingerprint(candles) {
		c.metrics.RecordCacheLookup(OutcomeStale)
		return nil
	}
	if c.now().Sub(rec.LastUpdated) > c.ttl {
		c.metrics.RecordCacheLookup(OutcomeStale)
		return nil
	}

	c.metrics.RecordCacheLookup(OutcomeHit)
	return rec.Indicators
}

// SaveIndicators stores ind for the candles it was computed from.
func (c *IndicatorCache) SaveIndicators(ctx context.Context, market, symbol, interval string, candles []models.Candle, ind *models.IndicatorBundle) {
	if ind == nil {
		return
	}
	key := Key(market, symbol, interval)
	rec := Record{
		Indicators:  ind,
		DataHash:    Fingerprint(candles),
		LastUpdated: c.now().UTC(),
	}
	if err := c.store.Set(ctx, key, rec, c.ttl); err != nil {
		c.metrics.RecordError("cache_write")
		c.log.Warn("indicator cache write failed",
			logger.String("key", key),
			logger.Error(err))
	}
}

// CalculateAndCacheIndicators is get-or-compute-then-store.
func (c *IndicatorCache) CalculateAndCacheIndicators(ctx context.Context, market, symbol, interval string, candles []models.Candle) *models.IndicatorBundle {
	if ind := c.GetCachedIndicators(ctx, market, symbol, interval, candles); ind != nil {
		return ind
	}

	start := time.Now()
	ind := c.compute(candles)
	c.metrics.RecordLatency("indicators_compute", time.Since(start).Seconds())

	c.SaveIndicators(ctx, market, symbol, interval, candles, ind)
	return ind
}

// ClearIndicatorsCache deletes the entries under market, narrowed by symbol
// and interval when given. Nothing matching is not an error.
func (c *IndicatorCache) ClearIndicatorsCache(ctx context.Context, market, symbol, interval string) error {
	if strings.TrimSpace(market) == "" {
		return ErrMissingMarket
	}

	sym, iv := "*", "*"
	if symbol != "" {
		sym = segment(symbol)
	}
	if interval != "" {
		iv = segment(interval)
	}
	pattern := strings.Join([]string{KeyPrefix, segment(market), sym, iv}, cache.KeySeparator)

	if err := c.store.DeleteByPattern(ctx, pattern); err != nil {
		return fmt.Errorf("clear %s: %w", pattern, err)
	}
	c.log.Info("indicator cache cleared", logger.String("pattern", pattern))
	return nil
}

// GetCacheStats counts records, their stored size, and the markets present.
// A missing or unreadable store reports zeroes.
func (c *IndicatorCache) GetCacheStats(ctx context.Context) Stats {
	entries, err := c.store.Scan(ctx, cache.BuildPattern(KeyPrefix, 3))
	if err != nil {
		c.log.Warn("indicator cache scan failed", logger.Error(err))
		return Stats{Markets: []string{}}
	}

	seen := make(map[string]struct{})
	markets := []string{}
	for _, e := range entries {
		parts := strings.Split(e.Key, cache.KeySeparator)
		if len(parts) < 2 {
			continue
		}
		m, err := url.QueryUnescape(parts[1])
		if err != nil {
			m = parts[1]
		}
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			markets = append(markets, m)
		}
	}
	sort.Strings(markets)

	return Stats{
		TotalFiles: len(entries),
		TotalSize:  cache.TotalSize(entries),
		Markets:    markets,
	}
}

// PurgeExpired removes records older than the TTL or that no longer decode.
func (c *IndicatorCache) PurgeExpired(ctx context.Context) (int, error) {
	entries, err := c.store.Scan(ctx, cache.BuildPattern(KeyPrefix, 3))
	if err != nil {
		return 0, fmt.Errorf("scan: %w", err)
	}

	now := c.now()
	var expired []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		var rec Record
		if err := c.store.Get(ctx, e.Key, &rec); err != nil {
			if errors.Is(err, cache.ErrCacheMiss) {
				continue
			}
			expired = append(expired, e.Key)
			continue
		}
		if now.Sub(rec.LastUpdated) > c.ttl {
			expired = append(expired, e.Key)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := c.store.Delete(ctx, expired...); err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	c.log.Info("indicator cache purged", logger.Int("removed", len(expired)))
	return len(expired), nil
}
