package repository

import (
	"context"

	"StockResearch/internal/domain/models"
)

// CandleStore provides read-only access to stored candles.
type CandleStore interface {
	GetLatestNCandles(ctx context.Context, market, symbol string, interval Interval, n int) ([]models.Candle, error)
}

// ResultPublisher ships finished analyses to downstream consumers.
type ResultPublisher interface {
	Publish(ctx context.Context, res *models.AggregateResult) error
	PublishBatch(ctx context.Context, results []*models.AggregateResult) error
	Close() error
}

type Metrics interface {
	RecordCacheLookup(outcome string)
	RecordAnalyzerRun(module, outcome string, seconds float64)
	RecordAggregate(signal string, seconds float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordCacheLookup(string)                  {}
func (NopMetrics) RecordAnalyzerRun(string, string, float64) {}
func (NopMetrics) RecordAggregate(string, float64)           {}
func (NopMetrics) RecordError(string)                        {}
func (NopMetrics) RecordLatency(string, float64)             {}
