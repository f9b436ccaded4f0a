package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"StockResearch/internal/domain/models"
	domrepo "StockResearch/internal/domain/repository"
	pkgkafka "StockResearch/pkg/kafka"
	applogger "StockResearch/pkg/logger"
)

// MessageWriter is the slice of the Kafka producer the publisher needs.
type MessageWriter interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaResultPublisher publishes AggregateResults keyed by market:symbol so
// results for one instrument stay ordered on a partition.
type KafkaResultPublisher struct {
	w       MessageWriter
	topic   string
	retries uint64
	l       *applogger.Logger
	metrics domrepo.Metrics
}

func NewKafkaResultPublisher(w MessageWriter, topic string, l *applogger.Logger, m domrepo.Metrics) *KafkaResultPublisher {
	if l == nil {
		l = applogger.NewNop()
	}
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	return &KafkaResultPublisher{w: w, topic: topic, retries: 3, l: l, metrics: m}
}

func resultKey(r *models.AggregateResult) []byte {
	return []byte(r.Market + ":" + r.Symbol)
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, res *models.AggregateResult) error {
	if res == nil {
		return nil
	}
	return p.PublishBatch(ctx, []*models.AggregateResult{res})
}

// PublishBatch writes all results in one batch, retrying transient failures
// with exponential backoff.
func (p *KafkaResultPublisher) PublishBatch(ctx context.Context, results []*models.AggregateResult) error {
	msgs := make([]pkgkafka.Message, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: resultKey(r), Value: r})
	}
	if len(msgs) == 0 {
		return nil
	}

	start := time.Now()
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	eb.MaxInterval = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, p.retries), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return p.w.PublishBatch(ctx, p.topic, msgs)
	}, policy, func(err error, wait time.Duration) {
		p.l.Warn("result publish retry",
			applogger.String("topic", p.topic),
			applogger.Int("attempt", attempt),
			applogger.Duration("wait_ms", wait),
			applogger.Error(err))
	})
	p.metrics.RecordLatency("result_publish", time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordError("result_publish")
		return fmt.Errorf("publish %d results to %s: %w", len(msgs), p.topic, err)
	}
	return nil
}

func (p *KafkaResultPublisher) Close() error {
	return p.w.Close()
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
