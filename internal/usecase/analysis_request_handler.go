package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"StockResearch/internal/domain/models"
	domrepo "StockResearch/internal/domain/repository"
	pkgkafka "StockResearch/pkg/kafka"
	"StockResearch/pkg/logger"
)

// AnalysisRequestHandler consumes StockRequest messages, analyzes them and
// publishes the AggregateResult.
type AnalysisRequestHandler struct {
	topic     string
	orch      *Orchestrator
	publisher domrepo.ResultPublisher
	metrics   domrepo.Metrics
	log       *logger.Logger
	timeout   time.Duration
}

func NewAnalysisRequestHandler(topic string, orch *Orchestrator, pub domrepo.ResultPublisher, m domrepo.Metrics, l *logger.Logger) *AnalysisRequestHandler {
	if l == nil {
		l = logger.NewNop()
	}
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	return &AnalysisRequestHandler{
		topic:     topic,
		orch:      orch,
		publisher: pub,
		metrics:   m,
		log:       l,
		timeout:   30 * time.Second,
	}
}

func (h *AnalysisRequestHandler) Topic() string { return h.topic }

// SetTimeout bounds one message's analysis; non-positive values are ignored.
func (h *AnalysisRequestHandler) SetTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

// Handle returns kafka.ErrPermanent for payloads that can never succeed so
// the consumer skips retries and routes them to the DLQ.
func (h *AnalysisRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.StockRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: decode request: %v", pkgkafka.ErrPermanent, err)
	}
	if req.Interval == "" {
		req.Interval = string(domrepo.DefaultInterval())
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	res, err := h.orch.AnalyzeStock(ctx, req.Market, req.Symbol, req.Interval, req.Candles)
	if err != nil {
		if errors.Is(err, ErrMissingIdentifier) {
			return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
		}
		return err
	}
	h.metrics.RecordLatency("consumer_analyze", time.Since(start).Seconds())

	if h.publisher == nil {
		return nil
	}
	if err := h.publisher.Publish(ctx, res); err != nil {
		h.log.Error("publishing analysis result failed",
			logger.String("request_id", res.RequestID),
			logger.String("symbol", req.Symbol),
			logger.Error(err))
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*AnalysisRequestHandler)(nil)
