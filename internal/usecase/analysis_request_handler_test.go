package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"StockResearch/internal/domain/models"
	pkgkafka "StockResearch/pkg/kafka"
)

type capturePublisher struct {
	got []*models.AggregateResult
	err error
}

func (p *capturePublisher) Publish(_ context.Context, r *models.AggregateResult) error {
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, r)
	return nil
}

func (p *capturePublisher) PublishBatch(ctx context.Context, rs []*models.AggregateResult) error {
	for _, r := range rs {
		if err := p.Publish(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestHandlerPublishesResult(t *testing.T) {
	pub := &capturePublisher{}
	h := NewAnalysisRequestHandler("analysis.requests", NewOrchestrator(nil), pub, nil, nil)

	payload, _ := json.Marshal(models.StockRequest{Market: "US", Symbol: "AAPL", Candles: trending(40)})
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pub.got) != 1 || pub.got[0].Symbol != "AAPL" || pub.got[0].Interval != "1d" {
		t.Fatalf("published: %+v", pub.got)
	}
	if pub.got[0].CandleCount != 40 {
		t.Fatalf("candle count %d", pub.got[0].CandleCount)
	}
}

func TestHandlerPermanentErrors(t *testing.T) {
	h := NewAnalysisRequestHandler("analysis.requests", NewOrchestrator(nil), &capturePublisher{}, nil, nil)
	for name, payload := range map[string]string{
		"garbage":   "{not json",
		"no-symbol": `{"market":"US","interval":"1d"}`,
	} {
		if err := h.Handle(context.Background(), []byte(payload)); !errors.Is(err, pkgkafka.ErrPermanent) {
			t.Fatalf("%s: expected permanent error, got %v", name, err)
		}
	}
}

func TestHandlerSurfacesPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	h := NewAnalysisRequestHandler("analysis.requests", NewOrchestrator(nil), pub, nil, nil)
	payload, _ := json.Marshal(models.StockRequest{Market: "US", Symbol: "AAPL", Interval: "1d"})
	if err := h.Handle(context.Background(), payload); err == nil || errors.Is(err, pkgkafka.ErrPermanent) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}
