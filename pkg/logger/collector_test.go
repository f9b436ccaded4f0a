package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	digests []Digest
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.digests = append(p.digests, payload.(Digest))
	return nil
}

func TestCollectorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "analysis.log-digest",
		Publisher:      pub,
	})

	for i := 0; i < 3; i++ {
		l.Error("cache write failed", String("symbol", "AAPL"), Error(errors.New("disk full")))
	}
	l.Error("analyzer panicked", String("module", "trend"))
	if got := l.sink.get().Pending(); got != 2 {
		t.Fatalf("pending=%d, want 2", got)
	}
	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.topic != "analysis.log-digest" || len(pub.digests) != 1 {
		t.Fatalf("topic=%q digests=%d", pub.topic, len(pub.digests))
	}
	entries := pub.digests[0].Entries
	if len(entries) != 2 || entries[0].Count != 3 || entries[0].Message != "cache write failed" {
		t.Fatalf("entries: %+v", entries)
	}
}

func TestWithSharesCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 1, Publisher: pub})
	child := l.With(String("component", "orchestrator"))
	child.Error("boom")
	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.digests) != 1 {
		t.Fatalf("digests=%d, want 1 (threshold flush)", len(pub.digests))
	}
}
