package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"StockResearch/internal/domain/repository"
)

var _ repository.Metrics = (*Recorder)(nil)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordCacheLookup("hit")
	r.RecordCacheLookup("hit")
	r.RecordCacheLookup("miss")
	r.RecordAnalyzerRun("trend", "ok", 0.001)
	r.RecordAnalyzerRun("volume", "panic", 0.002)
	r.RecordAggregate("buy", 0.01)
	r.RecordError("cache_write")

	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("hit")); got != 2 {
		t.Fatalf("hits=%v", got)
	}
	if got := testutil.ToFloat64(r.analyzerRuns.WithLabelValues("volume", "panic")); got != 1 {
		t.Fatalf("panics=%v", got)
	}
	if got := testutil.ToFloat64(r.aggregates.WithLabelValues("buy")); got != 1 {
		t.Fatalf("aggregates=%v", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("cache_write")); got != 1 {
		t.Fatalf("errors=%v", got)
	}
}

func TestRecorderIsolatedRegistries(t *testing.T) {
	NewWithRegisterer(prometheus.NewRegistry())
	NewWithRegisterer(prometheus.NewRegistry())
}
