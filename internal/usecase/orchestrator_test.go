package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"StockResearch/internal/domain/models"
	icache "StockResearch/internal/service/cache"
	"StockResearch/internal/services/analyzers"
	"StockResearch/internal/services/indicators"
	"StockResearch/pkg/cache"
)

type stub struct {
	analyzers.Base
	res   models.AnalysisResult
	err   error
	panic string
	delay time.Duration
}

func newStub(name string, weight float64, res models.AnalysisResult) *stub {
	return &stub{Base: analyzers.NewBase(name, "test analyzer", weight), res: res}
}

func (s *stub) Analyze(ctx context.Context, _ *models.AnalysisContext) (models.AnalysisResult, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.panic != "" {
		panic(s.panic)
	}
	return s.res, s.err
}

func result(score, conf float64, sig models.Signal) models.AnalysisResult {
	return models.AnalysisResult{Score: score, Confidence: conf, Signal: sig, Reasoning: "stub"}
}

func trending(n int) []models.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		c := 50 + float64(i)*0.5 + math.Sin(float64(i))*2
		out[i] = models.Candle{
			Time: base.Add(time.Duration(i) * 24 * time.Hour),
			Open: c - 0.3, High: c + 1, Low: c - 1, Close: c,
			Volume: 1000 + float64(i%5)*250,
		}
	}
	return out
}

func assertWellFormed(t *testing.T, res *models.AggregateResult) {
	t.Helper()
	if res == nil {
		t.Fatal("nil result")
	}
	if res.OverallScore < 0 || res.OverallScore > 100 || math.IsNaN(res.OverallScore) {
		t.Fatalf("overall score %v", res.OverallScore)
	}
	if res.OverallConfidence < 0 || res.OverallConfidence > 100 || math.IsNaN(res.OverallConfidence) {
		t.Fatalf("overall confidence %v", res.OverallConfidence)
	}
	if !res.OverallSignal.Valid() {
		t.Fatalf("overall signal %q", res.OverallSignal)
	}
	if res.Summary == "" || res.RequestID == "" {
		t.Fatalf("missing summary/request id: %+v", res)
	}
}

func TestEmptyCandlesStillProduceResult(t *testing.T) {
	o := NewOrchestrator(nil)
	res, err := o.AnalyzeStock(context.Background(), "US", "AAPL", "1d", nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	assertWellFormed(t, res)
	if len(res.ModuleResults) != 3 {
		t.Fatalf("modules: %v", res.ModuleResults.Names())
	}
	for _, m := range res.ModuleResults {
		if !strings.Contains(m.Result.Reasoning, analyzers.InsufficientDataReason) {
			t.Fatalf("%s: %q", m.Name, m.Result.Reasoning)
		}
	}
	if math.Abs(res.OverallScore-50) > 1e-9 || res.OverallSignal != models.SignalHold {
		t.Fatalf("got %.1f/%s", res.OverallScore, res.OverallSignal)
	}
}

func TestRemoveAnalyzer(t *testing.T) {
	o := NewOrchestrator(nil)
	before := len(o.GetAnalyzersInfo())
	if !o.RemoveAnalyzer(analyzers.VolumeName) {
		t.Fatal("volume should have been registered")
	}
	if got := len(o.GetAnalyzersInfo()); got != before-1 {
		t.Fatalf("len=%d, want %d", got, before-1)
	}
	o.RemoveAnalyzer("no-such-module")
	if got := len(o.GetAnalyzersInfo()); got != before-1 {
		t.Fatalf("unknown name changed the registry: %d", got)
	}

	res, err := o.AnalyzeStock(context.Background(), "US", "AAPL", "1d", trending(60))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if _, ok := res.ModuleResults.Get(analyzers.VolumeName); ok {
		t.Fatal("removed module still reported")
	}
}

func TestFailingAnalyzersAreExcluded(t *testing.T) {
	boom := newStub("boom", 5, models.AnalysisResult{})
	boom.panic = "kaboom"
	broken := newStub("broken", 5, models.AnalysisResult{})
	broken.err = errors.New("bad input")
	invalid := newStub("invalid", 5, result(140, 50, models.SignalBuy))
	good := newStub("good", 1, result(80, 70, models.SignalBuy))

	o := NewOrchestrator(nil, WithAnalyzers(boom, good, broken, invalid))
	res, err := o.AnalyzeStock(context.Background(), "US", "AAPL", "1d", trending(30))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	assertWellFormed(t, res)
	if diff := cmp.Diff([]string{"good"}, res.ModuleResults.Names()); diff != "" {
		t.Fatalf("modules (-want +got):\n%s", diff)
	}
	if res.OverallScore != 80 || res.OverallConfidence != 70 || res.OverallSignal != models.SignalBuy {
		t.Fatalf("aggregate should come from the surviving module only: %+v", res)
	}
	for _, name := range []string{"boom", "broken", "invalid"} {
		if _, ok := res.Errors[name]; !ok {
			t.Fatalf("%s missing from errors: %v", name, res.Errors)
		}
	}
	if !strings.Contains(res.Errors["boom"], "kaboom") {
		t.Fatalf("panic not recorded: %q", res.Errors["boom"])
	}
}

func TestAllModulesFailing(t *testing.T) {
	bad := newStub("bad", 1, models.AnalysisResult{})
	bad.err = errors.New("nope")
	o := NewOrchestrator(nil, WithAnalyzers(bad))
	res, err := o.AnalyzeStock(context.Background(), "US", "AAPL", "1d", trending(30))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.OverallScore != NoModulesScore || res.OverallConfidence != 0 || res.OverallSignal != models.SignalHold {
		t.Fatalf("got %+v", res)
	}
	if res.Recommendations.RiskLevel != models.RiskHigh {
		t.Fatalf("risk=%s", res.Recommendations.RiskLevel)
	}
}

func TestWeightedMeanIsConvex(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		s := float64(i) / 10
		o := NewOrchestrator(nil, WithAnalyzers(
			newStub("a", 1.2, result(s, 10, models.SignalBuy)),
			newStub("b", 1.0, result(s, 90, models.SignalSell)),
			newStub("c", 1.0, result(s, 40, models.SignalHold)),
		))
		res, err := o.AnalyzeStock(context.Background(), "US", "X", "1d", nil)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		if res.OverallScore != s {
			t.Fatalf("S=%v: overall=%v", s, res.OverallScore)
		}
	}

	lo, hi := 33.3, 33.4
	o := NewOrchestrator(nil, WithAnalyzers(
		newStub("a", 0.7, result(lo, 50, models.SignalHold)),
		newStub("b", 1.9, result(hi, 50, models.SignalHold)),
	))
	res, err := o.AnalyzeStock(context.Background(), "US", "X", "1d", nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.OverallScore < lo || res.OverallScore > hi || res.OverallConfidence != 50 {
		t.Fatalf("overall=%v confidence=%v outside inputs", res.OverallScore, res.OverallConfidence)
	}
}

func TestAggregationMath(t *testing.T) {
	o := NewOrchestrator(nil, WithAnalyzers(
		newStub("trend", 2, result(80, 60, models.SignalBuy)),
		newStub("momentum", 1, result(20, 90, models.SignalSell)),
		newStub("volume", 1, result(60, 40, models.SignalBuy)),
	))
	res, err := o.AnalyzeStock(context.Background(), "US", "X", "1h", nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	// (160+20+60)/4 and (120+90+40)/4
	if res.OverallScore != 60 || res.OverallConfidence != 62.5 {
		t.Fatalf("score=%v confidence=%v", res.OverallScore, res.OverallConfidence)
	}
	// buy votes 120+40 beat sell 90
	if res.OverallSignal != models.SignalBuy {
		t.Fatalf("signal=%s", res.OverallSignal)
	}
	rec := res.Recommendations
	if rec.RiskLevel != models.RiskLow || rec.Timeframe != models.TimeframeShort {
		t.Fatalf("recommendations: %+v", rec)
	}
	if diff := cmp.Diff([]string{"trend", "volume"}, rec.AgreeingModules); diff != "" {
		t.Fatalf("agreeing (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"trend", "momentum", "volume"}, res.ModuleResults.Names()); diff != "" {
		t.Fatalf("registry order (-want +got):\n%s", diff)
	}
}

func TestVoteTieIsHold(t *testing.T) {
	o := NewOrchestrator(nil, WithAnalyzers(
		newStub("up", 1, result(70, 50, models.SignalBuy)),
		newStub("down", 1, result(30, 50, models.SignalSell)),
	))
	res, _ := o.AnalyzeStock(context.Background(), "US", "X", "1wk", nil)
	if res.OverallSignal != models.SignalHold {
		t.Fatalf("signal=%s", res.OverallSignal)
	}
	if res.Recommendations.Timeframe != models.TimeframeLong {
		t.Fatalf("timeframe=%s", res.Recommendations.Timeframe)
	}
}

func TestAddAnalyzer(t *testing.T) {
	o := NewOrchestrator(nil, WithAnalyzers())
	if err := o.AddAnalyzer(newStub("a", 1, result(50, 50, models.SignalHold))); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := o.AddAnalyzer(newStub("a", 3, result(50, 50, models.SignalHold))); err != nil {
		t.Fatalf("replace: %v", err)
	}
	info := o.GetAnalyzersInfo()
	if len(info) != 1 || info[0].Weight != 3 {
		t.Fatalf("registry: %+v", info)
	}
	if err := o.AddAnalyzer(newStub("zero", 0, result(50, 50, models.SignalHold))); !errors.Is(err, ErrInvalidAnalyzer) {
		t.Fatalf("expected ErrInvalidAnalyzer, got %v", err)
	}
}

func TestMissingIdentifiers(t *testing.T) {
	o := NewOrchestrator(nil)
	for _, ids := range [][3]string{{"", "AAPL", "1d"}, {"US", "", "1d"}, {"US", "AAPL", ""}} {
		if _, err := o.AnalyzeStock(context.Background(), ids[0], ids[1], ids[2], nil); !errors.Is(err, ErrMissingIdentifier) {
			t.Fatalf("%v: expected ErrMissingIdentifier, got %v", ids, err)
		}
	}
}

type countingCompute struct{ n int32 }

func (c *countingCompute) fn(candles []models.Candle) *models.IndicatorBundle {
	atomic.AddInt32(&c.n, 1)
	return indicators.Calculate(candles)
}

func TestIdempotentWithWarmCache(t *testing.T) {
	store := cache.NewMemoryCache()
	defer store.Close()
	cc := &countingCompute{}
	ic := icache.NewIndicatorCache(store, icache.WithComputeFunc(cc.fn))
	o := NewOrchestrator(ic)
	candles := trending(120)
	ctx := context.Background()

	first, err := o.AnalyzeStock(ctx, "US", "AAPL", "1d", candles)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := o.AnalyzeStock(ctx, "US", "AAPL", "1d", candles)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if atomic.LoadInt32(&cc.n) != 1 {
		t.Fatalf("compute calls=%d, want 1", cc.n)
	}
	if math.Abs(first.OverallScore-second.OverallScore) > 1e-9 ||
		math.Abs(first.OverallConfidence-second.OverallConfidence) > 1e-9 ||
		first.OverallSignal != second.OverallSignal {
		t.Fatalf("not idempotent: %+v vs %+v", first, second)
	}
	if first.RequestID == second.RequestID {
		t.Fatal("request ids should differ")
	}
}

func TestBatchKeepsOrderAndIsolatesFailures(t *testing.T) {
	o := NewOrchestrator(nil, WithMaxParallel(2))
	reqs := []models.StockRequest{
		{Market: "US", Symbol: "AAPL", Interval: "1d", Candles: trending(60)},
		{Market: "US", Symbol: "", Interval: "1d"},
		{Market: "HK", Symbol: "0700", Interval: "1h", Candles: trending(40)},
		{Market: "US", Symbol: "MSFT", Interval: "1d"},
	}
	out := o.BatchAnalyze(context.Background(), reqs)
	if len(out) != len(reqs) {
		t.Fatalf("len=%d", len(out))
	}
	for i, r := range out {
		if r.Symbol != reqs[i].Symbol || r.Market != reqs[i].Market {
			t.Fatalf("item %d out of order: %+v", i, r)
		}
	}
	if out[1].Error == "" || out[1].Result != nil {
		t.Fatalf("item 1 should fail: %+v", out[1])
	}
	for _, i := range []int{0, 2, 3} {
		if out[i].Error != "" {
			t.Fatalf("item %d: %s", i, out[i].Error)
		}
		assertWellFormed(t, out[i].Result)
	}
}

func TestBatchItemTimeout(t *testing.T) {
	slow := newStub("slow", 1, result(50, 50, models.SignalHold))
	slow.delay = 300 * time.Millisecond
	o := NewOrchestrator(nil, WithAnalyzers(slow), WithItemTimeout(20*time.Millisecond))

	out := o.BatchAnalyze(context.Background(), []models.StockRequest{
		{Market: "US", Symbol: "SLOW", Interval: "1d"},
	})
	if out[0].Error != errItemTimeout.Error() {
		t.Fatalf("expected timeout, got %+v", out[0])
	}
}
