package analyzers

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"StockResearch/internal/domain/models"
	"StockResearch/internal/domain/service"
	"StockResearch/internal/services/indicators"
)

var (
	_ service.Analyzer = (*TrendAnalyzer)(nil)
	_ service.Analyzer = (*MomentumAnalyzer)(nil)
	_ service.Analyzer = (*VolumeAnalyzer)(nil)
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func candle(i int, close, volume float64) models.Candle {
	return models.Candle{
		Time:   t0.Add(time.Duration(i) * 24 * time.Hour),
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: volume,
	}
}

func linear(n int, start, step float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = candle(i, start+float64(i)*step, 1000)
	}
	return out
}

func contextFor(candles []models.Candle) *models.AnalysisContext {
	return models.NewAnalysisContext("US", "TEST", "1d", candles, indicators.Calculate(candles), t0)
}

func all() []service.Analyzer {
	return []service.Analyzer{NewTrendAnalyzer(), NewMomentumAnalyzer(), NewVolumeAnalyzer()}
}

func TestTrendRisingSeries(t *testing.T) {
	res, err := NewTrendAnalyzer().Analyze(context.Background(), contextFor(linear(25, 100, 1)))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Score <= NeutralScore {
		t.Fatalf("score=%.1f, want > 50", res.Score)
	}
	if res.Signal == models.SignalSell {
		t.Fatalf("signal=%s on a rising series", res.Signal)
	}
	// alignment 25, above MA20 5, upper band breakout 10, full ATR strength 10
	if res.Score != 100 || res.Signal != models.SignalBuy {
		t.Fatalf("got %.1f/%s, want 100/buy", res.Score, res.Signal)
	}
	if res.Confidence != 90 {
		t.Fatalf("confidence=%.1f, want 90", res.Confidence)
	}
}

func TestTrendFallingSeries(t *testing.T) {
	res, err := NewTrendAnalyzer().Analyze(context.Background(), contextFor(linear(25, 200, -1)))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Score != 0 || res.Signal != models.SignalSell {
		t.Fatalf("got %.1f/%s, want 0/sell", res.Score, res.Signal)
	}
}

func TestInsufficientData(t *testing.T) {
	ac := contextFor(linear(10, 100, 1))
	for _, a := range all() {
		res, err := a.Analyze(context.Background(), ac)
		if err != nil {
			t.Fatalf("%s: %v", a.Info().Name, err)
		}
		if res.Score != 50 || res.Confidence != 30 || res.Signal != models.SignalHold {
			t.Fatalf("%s: got %+v", a.Info().Name, res)
		}
		if !strings.Contains(res.Reasoning, InsufficientDataReason) {
			t.Fatalf("%s: reasoning %q", a.Info().Name, res.Reasoning)
		}
	}
}

func TestVolumeAccumulation(t *testing.T) {
	var cs []models.Candle
	for i := 0; i < 25; i++ {
		cs = append(cs, candle(i, 100, 1000))
	}
	for i := 1; i <= 5; i++ {
		cs = append(cs, candle(24+i, 100+float64(i), 3000))
	}
	res, err := NewVolumeAnalyzer().Analyze(context.Background(), contextFor(cs))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Score != 85 || res.Signal != models.SignalBuy || res.Confidence != 85 {
		t.Fatalf("got %+v", res)
	}
	if !strings.Contains(res.Reasoning, "accumulation") {
		t.Fatalf("reasoning %q", res.Reasoning)
	}
}

func TestVolumeDistribution(t *testing.T) {
	var cs []models.Candle
	for i := 0; i < 25; i++ {
		cs = append(cs, candle(i, 100, 1000))
	}
	for i := 1; i <= 5; i++ {
		cs = append(cs, candle(24+i, 100-float64(i), 3000))
	}
	res, err := NewVolumeAnalyzer().Analyze(context.Background(), contextFor(cs))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Score != 15 || res.Signal != models.SignalSell {
		t.Fatalf("got %+v", res)
	}
	if !strings.Contains(res.Reasoning, "distribution") {
		t.Fatalf("reasoning %q", res.Reasoning)
	}
}

func TestMomentumOverbought(t *testing.T) {
	// a straight rise pins RSI at 100
	res, err := NewMomentumAnalyzer().Analyze(context.Background(), contextFor(linear(40, 100, 1)))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(res.Reasoning, "overbought") {
		t.Fatalf("reasoning %q", res.Reasoning)
	}
	if !ValidateResult(res) {
		t.Fatalf("invalid result %+v", res)
	}
}

func TestResultsAlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	inputs := map[string][]models.Candle{
		"empty": nil,
		"flat":  linear(60, 100, 0),
	}
	walk := make([]models.Candle, 300)
	p := 100.0
	for i := range walk {
		p *= 1 + rng.NormFloat64()*0.02
		walk[i] = candle(i, p, 500+rng.Float64()*5000)
	}
	inputs["random"] = walk

	gappy := linear(60, 100, 0.5)
	gappy[30].Close = math.NaN()
	gappy[59].Volume = math.Inf(1)
	inputs["nan"] = gappy

	broken := linear(60, 100, 0.5)
	broken[59].Close = math.NaN()
	inputs["nan-last"] = broken

	for name, cs := range inputs {
		ac := contextFor(cs)
		for _, a := range all() {
			res, err := a.Analyze(context.Background(), ac)
			if err != nil {
				t.Fatalf("%s/%s: %v", name, a.Info().Name, err)
			}
			if !a.ValidateResult(res) {
				t.Fatalf("%s/%s: invalid result %+v", name, a.Info().Name, res)
			}
		}
	}
}

func TestNilIndicatorBundle(t *testing.T) {
	ac := &models.AnalysisContext{Candles: linear(30, 100, 1)}
	for _, a := range all() {
		res, err := a.Analyze(context.Background(), ac)
		if err != nil {
			t.Fatalf("%s: %v", a.Info().Name, err)
		}
		if !ValidateResult(res) {
			t.Fatalf("%s: invalid result %+v", a.Info().Name, res)
		}
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, a := range all() {
		if _, err := a.Analyze(ctx, contextFor(linear(30, 100, 1))); err == nil {
			t.Fatalf("%s: expected context error", a.Info().Name)
		}
	}
}

func TestValidateResultBounds(t *testing.T) {
	cases := []struct {
		res  models.AnalysisResult
		want bool
	}{
		{models.AnalysisResult{Score: 0, Confidence: 100, Signal: models.SignalSell}, true},
		{models.AnalysisResult{Score: 100, Confidence: 0, Signal: models.SignalBuy}, true},
		{models.AnalysisResult{Score: 101, Confidence: 50, Signal: models.SignalHold}, false},
		{models.AnalysisResult{Score: 50, Confidence: -1, Signal: models.SignalHold}, false},
		{models.AnalysisResult{Score: math.NaN(), Confidence: 50, Signal: models.SignalHold}, false},
		{models.AnalysisResult{Score: 50, Confidence: 50, Signal: "strong-buy"}, false},
	}
	for i, tc := range cases {
		if got := ValidateResult(tc.res); got != tc.want {
			t.Errorf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

func TestWeightedScoreAndOptions(t *testing.T) {
	a := NewTrendAnalyzer(WithWeight(2), WithMinCandles(5), WithThresholds(70, 30))
	if a.Info().Weight != 2 {
		t.Fatalf("weight=%v", a.Info().Weight)
	}
	if got := a.WeightedScore(models.AnalysisResult{Score: 40}); got != 80 {
		t.Fatalf("weighted=%v", got)
	}
	if NewVolumeAnalyzer(WithWeight(-1)).Info().Weight != VolumeWeight {
		t.Fatal("non-positive weight should be ignored")
	}
	if s := signalFromScore(65, a.cfg); s != models.SignalHold {
		t.Fatalf("signal=%s with buy threshold 70", s)
	}
}
