package features

import (
	"math"
	"testing"

	"StockResearch/internal/domain/models"
)

func TestComputeLogReturns(t *testing.T) {
	cs := []models.Candle{{Close: 100}, {Close: 110}, {Close: 0}, {Close: 121}}
	got := ComputeLogReturns(cs)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if math.Abs(got[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("r0 = %v", got[0])
	}
	if got[1] != 0 || got[2] != 0 {
		t.Fatalf("non-positive prices should give 0 returns: %v", got)
	}
	if ComputeLogReturns(cs[:1]) != nil {
		t.Fatalf("single candle should give nil")
	}
}

func TestRealizedVolatility(t *testing.T) {
	if v := RealizedVolatility([]float64{0.01, 0.01, 0.01}, 3, 252); v != 0 {
		t.Fatalf("constant returns should have zero vol, got %v", v)
	}
	rets := []float64{0.01, -0.01, 0.01, -0.01}
	// sample variance = 4*0.0001/3
	want := math.Sqrt(4 * 0.0001 / 3 * 252)
	if v := RealizedVolatility(rets, 4, 252); math.Abs(v-want) > 1e-12 {
		t.Fatalf("vol = %v, want %v", v, want)
	}
	if v := RealizedVolatility(rets, 10, 252); v != 0 {
		t.Fatalf("short input should give 0, got %v", v)
	}
}

func TestAnnualizedVolatilityShortInput(t *testing.T) {
	if v := AnnualizedVolatility(nil, "1d"); v != 0 {
		t.Fatalf("empty candles vol = %v", v)
	}
}
