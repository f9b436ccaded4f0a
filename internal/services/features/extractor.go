package features

import (
	"math"

	"StockResearch/internal/domain/models"
	domrepo "StockResearch/internal/domain/repository"
)

// DefaultVolatilityWindow is the number of returns used for realized volatility.
const DefaultVolatilityWindow = 20

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// Non-positive or non-finite prices yield a 0 return for that step.
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		r := 0.0
		if prev > 0 && cur > 0 {
			r = math.Log(cur / prev)
		}
		if math.IsNaN(r) || math.IsInf(r, 0) {
			r = 0
		}
		out = append(out, r)
	}
	return out
}

// RealizedVolatility computes annualized volatility of the latest window of
// log returns. Returns 0 when fewer than window returns are available.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// AnnualizedVolatility is RealizedVolatility over the default window, scaled
// for the candle interval.
func AnnualizedVolatility(candles []models.Candle, interval string) float64 {
	rets := ComputeLogReturns(candles)
	w := DefaultVolatilityWindow
	if len(rets) < w {
		w = len(rets)
	}
	return RealizedVolatility(rets, w, domrepo.NormalizeInterval(interval).BarsPerYear())
}
