package indicators

import (
	"math"

	"StockResearch/internal/domain/models"
)

// TrueRange of each bar; the first bar uses high - low.
func TrueRange(candles []models.Candle) models.Series {
	out := make(models.Series, len(candles))
	for i, c := range candles {
		tr := c.High - c.Low
		if i > 0 {
			prev := candles[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
		}
		out[i] = tr
	}
	return out
}

// ATR is Wilder's average true range. The first period-1 entries are NaN.
func ATR(candles []models.Candle, period int) models.Series {
	n := len(candles)
	out := nanSeries(n)
	if period <= 0 || period > n {
		return out
	}
	tr := TrueRange(candles)
	p := float64(period)
	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr := sum / p
	out[period-1] = atr
	for i := period; i < n; i++ {
		atr = (atr*(p-1) + tr[i]) / p
		out[i] = atr
	}
	return out
}

// ADX is Wilder's average directional index. The first valid value sits at
// index 2*period-1.
func ADX(candles []models.Candle, period int) models.Series {
	n := len(candles)
	out := nanSeries(n)
	if period <= 0 || n < 2*period {
		return out
	}
	tr := TrueRange(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	p := float64(period)
	var trS, pS, mS float64
	for i := 1; i <= period; i++ {
		trS += tr[i]
		pS += plusDM[i]
		mS += minusDM[i]
	}
	dx := nanSeries(n)
	dx[period] = directionalIndex(pS, mS, trS)
	for i := period + 1; i < n; i++ {
		trS = trS - trS/p + tr[i]
		pS = pS - pS/p + plusDM[i]
		mS = mS - mS/p + minusDM[i]
		dx[i] = directionalIndex(pS, mS, trS)
	}

	first := 2*period - 1
	var sum float64
	for i := period; i <= first; i++ {
		sum += dx[i]
	}
	adx := sum / p
	out[first] = adx
	for i := first + 1; i < n; i++ {
		adx = (adx*(p-1) + dx[i]) / p
		out[i] = adx
	}
	return out
}

func directionalIndex(plus, minus, tr float64) float64 {
	if tr == 0 {
		return 0
	}
	pdi := 100 * plus / tr
	mdi := 100 * minus / tr
	if s := pdi + mdi; s != 0 {
		return 100 * math.Abs(pdi-mdi) / s
	}
	return 0
}
