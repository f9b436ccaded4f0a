package indicators

import (
	"math"

	"StockResearch/internal/domain/models"
)

// highLow returns the highest high and lowest low over candles[start..end].
// ok is false when any value in the window is not finite.
func highLow(candles []models.Candle, start, end int) (hh, ll float64, ok bool) {
	hh, ll = math.Inf(-1), math.Inf(1)
	for j := start; j <= end; j++ {
		h, l := candles[j].High, candles[j].Low
		if !isFinite(h) || !isFinite(l) {
			return math.NaN(), math.NaN(), false
		}
		if h > hh {
			hh = h
		}
		if l < ll {
			ll = l
		}
	}
	return hh, ll, true
}

// rsv is the raw stochastic value over the last period bars; a flat range reads 50.
func rsv(candles []models.Candle, period int) models.Series {
	out := nanSeries(len(candles))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(candles); i++ {
		hh, ll, ok := highLow(candles, i-period+1, i)
		if !ok {
			continue
		}
		if hh == ll {
			out[i] = 50
			continue
		}
		out[i] = (candles[i].Close - ll) / (hh - ll) * 100
	}
	return out
}

// Stochastic returns %K over kPeriod and %D = MA(%K, dPeriod).
func Stochastic(candles []models.Candle, kPeriod, dPeriod int) models.StochasticSeries {
	k := rsv(candles, kPeriod)
	return models.StochasticSeries{K: k, D: MA(k, dPeriod)}
}

// KDJ smooths the raw stochastic value: K and D start at 50 and move by
// 1/m1 and 1/m2 of the gap each bar; J = 3K - 2D.
func KDJ(candles []models.Candle, period, m1, m2 int) models.KDJSeries {
	n := len(candles)
	k, d, j := nanSeries(n), nanSeries(n), nanSeries(n)
	if period <= 0 || m1 <= 0 || m2 <= 0 {
		return models.KDJSeries{K: k, D: d, J: j}
	}
	raw := rsv(candles, period)
	prevK, prevD := 50.0, 50.0
	a1, a2 := 1/float64(m1), 1/float64(m2)
	for i := period - 1; i < n; i++ {
		prevK = (1-a1)*prevK + a1*raw[i]
		prevD = (1-a2)*prevD + a2*prevK
		k[i] = prevK
		d[i] = prevD
		j[i] = 3*prevK - 2*prevD
	}
	return models.KDJSeries{K: k, D: d, J: j}
}

// CCI is the commodity channel index over typical price with the 0.015
// Lambert constant. A zero mean deviation reads 0.
func CCI(candles []models.Candle, period int) models.Series {
	n := len(candles)
	out := nanSeries(n)
	if period <= 0 || period > n {
		return out
	}
	tp := make([]float64, n)
	for i, c := range candles {
		tp[i] = (c.High + c.Low + c.Close) / 3
	}
	sma := MA(tp, period)
	for i := period - 1; i < n; i++ {
		m := sma[i]
		if math.IsNaN(m) {
			continue
		}
		var dev float64
		for j := i - period + 1; j <= i; j++ {
			dev += math.Abs(tp[j] - m)
		}
		md := dev / float64(period)
		if md == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - m) / (0.015 * md)
	}
	return out
}
