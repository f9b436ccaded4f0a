// Package indicators computes technical indicators over ordered candle
// sequences. Every series output has the same length as its input and holds
// NaN where history is insufficient. Non-finite inputs never panic: windowed
// indicators report NaN for windows that contain them, recursive ones carry
// the NaN forward.
package indicators

import (
	"math"

	"StockResearch/internal/domain/models"
)

func nanSeries(n int) models.Series {
	out := make(models.Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// MA is the simple moving average. The first period-1 entries are NaN and a
// period longer than the input yields an all-NaN series.
func MA(values []float64, period int) models.Series {
	out := nanSeries(len(values))
	if period <= 0 || period > len(values) {
		return out
	}
	var sum float64
	bad := 0
	for i, v := range values {
		if isFinite(v) {
			sum += v
		} else {
			bad++
		}
		if i >= period {
			if old := values[i-period]; isFinite(old) {
				sum -= old
			} else {
				bad--
			}
		}
		if i >= period-1 && bad == 0 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA is the exponential moving average seeded with the first value,
// smoothing factor k = 2/(period+1).
func EMA(values []float64, period int) models.Series {
	out := nanSeries(len(values))
	if period <= 0 || len(values) == 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	prev := values[0]
	out[0] = prev
	for i := 1; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}
