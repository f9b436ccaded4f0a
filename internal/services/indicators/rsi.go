package indicators

import (
	"math"

	"StockResearch/internal/domain/models"
)

// RSI is Wilder's relative strength index. The first period entries are NaN.
// A zero average loss clamps the value to 100.
func RSI(values []float64, period int) models.Series {
	n := len(values)
	out := nanSeries(n)
	if period <= 0 || n <= period {
		return out
	}
	p := float64(period)

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain, avgLoss := gain/p, loss/p
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		d := values[i] - values[i-1]
		var g, l float64
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if math.IsNaN(avgGain) || math.IsNaN(avgLoss) {
		return math.NaN()
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
