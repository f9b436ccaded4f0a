package indicators

import (
	"math"

	"StockResearch/internal/domain/models"
)

// Bollinger returns MA(period) with bands at k population standard
// deviations of the same window.
func Bollinger(values []float64, period int, k float64) models.BollingerBands {
	n := len(values)
	middle := MA(values, period)
	upper := nanSeries(n)
	lower := nanSeries(n)
	for i := range values {
		m := middle[i]
		if math.IsNaN(m) {
			continue
		}
		var ss float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - m
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(period))
		upper[i] = m + k*sd
		lower[i] = m - k*sd
	}
	return models.BollingerBands{Upper: upper, Middle: middle, Lower: lower}
}

// PercentB locates the close inside the band: 0 at the lower band, 1 at the upper.
func PercentB(close float64, bb models.BollingerBands, i int) float64 {
	up, lo := bb.Upper.At(i), bb.Lower.At(i)
	if math.IsNaN(up) || math.IsNaN(lo) {
		return math.NaN()
	}
	if up == lo {
		return 0.5
	}
	return (close - lo) / (up - lo)
}
