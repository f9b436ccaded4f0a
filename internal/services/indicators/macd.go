package indicators

import "StockResearch/internal/domain/models"

// MACD returns the fast/slow EMA difference, its signal EMA and the histogram.
func MACD(values []float64, fast, slow, signal int) models.MACDSeries {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	diff := make(models.Series, len(values))
	for i := range diff {
		diff[i] = fastEMA[i] - slowEMA[i]
	}
	sig := EMA(diff, signal)
	hist := make(models.Series, len(values))
	for i := range hist {
		hist[i] = diff[i] - sig[i]
	}
	return models.MACDSeries{MACD: diff, Signal: sig, Histogram: hist}
}
