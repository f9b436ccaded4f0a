package indicators

import "StockResearch/internal/domain/models"

// OBV is on-balance volume starting at 0 on the first bar.
func OBV(candles []models.Candle) models.Series {
	out := make(models.Series, len(candles))
	var obv float64
	for i := 1; i < len(candles); i++ {
		c, prev := candles[i].Close, candles[i-1].Close
		switch {
		case c > prev:
			obv += candles[i].Volume
		case c < prev:
			obv -= candles[i].Volume
		}
		out[i] = obv
	}
	return out
}
