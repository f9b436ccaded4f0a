package indicators

import "StockResearch/internal/domain/models"

// Default lookbacks used by Calculate.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerK      = 2.0
	StochasticK     = 14
	StochasticD     = 3
	KDJPeriod       = 9
	KDJSmoothK      = 3
	KDJSmoothD      = 3
	CCIPeriod       = 20
	ATRPeriod       = 14
	ADXPeriod       = 14
	VolumeMAPeriod  = 20
)

// MAPeriods are the simple moving averages carried in every bundle, shortest
// first. Each must have a field in models.IndicatorBundle.
var MAPeriods = []int{5, 10, 20, 50, 200}

// Calculate computes the full indicator bundle for candles.
func Calculate(candles []models.Candle) *models.IndicatorBundle {
	closes := models.Closes(candles)
	volumes := models.Volumes(candles)
	b := &models.IndicatorBundle{
		EMA12:      EMA(closes, MACDFast),
		EMA26:      EMA(closes, MACDSlow),
		RSI:        RSI(closes, RSIPeriod),
		MACD:       MACD(closes, MACDFast, MACDSlow, MACDSignal),
		Bollinger:  Bollinger(closes, BollingerPeriod, BollingerK),
		Stochastic: Stochastic(candles, StochasticK, StochasticD),
		KDJ:        KDJ(candles, KDJPeriod, KDJSmoothK, KDJSmoothD),
		CCI:        CCI(candles, CCIPeriod),
		ATR:        ATR(candles, ATRPeriod),
		ADX:        ADX(candles, ADXPeriod),
		OBV:        OBV(candles),
		VolumeMA20: MA(volumes, VolumeMAPeriod),
	}
	for _, p := range MAPeriods {
		if slot := b.MovingAverage(p); slot != nil {
			*slot = MA(closes, p)
		}
	}
	return b
}

// MovingAverages returns the bundle's simple moving averages keyed by period.
func MovingAverages(b *models.IndicatorBundle) map[int]models.Series {
	out := make(map[int]models.Series, len(MAPeriods))
	for _, p := range MAPeriods {
		if slot := b.MovingAverage(p); slot != nil {
			out[p] = *slot
		}
	}
	return out
}
