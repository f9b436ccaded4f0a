package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// Series is a numeric series aligned 1:1 with the candle index.
// Positions without enough history hold NaN.
type Series []float64

// At returns the value at i, or NaN when i is out of range.
func (s Series) At(i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// MarshalJSON writes NaN and infinities as null.
func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(s)*10)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	buf = append(buf, ']')
	return buf, nil
}

// UnmarshalJSON reads null entries back as NaN.
func (s *Series) UnmarshalJSON(b []byte) error {
	var raw []*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Series, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	*s = out
	return nil
}

type MACDSeries struct {
	MACD      Series `json:"macd"`
	Signal    Series `json:"signal"`
	Histogram Series `json:"histogram"`
}

type BollingerBands struct {
	Upper  Series `json:"upper"`
	Middle Series `json:"middle"`
	Lower  Series `json:"lower"`
}

type StochasticSeries struct {
	K Series `json:"k"`
	D Series `json:"d"`
}

type KDJSeries struct {
	K Series `json:"k"`
	D Series `json:"d"`
	J Series `json:"j"`
}

// IndicatorBundle holds every indicator computed for one candle sequence.
// All series have the same length as the candles they were computed from.
type IndicatorBundle struct {
	MA5        Series           `json:"ma5"`
	MA10       Series           `json:"ma10"`
	MA20       Series           `json:"ma20"`
	MA50       Series           `json:"ma50"`
	MA200      Series           `json:"ma200"`
	EMA12      Series           `json:"ema12"`
	EMA26      Series           `json:"ema26"`
	RSI        Series           `json:"rsi"`
	MACD       MACDSeries       `json:"macd"`
	Bollinger  BollingerBands   `json:"bollinger"`
	Stochastic StochasticSeries `json:"stochastic"`
	KDJ        KDJSeries        `json:"kdj"`
	CCI        Series           `json:"cci"`
	ATR        Series           `json:"atr"`
	ADX        Series           `json:"adx"`
	OBV        Series           `json:"obv"`
	VolumeMA20 Series           `json:"volumeMa20"`
}

// MovingAverage returns the field holding the simple moving average for
// period, or nil when the bundle has no such field.
func (b *IndicatorBundle) MovingAverage(period int) *Series {
	switch period {
	case 5:
		return &b.MA5
	case 10:
		return &b.MA10
	case 20:
		return &b.MA20
	case 50:
		return &b.MA50
	case 200:
		return &b.MA200
	}
	return nil
}
