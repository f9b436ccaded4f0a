package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"StockResearch/pkg/util"
)

// Candle represents one OHLCV observation for a fixed time bucket.
// Sequences are ordered ascending by Time.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// UnmarshalJSON accepts time as RFC3339 text or as unix seconds/milliseconds.
func (c *Candle) UnmarshalJSON(b []byte) error {
	var raw struct {
		Time   json.RawMessage `json:"time"`
		Open   float64         `json:"open"`
		High   float64         `json:"high"`
		Low    float64         `json:"low"`
		Close  float64         `json:"close"`
		Volume float64         `json:"volume"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t, err := parseCandleTime(raw.Time)
	if err != nil {
		return err
	}
	*c = Candle{Time: t, Open: raw.Open, High: raw.High, Low: raw.Low, Close: raw.Close, Volume: raw.Volume}
	return nil
}

func parseCandleTime(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if t, ok := util.ParseTime(s); ok {
			return t.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("candle time: unsupported format %q", s)
	}
	ts, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("candle time: %w", err)
	}
	sec := int64(ts)
	if sec > 1e11 { // ms
		return time.UnixMilli(sec).UTC(), nil
	}
	return time.Unix(sec, 0).UTC(), nil
}

// Closes extracts the close prices.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the traded volumes.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
