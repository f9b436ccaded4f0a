package repository

import "time"

// Interval is the candle resolution of a series.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval1wk: 7 * 24 * time.Hour,
	Interval1mo: 30 * 24 * time.Hour,
}

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	_, ok := intervalDurations[iv]
	return ok
}

// DefaultInterval returns the default interval.
func DefaultInterval() Interval { return Interval1d }

// NormalizeInterval converts raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	if s == "" {
		return DefaultInterval()
	}
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return DefaultInterval()
}

// Duration returns the bucket length; unknown intervals map to one day.
func (iv Interval) Duration() time.Duration {
	if d, ok := intervalDurations[iv]; ok {
		return d
	}
	return 24 * time.Hour
}

// IsIntraday reports whether buckets are shorter than a trading day.
func (iv Interval) IsIntraday() bool { return iv.Duration() < 24*time.Hour }

// BarsPerYear approximates the number of bars per year assuming
// 252 trading days of 6.5 hours.
func (iv Interval) BarsPerYear() float64 {
	const tradingDays = 252.0
	const sessionHours = 6.5
	switch iv {
	case Interval1wk:
		return 52
	case Interval1mo:
		return 12
	case Interval1d:
		return tradingDays
	}
	perDay := sessionHours * float64(time.Hour) / float64(iv.Duration())
	if perDay < 1 {
		perDay = 1
	}
	return tradingDays * perDay
}
