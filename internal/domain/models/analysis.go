package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Signal is the trading direction suggested by an analyzer.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Valid reports whether s is one of buy, sell or hold.
func (s Signal) Valid() bool {
	switch s {
	case SignalBuy, SignalSell, SignalHold:
		return true
	default:
		return false
	}
}

// AnalyzerDescriptor identifies a registered analyzer. Name is unique and
// doubles as the moduleResults key; Weight must be positive.
type AnalyzerDescriptor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// AnalysisContext is built once per request and shared read-only by all analyzers.
type AnalysisContext struct {
	Market     string
	Symbol     string
	Interval   string
	Candles    []Candle
	Indicators *IndicatorBundle
	Timestamp  time.Time
}

// NewAnalysisContext copies candles so later changes by the caller are not observed.
func NewAnalysisContext(market, symbol, interval string, candles []Candle, ind *IndicatorBundle, ts time.Time) *AnalysisContext {
	cs := make([]Candle, len(candles))
	copy(cs, candles)
	if ind == nil {
		ind = &IndicatorBundle{}
	}
	return &AnalysisContext{
		Market:     market,
		Symbol:     symbol,
		Interval:   interval,
		Candles:    cs,
		Indicators: ind,
		Timestamp:  ts,
	}
}

// AnalysisResult is the output of a single analyzer.
type AnalysisResult struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Signal     Signal  `json:"signal"`
	Reasoning  string  `json:"reasoning"`
}

type ModuleResult struct {
	Name   string
	Result AnalysisResult
}

// ModuleResults keeps per-module results in registry order.
// It encodes as a JSON object whose keys follow that order.
type ModuleResults []ModuleResult

// Get returns the result recorded for name.
func (m ModuleResults) Get(name string) (AnalysisResult, bool) {
	for _, r := range m {
		if r.Name == name {
			return r.Result, true
		}
	}
	return AnalysisResult{}, false
}

// Names returns module names in order.
func (m ModuleResults) Names() []string {
	out := make([]string, 0, len(m))
	for _, r := range m {
		out = append(out, r.Name)
	}
	return out
}

func (m ModuleResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Result)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *ModuleResults) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*m = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("module results: expected object")
	}
	out := ModuleResults{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("module results: expected key")
		}
		var r AnalysisResult
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("module results %s: %w", name, err)
		}
		out = append(out, ModuleResult{Name: name, Result: r})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// Risk tiers attached to a recommendation.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Holding timeframes attached to a recommendation.
const (
	TimeframeShort  = "short-term"
	TimeframeMedium = "medium-term"
	TimeframeLong   = "long-term"
)

type Recommendations struct {
	Action          Signal   `json:"action"`
	Confidence      float64  `json:"confidence"`
	RiskLevel       string   `json:"riskLevel"`
	Timeframe       string   `json:"timeframe"`
	Reasoning       string   `json:"reasoning"`
	AgreeingModules []string `json:"agreeingModules"`
}

// AggregateResult is the combined outcome of every analyzer for one instrument.
type AggregateResult struct {
	RequestID         string            `json:"requestId"`
	Market            string            `json:"market"`
	Symbol            string            `json:"symbol"`
	Interval          string            `json:"interval"`
	CandleCount       int               `json:"candleCount"`
	OverallScore      float64           `json:"overallScore"`
	OverallConfidence float64           `json:"overallConfidence"`
	OverallSignal     Signal            `json:"overallSignal"`
	ModuleResults     ModuleResults     `json:"moduleResults"`
	Recommendations   Recommendations   `json:"recommendations"`
	Summary           string            `json:"summary"`
	Volatility        float64           `json:"volatility"`
	Timestamp         time.Time         `json:"timestamp"`
	Errors            map[string]string `json:"errors,omitempty"`
}

// StockRequest is one unit of work for batch and queued analysis.
type StockRequest struct {
	Market   string   `json:"market"`
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Candles  []Candle `json:"candles"`
}

// BatchResult pairs a StockRequest with its outcome. Result is nil when Error is set.
type BatchResult struct {
	Market   string           `json:"market"`
	Symbol   string           `json:"symbol"`
	Interval string           `json:"interval"`
	Result   *AggregateResult `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}
