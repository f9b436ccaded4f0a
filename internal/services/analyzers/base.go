package analyzers

import (
	"fmt"
	"math"
	"strings"

	"StockResearch/internal/domain/models"
)

// Tunable policy shared by all analyzers.
const (
	// MinCandles is the history required before an analyzer scores a series.
	MinCandles = 20

	BuyScoreThreshold  = 60.0
	SellScoreThreshold = 40.0

	NeutralScore           = 50.0
	InsufficientConfidence = 30.0
	MalformedConfidence    = 20.0
	InsufficientDataReason = "insufficient data"
)

// Option configures an analyzer.
type Option func(*settings)

type settings struct {
	weight     float64
	minCandles int
	buy        float64
	sell       float64
}

func newSettings(weight float64, opts []Option) settings {
	s := settings{
		weight:     weight,
		minCandles: MinCandles,
		buy:        BuyScoreThreshold,
		sell:       SellScoreThreshold,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithWeight overrides the aggregation weight. Non-positive values are ignored.
func WithWeight(w float64) Option {
	return func(s *settings) {
		if w > 0 {
			s.weight = w
		}
	}
}

// WithMinCandles overrides the insufficient-history threshold.
func WithMinCandles(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.minCandles = n
		}
	}
}

// WithThresholds overrides the buy/sell score cut-offs.
func WithThresholds(buy, sell float64) Option {
	return func(s *settings) {
		if buy > sell {
			s.buy = buy
			s.sell = sell
		}
	}
}

// Base carries the descriptor and the contract helpers every analyzer shares.
type Base struct {
	desc models.AnalyzerDescriptor
}

func NewBase(name, description string, weight float64) Base {
	return Base{desc: models.AnalyzerDescriptor{Name: name, Description: description, Weight: weight}}
}

func (b Base) Info() models.AnalyzerDescriptor { return b.desc }

// WeightedScore is score x weight, used only for aggregation.
func (b Base) WeightedScore(res models.AnalysisResult) float64 {
	return res.Score * b.desc.Weight
}

func (b Base) ValidateResult(res models.AnalysisResult) bool { return ValidateResult(res) }

// ValidateResult checks the result contract. Empty reasoning is accepted.
func ValidateResult(res models.AnalysisResult) bool {
	return res.Score >= 0 && res.Score <= 100 &&
		res.Confidence >= 0 && res.Confidence <= 100 &&
		res.Signal.Valid()
}

// InsufficientData is the fixed low-confidence hold returned for short series.
func InsufficientData(have, need int) models.AnalysisResult {
	return models.AnalysisResult{
		Score:      NeutralScore,
		Confidence: InsufficientConfidence,
		Signal:     models.SignalHold,
		Reasoning:  fmt.Sprintf("%s: %d candles, need at least %d", InsufficientDataReason, have, need),
	}
}

func malformed(what string) models.AnalysisResult {
	return models.AnalysisResult{
		Score:      NeutralScore,
		Confidence: MalformedConfidence,
		Signal:     models.SignalHold,
		Reasoning:  "malformed price data: " + what,
	}
}

func signalFromScore(score float64, s settings) models.Signal {
	switch {
	case score >= s.buy:
		return models.SignalBuy
	case score <= s.sell:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// scorecard accumulates score adjustments around the neutral score together
// with the bullish/bearish evidence count and a human readable trail.
type scorecard struct {
	delta float64
	bull  int
	bear  int
	notes []string
}

func (c *scorecard) bullish(delta float64, format string, args ...interface{}) {
	c.delta += delta
	c.bull++
	c.notes = append(c.notes, fmt.Sprintf(format, args...))
}

func (c *scorecard) bearish(delta float64, format string, args ...interface{}) {
	c.delta -= delta
	c.bear++
	c.notes = append(c.notes, fmt.Sprintf(format, args...))
}

func (c *scorecard) note(format string, args ...interface{}) {
	c.notes = append(c.notes, fmt.Sprintf(format, args...))
}

func (c *scorecard) score() float64 { return clamp(NeutralScore+c.delta, 0, 100) }

// agreement is |bull-bear| / (bull+bear), 0 when there is no evidence.
func (c *scorecard) agreement() float64 {
	votes := c.bull + c.bear
	if votes == 0 {
		return 0
	}
	return math.Abs(float64(c.bull-c.bear)) / float64(votes)
}

func (c *scorecard) reasoning() string { return strings.Join(c.notes, "; ") }

func bundleOf(ac *models.AnalysisContext) *models.IndicatorBundle {
	if ac.Indicators == nil {
		return &models.IndicatorBundle{}
	}
	return ac.Indicators
}
