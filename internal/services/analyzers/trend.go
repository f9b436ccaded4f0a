package analyzers

import (
	"context"
	"math"

	"StockResearch/internal/domain/models"
	"StockResearch/internal/services/indicators"
)

const (
	TrendName   = "trend"
	TrendWeight = 1.2

	// BreakoutLookback is the number of prior bars forming the recent range.
	BreakoutLookback = 20
	// StrongTrendADX marks an established trend.
	StrongTrendADX = 25.0

	trendAlignmentPoints = 25.0
	trendMA20Points      = 5.0
	trendBreakoutPoints  = 10.0
	trendStrengthPoints  = 10.0
)

// TrendAnalyzer scores moving-average alignment, range/band breakouts and
// ATR-normalised trend strength.
type TrendAnalyzer struct {
	Base
	cfg settings
}

func NewTrendAnalyzer(opts ...Option) *TrendAnalyzer {
	cfg := newSettings(TrendWeight, opts)
	return &TrendAnalyzer{
		Base: NewBase(TrendName, "Moving-average alignment, breakouts and ATR trend strength", cfg.weight),
		cfg:  cfg,
	}
}

func (a *TrendAnalyzer) Analyze(ctx context.Context, ac *models.AnalysisContext) (models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return models.AnalysisResult{}, err
	}
	n := len(ac.Candles)
	if n < a.cfg.minCandles {
		return InsufficientData(n, a.cfg.minCandles), nil
	}
	last := n - 1
	price := ac.Candles[last].Close
	if !finite(price) {
		return malformed("latest close is not finite"), nil
	}
	ind := bundleOf(ac)
	var sc scorecard

	// moving-average ordering, short to long
	mas := indicators.MovingAverages(ind)
	var ordered []float64
	for _, p := range indicators.MAPeriods {
		if v := mas[p].At(last); finite(v) {
			ordered = append(ordered, v)
		}
	}
	alignment := 0.0
	if pairs := len(ordered) - 1; pairs > 0 {
		up, down := 0, 0
		for i := 0; i < pairs; i++ {
			switch {
			case ordered[i] > ordered[i+1]:
				up++
			case ordered[i] < ordered[i+1]:
				down++
			}
		}
		alignment = float64(up-down) / float64(pairs)
		switch {
		case alignment > 0:
			sc.bullish(trendAlignmentPoints*alignment, "bullish MA alignment (%d/%d pairs)", up, pairs)
		case alignment < 0:
			sc.bearish(trendAlignmentPoints*-alignment, "bearish MA alignment (%d/%d pairs)", down, pairs)
		default:
			sc.note("mixed MA alignment")
		}
	}

	ma20 := ind.MA20.At(last)
	if finite(ma20) {
		if price > ma20 {
			sc.bullish(trendMA20Points, "price above MA20")
		} else if price < ma20 {
			sc.bearish(trendMA20Points, "price below MA20")
		}
	}

	breakout := 0
	hi, lo, ok := priorRange(ac.Candles, last, BreakoutLookback)
	upper, lower := ind.Bollinger.Upper.At(last), ind.Bollinger.Lower.At(last)
	switch {
	case (finite(upper) && price > upper) || (ok && price > hi):
		breakout = 1
		sc.bullish(trendBreakoutPoints, "breakout above recent range/upper band")
	case (finite(lower) && price < lower) || (ok && price < lo):
		breakout = -1
		sc.bearish(trendBreakoutPoints, "breakdown below recent range/lower band")
	}

	strength := 0.0
	atr := ind.ATR.At(last)
	if finite(atr, ma20) && atr > 0 {
		strength = math.Min(1, math.Abs(price-ma20)/(2*atr))
		dir := sign(alignment)
		if dir == 0 {
			dir = sign(price - ma20)
		}
		if dir != 0 && strength > 0 {
			sc.delta += dir * trendStrengthPoints * strength
			sc.note("ATR trend strength %.2f", strength)
		}
	}

	confidence := 40 + 30*math.Abs(alignment) + 20*strength
	if adx := ind.ADX.At(last); finite(adx) && adx >= StrongTrendADX {
		confidence += 10
		sc.note("ADX %.1f confirms trend", adx)
	}
	if breakout != 0 && alignment != 0 && float64(breakout) != sign(alignment) {
		confidence -= 10
		sc.note("breakout against MA alignment")
	}

	score := sc.score()
	return models.AnalysisResult{
		Score:      score,
		Confidence: clamp(confidence, 0, 100),
		Signal:     signalFromScore(score, a.cfg),
		Reasoning:  sc.reasoning(),
	}, nil
}

// priorRange is the high/low of up to lookback bars before index last.
func priorRange(candles []models.Candle, last, lookback int) (hi, lo float64, ok bool) {
	start := last - lookback
	if start < 0 {
		start = 0
	}
	if start >= last {
		return 0, 0, false
	}
	hi, lo = math.Inf(-1), math.Inf(1)
	for _, c := range candles[start:last] {
		if !finite(c.High, c.Low) {
			return 0, 0, false
		}
		hi = math.Max(hi, c.High)
		lo = math.Min(lo, c.Low)
	}
	return hi, lo, true
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
