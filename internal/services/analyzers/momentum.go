package analyzers

import (
	"context"

	"StockResearch/internal/domain/models"
)

const (
	MomentumName   = "momentum"
	MomentumWeight = 1.0

	RSIOverbought        = 70.0
	RSIOversold          = 30.0
	StochasticOverbought = 80.0
	StochasticOversold   = 20.0
)

// MomentumAnalyzer reads RSI, MACD, KDJ and the stochastic oscillator.
type MomentumAnalyzer struct {
	Base
	cfg settings
}

func NewMomentumAnalyzer(opts ...Option) *MomentumAnalyzer {
	cfg := newSettings(MomentumWeight, opts)
	return &MomentumAnalyzer{
		Base: NewBase(MomentumName, "RSI, MACD crosses, KDJ and stochastic momentum", cfg.weight),
		cfg:  cfg,
	}
}

func (a *MomentumAnalyzer) Analyze(ctx context.Context, ac *models.AnalysisContext) (models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return models.AnalysisResult{}, err
	}
	n := len(ac.Candles)
	if n < a.cfg.minCandles {
		return InsufficientData(n, a.cfg.minCandles), nil
	}
	ind := bundleOf(ac)
	last := n - 1
	var sc scorecard

	rsi, rsiPrev := ind.RSI.At(last), ind.RSI.At(last-1)
	rsiRising := false
	overbought := false
	if finite(rsi) {
		switch {
		case rsi >= RSIOverbought:
			overbought = true
			sc.bearish(15, "RSI %.1f overbought", rsi)
		case rsi <= RSIOversold:
			sc.bullish(15, "RSI %.1f oversold", rsi)
		case rsi > 50 && finite(rsiPrev) && rsi > rsiPrev:
			rsiRising = true
			sc.bullish(10, "RSI %.1f rising", rsi)
		case rsi < 50 && finite(rsiPrev) && rsi < rsiPrev:
			sc.bearish(10, "RSI %.1f falling", rsi)
		default:
			sc.note("RSI %.1f neutral", rsi)
		}
	}

	h, hp := ind.MACD.Histogram.At(last), ind.MACD.Histogram.At(last-1)
	if finite(h, hp) {
		switch {
		case hp <= 0 && h > 0:
			sc.bullish(15, "bullish MACD cross")
			if rsiRising {
				sc.delta += 5
				sc.note("rising RSI confirms MACD cross")
			}
		case hp >= 0 && h < 0:
			sc.bearish(15, "bearish MACD cross")
			if overbought {
				sc.delta -= 5
				sc.note("overbought RSI confirms MACD cross")
			}
		case h > 0:
			sc.bullish(5, "MACD above signal")
		case h < 0:
			sc.bearish(5, "MACD below signal")
		}
	}

	k, d, j := ind.KDJ.K.At(last), ind.KDJ.D.At(last), ind.KDJ.J.At(last)
	if finite(k, d, j) {
		switch {
		case j > 100:
			sc.bearish(5, "KDJ J %.1f overbought", j)
		case j < 0:
			sc.bullish(5, "KDJ J %.1f oversold", j)
		case k > d:
			sc.bullish(5, "KDJ K above D")
		case k < d:
			sc.bearish(5, "KDJ K below D")
		}
	}

	sk, sd := ind.Stochastic.K.At(last), ind.Stochastic.D.At(last)
	if finite(sk, sd) {
		switch {
		case sk < StochasticOversold && sk > sd:
			sc.bullish(5, "stochastic turning up from oversold")
		case sk > StochasticOverbought && sk < sd:
			sc.bearish(5, "stochastic rolling over from overbought")
		}
	}

	confidence := 35.0
	if votes := sc.bull + sc.bear; votes > 0 {
		if votes > 4 {
			votes = 4
		}
		confidence += 45*sc.agreement() + 5*float64(votes)
	} else {
		sc.note("no momentum evidence")
	}

	score := sc.score()
	return models.AnalysisResult{
		Score:      score,
		Confidence: clamp(confidence, 0, 100),
		Signal:     signalFromScore(score, a.cfg),
		Reasoning:  sc.reasoning(),
	}, nil
}
