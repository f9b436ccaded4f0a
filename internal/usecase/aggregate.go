package usecase

import (
	"fmt"
	"sort"
	"strings"

	"StockResearch/internal/domain/models"
	"StockResearch/internal/domain/repository"
	"StockResearch/internal/services/analyzers"
)

// Neutral aggregate when no module survives.
const (
	NoModulesScore      = analyzers.NeutralScore
	NoModulesConfidence = 0.0
)

// Agreement cut-offs for the risk tier.
const (
	LowRiskAgreement    = 2.0 / 3.0
	MediumRiskAgreement = 1.0 / 3.0
)

type scored struct {
	name     string
	res      models.AnalysisResult
	weight   float64
	weighted float64
}

var signalOrder = []models.Signal{models.SignalBuy, models.SignalSell, models.SignalHold}

// aggregate computes weight-normalised score and confidence, and the signal
// with the largest confidence x weight vote. A tie for the top vote is hold.
func aggregate(ms []scored) (score, confidence float64, signal models.Signal) {
	var wsum, ssum, csum float64
	for _, m := range ms {
		wsum += m.weight
		ssum += m.weighted
		csum += m.res.Confidence * m.weight
	}
	if len(ms) == 0 || wsum <= 0 {
		return NoModulesScore, NoModulesConfidence, models.SignalHold
	}
	score = convex(ssum/wsum, ms, func(r models.AnalysisResult) float64 { return r.Score })
	confidence = convex(csum/wsum, ms, func(r models.AnalysisResult) float64 { return r.Confidence })
	return clamp(score), clamp(confidence), vote(ms)
}

// convex keeps a weighted mean inside the [min, max] of its inputs, so equal
// inputs come back exactly rather than within rounding.
func convex(mean float64, ms []scored, field func(models.AnalysisResult) float64) float64 {
	lo, hi := field(ms[0].res), field(ms[0].res)
	for _, m := range ms[1:] {
		v := field(m.res)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	switch {
	case lo == hi, mean < lo:
		return lo
	case mean > hi:
		return hi
	}
	return mean
}

func vote(ms []scored) models.Signal {
	votes := map[models.Signal]float64{}
	present := map[models.Signal]bool{}
	for _, m := range ms {
		votes[m.res.Signal] += m.res.Confidence * m.weight
		present[m.res.Signal] = true
	}

	best := models.SignalHold
	bestVote := -1.0
	tied := false
	for _, s := range signalOrder {
		if !present[s] {
			continue
		}
		switch v := votes[s]; {
		case v > bestVote:
			best, bestVote, tied = s, v, false
		case v == bestVote:
			tied = true
		}
	}
	if tied {
		return models.SignalHold
	}
	return best
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func recommend(ms []scored, signal models.Signal, confidence float64, interval string) models.Recommendations {
	rec := models.Recommendations{
		Action:          signal,
		Confidence:      confidence,
		RiskLevel:       models.RiskHigh,
		Timeframe:       timeframeFor(interval),
		AgreeingModules: []string{},
	}
	if len(ms) == 0 {
		rec.Reasoning = "no analyzer produced a usable result"
		return rec
	}

	for _, m := range ms {
		if m.res.Signal == signal {
			rec.AgreeingModules = append(rec.AgreeingModules, m.name)
		}
	}
	agreement := float64(len(rec.AgreeingModules)) / float64(len(ms))
	switch {
	case agreement >= LowRiskAgreement:
		rec.RiskLevel = models.RiskLow
	case agreement >= MediumRiskAgreement:
		rec.RiskLevel = models.RiskMedium
	}

	if len(rec.AgreeingModules) == 0 {
		rec.Reasoning = fmt.Sprintf("%s by tie-break; no module signals %s", signal, signal)
	} else {
		rec.Reasoning = fmt.Sprintf("%s supported by %s (%d of %d modules)",
			signal, strings.Join(rec.AgreeingModules, ", "), len(rec.AgreeingModules), len(ms))
	}
	return rec
}

func timeframeFor(interval string) string {
	iv := repository.NormalizeInterval(interval)
	switch {
	case iv.IsIntraday():
		return models.TimeframeShort
	case iv == repository.Interval1wk || iv == repository.Interval1mo:
		return models.TimeframeLong
	default:
		return models.TimeframeMedium
	}
}

func summarize(res *models.AggregateResult, ms []scored) string {
	tally := map[models.Signal]int{}
	for _, m := range ms {
		tally[m.res.Signal]++
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %s): %d of %d modules analyzed %d candles; overall score %.1f with %.1f%% confidence, signal %s (buy %d, sell %d, hold %d).",
		res.Symbol, res.Market, res.Interval,
		len(ms), len(ms)+len(res.Errors), res.CandleCount,
		res.OverallScore, res.OverallConfidence, res.OverallSignal,
		tally[models.SignalBuy], tally[models.SignalSell], tally[models.SignalHold])
	if n := len(res.Errors); n > 0 {
		names := make([]string, 0, n)
		for name := range res.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, " Excluded: %s.", strings.Join(names, ", "))
	}
	return b.String()
}
