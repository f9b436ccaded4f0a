package analyzers

import (
	"context"
	"math"

	"StockResearch/internal/domain/models"
)

const (
	VolumeName   = "volume"
	VolumeWeight = 1.0

	// VolumeTrendLookback is the bar distance for price, OBV and volume trends.
	VolumeTrendLookback = 5
	// FlatPriceBand is the relative move treated as flat.
	FlatPriceBand = 0.005
	// ThinVolumeRatio flags sessions well below average volume.
	ThinVolumeRatio = 0.7
)

// VolumeAnalyzer looks for accumulation and distribution from OBV and
// volume relative to its moving average.
type VolumeAnalyzer struct {
	Base
	cfg settings
}

func NewVolumeAnalyzer(opts ...Option) *VolumeAnalyzer {
	cfg := newSettings(VolumeWeight, opts)
	return &VolumeAnalyzer{
		Base: NewBase(VolumeName, "OBV trend and volume versus its moving average", cfg.weight),
		cfg:  cfg,
	}
}

func (a *VolumeAnalyzer) Analyze(ctx context.Context, ac *models.AnalysisContext) (models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return models.AnalysisResult{}, err
	}
	n := len(ac.Candles)
	need := a.cfg.minCandles
	if need <= 2*VolumeTrendLookback {
		need = 2*VolumeTrendLookback + 1
	}
	if n < need {
		return InsufficientData(n, need), nil
	}
	ind := bundleOf(ac)
	cs := ac.Candles
	last := n - 1
	price, base := cs[last].Close, cs[last-VolumeTrendLookback].Close
	if !finite(price, base) {
		return malformed("close prices are not finite"), nil
	}
	var sc scorecard

	ratio := 1.0
	if vma := ind.VolumeMA20.At(last); finite(vma, cs[last].Volume) && vma > 0 {
		ratio = cs[last].Volume / vma
	}
	change := 0.0
	if base != 0 {
		change = (price - base) / math.Abs(base)
	}
	priceUp, priceDown := change > FlatPriceBand, change < -FlatPriceBand
	obvChange := ind.OBV.At(last) - ind.OBV.At(last-VolumeTrendLookback)
	obvUp, obvDown := obvChange > 0, obvChange < 0
	volumeRising := meanVolume(cs[n-VolumeTrendLookback:]) > meanVolume(cs[n-2*VolumeTrendLookback:n-VolumeTrendLookback])

	switch {
	case priceUp && ratio > 1 && obvUp:
		sc.bullish(25, "accumulation: price %+.1f%% on %.1fx average volume with rising OBV", change*100, ratio)
	case !priceUp && ratio > 1 && volumeRising:
		sc.bearish(25, "distribution: flat/falling price %+.1f%% on rising volume (%.1fx average)", change*100, ratio)
	}

	switch {
	case obvUp:
		sc.bullish(10, "OBV rising")
	case obvDown:
		sc.bearish(10, "OBV falling")
	}

	switch {
	case priceUp && obvDown:
		sc.bearish(5, "bearish OBV divergence")
	case priceDown && obvUp:
		sc.bullish(5, "bullish OBV divergence")
	}

	confidence := 40 + math.Min(30, math.Abs(ratio-1)*30)
	if (priceUp && obvUp) || (priceDown && obvDown) {
		confidence += 15
	}
	if ratio < ThinVolumeRatio {
		confidence -= 10
		sc.note("thin volume (%.1fx average)", ratio)
	}
	if len(sc.notes) == 0 {
		sc.note("volume neutral")
	}

	score := sc.score()
	return models.AnalysisResult{
		Score:      score,
		Confidence: clamp(confidence, 0, 100),
		Signal:     signalFromScore(score, a.cfg),
		Reasoning:  sc.reasoning(),
	}, nil
}

func meanVolume(cs []models.Candle) float64 {
	if len(cs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cs {
		sum += c.Volume
	}
	return sum / float64(len(cs))
}
