package service

import (
	"context"

	"StockResearch/internal/domain/models"
)

// Analyzer scores one instrument from a shared, read-only AnalysisContext.
// Analyze must return a well-formed result even for empty or short input.
type Analyzer interface {
	Info() models.AnalyzerDescriptor
	Analyze(ctx context.Context, ac *models.AnalysisContext) (models.AnalysisResult, error)
	WeightedScore(res models.AnalysisResult) float64
	ValidateResult(res models.AnalysisResult) bool
}

// IndicatorProvider resolves the indicator bundle for a candle sequence,
// from cache when the content is unchanged.
type IndicatorProvider interface {
	CalculateAndCacheIndicators(ctx context.Context, market, symbol, interval string, candles []models.Candle) *models.IndicatorBundle
}
