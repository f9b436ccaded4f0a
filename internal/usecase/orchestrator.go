package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockResearch/internal/domain/models"
	"StockResearch/internal/domain/repository"
	"StockResearch/internal/domain/service"
	"StockResearch/internal/services/analyzers"
	"StockResearch/internal/services/features"
	"StockResearch/internal/services/indicators"
	"StockResearch/pkg/logger"
)

var (
	// ErrMissingIdentifier is returned when market, symbol or interval is empty.
	ErrMissingIdentifier = errors.New("market, symbol and interval are required")
	ErrInvalidAnalyzer   = errors.New("analyzer needs a name and a positive weight")
)

// Analyzer run outcomes reported to metrics.
const (
	runOK      = "ok"
	runError   = "error"
	runPanic   = "panic"
	runInvalid = "invalid"
)

// DefaultAnalyzers is the registry a new Orchestrator starts with.
func DefaultAnalyzers() []service.Analyzer {
	return []service.Analyzer{
		analyzers.NewTrendAnalyzer(),
		analyzers.NewMomentumAnalyzer(),
		analyzers.NewVolumeAnalyzer(),
	}
}

type OrchestratorOption func(*Orchestrator)

// WithAnalyzers replaces the default registry.
func WithAnalyzers(list ...service.Analyzer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.analyzers = append([]service.Analyzer(nil), list...)
	}
}

func WithLogger(l *logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithMetrics(m repository.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithMaxParallel bounds concurrent stocks in BatchAnalyze.
func WithMaxParallel(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}

// WithItemTimeout bounds each stock in BatchAnalyze. Zero disables it.
func WithItemTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.itemTimeout = d
	}
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator owns the analyzer registry and the indicator source, and
// drives one analysis from candles to AggregateResult.
type Orchestrator struct {
	mu        sync.RWMutex
	analyzers []service.Analyzer

	indicators  service.IndicatorProvider
	log         *logger.Logger
	metrics     repository.Metrics
	now         func() time.Time
	maxParallel int
	itemTimeout time.Duration
}

// NewOrchestrator wires the indicator provider (usually the indicator cache).
// A nil provider computes indicators on every call.
func NewOrchestrator(ind service.IndicatorProvider, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		analyzers:   DefaultAnalyzers(),
		indicators:  ind,
		log:         logger.NewNop(),
		metrics:     repository.NopMetrics{},
		now:         time.Now,
		maxParallel: 4,
		itemTimeout: 30 * time.Second,
	}
	if o.indicators == nil {
		o.indicators = computeOnly{}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type computeOnly struct{}

func (computeOnly) CalculateAndCacheIndicators(_ context.Context, _, _, _ string, candles []models.Candle) *models.IndicatorBundle {
	return indicators.Calculate(candles)
}

// GetAnalyzersInfo lists descriptors in registry order.
func (o *Orchestrator) GetAnalyzersInfo() []models.AnalyzerDescriptor {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]models.AnalyzerDescriptor, 0, len(o.analyzers))
	for _, a := range o.analyzers {
		out = append(out, a.Info())
	}
	return out
}

// AddAnalyzer appends a, or replaces the registered analyzer with the same name
// in place.
func (o *Orchestrator) AddAnalyzer(a service.Analyzer) error {
	if a == nil {
		return ErrInvalidAnalyzer
	}
	info := a.Info()
	if info.Name == "" || !(info.Weight > 0) || math.IsInf(info.Weight, 0) {
		return fmt.Errorf("%w: %q weight %v", ErrInvalidAnalyzer, info.Name, info.Weight)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for i, existing := range o.analyzers {
		if existing.Info().Name == info.Name {
			o.analyzers[i] = a
			return nil
		}
	}
	o.analyzers = append(o.analyzers, a)
	return nil
}

// RemoveAnalyzer drops the analyzer called name. Unknown names are ignored.
func (o *Orchestrator) RemoveAnalyzer(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, a := range o.analyzers {
		if a.Info().Name == name {
			o.analyzers = append(o.analyzers[:i:i], o.analyzers[i+1:]...)
			return true
		}
	}
	return false
}

func (o *Orchestrator) snapshot() []service.Analyzer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]service.Analyzer(nil), o.analyzers...)
}

type moduleRun struct {
	res    models.AnalysisResult
	err    error
	logged bool
}

// AnalyzeStock runs every registered analyzer over one candle sequence.
//
// Only missing identifiers and a cancelled ctx produce an error. Failing,
// panicking or contract-violating analyzers are left out of the aggregate
// and listed in AggregateResult.Errors.
func (o *Orchestrator) AnalyzeStock(ctx context.Context, market, symbol, interval string, candles []models.Candle) (*models.AggregateResult, error) {
	if market == "" || symbol == "" || interval == "" {
		return nil, fmt.Errorf("%w: market=%q symbol=%q interval=%q", ErrMissingIdentifier, market, symbol, interval)
	}
	start := time.Now()
	log := o.log.With(
		logger.String("market", market),
		logger.String("symbol", symbol),
		logger.String("interval", interval),
	)

	ind := o.indicators.CalculateAndCacheIndicators(ctx, market, symbol, interval, candles)
	ac := models.NewAnalysisContext(market, symbol, interval, candles, ind, o.now())

	list := o.snapshot()
	runs := make([]moduleRun, len(list))
	var wg sync.WaitGroup
	for i, a := range list {
		wg.Add(1)
		go func(i int, a service.Analyzer) {
			defer wg.Done()
			runs[i] = o.runOne(ctx, a, ac)
		}(i, a)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &models.AggregateResult{
		RequestID:     uuid.NewString(),
		Market:        market,
		Symbol:        symbol,
		Interval:      interval,
		CandleCount:   len(candles),
		ModuleResults: make(models.ModuleResults, 0, len(list)),
		Timestamp:     ac.Timestamp,
		Errors:        map[string]string{},
	}

	survivors := make([]scored, 0, len(list))
	for i, a := range list {
		info := a.Info()
		run := runs[i]
		if run.err != nil {
			res.Errors[info.Name] = run.err.Error()
			if run.logged {
				continue
			}
			log.Warn("analyzer excluded", logger.String("module", info.Name), logger.Error(run.err))
			continue
		}
		if !a.ValidateResult(run.res) {
			res.Errors[info.Name] = fmt.Sprintf("invalid result: score=%v confidence=%v signal=%q",
				run.res.Score, run.res.Confidence, run.res.Signal)
			o.metrics.RecordAnalyzerRun(info.Name, runInvalid, 0)
			log.Warn("analyzer result rejected",
				logger.String("module", info.Name),
				logger.Float64("score", run.res.Score),
				logger.Float64("confidence", run.res.Confidence),
				logger.String("signal", string(run.res.Signal)))
			continue
		}
		res.ModuleResults = append(res.ModuleResults, models.ModuleResult{Name: info.Name, Result: run.res})
		survivors = append(survivors, scored{
			name:     info.Name,
			res:      run.res,
			weight:   info.Weight,
			weighted: a.WeightedScore(run.res),
		})
	}

	res.OverallScore, res.OverallConfidence, res.OverallSignal = aggregate(survivors)
	res.Recommendations = recommend(survivors, res.OverallSignal, res.OverallConfidence, interval)
	res.Summary = summarize(res, survivors)
	if v := features.AnnualizedVolatility(candles, interval); !math.IsNaN(v) && !math.IsInf(v, 0) {
		res.Volatility = v
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}

	o.metrics.RecordAggregate(string(res.OverallSignal), time.Since(start).Seconds())
	log.Debug("analysis complete",
		logger.String("request_id", res.RequestID),
		logger.Float64("score", res.OverallScore),
		logger.String("signal", string(res.OverallSignal)),
		logger.Int("modules", len(survivors)))
	return res, nil
}

func (o *Orchestrator) runOne(ctx context.Context, a service.Analyzer, ac *models.AnalysisContext) (run moduleRun) {
	name := a.Info().Name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			run = moduleRun{err: fmt.Errorf("panic: %v", r), logged: true}
			o.metrics.RecordAnalyzerRun(name, runPanic, time.Since(start).Seconds())
			o.log.Error("analyzer panicked",
				logger.String("module", name),
				logger.String("market", ac.Market),
				logger.String("symbol", ac.Symbol),
				logger.String("interval", ac.Interval),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
		}
	}()

	res, err := a.Analyze(ctx, ac)
	outcome := runOK
	if err != nil {
		outcome = runError
	}
	o.metrics.RecordAnalyzerRun(name, outcome, time.Since(start).Seconds())
	return moduleRun{res: res, err: err}
}
