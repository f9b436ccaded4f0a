package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"StockResearch/internal/domain/models"
	"StockResearch/pkg/logger"
)

// BatchAnalyze analyzes every request with bounded parallelism. Results keep
// input order; a failing, panicking or timed-out item only sets its own
// Error field.
func (o *Orchestrator) BatchAnalyze(ctx context.Context, reqs []models.StockRequest) []models.BatchResult {
	out := make([]models.BatchResult, len(reqs))
	sem := make(chan struct{}, o.maxParallel)
	var wg sync.WaitGroup

	for i, req := range reqs {
		out[i] = models.BatchResult{Market: req.Market, Symbol: req.Symbol, Interval: req.Interval}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			out[i].Error = ctx.Err().Error()
			continue
		}

		wg.Add(1)
		go func(i int, req models.StockRequest) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := o.analyzeItem(ctx, req)
			if err != nil {
				out[i].Error = err.Error()
				o.metrics.RecordError("batch_item")
				o.log.Warn("batch item failed",
					logger.String("market", req.Market),
					logger.String("symbol", req.Symbol),
					logger.String("interval", req.Interval),
					logger.Error(err))
				return
			}
			out[i].Result = res
		}(i, req)
	}
	wg.Wait()
	return out
}

var errItemTimeout = errors.New("analysis timed out")

func (o *Orchestrator) analyzeItem(ctx context.Context, req models.StockRequest) (*models.AggregateResult, error) {
	if o.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.itemTimeout)
		defer cancel()
	}

	type outcome struct {
		res *models.AggregateResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		res, err := o.AnalyzeStock(ctx, req.Market, req.Symbol, req.Interval, req.Candles)
		done <- outcome{res: res, err: err}
	}()

	select {
	case r := <-done:
		if errors.Is(r.err, context.DeadlineExceeded) {
			return nil, errItemTimeout
		}
		return r.res, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errItemTimeout
		}
		return nil, ctx.Err()
	}
}
