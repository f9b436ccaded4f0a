package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	models "StockResearch/internal/domain/models"
	domrepo "StockResearch/internal/domain/repository"
	icache "StockResearch/internal/service/cache"
	"StockResearch/internal/service/metrics"
	"StockResearch/internal/usecase"
	xhttp "StockResearch/pkg/http"
	xlogger "StockResearch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalysisService is the orchestrator surface the HTTP API needs.
type AnalysisService interface {
	AnalyzeStock(ctx context.Context, market, symbol, interval string, candles []models.Candle) (*models.AggregateResult, error)
	BatchAnalyze(ctx context.Context, reqs []models.StockRequest) []models.BatchResult
	GetAnalyzersInfo() []models.AnalyzerDescriptor
}

// CacheAdmin exposes indicator cache maintenance.
type CacheAdmin interface {
	GetCacheStats(ctx context.Context) icache.Stats
	ClearIndicatorsCache(ctx context.Context, market, symbol, interval string) error
}

// AnalysisEchoHandler serves the analysis API under /api.
type AnalysisEchoHandler struct {
	logger  *xlogger.Logger
	svc     AnalysisService
	cache   CacheAdmin
	candles domrepo.CandleStore
	timeout time.Duration
	mw      []echo.MiddlewareFunc
}

type HandlerOption func(*AnalysisEchoHandler)

// WithCandleStore enables GET /api/analysis/:market/:symbol.
func WithCandleStore(s domrepo.CandleStore) HandlerOption {
	return func(h *AnalysisEchoHandler) { h.candles = s }
}

// WithRequestTimeout bounds each analysis request.
func WithRequestTimeout(d time.Duration) HandlerOption {
	return func(h *AnalysisEchoHandler) { h.timeout = d }
}

// WithGroupMiddleware adds middleware to the /api group only.
func WithGroupMiddleware(m ...echo.MiddlewareFunc) HandlerOption {
	return func(h *AnalysisEchoHandler) { h.mw = append(h.mw, m...) }
}

func NewAnalysisEchoHandler(logger *xlogger.Logger, svc AnalysisService, cache CacheAdmin, opts ...HandlerOption) *AnalysisEchoHandler {
	metrics.Register()
	h := &AnalysisEchoHandler{logger: logger, svc: svc, cache: cache}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = xlogger.NewNop()
	}
	return h
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	mw := append([]echo.MiddlewareFunc{metrics.Middleware()}, h.mw...)
	g := e.Group("/api", mw...)
	g.POST("/analysis", h.Analyze)
	g.POST("/analysis/batch", h.Batch)
	g.GET("/analysis/:market/:symbol", h.AnalyzeStored)
	g.GET("/analyzers", h.Analyzers)
	g.GET("/cache/stats", h.CacheStats)
	g.DELETE("/cache/:market", h.ClearCache)
}

func (h *AnalysisEchoHandler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(c.Request().Context(), h.timeout)
	}
	return context.WithCancel(c.Request().Context())
}

func (h *AnalysisEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.svc.AnalyzeStock(ctx, req.Market, req.Symbol, intervalOrDefault(req.Interval), req.Candles)
	if err != nil {
		h.logger.Error("analyze usecase error",
			xlogger.String("market", req.Market),
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Batch(c echo.Context) error {
	req := &models.BatchAnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	items := make([]models.StockRequest, 0, len(req.Stocks))
	for i := range req.Stocks {
		item := req.Stocks[i].ToStockRequest()
		item.Interval = intervalOrDefault(item.Interval)
		items = append(items, item)
	}
	return xhttp.SuccessResponse(c, h.svc.BatchAnalyze(ctx, items))
}

func (h *AnalysisEchoHandler) AnalyzeStored(c echo.Context) error {
	if h.candles == nil {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_UNAVAILABLE", "", "candle store is not configured", http.StatusServiceUnavailable))
	}
	req := &models.StoredAnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	iv := intervalOrDefault(req.Interval)
	candles, err := h.candles.GetLatestNCandles(ctx, req.Market, req.Symbol, domrepo.NormalizeInterval(iv), req.N)
	if err != nil {
		h.logger.Error("candle store error",
			xlogger.String("market", req.Market),
			xlogger.String("symbol", req.Symbol),
			xlogger.String("interval", iv),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("failed to load candles for %s:%s", req.Market, req.Symbol).WithError(err))
	}
	if len(candles) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no candles for %s:%s %s", req.Market, req.Symbol, iv))
	}

	res, err := h.svc.AnalyzeStock(ctx, req.Market, req.Symbol, iv, candles)
	if err != nil {
		h.logger.Error("analyze usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Analyzers(c echo.Context) error {
	infos := h.svc.GetAnalyzersInfo()
	return xhttp.ListResponse(c, infos, int64(len(infos)))
}

func (h *AnalysisEchoHandler) CacheStats(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, h.cache.GetCacheStats(c.Request().Context()))
}

func (h *AnalysisEchoHandler) ClearCache(c echo.Context) error {
	req := &models.ClearCacheRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.cache.ClearIndicatorsCache(c.Request().Context(), req.Market, req.Symbol, req.Interval); err != nil {
		h.logger.Error("clear cache error", xlogger.String("market", req.Market), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, req)
}

func intervalOrDefault(iv string) string {
	if strings.TrimSpace(iv) == "" {
		return string(domrepo.DefaultInterval())
	}
	return iv
}

func mapError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrMissingIdentifier), errors.Is(err, icache.ErrMissingMarket):
		return xhttp.BadRequestErrorf("invalid request: %v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "analysis timed out", http.StatusGatewayTimeout).WithError(err)
	case errors.Is(err, context.Canceled):
		return xhttp.NewAppError("ERR_CANCELED", "", "request canceled", http.StatusRequestTimeout).WithError(err)
	default:
		return xhttp.InternalError("analysis failed").WithError(err)
	}
}
