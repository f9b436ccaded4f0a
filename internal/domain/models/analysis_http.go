package models

// Requests for analysis HTTP endpoints.

type AnalyzeRequest struct {
	Market   string   `json:"market" validate:"required,max=16"`
	Symbol   string   `json:"symbol" validate:"required,max=32"`
	Interval string   `json:"interval" default:"1d" validate:"omitempty,oneof=1m 5m 15m 30m 1h 4h 1d 1wk 1mo"`
	Candles  []Candle `json:"candles" validate:"max=10000"`
}

// ToStockRequest converts the HTTP payload into a domain work item.
func (r *AnalyzeRequest) ToStockRequest() StockRequest {
	return StockRequest{Market: r.Market, Symbol: r.Symbol, Interval: r.Interval, Candles: r.Candles}
}

type BatchAnalyzeRequest struct {
	Stocks []AnalyzeRequest `json:"stocks" validate:"required,min=1,max=200,dive"`
}

type StoredAnalyzeRequest struct {
	Market   string `param:"market" validate:"required,max=16"`
	Symbol   string `param:"symbol" validate:"required,max=32"`
	Interval string `query:"interval" default:"1d" validate:"oneof=1m 5m 15m 30m 1h 4h 1d 1wk 1mo"`
	N        int    `query:"n" default:"250" validate:"gte=1,lte=5000"`
}

type ClearCacheRequest struct {
	Market   string `param:"market" json:"market" validate:"required"`
	Symbol   string `query:"symbol" json:"symbol,omitempty"`
	Interval string `query:"interval" json:"interval,omitempty"`
}
