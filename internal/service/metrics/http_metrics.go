package metrics

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stockresearch",
			Subsystem: "http",
			Name:      "latency_seconds",
			Help:      "Latency of analysis API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockresearch",
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Errors by analysis API endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors)
	})
}

// Observe records one endpoint call.
func Observe(endpoint string, started time.Time, failed bool) {
	EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
	if failed {
		EndpointErrors.WithLabelValues(endpoint).Inc()
	}
}

// Middleware times every request under its route pattern.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			endpoint := c.Request().Method + " " + c.Path()
			failed := err != nil || c.Response().Status >= 500
			Observe(endpoint, start, failed)
			return err
		}
	}
}
