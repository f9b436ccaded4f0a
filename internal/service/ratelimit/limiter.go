package ratelimit

import (
	"sync"
	"time"

	xhttp "StockResearch/pkg/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key (client IP for the HTTP API).
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*client
	rps   rate.Limit
	burst int
	idle  time.Duration
}

func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		m:     make(map[string]*client),
		rps:   rate.Limit(rps),
		burst: burst,
		idle:  10 * time.Minute,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	c, ok := l.m[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.rps, l.burst)}
		l.m[key] = c
	}
	c.seen = now
	l.mu.Unlock()
	return c.lim.AllowN(now, 1)
}

// Sweep drops buckets idle for longer than the idle window.
func (l *Limiter) Sweep() int {
	cutoff := time.Now().Add(-l.idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, c := range l.m {
		if c.seen.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}

// Middleware rejects requests over the per-IP budget with a 429 AppError.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded").
					WithParam("rps", float64(l.rps)).
					WithParam("burst", l.burst))
			}
			return next(c)
		}
	}
}
