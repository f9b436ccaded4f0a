package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockResearch/internal/scheduler"
	xhttp "StockResearch/pkg/http"
	pkgkafka "StockResearch/pkg/kafka"
	applogger "StockResearch/pkg/logger"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	kh              pkgkafka.MessageHandler
	scheduler       *scheduler.Scheduler
	closers         []namedCloser
	shutdownTimeout time.Duration
}

type Option func(*App)

// WithConsumer runs the Kafka consumer with handler registered.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.kh = h
	}
}

func WithScheduler(s *scheduler.Scheduler) Option {
	return func(a *App) { a.scheduler = s }
}

// WithCloser registers a resource closed on shutdown, in reverse registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) { a.shutdownTimeout = d }
}

// New creates a new App instance with all dependencies.
func New(l *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	a := &App{
		log:             l,
		httpServer:      httpServer,
		shutdownTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = applogger.NewNop()
	}
	return a
}

// Run starts the application and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done, then
// shuts down gracefully.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.start(); err != nil {
		_ = a.shutdown()
		return err
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) start() error {
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	return nil
}

// shutdown stops intake first (HTTP, consumer, cron), then closes the
// shared infrastructure clients.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	a.log.Info("shutting down")

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Warn("scheduler stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	// Flush the error digest while the producer is still open.
	a.log.RemoveCollector()

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", nc.name, err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
