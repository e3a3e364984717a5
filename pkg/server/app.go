package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "FuelPhases/internal/domain/repository"
	"FuelPhases/internal/usecase"
	pkgch "FuelPhases/pkg/clickhouse"
	"FuelPhases/pkg/config"
	xhttp "FuelPhases/pkg/http"
	"FuelPhases/pkg/http/middleware"
	pkgkafka "FuelPhases/pkg/kafka"
	applogger "FuelPhases/pkg/logger"
	"FuelPhases/pkg/tracing"
)

// Precomputer runs a batch precompute.
type Precomputer interface {
	Run(ctx context.Context, fuels []string) (*usecase.PrecomputeSummary, error)
}

// JobQueue is the background job runner.
type JobQueue interface {
	Start() error
	Stop(ctx context.Context) error
}

// EventSink publishes computed events and buffers them while the broker is down.
type EventSink interface {
	Start(ctx context.Context)
	Close() error
}

// Closer is anything shut down last.
type Closer interface {
	Close() error
}

// Stream is the live push hub.
type Stream interface {
	Close()
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server

	chClient   *pkgch.Client
	phaseStore domrepo.PhaseStore
	cache      Closer
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	queue      JobQueue
	limiter    middleware.Limiter
	events     EventSink
	stream     Stream
	precompute Precomputer

	shutdownTracing tracing.ShutdownFunc
}

// New creates a new App instance. Optional parts are attached with the setters.
func New(cfg *config.Config, l *applogger.Logger, h xhttp.Handler) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, l: l, httpHandler: h}
}

func (a *App) SetTracingShutdown(fn tracing.ShutdownFunc) { a.shutdownTracing = fn }

func (a *App) SetClickHouse(ch *pkgch.Client, store domrepo.PhaseStore) {
	a.chClient = ch
	a.phaseStore = store
}

func (a *App) SetCache(c Closer) { a.cache = c }

func (a *App) SetConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) {
	a.consumer = c
	a.kh = h
}

func (a *App) SetQueue(q JobQueue) { a.queue = q }

func (a *App) SetRateLimiter(l middleware.Limiter) { a.limiter = l }

func (a *App) SetEvents(sink EventSink, stream Stream) {
	a.events = sink
	a.stream = stream
}

func (a *App) SetPrecompute(p Precomputer) { a.precompute = p }

// HTTPServer exposes the server built by Run; nil before Run.
func (a *App) HTTPServer() *xhttp.Server { return a.httpServer }

func (a *App) buildHTTPServer() *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
		xhttp.WithSlowRequest(a.cfg.Server.SlowRequest),
		xhttp.WithLogger(a.l),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	if a.limiter != nil {
		opts = append(opts, xhttp.WithRateLimiter(a.limiter))
	}
	if a.chClient != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", a.chClient.Health))
	}
	return xhttp.NewServer(a.httpHandler, opts...)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.phaseStore != nil {
		if err := a.phaseStore.Init(ctx); err != nil {
			a.l.Warn("phase store init failed", applogger.Error(err))
		}
	}

	if a.events != nil {
		a.events.Start(ctx)
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.l.Error("queue start error", applogger.Error(err))
			return err
		}
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	a.httpServer = a.buildHTTPServer()
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.cfg.Precompute.OnStart && a.precompute != nil {
		go func() {
			summary, err := a.precompute.Run(ctx, a.cfg.Precompute.Fuels)
			if err != nil {
				a.l.Warn("startup precompute skipped", applogger.Error(err))
				return
			}
			a.l.Info("startup precompute done", applogger.Int("failed", summary.Failed()))
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown stops intake first, then workers, then the clients they use.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.stream != nil {
		a.stream.Close()
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.l.Warn("queue stop error", applogger.Error(err))
		}
	}

	// the collector ships through the producer closed by the event sink
	a.l.RemoveCollector()
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.l.Warn("event publisher close error", applogger.Error(err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(shutdownCtx); err != nil {
			a.l.Warn("tracing shutdown error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
