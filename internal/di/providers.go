package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	domrepo "FuelPhases/internal/domain/repository"
	domsvc "FuelPhases/internal/domain/service"
	"FuelPhases/internal/handler/api"
	"FuelPhases/internal/handler/ws"
	mid "FuelPhases/internal/middleware"
	internalrepo "FuelPhases/internal/repository"
	"FuelPhases/internal/service/ratelimit"
	"FuelPhases/internal/services/phases"
	"FuelPhases/internal/usecase"
	pkgcache "FuelPhases/pkg/cache"
	pkgch "FuelPhases/pkg/clickhouse"
	"FuelPhases/pkg/config"
	xhttp "FuelPhases/pkg/http"
	pkgkafka "FuelPhases/pkg/kafka"
	applogger "FuelPhases/pkg/logger"
	"FuelPhases/pkg/metrics"
	"FuelPhases/pkg/queue"
	"FuelPhases/pkg/server"
	"FuelPhases/pkg/tracing"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideTracing installs the tracer provider.
func ProvideTracing(cfg *config.Config) (tracing.ShutdownFunc, error) {
	return tracing.Setup(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Environment,
		SampleRatio: cfg.Tracing.SampleRatio,
		PrettyPrint: cfg.Tracing.PrettyPrint,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, fmt.Errorf("clickhouse: the server needs clickhouse.enabled")
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, clickHouseSchema(cfg)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func clickHouseSchema(cfg *config.Config) []string {
	return pkgch.Schema(cfg.ClickHouse.Database, cfg.ClickHouse.ObservationsTable, cfg.ClickHouse.PhasesTable)
}

// ProvideObservationStore reads observations from ClickHouse behind a circuit breaker.
func ProvideObservationStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) domrepo.ObservationStore {
	store := internalrepo.NewCHObservationStore(ch, cfg.ClickHouse.ObservationsTable)
	store.SetLogger(l)
	if !cfg.ClickHouse.Breaker.Enabled {
		return store
	}
	return internalrepo.NewBreakerObservationStore(store, internalrepo.BreakerConfig{
		Name:             "clickhouse-observations",
		MaxRequests:      cfg.ClickHouse.Breaker.MaxRequests,
		Interval:         cfg.ClickHouse.Breaker.Interval,
		Timeout:          cfg.ClickHouse.Breaker.Timeout,
		FailureThreshold: cfg.ClickHouse.Breaker.FailureThreshold,
	}, l)
}

// ProvidePhaseStore persists computed intervals to ClickHouse.
func ProvidePhaseStore(ch *pkgch.Client, cfg *config.Config) domrepo.PhaseStore {
	return internalrepo.NewCHPhaseStore(ch, cfg.ClickHouse.PhasesTable, clickHouseSchema(cfg))
}

// ProvideRedisCache connects to Redis when enabled; nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.PoolSize/2, 30*time.Second),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService layers memory over Redis, or uses memory alone without Redis.
func ProvideCacheService(rc *pkgcache.RedisCache, cfg *config.Config) pkgcache.Service {
	if rc == nil {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
	}
	return pkgcache.NewLayeredCache(rc,
		pkgcache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		pkgcache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
	)
}

// ProvideResultCache stores engine results in the cache service.
func ProvideResultCache(svc pkgcache.Service, cfg *config.Config) domrepo.ResultCache {
	return internalrepo.NewCacheResultStore(svc, cfg.Cache.TTL)
}

// ProvideEngine builds the phase engine from the engine section.
func ProvideEngine(cfg *config.Config) domsvc.PhaseEngine {
	e := cfg.Engine
	return phases.NewEngine(phases.WithParams(phases.Params{
		SmoothWindow:           e.SmoothWindow,
		VolWindow:              e.VolWindow,
		CorrWindow:             e.CorrWindow,
		MaxLag:                 e.MaxLag,
		MinRows:                e.MinRows,
		MAWindow:               e.MAWindow,
		AsymmetryThreshold:     e.AsymmetryThreshold,
		CorrelationThreshold:   e.CorrelationThreshold,
		VolRatioThreshold:      e.VolRatioThreshold,
		PriceVolPercentile:     e.PriceVolPercentile,
		BenchmarkVolPercentile: e.BenchmarkVolPercentile,
		VolEpsilon:             e.VolEpsilon,
		MaxGapDays:             e.MaxGapDays,
		MinDurationDays:        e.MinDurationDays,
	}))
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideEventPipeline publishes computed events to Kafka through a buffering
// pipeline. Without Kafka events are discarded.
func ProvideEventPipeline(producer *pkgkafka.Producer, m domrepo.Metrics, cfg *config.Config, l *applogger.Logger) *mid.EventPipeline {
	var next domrepo.EventPublisher = internalrepo.NoopPublisher{}
	if producer != nil {
		next = internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topics.PhasesComputed)
	}
	return mid.NewEventPipeline(next, m,
		mid.WithBufferSize(1000),
		mid.WithPipelineLogger(l),
	)
}

// ProvideKafkaConsumer creates a Kafka consumer when Kafka is enabled; nil otherwise.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l)
	consumer.WithConsumerHook(pkgkafka.TraceHook(l, cfg.Server.SlowRequest))
	return consumer, nil
}

// ProvideHub creates the websocket hub for computed events. With CORS enabled
// browsers on other origins may subscribe too.
func ProvideHub(cfg *config.Config, l *applogger.Logger) *ws.Hub {
	opts := []ws.Option{ws.WithLogger(l)}
	if cfg.Server.CORS {
		opts = append(opts, ws.WithCheckOrigin(func(*http.Request) bool { return true }))
	}
	return ws.NewHub(opts...)
}

// ProvideMarketPhasesUseCase creates the read-through query use case.
func ProvideMarketPhasesUseCase(
	store domrepo.ObservationStore,
	engine domsvc.PhaseEngine,
	cache domrepo.ResultCache,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.MarketPhasesUseCase {
	uc := usecase.NewMarketPhasesUseCase(store, engine, cache, m)
	uc.SetLogger(l)
	return uc
}

// ProvidePrecomputeUseCase creates the batch precompute use case. The cache
// service doubles as the lock so concurrent runs across replicas are refused.
func ProvidePrecomputeUseCase(
	uc *usecase.MarketPhasesUseCase,
	store domrepo.PhaseStore,
	pub *mid.EventPipeline,
	svc pkgcache.Service,
	hub *ws.Hub,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.PrecomputeUseCase {
	pc := usecase.NewPrecomputeUseCase(uc, store, pub, svc, usecase.PrecomputeConfig{
		OutputDir: cfg.Precompute.OutputDir,
		Timeout:   cfg.Precompute.Timeout,
		LockTTL:   cfg.Cache.LockTTL,
	})
	pc.SetLogger(l)
	pc.SetNotifier(hub)
	return pc
}

// ProvideObservationsHandler handles observation updates from Kafka.
func ProvideObservationsHandler(
	uc *usecase.MarketPhasesUseCase,
	pub *mid.EventPipeline,
	m domrepo.Metrics,
	hub *ws.Hub,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.KafkaObservationsHandler {
	h := usecase.NewKafkaObservationsHandler(cfg.Kafka.Topics.ObservationsUpdated, uc, pub, m)
	h.SetLogger(l)
	h.SetNotifier(hub)
	return h
}

// ProvideQueue creates the Redis job queue when enabled; nil otherwise.
func ProvideQueue(rc *pkgcache.RedisCache, pc *usecase.PrecomputeUseCase, cfg *config.Config, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Queue.Prefix))
	q.RegisterJob(usecase.NewPrecomputeJob(pc))
	return q
}

// ProvideRateLimiter creates the per-client limiter when enabled; nil otherwise.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
}

// ProvideHTTPHandler groups the API and stream routes.
func ProvideHTTPHandler(
	l *applogger.Logger,
	uc *usecase.MarketPhasesUseCase,
	q *queue.RedisQueue,
	pc *usecase.PrecomputeUseCase,
	hub *ws.Hub,
) xhttp.Handler {
	var jobs queue.Publisher
	if q != nil {
		jobs = q
	}
	return xhttp.Handlers{
		api.NewMarketPhasesEchoHandler(l, uc, jobs, pc),
		hub,
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	shutdownTracing tracing.ShutdownFunc,
	ch *pkgch.Client,
	phaseStore domrepo.PhaseStore,
	svc pkgcache.Service,
	producer *pkgkafka.Producer,
	pipeline *mid.EventPipeline,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaObservationsHandler,
	q *queue.RedisQueue,
	limiter *ratelimit.Limiter,
	hub *ws.Hub,
	pc *usecase.PrecomputeUseCase,
	handler xhttp.Handler,
) *server.App {
	if producer != nil && cfg.Log.Collector.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			Service:        cfg.Tracing.ServiceName,
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      internalrepo.NewKafkaPublisher(producer, cfg.Log.Collector.Topic),
		})
	}

	app := server.New(cfg, l, handler)
	app.SetTracingShutdown(shutdownTracing)
	app.SetClickHouse(ch, phaseStore)
	app.SetCache(svc)
	app.SetEvents(pipeline, hub)
	app.SetPrecompute(pc)
	if consumer != nil {
		app.SetConsumer(consumer, kh)
	}
	if q != nil {
		app.SetQueue(q)
	}
	if limiter != nil {
		app.SetRateLimiter(limiter)
	}
	return app
}
