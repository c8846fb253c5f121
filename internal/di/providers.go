package di

import (
	"context"
	"fmt"
	"time"

	"AgriPulse/internal/domain/repository"
	domsvc "AgriPulse/internal/domain/service"
	"AgriPulse/internal/handler/api"
	mid "AgriPulse/internal/middleware"
	internalrepo "AgriPulse/internal/repository"
	"AgriPulse/internal/service/feed"
	"AgriPulse/internal/services/predictor"
	"AgriPulse/internal/services/resolver"
	"AgriPulse/internal/usecase"
	"AgriPulse/pkg/cache"
	pkgch "AgriPulse/pkg/clickhouse"
	"AgriPulse/pkg/config"
	xhttp "AgriPulse/pkg/http"
	pkgkafka "AgriPulse/pkg/kafka"
	applogger "AgriPulse/pkg/logger"
	"AgriPulse/pkg/metrics"
	"AgriPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSQLiteStore opens the catalog/recommendation database.
func ProvideSQLiteStore(cfg *config.Config) (*internalrepo.SQLiteStore, error) {
	store, err := internalrepo.OpenSQLite(cfg.SQLite.DataDir)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}
	return store, nil
}

// ProvideCatalog exposes the SQLite store as the product catalog.
func ProvideCatalog(store *internalrepo.SQLiteStore) repository.Catalog {
	return store
}

// ProvideRecommendationStore exposes the SQLite store as recommendation storage.
func ProvideRecommendationStore(store *internalrepo.SQLiteStore) repository.RecommendationStore {
	return store
}

// ProvideClickHouseClient creates a ClickHouse client and initializes schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideTickStore creates ClickHouse tick storage.
func ProvideTickStore(chClient *pkgch.Client, cfg *config.Config) repository.TickStore {
	return internalrepo.NewClickHouseTickStore(chClient.DB(), cfg.ClickHouse.Database+".price_ticks")
}

// ProvideForecastStore creates ClickHouse forecast storage.
func ProvideForecastStore(chClient *pkgch.Client, cfg *config.Config) repository.ForecastStore {
	return internalrepo.NewClickHouseForecastStore(chClient.DB(), cfg.ClickHouse.Database+".demand_forecasts")
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
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

// ProvidePublisher creates the Kafka event publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.TickTopic, cfg.Kafka.RecTopic, cfg.Kafka.ForecastTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
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
	return consumer, nil
}

// ProvideKafkaTicksHandler registers handler for the ticks topic.
func ProvideKafkaTicksHandler(ticks repository.TickStore, catalog repository.Catalog, m repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.TickTopic, ticks, catalog, m)
}

// ProvideCache creates the lookup cache. Falls back to in-memory when
// Redis is disabled or unreachable.
func ProvideCache(cfg *config.Config, l *applogger.Logger) cache.Service {
	if cfg.Cache.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Host),
			cache.WithRedisPort(cfg.Cache.Port),
			cache.WithRedisPassword(cfg.Cache.Password),
			cache.WithRedisDB(cfg.Cache.DB),
		)
		if err == nil {
			return cache.NewLayeredCache(rc)
		}
		l.Warn("redis unavailable, using memory cache", applogger.Error(err))
	}
	return cache.NewMemoryCache()
}

// ProvideResolver creates the catalog-backed product resolver.
func ProvideResolver(catalog repository.Catalog, c cache.Service, l *applogger.Logger) domsvc.ProductResolver {
	return resolver.New(catalog, c, l)
}

// ProvideGateway creates the external predictor gateway.
func ProvideGateway(cfg *config.Config, m repository.Metrics, l *applogger.Logger) domsvc.PredictionGateway {
	opts := []predictor.Option{predictor.WithMetrics(m)}
	if cfg.Predictor.PricingTimeout > 0 || cfg.Predictor.DemandTimeout > 0 {
		opts = append(opts, predictor.WithTimeouts(cfg.Predictor.PricingTimeout, cfg.Predictor.DemandTimeout))
	}
	if cfg.Predictor.MaxConcurrent > 0 {
		opts = append(opts, predictor.WithMaxConcurrent(cfg.Predictor.MaxConcurrent))
	}
	return predictor.New(cfg.Predictor.Binary, cfg.Predictor.Args, l, opts...)
}

// ProvideOrchestrator creates the recommendation orchestrator.
func ProvideOrchestrator(
	res domsvc.ProductResolver,
	gw domsvc.PredictionGateway,
	recs repository.RecommendationStore,
	forecasts repository.ForecastStore,
	pub repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(res, gw, recs, forecasts, pub, m, l)
}

// ProvideFeedStream creates the wholesale market WebSocket stream.
func ProvideFeedStream(cfg *config.Config) repository.MarketStream {
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Products,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideTickProcessor creates the tick routing processor.
func ProvideTickProcessor(pub repository.Publisher, store repository.TickStore, m repository.Metrics, cfg *config.Config) *usecase.TickProcessor {
	return usecase.NewTickProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideTickCollector creates the feed collector with its pipeline.
func ProvideTickCollector(
	stream repository.MarketStream,
	processor *usecase.TickProcessor,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.TickCollector {
	if !cfg.Feed.Enabled {
		return nil
	}
	pipe := mid.NewTickPipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, processor, m, pipe)
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	orch *usecase.Orchestrator,
	catalog repository.Catalog,
	ticks repository.TickStore,
	collector *usecase.TickCollector,
) xhttp.Handler {
	var health api.HealthChecker
	if collector != nil {
		health = collector
	}
	return api.NewMarketHandler(l, orch, catalog, ticks, health)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	chClient *pkgch.Client,
	sqlite *internalrepo.SQLiteStore,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, collector, consumer, kh, chClient)
	app.SetHTTPHandler(handler)
	app.AddCloser(sqlite.Close)
	if collector != nil {
		app.AddCloser(func() error {
			collector.Processor().Close()
			return nil
		})
	}
	return app
}
