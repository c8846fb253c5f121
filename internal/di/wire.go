//go:build wireinject
// +build wireinject

package di

import (
	"AgriPulse/pkg/config"
	"AgriPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Storage
		ProvideSQLiteStore,
		ProvideCatalog,
		ProvideRecommendationStore,
		ProvideClickHouseClient,
		ProvideTickStore,
		ProvideForecastStore,

		// Messaging
		ProvideKafkaProducer,
		ProvidePublisher,
		ProvideKafkaConsumer,
		ProvideKafkaTicksHandler,

		// Services
		ProvideCache,
		ProvideResolver,
		ProvideGateway,
		ProvideOrchestrator,

		// Feed ingestion
		ProvideFeedStream,
		ProvideTickProcessor,
		ProvideTickCollector,

		// Transport
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
