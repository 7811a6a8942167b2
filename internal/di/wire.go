//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/doby176/light/pkg/config"
	"github.com/doby176/light/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideMarketLocation,

		// Infrastructure clients
		ProvideRedis,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideLogDigest,

		// Repositories
		ProvideActionPublisher,
		ProvideCandleStore,
		ProvideEventSource,
		ProvideUserStore,
		ProvideBackupUploader,

		// Services
		ProvideQueue,
		ProvideSessions,
		ProvideAuthService,
		ProvideQuoteCache,
		ProvideQuoteHub,
		ProvideQuoteConsumer,
		ProvideLimiters,
		ProvideIPLimiter,

		// Use cases
		ProvideSampleRules,
		ProvideActionPolicy,
		ProvideMarketUseCase,
		ProvideGapsUseCase,
		ProvideEventsUseCase,

		// Application server
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideScheduler,
		ProvideApp,
	)
	return nil, nil, nil
}
