//go:build wireinject
// +build wireinject

package di

import (
	"spotwatch/pkg/config"
	"spotwatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideLocation,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideReadingStorage,

		// Domain
		ProvideCalendar,
		ProvideFeedClient,
		ProvideSpotSource,
		ProvideHistorySource,
		ProvideResolver,
		ProvideSnapshot,
		ProvideEngine,
		ProvidePoller,

		// Jobs and pricing
		ProvideRefresher,
		ProvideScheduler,
		ProvideQuoteCalculator,

		// HTTP surface
		ProvideStatusHub,
		ProvideStatusHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
