//go:build wireinject
// +build wireinject

package di

import (
	"ThetaHarvest/pkg/config"
	"ThetaHarvest/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideTimezone,

		// Infrastructure
		ProvideStore,
		ProvideCache,
		ProvideScanPublisher,

		// Data sources
		ProvideMarketData,
		ProvideEarnings,

		// Use cases
		ProvideOrchestrator,
		ProvideEarningsRefresher,

		// Delivery
		ProvideHandler,
		ProvideScheduler,
		ProvideApp,
	)
	return &server.App{}, nil
}
