package di

import (
	"fmt"
	"time"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/internal/domain/repository"
	"ThetaHarvest/internal/handler/api"
	internalrepo "ThetaHarvest/internal/repository"
	"ThetaHarvest/internal/scheduler"
	"ThetaHarvest/internal/services/earnings"
	"ThetaHarvest/internal/services/history"
	"ThetaHarvest/internal/services/marketdata"
	"ThetaHarvest/internal/services/scoring"
	"ThetaHarvest/internal/services/surface"
	"ThetaHarvest/internal/usecase"
	"ThetaHarvest/pkg/cache"
	pkgch "ThetaHarvest/pkg/clickhouse"
	"ThetaHarvest/pkg/config"
	xhttp "ThetaHarvest/pkg/http"
	pkgkafka "ThetaHarvest/pkg/kafka"
	"ThetaHarvest/pkg/logger"
	"ThetaHarvest/pkg/metrics"
	"ThetaHarvest/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStore creates the configured storage backend.
func ProvideStore(cfg *config.Config, log *logger.Logger) (repository.Store, error) {
	switch cfg.Storage.Backend {
	case "clickhouse":
		ch := cfg.Storage.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithHost(ch.Host),
			pkgch.WithPort(ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		return internalrepo.NewCHStore(client, log), nil
	default:
		return internalrepo.NewSQLiteStore(cfg.Storage.SQLite.Path, log)
	}
}

// ProvideCache creates the cache backend, Redis when configured.
func ProvideCache(cfg *config.Config, log *logger.Logger) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithAddr(cfg.Cache.Redis.Addr),
		cache.WithPassword(cfg.Cache.Redis.Password),
		cache.WithDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	log.Info("redis cache connected", logger.String("addr", cfg.Cache.Redis.Addr))
	return c, nil
}

// ProvideMarketData creates the options data provider client.
func ProvideMarketData(cfg *config.Config, log *logger.Logger, m repository.Metrics) repository.MarketData {
	return marketdata.NewClient(marketdata.Options{
		Token:          cfg.MarketData.Token,
		BaseURL:        cfg.MarketData.BaseURL,
		CallsPerMinute: cfg.MarketData.CallsPerMinute,
		Timeout:        cfg.MarketData.Timeout,
		MaxRetries:     cfg.MarketData.MaxRetries,
	}, log, m)
}

// ProvideEarnings creates the earnings calendar source.
func ProvideEarnings(cfg *config.Config, store repository.Store, log *logger.Logger) repository.EarningsSource {
	return earnings.NewClient(cfg.Earnings.FMPAPIKey, store, log)
}

// ProvideScanPublisher creates the Kafka scan event publisher, or nil when
// events are disabled.
func ProvideScanPublisher(cfg *config.Config, log *logger.Logger) (repository.ScanPublisher, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Events.Brokers...),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	topic := cfg.Events.Topic
	if topic == "" {
		topic = "thetaharvest.scans"
	}
	return internalrepo.NewKafkaScanPublisher(producer, topic, log), nil
}

// ProvideTimezone resolves the exchange timezone.
func ProvideTimezone(cfg *config.Config) (*time.Location, error) {
	tz, err := time.LoadLocation(cfg.Scan.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Scan.Timezone, err)
	}
	return tz, nil
}

// ProvideOrchestrator assembles the scan pipeline.
func ProvideOrchestrator(
	cfg *config.Config,
	md repository.MarketData,
	store repository.Store,
	cacheSvc cache.Service,
	earningsSrc repository.EarningsSource,
	pub repository.ScanPublisher,
	m repository.Metrics,
	tz *time.Location,
	log *logger.Logger,
) *usecase.ScanOrchestrator {
	universe := make([]models.UniverseEntry, 0, len(cfg.Universe))
	for _, t := range cfg.Universe {
		universe = append(universe, models.UniverseEntry{
			Ticker: t.Ticker,
			Name:   t.Name,
			Sector: t.Sector,
			ETF:    t.ETF,
		})
	}

	builder := surface.NewBuilder(md, log, cfg.MarketData.BarLookback)
	tracker := history.NewTracker(store, log, cfg.Scan.RankLookback)
	engine := scoring.NewEngine(scoring.Params{
		MinIVRank:       cfg.Scoring.MinIVRank,
		MinVRP:          cfg.Scoring.MinVRP,
		MaxRVAccel:      cfg.Scoring.MaxRVAccel,
		MaxSkew:         cfg.Scoring.MaxSkew,
		EarningsGateDTE: cfg.Scoring.EarningsGateDTE,
	}, log)

	return usecase.NewScanOrchestrator(builder, tracker, engine, earningsSrc, store, cacheSvc, pub, m, log, usecase.Options{
		Universe:      universe,
		Concurrency:   cfg.Scan.Concurrency,
		Timezone:      tz,
		HistoryWindow: cfg.Scan.HistoryWindow,
		RetryDelay:    cfg.Scan.RetryDelay,
		RefreshPerDay: cfg.Earnings.RefreshPerDay,
	})
}

// ProvideEarningsRefresher creates the earnings cache refresher.
func ProvideEarningsRefresher(
	cfg *config.Config,
	store repository.Store,
	cacheSvc cache.Service,
	tz *time.Location,
	log *logger.Logger,
) *usecase.EarningsRefresher {
	return usecase.NewEarningsRefresher(store, cacheSvc, log, cfg.Earnings.RefreshPerDay, tz)
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(
	log *logger.Logger,
	orch *usecase.ScanOrchestrator,
	refresher *usecase.EarningsRefresher,
	store repository.Store,
) xhttp.Handler {
	return api.NewScanHandler(log, orch, refresher, store)
}

// ProvideScheduler creates the nightly scan scheduler.
func ProvideScheduler(cfg *config.Config, orch *usecase.ScanOrchestrator, tz *time.Location, log *logger.Logger) *scheduler.Scheduler {
	return scheduler.NewScheduler(orch, log, cfg.Scan.Schedule, tz)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	handler xhttp.Handler,
	sched *scheduler.Scheduler,
	store repository.Store,
	pub repository.ScanPublisher,
) *server.App {
	return server.New(cfg, log, handler, sched, store, pub)
}
