package repository

import (
	"context"
	"time"

	"ThetaHarvest/internal/domain/models"
)

// MarketData is the rate-limited fetch boundary to the external provider.
// Implementations self-throttle and retry; entitlement failures surface as
// marketdata.EntitlementError and are never retried.
type MarketData interface {
	Snapshot(ctx context.Context, ticker string) (*models.StockSnapshot, error)
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.DailyBar, error)
	OptionsChain(ctx context.Context, ticker string) ([]models.OptionContract, error)
}

// EarningsSource resolves the next earnings date for a ticker.
// Returns "" with nil error when no upcoming date is known (ETFs always).
type EarningsSource interface {
	NextEarnings(ctx context.Context, ticker string) (string, error)
}

// Store is the persistence boundary: the per-ticker daily volatility series,
// cached scan results, the scan log, and the earnings-date cache. The exact
// engine is a configuration detail (sqlite or clickhouse).
type Store interface {
	Init(ctx context.Context) error

	// Daily volatility series, keyed (ticker, date), upsert on conflict.
	UpsertDailyPoint(ctx context.Context, ticker string, p models.HistoricalPoint) error
	HistoricalIVs(ctx context.Context, ticker string, lookbackDays int) ([]float64, error)
	Series(ctx context.Context, ticker string, lookbackDays int) ([]models.HistoricalPoint, error)
	PointCount(ctx context.Context) (int64, error)

	// Scan results, pruned to the most recent 50.
	SaveScan(ctx context.Context, res *models.ScanResult) error
	LatestScan(ctx context.Context) (*models.ScanResult, error)
	ScanHistory(ctx context.Context, limit int) ([]models.ScanSummary, error)
	LogScan(ctx context.Context, scannedAt time.Time, tickers int, duration time.Duration, errs []string) error

	// Earnings cache: dates in the past are treated as absent.
	CachedEarnings(ctx context.Context, ticker string) (string, error)
	StoreEarnings(ctx context.Context, ticker, date string) error
	ClearEarnings(ctx context.Context) error

	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational counters for the scan pipeline.
type Metrics interface {
	RecordTickerScanned(ticker string)
	RecordTickerFailed(ticker, reason string)
	RecordScanDuration(seconds float64)
	RecordScore(ticker string, score float64)
	RecordFetchLatency(endpoint string, seconds float64)
	RecordError(kind string)
}

// ScanPublisher pushes completed scan summaries to an event backend.
// Optional: a nil publisher disables publishing.
type ScanPublisher interface {
	PublishScan(ctx context.Context, res *models.ScanResult) error
	Close() error
}
