// Package usecase holds the scan orchestration: fan the universe out over a
// bounded worker pool, score each ticker in isolation, roll the results up
// and persist them.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/internal/domain/repository"
	"ThetaHarvest/internal/services/history"
	"ThetaHarvest/internal/services/regime"
	"ThetaHarvest/internal/services/scoring"
	"ThetaHarvest/internal/services/surface"
	"ThetaHarvest/pkg/cache"
	"ThetaHarvest/pkg/logger"
	"ThetaHarvest/pkg/util"
)

// ErrScanRunning is returned when a scan is requested while one is already
// in flight.
var ErrScanRunning = errors.New("scan already running")

// ErrNoEligibleTickers is returned when every ticker in the universe failed.
var ErrNoEligibleTickers = errors.New("no eligible tickers scored")

const latestScanCacheKey = "scan:latest"

// Options carries the orchestrator's tunables, all sourced from config.
type Options struct {
	Universe      []models.UniverseEntry
	Concurrency   int
	Timezone      *time.Location
	HistoryWindow int
	RetryDelay    time.Duration
	RefreshPerDay int
}

// ScanOrchestrator runs full-universe scans. One scan at a time; per-ticker
// failures never fail the scan.
type ScanOrchestrator struct {
	builder  *surface.Builder
	tracker  *history.Tracker
	engine   *scoring.Engine
	earnings repository.EarningsSource
	store    repository.Store
	cache    cache.Service
	pub      repository.ScanPublisher
	metrics  repository.Metrics
	log      *logger.Logger
	opts     Options
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	progress models.ScanProgress
}

func NewScanOrchestrator(
	builder *surface.Builder,
	tracker *history.Tracker,
	engine *scoring.Engine,
	earnings repository.EarningsSource,
	store repository.Store,
	cacheSvc cache.Service,
	pub repository.ScanPublisher,
	metrics repository.Metrics,
	log *logger.Logger,
	opts Options,
) *ScanOrchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 120
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Minute
	}
	if opts.RefreshPerDay <= 0 {
		opts.RefreshPerDay = 3
	}
	return &ScanOrchestrator{
		builder:  builder,
		tracker:  tracker,
		engine:   engine,
		earnings: earnings,
		store:    store,
		cache:    cacheSvc,
		pub:      pub,
		metrics:  metrics,
		log:      log,
		opts:     opts,
		progress: models.ScanProgress{Status: "idle"},
		now:      time.Now,
	}
}

// RunScan executes one full scan. Unless force is set, a scan already
// completed on the current trading day is returned from the store instead of
// hammering the provider again, and on non-trading days the cached result
// comes back tagged with a market-closed message.
func (o *ScanOrchestrator) RunScan(ctx context.Context, force bool) (*models.ScanResult, error) {
	now := o.now()

	if !force {
		if cached := o.cachedToday(ctx, now); cached != nil {
			return cached, nil
		}
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrScanRunning
	}
	o.running = true
	o.progress = models.ScanProgress{Status: "scanning", Total: len(o.opts.Universe)}
	o.mu.Unlock()

	res, err := o.scan(ctx, now)

	o.mu.Lock()
	o.running = false
	if err != nil {
		o.progress = models.ScanProgress{Status: "error", Error: err.Error()}
	} else {
		o.progress = models.ScanProgress{Status: "completed", Current: len(o.opts.Universe), Total: len(o.opts.Universe)}
	}
	o.mu.Unlock()

	return res, err
}

// RunScheduled is the cron entry point: one scan, and on failure exactly one
// retry after the configured delay.
func (o *ScanOrchestrator) RunScheduled(ctx context.Context) {
	if _, err := o.RunScan(ctx, false); err != nil {
		if errors.Is(err, ErrScanRunning) {
			return
		}
		o.log.Error("scheduled scan failed, retrying once",
			logger.Error(err),
			logger.Duration("delay", o.opts.RetryDelay))
		select {
		case <-time.After(o.opts.RetryDelay):
		case <-ctx.Done():
			return
		}
		if _, err := o.RunScan(ctx, false); err != nil {
			o.log.Error("scheduled scan retry failed", logger.Error(err))
		}
	}
}

func (o *ScanOrchestrator) cachedToday(ctx context.Context, now time.Time) *models.ScanResult {
	latest, err := o.Latest(ctx)
	if err != nil || latest == nil {
		return nil
	}

	if !util.IsTradingDay(now, o.opts.Timezone) {
		latest.Cached = true
		latest.MarketOpen = false
		latest.Message = "Market closed, returning last scan"
		return latest
	}
	if util.SameTradingDay(latest.ScannedAt, now, o.opts.Timezone) {
		latest.Cached = true
		latest.MarketOpen = true
		return latest
	}
	return nil
}

func (o *ScanOrchestrator) scan(ctx context.Context, now time.Time) (*models.ScanResult, error) {
	start := o.now()
	o.log.Info("scan started",
		logger.Int("universe", len(o.opts.Universe)),
		logger.Int("concurrency", o.opts.Concurrency))

	type outcome struct {
		result *models.ScoringResult
		err    error
		ticker string
	}

	sem := make(chan struct{}, o.opts.Concurrency)
	outcomes := make([]outcome, len(o.opts.Universe))
	var wg sync.WaitGroup

	for i, entry := range o.opts.Universe {
		wg.Add(1)
		go func(i int, entry models.UniverseEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := o.scanTicker(ctx, entry, now)
			outcomes[i] = outcome{result: res, err: err, ticker: entry.Ticker}

			o.mu.Lock()
			o.progress.Current++
			o.progress.Ticker = entry.Ticker
			o.mu.Unlock()
		}(i, entry)
	}
	wg.Wait()

	var results []models.ScoringResult
	var errs []string
	for _, oc := range outcomes {
		if oc.err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", oc.ticker, oc.err))
			o.log.Warn("ticker scan failed",
				logger.String("ticker", oc.ticker), logger.Error(oc.err))
			if o.metrics != nil {
				o.metrics.RecordTickerFailed(oc.ticker, "scan")
			}
			continue
		}
		results = append(results, *oc.result)
		if o.metrics != nil {
			o.metrics.RecordTickerScanned(oc.ticker)
			o.metrics.RecordScore(oc.ticker, float64(oc.result.Score))
		}
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %d tickers failed", ErrNoEligibleTickers, len(errs))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Ticker < results[j].Ticker
	})

	res := &models.ScanResult{
		ScannedAt:  now,
		Regime:     regime.Aggregate(results),
		Tickers:    results,
		Historical: o.historical(ctx, results),
		MarketOpen: util.IsTradingDay(now, o.opts.Timezone),
		Errors:     errs,
	}

	if err := o.store.SaveScan(ctx, res); err != nil {
		o.log.Error("failed to persist scan", logger.Error(err))
	}
	if err := o.store.LogScan(ctx, now, len(results), o.now().Sub(start), errs); err != nil {
		o.log.Warn("failed to log scan", logger.Error(err))
	}
	if err := o.cache.Set(ctx, latestScanCacheKey, res, 24*time.Hour); err != nil {
		o.log.Warn("failed to cache scan", logger.Error(err))
	}
	if o.pub != nil {
		if err := o.pub.PublishScan(ctx, res); err != nil {
			o.log.Warn("failed to publish scan event", logger.Error(err))
		}
	}
	if o.metrics != nil {
		o.metrics.RecordScanDuration(o.now().Sub(start).Seconds())
	}

	o.log.Info("scan completed",
		logger.Int("scored", len(results)),
		logger.Int("failed", len(errs)),
		logger.String("regime", res.Regime.OverallRegime),
		logger.Duration("took", o.now().Sub(start)))
	return res, nil
}

// scanTicker builds, records and scores one ticker.
func (o *ScanOrchestrator) scanTicker(ctx context.Context, entry models.UniverseEntry, now time.Time) (*models.ScoringResult, error) {
	snap, err := o.builder.Build(ctx, entry.Ticker, now)
	if err != nil {
		return nil, err
	}

	// Rank against the window as it stood before today: the context is
	// read before today's point lands in the store.
	ivc, err := o.tracker.Context(ctx, entry.Ticker, snap.AtmIV)
	if err != nil {
		return nil, fmt.Errorf("iv history %s: %w", entry.Ticker, err)
	}
	if err := o.tracker.Record(ctx, snap, now); err != nil {
		o.log.Warn("failed to record daily point",
			logger.String("ticker", entry.Ticker), logger.Error(err))
	}

	return o.engine.Score(snap, ivc, entry, o.earningsDTE(ctx, entry, now)), nil
}

// earningsDTE resolves days-to-earnings for the gate. ETFs have no earnings;
// lookup failures degrade to "unknown" rather than failing the ticker.
func (o *ScanOrchestrator) earningsDTE(ctx context.Context, entry models.UniverseEntry, now time.Time) *int {
	if entry.ETF || o.earnings == nil {
		return nil
	}
	date, err := o.earnings.NextEarnings(ctx, entry.Ticker)
	if err != nil {
		o.log.Warn("earnings lookup failed",
			logger.String("ticker", entry.Ticker), logger.Error(err))
		return nil
	}
	if date == "" {
		return nil
	}
	dte, ok := util.DaysUntil(date, now, o.opts.Timezone)
	if !ok || dte < 0 {
		return nil
	}
	return &dte
}

func (o *ScanOrchestrator) historical(ctx context.Context, results []models.ScoringResult) map[string][]models.HistoricalPoint {
	out := make(map[string][]models.HistoricalPoint, len(results))
	for _, r := range results {
		series, err := o.tracker.Series(ctx, r.Ticker, o.opts.HistoryWindow)
		if err != nil {
			o.log.Warn("failed to load history",
				logger.String("ticker", r.Ticker), logger.Error(err))
			continue
		}
		out[r.Ticker] = series
	}
	return out
}

// Latest returns the most recent scan, preferring the hot cache copy.
func (o *ScanOrchestrator) Latest(ctx context.Context) (*models.ScanResult, error) {
	var cached models.ScanResult
	if err := o.cache.Get(ctx, latestScanCacheKey, &cached); err == nil {
		return &cached, nil
	}
	return o.store.LatestScan(ctx)
}

// Progress reports the state of the running (or last) scan.
func (o *ScanOrchestrator) Progress() models.ScanProgress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// History lists recent scan summaries.
func (o *ScanOrchestrator) History(ctx context.Context, limit int) ([]models.ScanSummary, error) {
	return o.store.ScanHistory(ctx, limit)
}

// TickerHistory returns the stored daily series for one ticker.
func (o *ScanOrchestrator) TickerHistory(ctx context.Context, ticker string, days int) ([]models.HistoricalPoint, error) {
	return o.tracker.Series(ctx, ticker, days)
}

// Universe returns the configured scan universe.
func (o *ScanOrchestrator) Universe() []models.UniverseEntry {
	return o.opts.Universe
}
