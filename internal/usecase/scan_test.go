package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/internal/services/history"
	"ThetaHarvest/internal/services/scoring"
	"ThetaHarvest/internal/services/surface"
	"ThetaHarvest/pkg/cache"
	"ThetaHarvest/pkg/logger"
)

var testNow = time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC) // a Friday

func fp(f float64) *float64 { return &f }

func testChain(ticker string) []models.OptionContract {
	var out []models.OptionContract
	for _, exp := range []string{"2024-03-26", "2024-04-09"} {
		iv := 0.30
		if exp == "2024-04-09" {
			iv = 0.32
		}
		out = append(out,
			models.OptionContract{Ticker: ticker, Strike: 100, Expiration: exp, Type: models.OptionPut, IV: fp(iv), Delta: fp(-0.5)},
			models.OptionContract{Ticker: ticker, Strike: 100, Expiration: exp, Type: models.OptionCall, IV: fp(iv), Delta: fp(0.5)},
		)
	}
	return out
}

func testBars() []models.DailyBar {
	bars := make([]models.DailyBar, 70)
	for i := range bars {
		c := 100.0
		if i%2 == 1 {
			c = 101.0
		}
		bars[i] = models.DailyBar{Date: "2024-01-02", Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return bars
}

// fakeMarketData serves identical synthetic data for every ticker, with an
// optional set of tickers that always fail.
type fakeMarketData struct {
	failing map[string]bool
}

func (f *fakeMarketData) Snapshot(_ context.Context, ticker string) (*models.StockSnapshot, error) {
	if f.failing[ticker] {
		return nil, errors.New("provider unavailable")
	}
	return &models.StockSnapshot{Ticker: ticker, Price: 100}, nil
}

func (f *fakeMarketData) DailyBars(_ context.Context, ticker string, _, _ time.Time) ([]models.DailyBar, error) {
	return testBars(), nil
}

func (f *fakeMarketData) OptionsChain(_ context.Context, ticker string) ([]models.OptionContract, error) {
	return testChain(ticker), nil
}

// fakeStore is an in-memory repository.Store.
type fakeStore struct {
	mu        sync.Mutex
	points    map[string][]models.HistoricalPoint
	scans     []*models.ScanResult
	logged    int
	earnings  map[string]string
	histErr   error
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		points:   make(map[string][]models.HistoricalPoint),
		earnings: make(map[string]string),
	}
}

func (s *fakeStore) Init(context.Context) error { return nil }

func (s *fakeStore) UpsertDailyPoint(_ context.Context, ticker string, p models.HistoricalPoint) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	series := s.points[ticker]
	for i := range series {
		if series[i].Date == p.Date {
			series[i] = p
			return nil
		}
	}
	s.points[ticker] = append(series, p)
	return nil
}

func (s *fakeStore) HistoricalIVs(_ context.Context, ticker string, lookback int) ([]float64, error) {
	if s.histErr != nil {
		return nil, s.histErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []float64
	for _, p := range s.points[ticker] {
		out = append(out, p.AtmIV)
	}
	return out, nil
}

func (s *fakeStore) Series(_ context.Context, ticker string, _ int) ([]models.HistoricalPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HistoricalPoint(nil), s.points[ticker]...), nil
}

func (s *fakeStore) PointCount(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, series := range s.points {
		n += int64(len(series))
	}
	return n, nil
}

func (s *fakeStore) SaveScan(_ context.Context, res *models.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans = append(s.scans, res)
	return nil
}

func (s *fakeStore) LatestScan(context.Context) (*models.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scans) == 0 {
		return nil, nil
	}
	cp := *s.scans[len(s.scans)-1]
	return &cp, nil
}

func (s *fakeStore) ScanHistory(context.Context, int) ([]models.ScanSummary, error) {
	return nil, nil
}

func (s *fakeStore) LogScan(context.Context, time.Time, int, time.Duration, []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logged++
	return nil
}

func (s *fakeStore) CachedEarnings(_ context.Context, ticker string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.earnings[ticker], nil
}

func (s *fakeStore) StoreEarnings(_ context.Context, ticker, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.earnings[ticker] = date
	return nil
}

func (s *fakeStore) ClearEarnings(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.earnings = make(map[string]string)
	return nil
}

func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

type fakeEarnings struct {
	dates map[string]string
}

func (f *fakeEarnings) NextEarnings(_ context.Context, ticker string) (string, error) {
	return f.dates[ticker], nil
}

func universe(n int) []models.UniverseEntry {
	out := make([]models.UniverseEntry, n)
	for i := range out {
		out[i] = models.UniverseEntry{Ticker: fmt.Sprintf("TK%d", i), Name: fmt.Sprintf("Ticker %d", i)}
	}
	return out
}

func newOrchestrator(md *fakeMarketData, store *fakeStore, earnings *fakeEarnings, uni []models.UniverseEntry) *ScanOrchestrator {
	log := logger.Nop()
	o := NewScanOrchestrator(
		surface.NewBuilder(md, log, 180),
		history.NewTracker(store, log, 252),
		scoring.NewEngine(scoring.Params{}, log),
		earnings,
		store,
		cache.NewMemoryCache(),
		nil,
		nil,
		log,
		Options{Universe: uni, Concurrency: 2, Timezone: time.UTC, HistoryWindow: 120},
	)
	o.now = func() time.Time { return testNow }
	return o
}

func TestRunScanIsolatesTickerFailures(t *testing.T) {
	md := &fakeMarketData{failing: map[string]bool{"TK2": true}}
	store := newFakeStore()
	o := newOrchestrator(md, store, &fakeEarnings{}, universe(5))

	res, err := o.RunScan(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Tickers) != 4 {
		t.Fatalf("got %d results, want 4 with one ticker down", len(res.Tickers))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(res.Errors), res.Errors)
	}
	for i := 1; i < len(res.Tickers); i++ {
		if res.Tickers[i].Score > res.Tickers[i-1].Score {
			t.Fatal("results not sorted by score descending")
		}
	}
	if res.Regime == nil || res.Regime.TotalTickers != 4 {
		t.Fatalf("regime summary = %+v", res.Regime)
	}
	if len(store.scans) != 1 || store.logged != 1 {
		t.Fatalf("scan not persisted: scans=%d logged=%d", len(store.scans), store.logged)
	}
	if res.Cached {
		t.Fatal("fresh scan must not be marked cached")
	}
}

func TestRunScanDailyGate(t *testing.T) {
	md := &fakeMarketData{}
	store := newFakeStore()
	o := newOrchestrator(md, store, &fakeEarnings{}, universe(2))

	first, err := o.RunScan(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := o.RunScan(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached {
		t.Fatal("same-day rescan should return the cached result")
	}
	if len(store.scans) != 1 {
		t.Fatalf("gate bypassed: %d scans persisted", len(store.scans))
	}
	if !second.ScannedAt.Equal(first.ScannedAt) {
		t.Fatal("cached result should carry the original timestamp")
	}

	// force bypasses the gate.
	third, err := o.RunScan(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third.Cached {
		t.Fatal("forced scan must be fresh")
	}
	if len(store.scans) != 2 {
		t.Fatalf("forced scan not persisted: %d scans", len(store.scans))
	}
}

func TestRunScanMarketClosed(t *testing.T) {
	md := &fakeMarketData{}
	store := newFakeStore()
	o := newOrchestrator(md, store, &fakeEarnings{}, universe(2))

	if _, err := o.RunScan(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Move to Saturday: the cached result comes back flagged closed.
	o.now = func() time.Time { return testNow.AddDate(0, 0, 1) }
	res, err := o.RunScan(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Cached || res.MarketOpen {
		t.Fatalf("weekend scan should return cached closed-market result, got %+v", res)
	}
	if res.Message == "" {
		t.Fatal("expected a market-closed message")
	}
}

func TestRunScanEarningsGateFlowsThrough(t *testing.T) {
	md := &fakeMarketData{}
	store := newFakeStore()
	// TK0 reports in 7 days, TK1 in 30.
	earnings := &fakeEarnings{dates: map[string]string{
		"TK0": "2024-03-08",
		"TK1": "2024-03-31",
	}}
	o := newOrchestrator(md, store, earnings, universe(2))

	res, err := o.RunScan(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byTicker := map[string]models.ScoringResult{}
	for _, r := range res.Tickers {
		byTicker[r.Ticker] = r
	}
	if byTicker["TK0"].Recommendation != models.RecSkip {
		t.Fatalf("TK0 should be gated, got %s", byTicker["TK0"].Recommendation)
	}
	if byTicker["TK0"].Score != 0 {
		t.Fatalf("gated score = %d, want 0", byTicker["TK0"].Score)
	}
	if byTicker["TK1"].Recommendation == models.RecSkip {
		t.Fatal("TK1 is outside the gate window")
	}
	if res.Regime.ExcludedEarnings != 1 {
		t.Fatalf("excluded = %d, want 1", res.Regime.ExcludedEarnings)
	}
}

func TestScanTickerRanksAgainstPriorWindow(t *testing.T) {
	md := &fakeMarketData{}
	store := newFakeStore()
	// 20 stored days, all well below today's ATM IV (~30).
	for i := 0; i < 20; i++ {
		store.points["TK0"] = append(store.points["TK0"], models.HistoricalPoint{
			Date:  fmt.Sprintf("2024-01-%02d", i+1),
			AtmIV: 10 + float64(i)*0.5,
		})
	}
	o := newOrchestrator(md, store, &fakeEarnings{}, universe(1))

	res, err := o.scanTicker(context.Background(), o.opts.Universe[0], testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Today's point must not sit inside its own ranking window: every prior
	// sample is strictly below, so the percentile is exactly 100.
	if res.IVPercentile != 100.0 {
		t.Fatalf("percentile = %v, want 100 against the prior window", res.IVPercentile)
	}
	if res.IVRank != 100.0 {
		t.Fatalf("rank = %v, want 100", res.IVRank)
	}
	if n := len(store.points["TK0"]); n != 21 {
		t.Fatalf("stored points = %d, want 21 after recording today", n)
	}
}

func TestRunScanAllFail(t *testing.T) {
	md := &fakeMarketData{failing: map[string]bool{"TK0": true, "TK1": true}}
	store := newFakeStore()
	o := newOrchestrator(md, store, &fakeEarnings{}, universe(2))

	if _, err := o.RunScan(context.Background(), false); err == nil {
		t.Fatal("expected an error when every ticker fails")
	}
	if p := o.Progress(); p.Status != "error" {
		t.Fatalf("progress status = %s, want error", p.Status)
	}
}

func TestEarningsRefresherQuota(t *testing.T) {
	store := newFakeStore()
	store.earnings["TK0"] = "2024-06-01"
	r := NewEarningsRefresher(store, cache.NewMemoryCache(), logger.Nop(), 3, time.UTC)
	r.now = func() time.Time { return testNow }

	for i := 0; i < 3; i++ {
		remaining, err := r.Refresh(context.Background())
		if err != nil {
			t.Fatalf("refresh %d: %v", i+1, err)
		}
		if remaining != 2-i {
			t.Fatalf("remaining = %d, want %d", remaining, 2-i)
		}
	}
	if _, err := r.Refresh(context.Background()); !errors.Is(err, ErrRefreshQuotaExhausted) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if got := r.Remaining(context.Background()); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
	if len(store.earnings) != 0 {
		t.Fatal("earnings cache should be cleared")
	}
}
