package earnings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/pkg/logger"
)

var asOf = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// stubStore implements only the earnings-cache slice of repository.Store.
type stubStore struct {
	mu    sync.Mutex
	dates map[string]string
}

func newStubStore() *stubStore { return &stubStore{dates: make(map[string]string)} }

func (s *stubStore) Init(context.Context) error { return nil }
func (s *stubStore) UpsertDailyPoint(context.Context, string, models.HistoricalPoint) error {
	return nil
}
func (s *stubStore) HistoricalIVs(context.Context, string, int) ([]float64, error) { return nil, nil }
func (s *stubStore) Series(context.Context, string, int) ([]models.HistoricalPoint, error) {
	return nil, nil
}
func (s *stubStore) PointCount(context.Context) (int64, error)              { return 0, nil }
func (s *stubStore) SaveScan(context.Context, *models.ScanResult) error     { return nil }
func (s *stubStore) LatestScan(context.Context) (*models.ScanResult, error) { return nil, nil }
func (s *stubStore) ScanHistory(context.Context, int) ([]models.ScanSummary, error) {
	return nil, nil
}
func (s *stubStore) LogScan(context.Context, time.Time, int, time.Duration, []string) error {
	return nil
}

func (s *stubStore) CachedEarnings(_ context.Context, ticker string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dates[ticker], nil
}

func (s *stubStore) StoreEarnings(_ context.Context, ticker, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates[ticker] = date
	return nil
}

func (s *stubStore) ClearEarnings(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = make(map[string]string)
	return nil
}

func (s *stubStore) Health(context.Context) error { return nil }
func (s *stubStore) Close() error                 { return nil }

func testClient(t *testing.T, store *stubStore, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", store, logger.Nop())
	c.baseURL = srv.URL
	c.now = func() time.Time { return asOf }
	return c, srv
}

func TestNextEarningsPicksEarliestFutureDate(t *testing.T) {
	var gotSymbol string
	c, _ := testClient(t, newStubStore(), func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		json.NewEncoder(w).Encode([]earningsRow{
			{Symbol: "AAPL", Date: "2024-01-25"},
			{Symbol: "AAPL", Date: "2024-07-25"},
			{Symbol: "AAPL", Date: "2024-04-25"},
		})
	})

	date, err := c.NextEarnings(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if date != "2024-04-25" {
		t.Errorf("date = %s, want 2024-04-25", date)
	}
	if gotSymbol != "AAPL" {
		t.Errorf("symbol = %s, want AAPL", gotSymbol)
	}
}

func TestNextEarningsAppliesSymbolAlias(t *testing.T) {
	var gotSymbol string
	c, _ := testClient(t, newStubStore(), func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		json.NewEncoder(w).Encode([]earningsRow{{Symbol: "GOOGL", Date: "2024-04-23"}})
	})

	date, err := c.NextEarnings(context.Background(), "GOOG")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSymbol != "GOOGL" {
		t.Errorf("queried symbol = %s, want GOOGL", gotSymbol)
	}
	if date != "2024-04-23" {
		t.Errorf("date = %s, want 2024-04-23", date)
	}
}

func TestNextEarningsUsesCacheWithoutFetching(t *testing.T) {
	store := newStubStore()
	store.dates["MSFT"] = "2024-04-30"

	calls := 0
	c, _ := testClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode([]earningsRow{})
	})

	date, err := c.NextEarnings(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if date != "2024-04-30" {
		t.Errorf("date = %s, want cached 2024-04-30", date)
	}
	if calls != 0 {
		t.Errorf("fetch called %d times, want 0 on cache hit", calls)
	}
}

func TestNextEarningsRefetchesStaleCache(t *testing.T) {
	store := newStubStore()
	store.dates["NVDA"] = "2024-02-21" // already reported

	c, _ := testClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]earningsRow{{Symbol: "NVDA", Date: "2024-05-22"}})
	})

	date, err := c.NextEarnings(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if date != "2024-05-22" {
		t.Errorf("date = %s, want refetched 2024-05-22", date)
	}
	if store.dates["NVDA"] != "2024-05-22" {
		t.Errorf("cache not updated, got %s", store.dates["NVDA"])
	}
}

func TestNextEarningsWithoutAPIKey(t *testing.T) {
	c := NewClient("", newStubStore(), logger.Nop())
	c.now = func() time.Time { return asOf }

	date, err := c.NextEarnings(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if date != "" {
		t.Errorf("date = %s, want empty with no key", date)
	}
}
