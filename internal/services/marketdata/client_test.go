package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ThetaHarvest/pkg/logger"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		Token:          "test-token",
		BaseURL:        srv.URL,
		CallsPerMinute: 6000, // effectively unthrottled for tests
		Timeout:        2 * time.Second,
		MaxRetries:     2,
	}, logger.Nop(), nil)
}

func TestSnapshot(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		w.Write([]byte(`{"s":"ok","symbol":["SPY"],"last":[500.0],"change":[1.0],"changepct":[0.002],"volume":[1]}`))
	})

	snap, err := c.Snapshot(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Price != 500.0 {
		t.Fatalf("price = %v, want 500.0", snap.Price)
	}
}

func TestEntitlementFailureDoesNotRetry(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusPaymentRequired)
	})

	_, err := c.Snapshot(context.Background(), "SPY")
	if !IsEntitlement(err) {
		t.Fatalf("expected an entitlement error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("provider called %d times, want exactly 1", calls)
	}
}

func TestOptionsChainMergesPasses(t *testing.T) {
	narrow := `{"s":"ok","side":["put"],"strike":[500.0],"expiration":[1713484800],"iv":[0.18]}`
	wide := `{"s":"ok","side":["put","call"],"strike":[500.0,520.0],"expiration":[1713484800,1713484800],"iv":[0.18,0.15]}`
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("dte") == "30" {
			w.Write([]byte(wide))
			return
		}
		w.Write([]byte(narrow))
	})

	contracts, err := c.OptionsChain(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The 500 put appears in both passes and must collapse to one.
	if len(contracts) != 2 {
		t.Fatalf("got %d contracts, want 2", len(contracts))
	}
}

func TestThrottledRequestRetriesThenSucceeds(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"s":"ok","symbol":["SPY"],"last":[500.0],"change":[1.0],"changepct":[0.002],"volume":[1]}`))
	})
	c.backoffUnit = time.Millisecond

	snap, err := c.Snapshot(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Price != 500.0 {
		t.Fatalf("price = %v, want 500.0", snap.Price)
	}
	if calls != 2 {
		t.Fatalf("provider called %d times, want 2 (one retry)", calls)
	}
}

func TestServerErrorsExhaustRetries(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	c.backoffUnit = time.Millisecond

	if _, err := c.Snapshot(context.Background(), "SPY"); err == nil {
		t.Fatal("expected an error after retries are exhausted")
	}
	// MaxRetries 2 means the initial attempt plus two retries.
	if calls != 3 {
		t.Fatalf("provider called %d times, want 3", calls)
	}
}
