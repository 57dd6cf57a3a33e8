// Package marketdata is the rate-limited client for the options data
// provider. All endpoints answer in a columnar JSON layout (parallel arrays
// keyed by field name) which decode.go flattens into domain models.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/internal/domain/repository"
	"ThetaHarvest/pkg/logger"
	"ThetaHarvest/pkg/util"
)

const defaultBaseURL = "https://api.marketdata.app"

// Options configures the client. Zero values take the documented defaults.
type Options struct {
	Token          string
	BaseURL        string
	CallsPerMinute int
	Timeout        time.Duration
	MaxRetries     int
}

type Client struct {
	baseURL    string
	token      string
	httpc      *http.Client
	limiter    *rate.Limiter
	maxRetries int
	log        *logger.Logger
	metrics    repository.Metrics
	now        func() time.Time

	// backoffUnit scales the retry backoff; tests shrink it.
	backoffUnit time.Duration
}

func NewClient(opts Options, log *logger.Logger, metrics repository.Metrics) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.CallsPerMinute <= 0 {
		opts.CallsPerMinute = 15
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	return &Client{
		baseURL:     opts.BaseURL,
		token:       opts.Token,
		httpc:       &http.Client{Timeout: opts.Timeout},
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.CallsPerMinute)), 1),
		maxRetries:  opts.MaxRetries,
		log:         log,
		metrics:     metrics,
		now:         time.Now,
		backoffUnit: time.Second,
	}
}

// Snapshot fetches the current quote for a ticker.
func (c *Client) Snapshot(ctx context.Context, ticker string) (*models.StockSnapshot, error) {
	var resp quoteResponse
	path := fmt.Sprintf("/v1/stocks/quotes/%s/", ticker)
	if err := c.get(ctx, "quotes", path, nil, &resp); err != nil {
		return nil, err
	}
	return decodeQuote(ticker, &resp)
}

// DailyBars fetches daily OHLCV candles for the [from, to] window.
func (c *Client) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.DailyBar, error) {
	var resp candlesResponse
	path := fmt.Sprintf("/v1/stocks/candles/D/%s/", ticker)
	params := map[string]string{
		"from": util.DateString(from),
		"to":   util.DateString(to),
	}
	if err := c.get(ctx, "candles", path, params, &resp); err != nil {
		return nil, err
	}
	return decodeCandles(&resp)
}

// OptionsChain fetches the chain in two passes: a narrow band of strikes
// across every expiration for the term structure, plus a wider band at the
// 30-day tenor for the skew. Duplicate contracts are collapsed and quotes
// without a positive IV dropped.
func (c *Client) OptionsChain(ctx context.Context, ticker string) ([]models.OptionContract, error) {
	path := fmt.Sprintf("/v1/options/chain/%s/", ticker)

	var narrow chainResponse
	if err := c.get(ctx, "chain", path, map[string]string{"strikeLimit": "12"}, &narrow); err != nil {
		return nil, err
	}

	var wide chainResponse
	if err := c.get(ctx, "chain", path, map[string]string{"strikeLimit": "60", "dte": "30"}, &wide); err != nil {
		// The wide pass only enriches the skew; a failure there should not
		// cost the whole ticker.
		c.log.Warn("wide chain fetch failed, continuing with narrow chain",
			logger.String("ticker", ticker), logger.Error(err))
		wide = chainResponse{}
	}

	contracts := decodeChain(ticker, &narrow)
	contracts = append(contracts, decodeChain(ticker, &wide)...)
	contracts = dedupeContracts(contracts)
	if len(contracts) == 0 {
		return nil, fmt.Errorf("%w: empty chain for %s", ErrNoData, ticker)
	}
	return contracts, nil
}

// get performs one rate-limited, retried GET. 429 and 5xx back off
// exponentially with jitter; 402/403 fail immediately as EntitlementError.
func (c *Client) get(ctx context.Context, endpoint, path string, params map[string]string, dest interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		start := c.now()
		status, body, err := c.doRequest(ctx, path, params)
		if c.metrics != nil {
			c.metrics.RecordFetchLatency(endpoint, time.Since(start).Seconds())
		}
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return err
			}
			continue
		}

		switch {
		case status == http.StatusOK:
			if err := json.Unmarshal(body, dest); err != nil {
				return fmt.Errorf("decode %s response: %w", endpoint, err)
			}
			return nil
		case status == http.StatusPaymentRequired || status == http.StatusForbidden:
			if c.metrics != nil {
				c.metrics.RecordError("entitlement")
			}
			return &EntitlementError{Status: status, Endpoint: endpoint}
		case status == http.StatusTooManyRequests || status >= 500:
			lastErr = fmt.Errorf("provider status %d on %s", status, endpoint)
			backoff := time.Duration(1<<uint(attempt+1))*c.backoffUnit +
				time.Duration(rand.Int63n(int64(c.backoffUnit)))
			c.log.Warn("provider throttled, backing off",
				logger.String("endpoint", endpoint),
				logger.Int("status", status),
				logger.Int("attempt", attempt+1),
				logger.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			return fmt.Errorf("provider status %d on %s: %s", status, endpoint, truncate(body, 200))
		}
	}
	return fmt.Errorf("%s: retries exhausted: %w", endpoint, lastErr)
}

func (c *Client) doRequest(ctx context.Context, path string, params map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, err
	}
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func dedupeContracts(contracts []models.OptionContract) []models.OptionContract {
	type key struct {
		strike     string
		expiration string
		side       models.OptionType
	}
	seen := make(map[key]struct{}, len(contracts))
	out := contracts[:0]
	for _, c := range contracts {
		k := key{
			strike:     strconv.FormatFloat(c.Strike, 'f', -1, 64),
			expiration: c.Expiration,
			side:       c.Type,
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
