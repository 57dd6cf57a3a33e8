// Package earnings resolves upcoming earnings dates through the FMP calendar
// API, with a store-backed cache in front so the scan loop almost never pays
// for a network round trip.
package earnings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ThetaHarvest/internal/domain/repository"
	xhttp "ThetaHarvest/pkg/http"
	"ThetaHarvest/pkg/logger"
	"ThetaHarvest/pkg/util"
)

const defaultBaseURL = "https://financialmodelingprep.com"

// symbolAliases maps tickers whose options symbol differs from the symbol
// the earnings calendar knows.
var symbolAliases = map[string]string{
	"GOOG": "GOOGL",
}

type earningsRow struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"`
}

// Client implements repository.EarningsSource. With no API key configured it
// degrades to "no known earnings" rather than failing scans.
type Client struct {
	httpc   *xhttp.Client
	store   repository.Store
	log     *logger.Logger
	apiKey  string
	baseURL string
	now     func() time.Time
}

func NewClient(apiKey string, store repository.Store, log *logger.Logger) *Client {
	return &Client{
		httpc:   xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		store:   store,
		log:     log,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		now:     time.Now,
	}
}

// NextEarnings returns the next upcoming earnings date (YYYY-MM-DD) for a
// ticker, or "" when none is known. Cache hits with a past date are treated
// as stale and refetched.
func (c *Client) NextEarnings(ctx context.Context, ticker string) (string, error) {
	if cached, err := c.store.CachedEarnings(ctx, ticker); err == nil && cached != "" {
		if c.isFuture(cached) {
			return cached, nil
		}
	}

	if c.apiKey == "" {
		return "", nil
	}

	date, err := c.fetch(ctx, ticker)
	if err != nil {
		return "", err
	}
	if date == "" {
		return "", nil
	}

	if err := c.store.StoreEarnings(ctx, ticker, date); err != nil {
		c.log.Warn("failed to cache earnings date",
			logger.String("ticker", ticker), logger.Error(err))
	}
	return date, nil
}

func (c *Client) fetch(ctx context.Context, ticker string) (string, error) {
	symbol := ticker
	if alias, ok := symbolAliases[ticker]; ok {
		symbol = alias
	}

	var rows []earningsRow
	err := c.httpc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: "GET",
		URL:    fmt.Sprintf("%s/stable/earnings", c.baseURL),
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"limit":  {"4"},
			"apikey": {c.apiKey},
		},
	}, &rows)
	if err != nil {
		return "", fmt.Errorf("earnings fetch %s: %w", ticker, err)
	}

	// The calendar returns recent and upcoming reports mixed; take the
	// earliest date that is still ahead of us.
	var future []string
	for _, row := range rows {
		if c.isFuture(row.Date) {
			future = append(future, row.Date)
		}
	}
	if len(future) == 0 {
		return "", nil
	}
	sort.Strings(future)
	return future[0], nil
}

func (c *Client) isFuture(date string) bool {
	d, ok := util.ParseDate(date)
	if !ok {
		return false
	}
	today, _ := util.ParseDate(util.DateString(c.now()))
	return !d.Before(today)
}
