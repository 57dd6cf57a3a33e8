package models

import "time"

// Overall market regimes produced by the scan-level aggregation.
const (
	OverallElevatedRisk = "ELEVATED RISK"
	OverallCaution      = "CAUTION"
	OverallOpportunity  = "OPPORTUNITY"
	OverallNormal       = "NORMAL"
	OverallNoData       = "NO DATA"
)

// RegimeSummary is the scan-level aggregate over all scored tickers.
// Earnings-gated tickers are excluded from every average and count: their IV
// is distorted by the event, not by market-wide conditions.
type RegimeSummary struct {
	OverallRegime     string   `json:"overall_regime"`
	RegimeColor       string   `json:"regime_color"`
	Description       string   `json:"description"`
	AvgIVRank         float64  `json:"avg_iv_rank"`
	AvgVRP            float64  `json:"avg_vrp"`
	AvgTermSlope      float64  `json:"avg_term_slope"`
	AvgRVAccel        float64  `json:"avg_rv_accel"`
	DangerCount       int      `json:"danger_count"`
	CautionCount      int      `json:"caution_count"`
	BackwardationN    int      `json:"backwardation_count"`
	TradeableCount    int      `json:"tradeable_count"`
	TotalTickers      int      `json:"total_tickers"`
	ExcludedEarnings  int      `json:"excluded_earnings"`
	VIXTermSlopeProxy *float64 `json:"vix_term_slope,omitempty"` // SPY front/back slope
	InsufficientData  bool     `json:"insufficient_data,omitempty"`
}

// ScanResult is the unit of persistence and the unit returned across the
// system boundary: one instance per completed scan.
type ScanResult struct {
	ScannedAt  time.Time                    `json:"scanned_at"`
	Regime     *RegimeSummary               `json:"regime"`
	Tickers    []ScoringResult              `json:"tickers"`
	Historical map[string][]HistoricalPoint `json:"historical"` // windowed, for charting
	Cached     bool                         `json:"cached"`
	MarketOpen bool                         `json:"market_open"`
	Errors     []string                     `json:"errors,omitempty"`
	Message    string                       `json:"message,omitempty"`
}

// ScanSummary is lightweight scan metadata for the history listing.
type ScanSummary struct {
	ID          int64     `json:"id"`
	ScannedAt   time.Time `json:"scanned_at"`
	TickerCount int       `json:"ticker_count"`
	BestTicker  string    `json:"best_ticker,omitempty"`
	BestScore   *int      `json:"best_score,omitempty"`
}

// ScanProgress reports a running scan to the status endpoint.
type ScanProgress struct {
	Status  string `json:"status"` // idle | scanning | completed | error
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Ticker  string `json:"ticker,omitempty"`
	Error   string `json:"error,omitempty"`
}
