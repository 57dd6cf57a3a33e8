package models

// HistoricalPoint is one row of the per-ticker daily volatility series.
// Rows are keyed by (ticker, date) and upserted, so re-running a scan on the
// same trading day replaces the point instead of duplicating it. This series
// is the only long-lived state the analytics depend on.
type HistoricalPoint struct {
	Date      string   `json:"date"` // YYYY-MM-DD
	AtmIV     float64  `json:"iv"`
	RV30      *float64 `json:"rv,omitempty"`
	VRP       *float64 `json:"vrp,omitempty"`
	TermSlope *float64 `json:"term_slope,omitempty"`
}

// IVContext is the historical ranking of the current ATM IV.
// Both values are 0-100; both are exactly 50 while fewer than 20 points of
// history exist (cold start; callers should surface the immaturity).
type IVContext struct {
	IVRank       float64 `json:"iv_rank"`
	IVPercentile float64 `json:"iv_percentile"`
	SampleDays   int     `json:"sample_days"`
}
