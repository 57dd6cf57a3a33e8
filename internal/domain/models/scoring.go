package models

// Regime classifies current stress for a single ticker or the whole market.
type Regime string

const (
	RegimeNormal  Regime = "NORMAL"
	RegimeCaution Regime = "CAUTION"
	RegimeDanger  Regime = "DANGER"
)

// Recommendation values produced by the scoring engine.
const (
	RecSellPremium = "SELL PREMIUM"
	RecConditional = "CONDITIONAL"
	RecReduceSize  = "REDUCE SIZE"
	RecAvoid       = "AVOID"
	RecNoEdge      = "NO EDGE"
	RecSkip        = "SKIP"
)

// PositionSizing is a pure function of RV acceleration.
const (
	SizingFull    = "Full size"
	SizingHalf    = "Half size"
	SizingQuarter = "Quarter size"
)

// Construction holds the deterministic position-construction hints: a lookup
// keyed on regime and IV rank, not a model.
type Construction struct {
	Delta       string `json:"suggested_delta"`
	Structure   string `json:"suggested_structure"`
	DTE         string `json:"suggested_dte"`
	MaxNotional string `json:"suggested_max_notional"`
}

// ScoringResult is the scored opportunity for one ticker in one scan.
// Score is the canonical (persisted) composite; DisplayScore is the
// client-facing alternate weighting and is never used for recommendations.
type ScoringResult struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name"`
	Sector       string  `json:"sector"`
	IsETF        bool    `json:"is_etf"`
	Price        float64 `json:"price"`
	IVCurrent    float64 `json:"iv_current"`
	IVRank       float64 `json:"iv_rank"`
	IVPercentile float64 `json:"iv_percentile"`
	RV10         float64 `json:"rv10"`
	RV20         float64 `json:"rv20"`
	RV30         float64 `json:"rv30"`
	VRP          float64 `json:"vrp"`
	VRPRatio     float64 `json:"vrp_ratio"`
	RVAccel      float64 `json:"rv_acceleration"`
	TermSlope    float64 `json:"term_slope"`
	IsContango   bool    `json:"is_contango"`
	Skew25d      float64 `json:"skew_25d"`

	Score        int    `json:"signal_score"`
	DisplayScore int    `json:"display_score"`
	Regime       Regime `json:"regime"`

	Recommendation string   `json:"recommendation"`
	Flags          []string `json:"flags"`

	// PreGateScore is set only when the earnings gate fired and the score it
	// suppressed was positive; a zero pre-gate score carries no information.
	PreGateScore *int `json:"pre_gate_score,omitempty"`
	EarningsDTE  *int `json:"earnings_dte,omitempty"`

	Sizing string `json:"sizing"`
	Construction

	Theta *float64 `json:"theta,omitempty"`
	Vega  *float64 `json:"vega,omitempty"`
	ATR14 *float64 `json:"atr14,omitempty"`

	TermStructurePoints []TermStructurePoint `json:"term_structure_points"`
	SkewPoints          []SkewPoint          `json:"skew_points"`
}

// EarningsGated reports whether the earnings gate suppressed this result.
func (r *ScoringResult) EarningsGated() bool {
	return r.Recommendation == RecSkip
}
