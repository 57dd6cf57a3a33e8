package models

// RealizedVol holds annualized close-to-close realized volatility for the
// standard windows, in vol points (e.g. 18.5 = 18.5%). Shorter windows stand
// in for longer ones when history is thin; see surface.ComputeRealizedVol.
type RealizedVol struct {
	RV10         float64 `json:"rv10"`
	RV20         float64 `json:"rv20"`
	RV30         float64 `json:"rv30"`
	RV60         float64 `json:"rv60"`
	Acceleration float64 `json:"rv_acceleration"` // rv10 / rv30; above 1 means RV is rising
}

// TermStructurePoint is one interpolated tenor on the IV term structure.
type TermStructurePoint struct {
	TenorDays  int     `json:"tenor_days"`
	TenorLabel string  `json:"tenor_label"`
	IV         float64 `json:"iv"`
}

// TermStructure is the ATM IV curve across expirations.
// Slope is front/back: < 1 contango, > 1 backwardation.
type TermStructure struct {
	Points     []TermStructurePoint `json:"points"`
	Slope      float64              `json:"slope"`
	IsContango bool                 `json:"is_contango"`
	FrontIV    float64              `json:"front_iv"`
	BackIV     float64              `json:"back_iv"`
}

// SkewPoint is one (delta, IV) sample on the vol smile.
// Delta is stored as its absolute value scaled to 0-100.
type SkewPoint struct {
	Delta float64 `json:"delta"`
	IV    float64 `json:"iv"`
	Type  string  `json:"type"` // "put" | "call"
}

// VolSkew summarizes the smile at the expiration nearest 30 DTE.
type VolSkew struct {
	Points        []SkewPoint `json:"points"`
	Skew25dPut    float64     `json:"skew_25d"` // 25Δ put IV minus ATM IV
	PutSkewSlope  float64     `json:"put_skew_slope"`
	CallSkewSlope float64     `json:"call_skew_slope"`
}

// VolatilitySnapshot is the full per-ticker volatility picture for one scan.
// It is derived, owned by the scan that produced it and recomputed fresh
// every run.
type VolatilitySnapshot struct {
	Ticker        string        `json:"ticker"`
	Price         float64       `json:"price"`
	RV            RealizedVol   `json:"rv"`
	AtmIV         float64       `json:"atm_iv"` // 30-day interpolated, vol points
	AtmIVMissing  bool          `json:"atm_iv_missing"`
	TermStructure TermStructure `json:"term_structure"`
	Skew          VolSkew       `json:"skew"`
	Theta         *float64      `json:"theta,omitempty"` // ATM contract theta
	Vega          *float64      `json:"vega,omitempty"`  // ATM contract vega
	ATR14         *float64      `json:"atr14,omitempty"`
	VRP           float64       `json:"vrp"`       // AtmIV - RV30
	VRPRatio      float64       `json:"vrp_ratio"` // AtmIV / RV30
}

// ThetaVegaRatio returns |theta|/|vega| and false when either greek is
// missing or vega is too close to zero to divide by.
func (s *VolatilitySnapshot) ThetaVegaRatio() (float64, bool) {
	if s.Theta == nil || s.Vega == nil {
		return 0, false
	}
	v := *s.Vega
	if v < 1e-9 && v > -1e-9 {
		return 0, false
	}
	t := *s.Theta
	if t < 0 {
		t = -t
	}
	if v < 0 {
		v = -v
	}
	return t / v, true
}
