package models

// DailyBar is one OHLCV record for a single trading day.
// Date is formatted YYYY-MM-DD; bars are ordered by date ascending.
type DailyBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// OptionType distinguishes puts from calls.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// OptionContract is a single option quote from a chain snapshot.
// Greeks and IV are optional: nil means the provider did not return them.
// Contracts are ephemeral: consumed during one scan pass, never persisted.
type OptionContract struct {
	Ticker     string     `json:"ticker"`
	Strike     float64    `json:"strike"`
	Expiration string     `json:"expiration"` // YYYY-MM-DD
	Type       OptionType `json:"type"`
	IV         *float64   `json:"iv,omitempty"`
	Delta      *float64   `json:"delta,omitempty"`
	Gamma      *float64   `json:"gamma,omitempty"`
	Theta      *float64   `json:"theta,omitempty"`
	Vega       *float64   `json:"vega,omitempty"`
	OpenInt    int64      `json:"open_interest"`
	Volume     int64      `json:"volume"`
	Bid        *float64   `json:"bid,omitempty"`
	Ask        *float64   `json:"ask,omitempty"`
}

// StockSnapshot is the current quote for an underlying.
type StockSnapshot struct {
	Ticker    string  `json:"ticker"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	Volume    int64   `json:"volume"`
	PrevClose float64 `json:"prev_close"`
}

// UniverseEntry describes one ticker in the configured scan universe.
type UniverseEntry struct {
	Ticker string `json:"ticker" yaml:"ticker"`
	Name   string `json:"name" yaml:"name"`
	Sector string `json:"sector" yaml:"sector"`
	ETF    bool   `json:"etf" yaml:"etf"`
}
