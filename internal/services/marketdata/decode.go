package marketdata

import (
	"time"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/pkg/util"
)

// Columnar provider payloads. Every field is a parallel array and the "s"
// member carries "ok" / "no_data" / "error". Optional columns may be absent
// or shorter than the strike column, so all access is bounds-checked.

type quoteResponse struct {
	Status    string    `json:"s"`
	Symbol    []string  `json:"symbol"`
	Last      []float64 `json:"last"`
	Change    []float64 `json:"change"`
	ChangePct []float64 `json:"changepct"`
	Volume    []int64   `json:"volume"`
}

type candlesResponse struct {
	Status string    `json:"s"`
	Time   []int64   `json:"t"`
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []int64   `json:"v"`
}

type chainResponse struct {
	Status       string     `json:"s"`
	OptionSymbol []string   `json:"optionSymbol"`
	Side         []string   `json:"side"`
	Strike       []float64  `json:"strike"`
	Expiration   []int64    `json:"expiration"` // unix seconds
	IV           []*float64 `json:"iv"`
	Delta        []*float64 `json:"delta"`
	Gamma        []*float64 `json:"gamma"`
	Theta        []*float64 `json:"theta"`
	Vega         []*float64 `json:"vega"`
	OpenInterest []int64    `json:"openInterest"`
	Volume       []int64    `json:"volume"`
	Bid          []*float64 `json:"bid"`
	Ask          []*float64 `json:"ask"`
}

func decodeQuote(ticker string, resp *quoteResponse) (*models.StockSnapshot, error) {
	if resp.Status != "ok" || len(resp.Last) == 0 {
		return nil, ErrNoData
	}
	snap := &models.StockSnapshot{
		Ticker: ticker,
		Price:  resp.Last[0],
	}
	if len(resp.Change) > 0 {
		snap.Change = resp.Change[0]
	}
	if len(resp.ChangePct) > 0 {
		snap.ChangePct = resp.ChangePct[0]
	}
	if len(resp.Volume) > 0 {
		snap.Volume = resp.Volume[0]
	}
	snap.PrevClose = snap.Price - snap.Change
	return snap, nil
}

func decodeCandles(resp *candlesResponse) ([]models.DailyBar, error) {
	if resp.Status != "ok" || len(resp.Time) == 0 {
		return nil, ErrNoData
	}
	n := len(resp.Time)
	if len(resp.Open) < n || len(resp.High) < n || len(resp.Low) < n || len(resp.Close) < n {
		return nil, ErrNoData
	}
	bars := make([]models.DailyBar, 0, n)
	for i := 0; i < n; i++ {
		bar := models.DailyBar{
			Date:  util.DateString(time.Unix(resp.Time[i], 0).UTC()),
			Open:  resp.Open[i],
			High:  resp.High[i],
			Low:   resp.Low[i],
			Close: resp.Close[i],
		}
		if i < len(resp.Volume) {
			bar.Volume = resp.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// decodeChain flattens a columnar chain. Rows without a positive IV are
// dropped: they carry nothing the analytics can use.
func decodeChain(ticker string, resp *chainResponse) []models.OptionContract {
	if resp.Status != "ok" {
		return nil
	}
	n := len(resp.Strike)
	if len(resp.Expiration) < n || len(resp.Side) < n {
		return nil
	}

	out := make([]models.OptionContract, 0, n)
	for i := 0; i < n; i++ {
		iv := at(resp.IV, i)
		if iv == nil || *iv <= 0 {
			continue
		}
		side := models.OptionCall
		if resp.Side[i] == "put" {
			side = models.OptionPut
		}
		c := models.OptionContract{
			Ticker:     ticker,
			Strike:     resp.Strike[i],
			Expiration: util.DateString(time.Unix(resp.Expiration[i], 0).UTC()),
			Type:       side,
			IV:         iv,
			Delta:      at(resp.Delta, i),
			Gamma:      at(resp.Gamma, i),
			Theta:      at(resp.Theta, i),
			Vega:       at(resp.Vega, i),
			Bid:        at(resp.Bid, i),
			Ask:        at(resp.Ask, i),
		}
		if i < len(resp.OpenInterest) {
			c.OpenInt = resp.OpenInterest[i]
		}
		if i < len(resp.Volume) {
			c.Volume = resp.Volume[i]
		}
		out = append(out, c)
	}
	return out
}

func at(col []*float64, i int) *float64 {
	if i < len(col) {
		return col[i]
	}
	return nil
}
