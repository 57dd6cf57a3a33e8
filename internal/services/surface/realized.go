package surface

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"ThetaHarvest/internal/domain/models"
)

// ErrInsufficientData marks inputs too thin to compute a metric. Callers
// decide fallback policy; nothing in this package fabricates values.
var ErrInsufficientData = errors.New("insufficient data")

// annualization converts daily stdev of log returns to annualized vol points.
var annualization = math.Sqrt(252) * 100

// LogReturns computes r_t = ln(C_t / C_{t-1}) from daily closes.
// Returns nil for fewer than two bars.
func LogReturns(bars []models.DailyBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// ComputeRealizedVol computes annualized close-to-close realized volatility
// for the 10/20/30/60-day windows, in vol points. A window needs N+1 bars;
// when history is too short the next-shorter computed window stands in, so
// RV never silently mixes horizons. Requires at least 11 bars.
func ComputeRealizedVol(bars []models.DailyBar) (models.RealizedVol, error) {
	if len(bars) < 11 {
		return models.RealizedVol{}, fmt.Errorf("%w: need at least 11 bars for RV10, got %d", ErrInsufficientData, len(bars))
	}

	returns := LogReturns(bars)

	rv := func(window int) float64 {
		tail := returns[len(returns)-window:]
		return stat.StdDev(tail, nil) * annualization
	}

	rv10 := rv(10)
	rv20 := rv10
	if len(returns) >= 20 {
		rv20 = rv(20)
	}
	rv30 := rv20
	if len(returns) >= 30 {
		rv30 = rv(30)
	}
	rv60 := rv30
	if len(returns) >= 60 {
		rv60 = rv(60)
	}

	accel := 1.0
	if rv30 > 0 {
		accel = rv10 / rv30
	}

	return models.RealizedVol{
		RV10:         round2(rv10),
		RV20:         round2(rv20),
		RV30:         round2(rv30),
		RV60:         round2(rv60),
		Acceleration: round3(accel),
	}, nil
}

// ComputeATR14 is the 14-period average true range over daily bars.
// Needs 15+ consecutive bars; returns false otherwise.
func ComputeATR14(bars []models.DailyBar) (float64, bool) {
	if len(bars) < 15 {
		return 0, false
	}
	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		h, l, pc := bars[i].High, bars[i].Low, bars[i-1].Close
		tr := h - l
		if d := math.Abs(h - pc); d > tr {
			tr = d
		}
		if d := math.Abs(l - pc); d > tr {
			tr = d
		}
		trs = append(trs, tr)
	}
	sum := 0.0
	for _, tr := range trs[len(trs)-14:] {
		sum += tr
	}
	return round2(sum / 14), true
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
