// Package history maintains the per-ticker daily IV series and derives the
// rank and percentile context that scoring depends on.
package history

import (
	"context"
	"math"
	"time"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/internal/domain/repository"
	"ThetaHarvest/pkg/logger"
	"ThetaHarvest/pkg/util"
)

// minSamples is the cold-start threshold. Below it rank and percentile are
// pinned to the neutral 50 so a young series cannot fake an extreme reading.
const minSamples = 20

// flatRange guards the rank denominator: a window this compressed carries no
// rank information.
const flatRange = 0.1

// IVRank positions current inside the [min, max] of the history, 0..100.
func IVRank(history []float64, current float64) float64 {
	if len(history) < minSamples {
		return 50.0
	}
	lo, hi := history[0], history[0]
	for _, v := range history[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	r := hi - lo
	if r < flatRange {
		return 50.0
	}
	rank := (current - lo) / r * 100
	if rank < 0 {
		rank = 0
	} else if rank > 100 {
		rank = 100
	}
	return round1(rank)
}

// IVPercentile is the share of history strictly below current, 0..100.
func IVPercentile(history []float64, current float64) float64 {
	if len(history) < minSamples {
		return 50.0
	}
	below := 0
	for _, v := range history {
		if v < current {
			below++
		}
	}
	return round1(float64(below) / float64(len(history)) * 100)
}

// Tracker wraps the store with the rank/percentile policy and the daily
// upsert that keeps the series one-point-per-trading-day.
type Tracker struct {
	store    repository.Store
	log      *logger.Logger
	lookback int
}

func NewTracker(store repository.Store, log *logger.Logger, lookbackDays int) *Tracker {
	if lookbackDays <= 0 {
		lookbackDays = 252
	}
	return &Tracker{store: store, log: log, lookback: lookbackDays}
}

// Context loads the trailing IV window for ticker and positions currentIV
// inside it.
func (t *Tracker) Context(ctx context.Context, ticker string, currentIV float64) (models.IVContext, error) {
	hist, err := t.store.HistoricalIVs(ctx, ticker, t.lookback)
	if err != nil {
		return models.IVContext{}, err
	}
	ivc := models.IVContext{
		IVRank:       IVRank(hist, currentIV),
		IVPercentile: IVPercentile(hist, currentIV),
		SampleDays:   len(hist),
	}
	if len(hist) < minSamples {
		t.log.Debug("thin IV history, neutral rank",
			logger.String("ticker", ticker),
			logger.Int("samples", len(hist)))
	}
	return ivc, nil
}

// Record upserts today's observation. Re-running a scan on the same trading
// day overwrites rather than appends, so the window stays one point per day.
func (t *Tracker) Record(ctx context.Context, snap *models.VolatilitySnapshot, asOf time.Time) error {
	rv30 := snap.RV.RV30
	vrp := snap.VRP
	slope := snap.TermStructure.Slope
	p := models.HistoricalPoint{
		Date:      util.DateString(asOf),
		AtmIV:     snap.AtmIV,
		RV30:      &rv30,
		VRP:       &vrp,
		TermSlope: &slope,
	}
	return t.store.UpsertDailyPoint(ctx, snap.Ticker, p)
}

// Series exposes the stored per-ticker series for the API layer.
func (t *Tracker) Series(ctx context.Context, ticker string, days int) ([]models.HistoricalPoint, error) {
	if days <= 0 {
		days = t.lookback
	}
	return t.store.Series(ctx, ticker, days)
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
