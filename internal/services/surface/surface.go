// Package surface computes the per-ticker volatility picture: realized vol,
// the 30-day ATM implied vol, term structure, skew, ATM greeks and ATR.
// All numeric routines are pure; the Builder wires them to the data provider.
package surface

import (
	"context"
	"fmt"
	"time"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/internal/domain/repository"
	"ThetaHarvest/pkg/logger"
)

type Builder struct {
	md          repository.MarketData
	log         *logger.Logger
	barLookback int
}

func NewBuilder(md repository.MarketData, log *logger.Logger, barLookbackDays int) *Builder {
	if barLookbackDays <= 0 {
		barLookbackDays = 180
	}
	return &Builder{md: md, log: log, barLookback: barLookbackDays}
}

// Build fetches quotes, bars and the options chain for one ticker and
// assembles the volatility snapshot as of the given time. A chain that yields
// no usable 30-day ATM IV does not fail the build: RV30 stands in and the
// snapshot is flagged, so scoring can treat the IV-dependent components as
// unreliable.
func (b *Builder) Build(ctx context.Context, ticker string, asOf time.Time) (*models.VolatilitySnapshot, error) {
	quote, err := b.md.Snapshot(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", ticker, err)
	}
	if quote.Price <= 0 {
		return nil, fmt.Errorf("snapshot %s: %w: no price", ticker, ErrInsufficientData)
	}

	from := asOf.AddDate(0, 0, -b.barLookback)
	bars, err := b.md.DailyBars(ctx, ticker, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("daily bars %s: %w", ticker, err)
	}
	rv, err := ComputeRealizedVol(bars)
	if err != nil {
		return nil, fmt.Errorf("realized vol %s: %w", ticker, err)
	}

	contracts, err := b.md.OptionsChain(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("options chain %s: %w", ticker, err)
	}

	snap := &models.VolatilitySnapshot{
		Ticker: ticker,
		Price:  quote.Price,
		RV:     rv,
	}

	atmIV, ok := ComputeAtmIV(contracts, quote.Price, asOf)
	if !ok {
		b.log.Warn("no expiration near 30 DTE, substituting RV30 for ATM IV",
			logger.String("ticker", ticker))
		atmIV = rv.RV30
		snap.AtmIVMissing = true
	}
	snap.AtmIV = atmIV

	snap.TermStructure = ComputeTermStructure(contracts, quote.Price, asOf)
	snap.Skew = ComputeSkew(contracts, quote.Price, asOf)
	snap.Theta, snap.Vega = FindAtmGreeks(contracts, quote.Price, asOf)

	if atr, ok := ComputeATR14(bars); ok {
		snap.ATR14 = &atr
	}

	snap.VRP = round2(atmIV - rv.RV30)
	snap.VRPRatio = 1.0
	if rv.RV30 > 0 {
		snap.VRPRatio = round3(atmIV / rv.RV30)
	}

	b.log.Debug("built volatility snapshot",
		logger.String("ticker", ticker),
		logger.Float64("atm_iv", snap.AtmIV),
		logger.Float64("rv30", rv.RV30),
		logger.Float64("vrp", snap.VRP),
		logger.Float64("term_slope", snap.TermStructure.Slope))

	return snap, nil
}
