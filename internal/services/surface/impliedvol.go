package surface

import (
	"time"

	"ThetaHarvest/internal/domain/models"
)

const (
	// TargetDTE is the tenor the headline ATM IV is interpolated to.
	TargetDTE = 30
	// DTETolerance bounds how far from the target the nearest expiration may
	// sit. Beyond it the ATM IV is reported missing instead of extrapolated.
	DTETolerance = 10
	// greeksSlack widens the tolerance for the ATM greeks lookup, where an
	// off-tenor contract is still informative.
	greeksSlack = 15
)

// ComputeAtmIV interpolates the ATM implied volatility to the target tenor
// (30 DTE) from the two nearest expirations, in vol points. Returns false
// when no expiration lies within tolerance or no near-ATM quote exists:
// missing, never extrapolated.
func ComputeAtmIV(contracts []models.OptionContract, spot float64, asOf time.Time) (float64, bool) {
	exps := groupByExpiry(contracts, asOf)
	if len(exps) == 0 {
		return 0, false
	}
	sortByDistanceTo(exps, TargetDTE)

	near := exps[0]
	if abs(near.dte-TargetDTE) > DTETolerance {
		return 0, false
	}
	iv, ok := atmIVAt(near, spot)
	if !ok {
		return 0, false
	}

	// Interpolate with the second-nearest expiration when one exists. The
	// weight is clamped to [0,1] so an inverted or one-sided bracket degrades
	// to the nearer point instead of extrapolating.
	if len(exps) > 1 {
		next := exps[1]
		if nextIV, ok := atmIVAt(next, spot); ok && next.dte != near.dte {
			w := float64(TargetDTE-near.dte) / float64(next.dte-near.dte)
			if w < 0 {
				w = 0
			} else if w > 1 {
				w = 1
			}
			iv = iv*(1-w) + nextIV*w
		}
	}
	return round2(iv), true
}

// FindAtmGreeks returns theta and vega from the single contract closest to
// spot at the expiration nearest 30 DTE (within tolerance+slack, ~25 days).
// Either greek may be nil when the provider did not return it.
func FindAtmGreeks(contracts []models.OptionContract, spot float64, asOf time.Time) (theta, vega *float64) {
	exps := groupByExpiry(contracts, asOf)
	if len(exps) == 0 {
		return nil, nil
	}
	sortByDistanceTo(exps, TargetDTE)

	best := exps[0]
	if abs(best.dte-TargetDTE) > DTETolerance+greeksSlack {
		return nil, nil
	}

	band := spot * atmBand
	var nearest *models.OptionContract
	for i := range best.contracts {
		c := &best.contracts[i]
		if c.IV == nil || *c.IV <= 0 {
			continue
		}
		d := c.Strike - spot
		if d < 0 {
			d = -d
		}
		if d > band {
			continue
		}
		if nearest == nil || d < absFloat(nearest.Strike-spot) {
			nearest = c
		}
	}
	if nearest == nil {
		return nil, nil
	}
	return nearest.Theta, nearest.Vega
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
