package surface

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"ThetaHarvest/internal/domain/models"
)

// ComputeSkew extracts the vertical skew from the expiration nearest the
// 30-day target. Contracts carrying a delta are mapped into delta space
// directly; contracts without greeks fall back to a moneyness pseudo-delta so
// thinly-quoted chains still produce a usable curve.
func ComputeSkew(contracts []models.OptionContract, spot float64, asOf time.Time) models.VolSkew {
	empty := models.VolSkew{Points: []models.SkewPoint{}}

	exps := groupByExpiry(contracts, asOf)
	if len(exps) == 0 || spot <= 0 {
		return empty
	}
	sortByDistanceTo(exps, TargetDTE)
	e := exps[0]

	points := make([]models.SkewPoint, 0, len(e.contracts))
	for _, c := range e.contracts {
		if c.IV == nil || *c.IV <= 0 {
			continue
		}
		delta, ok := skewDelta(c, spot)
		if !ok {
			continue
		}
		points = append(points, models.SkewPoint{
			Delta: round1(delta),
			IV:    round2(*c.IV * 100),
			Type:  string(c.Type),
		})
	}
	if len(points) == 0 {
		return empty
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Delta < points[j].Delta })

	atm, atmOK := meanIVWhere(points, func(p models.SkewPoint) bool {
		return p.Delta > 40 && p.Delta < 60
	})
	put25, putOK := meanIVWhere(points, func(p models.SkewPoint) bool {
		return p.Type == string(models.OptionPut) && p.Delta > 20 && p.Delta < 30
	})
	skew25 := 0.0
	if atmOK && putOK {
		skew25 = round2(put25 - atm)
	}

	return models.VolSkew{
		Points:        points,
		Skew25dPut:    skew25,
		PutSkewSlope:  wingSlope(points, models.OptionPut),
		CallSkewSlope: wingSlope(points, models.OptionCall),
	}
}

// skewDelta maps a contract onto the 0..100 delta axis. Quoted deltas near
// 0 or 1 are discarded as noise; without a quoted delta the distance from
// spot stands in for it.
func skewDelta(c models.OptionContract, spot float64) (float64, bool) {
	if c.Delta != nil {
		d := *c.Delta
		switch c.Type {
		case models.OptionPut:
			if d > -0.9 && d < -0.05 {
				return math.Abs(d) * 100, true
			}
		case models.OptionCall:
			if d > 0.05 && d < 0.9 {
				return d * 100, true
			}
		}
		return 0, false
	}

	m := c.Strike / spot
	switch c.Type {
	case models.OptionPut:
		if m > 0.8 && m < 1.0 {
			return clampFloat((1.0-m)*100*2, 5, 50), true
		}
	case models.OptionCall:
		if m > 1.0 && m < 1.2 {
			return clampFloat((1.0-(m-1.0)*2)*50, 5, 50), true
		}
	}
	return 0, false
}

func meanIVWhere(points []models.SkewPoint, keep func(models.SkewPoint) bool) (float64, bool) {
	sum, n := 0.0, 0
	for _, p := range points {
		if keep(p) {
			sum += p.IV
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// wingSlope fits IV against delta for one side of the chain. Fewer than two
// points on a wing yields a flat slope.
func wingSlope(points []models.SkewPoint, side models.OptionType) float64 {
	var xs, ys []float64
	for _, p := range points {
		if p.Type == string(side) {
			xs = append(xs, p.Delta)
			ys = append(ys, p.IV)
		}
	}
	if len(xs) < 2 {
		return 0
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return round4(beta)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
