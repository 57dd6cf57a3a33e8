package surface

import (
	"math"
	"sort"
	"time"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/pkg/util"
)

// atmBand is the moneyness window used to call a contract "near ATM".
const atmBand = 0.03

// expiry groups the contracts of one expiration with its days-to-expiration.
type expiry struct {
	date      string
	dte       int
	contracts []models.OptionContract
}

// groupByExpiry buckets contracts by expiration, computes DTE against asOf,
// and drops expired or unparseable expirations. Result is unsorted.
func groupByExpiry(contracts []models.OptionContract, asOf time.Time) []expiry {
	byDate := make(map[string][]models.OptionContract)
	for _, c := range contracts {
		byDate[c.Expiration] = append(byDate[c.Expiration], c)
	}

	out := make([]expiry, 0, len(byDate))
	for date, chain := range byDate {
		dte, ok := util.DaysUntil(date, asOf, time.UTC)
		if !ok || dte <= 0 {
			continue
		}
		out = append(out, expiry{date: date, dte: dte, contracts: chain})
	}
	return out
}

// sortByDistanceTo orders expirations by |dte - target| ascending.
func sortByDistanceTo(exps []expiry, target int) {
	sort.Slice(exps, func(i, j int) bool {
		di := abs(exps[i].dte - target)
		dj := abs(exps[j].dte - target)
		if di != dj {
			return di < dj
		}
		return exps[i].dte < exps[j].dte
	})
}

// atmIVAt returns the ATM IV (vol points) at one expiration: restrict to
// strikes within 3% of spot with a positive IV, take the strike nearest spot,
// and average the put and call IV there. Returns false when no contract
// qualifies.
func atmIVAt(e expiry, spot float64) (float64, bool) {
	band := spot * atmBand

	var nearATM []models.OptionContract
	for _, c := range e.contracts {
		if c.IV == nil || *c.IV <= 0 {
			continue
		}
		if math.Abs(c.Strike-spot) <= band {
			nearATM = append(nearATM, c)
		}
	}
	if len(nearATM) == 0 {
		return 0, false
	}

	nearest := nearATM[0]
	for _, c := range nearATM[1:] {
		if math.Abs(c.Strike-spot) < math.Abs(nearest.Strike-spot) {
			nearest = c
		}
	}

	sum, n := 0.0, 0
	for _, c := range nearATM {
		if c.Strike == nearest.Strike {
			sum += *c.IV
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n) * 100, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
