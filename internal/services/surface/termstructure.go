package surface

import (
	"sort"
	"time"

	"ThetaHarvest/internal/domain/models"
)

// tenor targets for the term structure curve. Tenors outside the chain's DTE
// range are dropped rather than extrapolated.
var termTenors = []struct {
	days  int
	label string
}{
	{7, "1W"}, {14, "2W"}, {30, "1M"}, {60, "2M"},
	{90, "3M"}, {120, "4M"}, {180, "6M"}, {365, "1Y"},
}

// ComputeTermStructure builds the ATM IV curve across every available
// expiration, interpolated to the fixed tenor grid. Slope is front/back IV:
// below 1.0 is contango. With fewer than two usable expirations the curve is
// empty and the slope neutral.
func ComputeTermStructure(contracts []models.OptionContract, spot float64, asOf time.Time) models.TermStructure {
	neutral := models.TermStructure{Points: []models.TermStructurePoint{}, Slope: 1.0, IsContango: true}

	exps := groupByExpiry(contracts, asOf)
	nodes := make([]ivNode, 0, len(exps))
	for _, e := range exps {
		if iv, ok := atmIVAt(e, spot); ok {
			nodes = append(nodes, ivNode{dte: e.dte, iv: iv})
		}
	}
	if len(nodes) < 2 {
		return neutral
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].dte < nodes[j].dte })

	// Piecewise-linear interpolation onto the tenor grid, clamped to the
	// observed DTE range (with the same small slack the reference data uses).
	lo, hi := nodes[0].dte, nodes[len(nodes)-1].dte
	points := make([]models.TermStructurePoint, 0, len(termTenors))
	for _, t := range termTenors {
		if t.days < lo-5 || t.days > hi+30 {
			continue
		}
		points = append(points, models.TermStructurePoint{
			TenorDays:  t.days,
			TenorLabel: t.label,
			IV:         round2(interpDTE(nodes, t.days)),
		})
	}
	if len(points) < 2 {
		return models.TermStructure{Points: points, Slope: 1.0, IsContango: true, FrontIV: frontOrZero(points), BackIV: frontOrZero(points)}
	}

	front := points[0].IV
	back := points[len(points)-1].IV
	slope := 1.0
	if back > 0 {
		slope = front / back
	}

	return models.TermStructure{
		Points:     points,
		Slope:      round3(slope),
		IsContango: slope < 1.0,
		FrontIV:    round2(front),
		BackIV:     round2(back),
	}
}

type ivNode struct {
	dte int
	iv  float64
}

// interpDTE linearly interpolates IV at the requested DTE between the two
// enclosing nodes, clamping to the endpoints outside the range. nodes must
// be sorted by dte ascending.
func interpDTE(nodes []ivNode, target int) float64 {
	if target <= nodes[0].dte {
		return nodes[0].iv
	}
	last := nodes[len(nodes)-1]
	if target >= last.dte {
		return last.iv
	}
	for i := 1; i < len(nodes); i++ {
		if target <= nodes[i].dte {
			a, b := nodes[i-1], nodes[i]
			if b.dte == a.dte {
				return a.iv
			}
			w := float64(target-a.dte) / float64(b.dte-a.dte)
			return a.iv*(1-w) + b.iv*w
		}
	}
	return last.iv
}

func frontOrZero(points []models.TermStructurePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return points[0].IV
}
