package scoring

import (
	"math"

	"ThetaHarvest/internal/domain/models"
)

// displayScore is the alternate weighting shown in the dashboard: heavier on
// the absolute VRP level, lighter on rank, and it uses IV percentile so a
// single outlier day cannot compress the reading the way the min/max rank
// can. It never drives recommendations.
func displayScore(snap *models.VolatilitySnapshot, ivc models.IVContext) int {
	score := 0.0

	score += math.Min(40, math.Max(0, snap.VRP*4))

	switch slope := snap.TermStructure.Slope; {
	case slope < 0.85:
		score += 25
	case slope < 0.95:
		score += 18
	case slope < 1.0:
		score += 10
	default:
		score += 5
	}

	score += math.Min(20, math.Max(3, ivc.IVPercentile*0.2))

	if accel := snap.RV.Acceleration; accel > 1.15 {
		score -= 15
	} else if accel > 1.05 {
		score -= 8
	}

	return clampScore(score)
}
