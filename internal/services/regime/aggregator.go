// Package regime rolls the per-ticker scoring results up into a single
// market-wide read. Earnings-gated tickers never feed the averages: an
// event-inflated IV says nothing about market-wide conditions.
package regime

import (
	"math"

	"ThetaHarvest/internal/domain/models"
)

const (
	colorElevated    = "#C45A5A"
	colorCaution     = "#C49A5A"
	colorOpportunity = "#C47B5A"
	colorNormal      = "#6B8C5A"
	colorNoData      = "#9A8E82"
)

// Aggregate summarizes one scan's results. With no eligible tickers the
// summary is explicitly neutral rather than a pile of NaNs.
func Aggregate(results []models.ScoringResult) *models.RegimeSummary {
	sum := &models.RegimeSummary{TotalTickers: len(results)}

	var eligible []models.ScoringResult
	for _, r := range results {
		if r.EarningsGated() {
			sum.ExcludedEarnings++
			continue
		}
		eligible = append(eligible, r)
	}

	if len(eligible) == 0 {
		sum.OverallRegime = models.OverallNoData
		sum.RegimeColor = colorNoData
		sum.Description = "No tickers eligible for aggregation"
		sum.InsufficientData = true
		return sum
	}

	var ivRank, vrp, slope, accel float64
	for _, r := range eligible {
		ivRank += r.IVRank
		vrp += r.VRP
		slope += r.TermSlope
		accel += r.RVAccel

		switch r.Regime {
		case models.RegimeDanger:
			sum.DangerCount++
		case models.RegimeCaution:
			sum.CautionCount++
		}
		if r.TermSlope > 1.0 {
			sum.BackwardationN++
		}
		if r.Recommendation == models.RecSellPremium || r.Recommendation == models.RecConditional {
			sum.TradeableCount++
		}
		if r.Ticker == "SPY" {
			s := r.TermSlope
			sum.VIXTermSlopeProxy = &s
		}
	}

	n := float64(len(eligible))
	sum.AvgIVRank = round2(ivRank / n)
	sum.AvgVRP = round2(vrp / n)
	sum.AvgTermSlope = round3(slope / n)
	sum.AvgRVAccel = round3(accel / n)

	sum.OverallRegime, sum.Description = classify(sum)
	sum.RegimeColor = colorFor(sum.OverallRegime)
	return sum
}

// classify orders the checks from most to least severe: widespread
// backwardation first, rising realized vol second, the rich-carry
// opportunity read only when nothing is on fire.
func classify(s *models.RegimeSummary) (string, string) {
	switch {
	case s.BackwardationN >= 3 || s.AvgTermSlope > 1.02:
		return models.OverallElevatedRisk,
			"Multiple term structures inverted, event risk is broad. Stand aside or cut size hard."
	case s.AvgRVAccel > 1.12 || s.BackwardationN >= 1:
		return models.OverallCaution,
			"Realized vol is picking up or isolated inversions exist. Reduce size and tighten entries."
	case s.AvgVRP > 8 && s.AvgTermSlope < 0.90:
		return models.OverallOpportunity,
			"Rich premium over realized with steep contango. Favorable backdrop for selling."
	default:
		return models.OverallNormal,
			"Ordinary volatility conditions. Trade the per-ticker signals at normal size."
	}
}

func colorFor(regime string) string {
	switch regime {
	case models.OverallElevatedRisk:
		return colorElevated
	case models.OverallCaution:
		return colorCaution
	case models.OverallOpportunity:
		return colorOpportunity
	case models.OverallNoData:
		return colorNoData
	default:
		return colorNormal
	}
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
