package regime

import (
	"testing"

	"ThetaHarvest/internal/domain/models"
)

func result(ticker string, ivRank, vrp, slope, accel float64, reg models.Regime, rec string) models.ScoringResult {
	return models.ScoringResult{
		Ticker:         ticker,
		IVRank:         ivRank,
		VRP:            vrp,
		TermSlope:      slope,
		RVAccel:        accel,
		Regime:         reg,
		Recommendation: rec,
	}
}

func TestAggregateNormal(t *testing.T) {
	results := []models.ScoringResult{
		result("AAA", 50, 4, 0.95, 1.0, models.RegimeNormal, models.RecNoEdge),
		result("BBB", 60, 5, 0.93, 1.02, models.RegimeNormal, models.RecConditional),
		result("CCC", 70, 6, 0.97, 0.98, models.RegimeNormal, models.RecSellPremium),
	}

	sum := Aggregate(results)
	if sum.OverallRegime != models.OverallNormal {
		t.Fatalf("regime = %s, want NORMAL", sum.OverallRegime)
	}
	if sum.AvgIVRank != 60.0 {
		t.Errorf("avg iv rank = %v, want 60.0", sum.AvgIVRank)
	}
	if sum.AvgVRP != 5.0 {
		t.Errorf("avg vrp = %v, want 5.0", sum.AvgVRP)
	}
	if sum.TradeableCount != 2 {
		t.Errorf("tradeable = %d, want 2", sum.TradeableCount)
	}
	if sum.TotalTickers != 3 || sum.ExcludedEarnings != 0 {
		t.Errorf("totals wrong: %+v", sum)
	}
	if sum.RegimeColor != colorNormal {
		t.Errorf("color = %s, want %s", sum.RegimeColor, colorNormal)
	}
}

func TestAggregateElevatedRisk(t *testing.T) {
	// Three inverted term structures trip the broad-event-risk read.
	results := []models.ScoringResult{
		result("AAA", 80, 2, 1.08, 1.1, models.RegimeDanger, models.RecAvoid),
		result("BBB", 85, 1, 1.06, 1.2, models.RegimeDanger, models.RecAvoid),
		result("CCC", 75, 3, 1.02, 1.0, models.RegimeCaution, models.RecReduceSize),
		result("DDD", 40, 5, 0.95, 1.0, models.RegimeNormal, models.RecNoEdge),
	}

	sum := Aggregate(results)
	if sum.OverallRegime != models.OverallElevatedRisk {
		t.Fatalf("regime = %s, want ELEVATED RISK", sum.OverallRegime)
	}
	if sum.BackwardationN != 3 {
		t.Errorf("backwardation count = %d, want 3", sum.BackwardationN)
	}
	if sum.DangerCount != 2 || sum.CautionCount != 1 {
		t.Errorf("danger/caution = %d/%d, want 2/1", sum.DangerCount, sum.CautionCount)
	}
}

func TestAggregateSingleInversionIsCaution(t *testing.T) {
	results := []models.ScoringResult{
		result("AAA", 50, 5, 1.03, 1.0, models.RegimeCaution, models.RecReduceSize),
		result("BBB", 50, 5, 0.92, 1.0, models.RegimeNormal, models.RecNoEdge),
		result("CCC", 50, 5, 0.93, 1.0, models.RegimeNormal, models.RecNoEdge),
	}

	sum := Aggregate(results)
	if sum.OverallRegime != models.OverallCaution {
		t.Fatalf("regime = %s, want CAUTION", sum.OverallRegime)
	}
}

func TestAggregateOpportunity(t *testing.T) {
	results := []models.ScoringResult{
		result("AAA", 70, 10, 0.85, 1.0, models.RegimeNormal, models.RecSellPremium),
		result("BBB", 65, 9, 0.88, 0.95, models.RegimeNormal, models.RecSellPremium),
	}

	sum := Aggregate(results)
	if sum.OverallRegime != models.OverallOpportunity {
		t.Fatalf("regime = %s, want OPPORTUNITY", sum.OverallRegime)
	}
}

func TestAggregateExcludesEarningsGated(t *testing.T) {
	// The gated ticker carries an inverted slope that would otherwise flip
	// the read to CAUTION.
	results := []models.ScoringResult{
		result("AAA", 50, 5, 0.95, 1.0, models.RegimeNormal, models.RecNoEdge),
		result("EVT", 95, 12, 1.10, 1.3, models.RegimeDanger, models.RecSkip),
	}

	sum := Aggregate(results)
	if sum.OverallRegime != models.OverallNormal {
		t.Fatalf("regime = %s, want NORMAL with the gated ticker excluded", sum.OverallRegime)
	}
	if sum.ExcludedEarnings != 1 {
		t.Errorf("excluded = %d, want 1", sum.ExcludedEarnings)
	}
	if sum.BackwardationN != 0 || sum.DangerCount != 0 {
		t.Errorf("gated ticker leaked into counts: %+v", sum)
	}
	if sum.TotalTickers != 2 {
		t.Errorf("total = %d, want 2", sum.TotalTickers)
	}
}

func TestAggregateEmpty(t *testing.T) {
	for _, results := range [][]models.ScoringResult{
		nil,
		{result("EVT", 95, 12, 1.10, 1.3, models.RegimeDanger, models.RecSkip)},
	} {
		sum := Aggregate(results)
		if sum.OverallRegime != models.OverallNoData {
			t.Fatalf("regime = %s, want NO DATA", sum.OverallRegime)
		}
		if !sum.InsufficientData {
			t.Fatal("insufficient-data marker not set")
		}
		if sum.AvgIVRank != 0 || sum.AvgTermSlope != 0 {
			t.Fatalf("averages must stay zero, got %+v", sum)
		}
	}
}

func TestAggregateSPYProxy(t *testing.T) {
	results := []models.ScoringResult{
		result("SPY", 50, 5, 0.91, 1.0, models.RegimeNormal, models.RecNoEdge),
		result("AAA", 50, 5, 0.95, 1.0, models.RegimeNormal, models.RecNoEdge),
	}
	sum := Aggregate(results)
	if sum.VIXTermSlopeProxy == nil || *sum.VIXTermSlopeProxy != 0.91 {
		t.Fatalf("vix proxy = %v, want 0.91", sum.VIXTermSlopeProxy)
	}
}
