// Package scoring turns a volatility snapshot plus its historical context
// into a 0-100 premium-selling score, a per-ticker regime and a
// recommendation. The composite is deterministic: same inputs, same score.
package scoring

import (
	"fmt"
	"math"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/pkg/logger"
)

// Params are the scoring thresholds. Zero values are replaced by defaults in
// NewEngine so a partially filled config cannot zero out a gate.
type Params struct {
	MinIVRank       float64
	MinVRP          float64
	MaxRVAccel      float64
	MaxSkew         float64
	EarningsGateDTE int
}

func (p *Params) applyDefaults() {
	if p.MinIVRank <= 0 {
		p.MinIVRank = 60
	}
	if p.MinVRP <= 0 {
		p.MinVRP = 3.0
	}
	if p.MaxRVAccel <= 0 {
		p.MaxRVAccel = 1.15
	}
	if p.MaxSkew <= 0 {
		p.MaxSkew = 15.0
	}
	if p.EarningsGateDTE <= 0 {
		p.EarningsGateDTE = 14
	}
}

type Engine struct {
	params Params
	log    *logger.Logger
}

func NewEngine(params Params, log *logger.Logger) *Engine {
	params.applyDefaults()
	return &Engine{params: params, log: log}
}

// Score produces the full scored result for one ticker. earningsDTE is nil
// when no upcoming earnings date is known; the earnings gate runs after the
// composite so the suppressed score survives as PreGateScore.
func (e *Engine) Score(snap *models.VolatilitySnapshot, ivc models.IVContext, entry models.UniverseEntry, earningsDTE *int) *models.ScoringResult {
	res := &models.ScoringResult{
		Ticker:       snap.Ticker,
		Name:         entry.Name,
		Sector:       entry.Sector,
		IsETF:        entry.ETF,
		Price:        snap.Price,
		IVCurrent:    snap.AtmIV,
		IVRank:       ivc.IVRank,
		IVPercentile: ivc.IVPercentile,
		RV10:         snap.RV.RV10,
		RV20:         snap.RV.RV20,
		RV30:         snap.RV.RV30,
		VRP:          snap.VRP,
		VRPRatio:     snap.VRPRatio,
		RVAccel:      snap.RV.Acceleration,
		TermSlope:    snap.TermStructure.Slope,
		IsContango:   snap.TermStructure.IsContango,
		Skew25d:      snap.Skew.Skew25dPut,
		EarningsDTE:  earningsDTE,

		Theta:               snap.Theta,
		Vega:                snap.Vega,
		ATR14:               snap.ATR14,
		TermStructurePoints: snap.TermStructure.Points,
		SkewPoints:          snap.Skew.Points,
	}

	score := 0.0
	flags := []string{}

	if snap.AtmIVMissing {
		flags = append(flags, "No usable 30d ATM IV, RV30 substituted")
	}

	// VRP: the core edge. Up to 25 points, scaling with how far implied sits
	// above realized.
	score += math.Min(25, math.Max(0, (snap.VRPRatio-1)*30))
	if snap.VRP < 0 {
		flags = append(flags, "Negative VRP: options priced below realized vol")
	} else if snap.VRP < e.params.MinVRP {
		score -= 10
		flags = append(flags, fmt.Sprintf("Thin VRP (%.1f < %.1f)", snap.VRP, e.params.MinVRP))
	}

	// IV rank: up to 25 points for rich IV relative to the trailing year.
	score += math.Min(25, ivc.IVRank*0.3)
	if ivc.IVRank < e.params.MinIVRank {
		score -= 10
		flags = append(flags, fmt.Sprintf("IV rank %.0f below %.0f", ivc.IVRank, e.params.MinIVRank))
	}

	// Term structure: steep contango rewards the short-vol carry, a flat or
	// inverted curve costs points outright.
	slope := snap.TermStructure.Slope
	switch {
	case slope < 0.85:
		score += 18
	case slope < 0.95:
		score += 12
	case slope < 1.0:
		score += 6
	default:
		score -= 5
		flags = append(flags, "Flat or inverted term structure")
	}

	// RV acceleration: realized vol picking up is the classic trap for
	// premium sellers.
	accel := snap.RV.Acceleration
	if accel > e.params.MaxRVAccel {
		score -= 15
		flags = append(flags, fmt.Sprintf("RV accelerating hard (%.2fx)", accel))
	} else if accel > 1.05 {
		score -= 8
		flags = append(flags, fmt.Sprintf("RV picking up (%.2fx)", accel))
	}

	// Put skew: moderate skew pays, extreme skew means the market is paying
	// up for crash protection.
	absSkew := math.Abs(snap.Skew.Skew25dPut)
	switch {
	case absSkew > 10:
		score += 5
		flags = append(flags, fmt.Sprintf("Extreme put skew (%.1f)", absSkew))
	case absSkew > 7:
		score += 8
	case absSkew > 4:
		score += 6
	default:
		score += 3
	}

	// Regime. Backwardation overrides everything else.
	regime := models.RegimeNormal
	if slope > 1.05 {
		regime = models.RegimeDanger
		score -= 35
		flags = append([]string{"Backwardation: near-term event risk priced in"}, flags...)
	} else if slope > 1.0 {
		regime = models.RegimeCaution
		score -= 20
	}
	if ivc.IVRank > 90 && accel > 1.1 && regime != models.RegimeDanger {
		regime = models.RegimeCaution
		flags = append(flags, "High IV rank with rising realized vol")
	}

	res.Score = clampScore(score)
	res.Regime = regime
	res.Flags = flags
	res.Recommendation = recommend(res.Score, regime)
	res.DisplayScore = displayScore(snap, ivc)
	res.Sizing = sizing(accel)
	res.Construction = construction(regime, ivc.IVRank, snap.VRP)

	e.applyEarningsGate(res)

	e.log.Debug("scored ticker",
		logger.String("ticker", snap.Ticker),
		logger.Int("score", res.Score),
		logger.String("regime", string(res.Regime)),
		logger.String("recommendation", res.Recommendation))

	return res
}

// applyEarningsGate zeroes the score and forces SKIP when earnings land
// inside the gate window. Regime and all diagnostics are preserved so the
// aggregate view still sees the ticker's stress level.
func (e *Engine) applyEarningsGate(res *models.ScoringResult) {
	if res.EarningsDTE == nil || *res.EarningsDTE > e.params.EarningsGateDTE {
		return
	}
	if res.Score > 0 {
		pre := res.Score
		res.PreGateScore = &pre
	}
	res.Score = 0
	res.Recommendation = models.RecSkip
	res.Flags = append(res.Flags,
		fmt.Sprintf("Earnings in %d days: inside the %d-day gate", *res.EarningsDTE, e.params.EarningsGateDTE))
}

func recommend(score int, regime models.Regime) string {
	switch {
	case score >= 70 && regime == models.RegimeNormal:
		return models.RecSellPremium
	case score >= 55 && regime == models.RegimeNormal:
		return models.RecConditional
	case regime == models.RegimeDanger:
		return models.RecAvoid
	case regime == models.RegimeCaution:
		return models.RecReduceSize
	default:
		return models.RecNoEdge
	}
}

// sizing keys off RV acceleration alone: the faster realized vol is rising,
// the smaller the position.
func sizing(accel float64) string {
	switch {
	case accel <= 1.10:
		return models.SizingFull
	case accel <= 1.20:
		return models.SizingHalf
	default:
		return models.SizingQuarter
	}
}

// construction is a deterministic lookup on (regime, iv rank, vrp).
func construction(regime models.Regime, ivRank, vrp float64) models.Construction {
	switch {
	case regime == models.RegimeDanger:
		return models.Construction{
			Delta:       "N/A",
			Structure:   "No position recommended",
			DTE:         "N/A",
			MaxNotional: "0%",
		}
	case regime == models.RegimeCaution:
		return models.Construction{
			Delta:       "10-15 delta",
			Structure:   "Iron condor or wide put spread (defined risk only)",
			DTE:         "21-30 DTE",
			MaxNotional: "1-2% per position",
		}
	case ivRank >= 80:
		structure := "Put credit spread (strict width)"
		if vrp > 8 {
			structure = "Short strangle or jade lizard"
		} else if vrp > 4 {
			structure = "Iron condor or put credit spread"
		}
		return models.Construction{
			Delta:       "16-20 delta",
			Structure:   structure,
			DTE:         "30-45 DTE",
			MaxNotional: "2-5% per position",
		}
	default:
		return models.Construction{
			Delta:       "20-30 delta",
			Structure:   "Put credit spread (narrow width)",
			DTE:         "45-60 DTE",
			MaxNotional: "2-3% per position",
		}
	}
}

func clampScore(s float64) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return int(s)
}
