package surface

import (
	"testing"
	"time"

	"ThetaHarvest/internal/domain/models"
)

var asOf = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fptr(f float64) *float64 { return &f }

func atmPair(exp string, strike, iv float64) []models.OptionContract {
	return []models.OptionContract{
		{Strike: strike, Expiration: exp, Type: models.OptionPut, IV: fptr(iv)},
		{Strike: strike, Expiration: exp, Type: models.OptionCall, IV: fptr(iv)},
	}
}

func TestComputeAtmIVInterpolation(t *testing.T) {
	// Expirations at 25 and 39 DTE bracket the 30-day target.
	var chain []models.OptionContract
	chain = append(chain, atmPair("2024-03-26", 100, 0.20)...)
	chain = append(chain, atmPair("2024-04-09", 100, 0.30)...)

	iv, ok := ComputeAtmIV(chain, 100, asOf)
	if !ok {
		t.Fatal("expected an ATM IV")
	}
	// weight (30-25)/(39-25) between 20 and 30 vol points.
	if iv != 23.57 {
		t.Fatalf("iv = %v, want 23.57", iv)
	}
}

func TestComputeAtmIVSingleExpiry(t *testing.T) {
	chain := atmPair("2024-03-29", 100, 0.22) // 28 DTE
	iv, ok := ComputeAtmIV(chain, 100, asOf)
	if !ok {
		t.Fatal("expected an ATM IV")
	}
	if iv != 22.00 {
		t.Fatalf("iv = %v, want 22.00", iv)
	}
}

func TestComputeAtmIVMissingBeyondTolerance(t *testing.T) {
	chain := atmPair("2024-04-15", 100, 0.25) // 45 DTE
	if _, ok := ComputeAtmIV(chain, 100, asOf); ok {
		t.Fatal("expected missing ATM IV when nearest expiration is 45 DTE")
	}
}

func TestComputeAtmIVIgnoresFarStrikes(t *testing.T) {
	// Only strikes outside the 3% band: no ATM quote exists.
	chain := atmPair("2024-03-29", 110, 0.40)
	if _, ok := ComputeAtmIV(chain, 100, asOf); ok {
		t.Fatal("expected missing ATM IV with no near-ATM strikes")
	}
}

func TestFindAtmGreeks(t *testing.T) {
	chain := []models.OptionContract{
		{Strike: 100, Expiration: "2024-04-10", Type: models.OptionPut,
			IV: fptr(0.24), Theta: fptr(-0.05), Vega: fptr(0.12)},
		{Strike: 102, Expiration: "2024-04-10", Type: models.OptionCall,
			IV: fptr(0.23), Theta: fptr(-0.03), Vega: fptr(0.10)},
	}
	theta, vega := FindAtmGreeks(chain, 100, asOf)
	if theta == nil || vega == nil {
		t.Fatal("expected greeks from the nearest-to-spot contract")
	}
	if *theta != -0.05 || *vega != 0.12 {
		t.Fatalf("theta=%v vega=%v, want -0.05 / 0.12", *theta, *vega)
	}
}

func TestFindAtmGreeksNoExpiryInRange(t *testing.T) {
	chain := []models.OptionContract{
		{Strike: 100, Expiration: "2024-06-01", Type: models.OptionPut,
			IV: fptr(0.24), Theta: fptr(-0.05), Vega: fptr(0.12)},
	}
	theta, vega := FindAtmGreeks(chain, 100, asOf)
	if theta != nil || vega != nil {
		t.Fatal("expected no greeks when every expiration is too far out")
	}
}
