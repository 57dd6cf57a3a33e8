package surface

import (
	"math"
	"testing"

	"ThetaHarvest/internal/domain/models"
)

func TestComputeSkewDeltaSpace(t *testing.T) {
	exp := "2024-03-31" // 30 DTE from asOf
	chain := []models.OptionContract{
		{Strike: 100, Expiration: exp, Type: models.OptionPut, IV: fptr(0.20), Delta: fptr(-0.50)},
		{Strike: 92, Expiration: exp, Type: models.OptionPut, IV: fptr(0.25), Delta: fptr(-0.25)},
		{Strike: 100, Expiration: exp, Type: models.OptionCall, IV: fptr(0.19), Delta: fptr(0.50)},
		{Strike: 108, Expiration: exp, Type: models.OptionCall, IV: fptr(0.18), Delta: fptr(0.25)},
	}

	skew := ComputeSkew(chain, 100, asOf)
	if len(skew.Points) != 4 {
		t.Fatalf("got %d points, want 4", len(skew.Points))
	}
	for i := 1; i < len(skew.Points); i++ {
		if skew.Points[i].Delta < skew.Points[i-1].Delta {
			t.Fatal("points not sorted by delta")
		}
	}

	// ATM is the mean of the two 50-delta quotes (19.5), the 25-delta put
	// prints 25.0.
	if skew.Skew25dPut != 5.5 {
		t.Errorf("skew25d = %v, want 5.5", skew.Skew25dPut)
	}

	// Put wing: (50, 20) and (25, 25) give slope -0.2. Call wing: (50, 19)
	// and (25, 18) give slope 0.04.
	if math.Abs(skew.PutSkewSlope-(-0.2)) > 1e-9 {
		t.Errorf("put slope = %v, want -0.2", skew.PutSkewSlope)
	}
	if math.Abs(skew.CallSkewSlope-0.04) > 1e-9 {
		t.Errorf("call slope = %v, want 0.04", skew.CallSkewSlope)
	}
}

func TestComputeSkewMoneynessFallback(t *testing.T) {
	exp := "2024-03-31"
	// No quoted deltas: strike distance from spot stands in.
	chain := []models.OptionContract{
		{Strike: 88, Expiration: exp, Type: models.OptionPut, IV: fptr(0.26)},  // pseudo-delta 24
		{Strike: 99, Expiration: exp, Type: models.OptionPut, IV: fptr(0.21)},  // clamps to 5
		{Strike: 101, Expiration: exp, Type: models.OptionCall, IV: fptr(0.20)}, // pseudo-delta 49
	}

	skew := ComputeSkew(chain, 100, asOf)
	if len(skew.Points) != 3 {
		t.Fatalf("got %d points, want 3: %+v", len(skew.Points), skew.Points)
	}
	// ATM from the 49-delta call (20.0), 25-delta put bucket from the
	// 24-delta put (26.0).
	if skew.Skew25dPut != 6.0 {
		t.Errorf("skew25d = %v, want 6.0", skew.Skew25dPut)
	}
}

func TestComputeSkewExtremeDeltasDropped(t *testing.T) {
	exp := "2024-03-31"
	chain := []models.OptionContract{
		{Strike: 60, Expiration: exp, Type: models.OptionPut, IV: fptr(0.60), Delta: fptr(-0.02)},
		{Strike: 100, Expiration: exp, Type: models.OptionPut, IV: fptr(0.20), Delta: fptr(-0.95)},
	}
	skew := ComputeSkew(chain, 100, asOf)
	if len(skew.Points) != 0 {
		t.Fatalf("deep wings should be dropped, got %+v", skew.Points)
	}
}

func TestComputeSkewEmptyChain(t *testing.T) {
	skew := ComputeSkew(nil, 100, asOf)
	if len(skew.Points) != 0 || skew.Skew25dPut != 0 {
		t.Fatalf("expected empty skew, got %+v", skew)
	}
}
