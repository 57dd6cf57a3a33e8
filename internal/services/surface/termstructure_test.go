package surface

import (
	"testing"

	"ThetaHarvest/internal/domain/models"
)

func TestComputeTermStructure(t *testing.T) {
	// Expirations at 7, 30 and 90 DTE with ATM IVs 25, 22 and 20:
	// a downward-sloping (backwardated) curve.
	var chain []models.OptionContract
	chain = append(chain, atmPair("2024-03-08", 100, 0.25)...)
	chain = append(chain, atmPair("2024-03-31", 100, 0.22)...)
	chain = append(chain, atmPair("2024-05-30", 100, 0.20)...)

	ts := ComputeTermStructure(chain, 100, asOf)

	wantTenors := []int{7, 14, 30, 60, 90, 120}
	if len(ts.Points) != len(wantTenors) {
		t.Fatalf("got %d points, want %d: %+v", len(ts.Points), len(wantTenors), ts.Points)
	}
	for i, p := range ts.Points {
		if p.TenorDays != wantTenors[i] {
			t.Errorf("point %d tenor = %d, want %d", i, p.TenorDays, wantTenors[i])
		}
	}

	if ts.Points[0].IV != 25.00 {
		t.Errorf("1W IV = %v, want 25.00", ts.Points[0].IV)
	}
	// 60 DTE sits midway between the 30 and 90 day expirations.
	if ts.Points[3].IV != 21.00 {
		t.Errorf("2M IV = %v, want 21.00", ts.Points[3].IV)
	}
	// Tenors past the last expiration clamp to it.
	if ts.Points[5].IV != 20.00 {
		t.Errorf("4M IV = %v, want 20.00", ts.Points[5].IV)
	}

	if ts.Slope != 1.25 {
		t.Errorf("slope = %v, want 1.25", ts.Slope)
	}
	if ts.IsContango {
		t.Error("front above back should not read as contango")
	}
	if ts.FrontIV != 25.00 || ts.BackIV != 20.00 {
		t.Errorf("front/back = %v/%v, want 25.00/20.00", ts.FrontIV, ts.BackIV)
	}
}

func TestComputeTermStructureTooFewExpiries(t *testing.T) {
	chain := atmPair("2024-03-31", 100, 0.22)
	ts := ComputeTermStructure(chain, 100, asOf)
	if len(ts.Points) != 0 {
		t.Fatalf("expected no points, got %+v", ts.Points)
	}
	if ts.Slope != 1.0 || !ts.IsContango {
		t.Fatalf("expected neutral slope for a single expiration, got %+v", ts)
	}
}
