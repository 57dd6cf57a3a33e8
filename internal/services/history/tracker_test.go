package history

import (
	"testing"
)

func window(vals ...float64) []float64 { return vals }

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestIVRankColdStart(t *testing.T) {
	if got := IVRank(ramp(19, 10, 1), 40); got != 50.0 {
		t.Fatalf("rank = %v, want neutral 50 below 20 samples", got)
	}
	if got := IVPercentile(ramp(19, 10, 1), 40); got != 50.0 {
		t.Fatalf("percentile = %v, want neutral 50 below 20 samples", got)
	}
}

func TestIVRank(t *testing.T) {
	hist := ramp(30, 10, 1) // 10..39
	cases := []struct {
		current float64
		want    float64
	}{
		{10, 0},
		{39, 100},
		{24.5, 50},
		{5, 0},    // clamped below the window
		{60, 100}, // clamped above the window
	}
	for _, c := range cases {
		if got := IVRank(hist, c.current); got != c.want {
			t.Errorf("IVRank(%v) = %v, want %v", c.current, got, c.want)
		}
	}
}

func TestIVRankFlatWindow(t *testing.T) {
	hist := make([]float64, 25)
	for i := range hist {
		hist[i] = 20.0
	}
	hist[3] = 20.05 // range below 0.1
	if got := IVRank(hist, 20.02); got != 50.0 {
		t.Fatalf("rank = %v, want neutral 50 for a flat window", got)
	}
}

func TestIVPercentile(t *testing.T) {
	hist := ramp(20, 1, 1) // 1..20
	if got := IVPercentile(hist, 10.5); got != 50.0 {
		t.Fatalf("percentile = %v, want 50.0", got)
	}
	if got := IVPercentile(hist, 0); got != 0.0 {
		t.Fatalf("percentile = %v, want 0.0", got)
	}
	if got := IVPercentile(hist, 100); got != 100.0 {
		t.Fatalf("percentile = %v, want 100.0", got)
	}
}

func TestIVRankRounding(t *testing.T) {
	hist := window(0, 30, 10, 20, 5, 25, 15, 2, 28, 7,
		12, 18, 22, 3, 27, 9, 14, 19, 23, 6)
	// range 0..30, current 10 -> 33.333 -> 33.3
	if got := IVRank(hist, 10); got != 33.3 {
		t.Fatalf("rank = %v, want 33.3", got)
	}
}
