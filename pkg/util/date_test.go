package util

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2025-03-14")
	if !ok {
		t.Fatalf("expected ok")
	}
	if DateString(got) != "2025-03-14" {
		t.Fatalf("unexpected date %v", got)
	}

	if _, ok := ParseDate(""); ok {
		t.Fatalf("empty string should not parse")
	}
	if _, ok := ParseDate("03/14/2025"); ok {
		t.Fatalf("wrong layout should not parse")
	}
}

func TestIsTradingDay(t *testing.T) {
	loc := time.UTC
	fri := time.Date(2025, 3, 14, 12, 0, 0, 0, loc)
	sat := time.Date(2025, 3, 15, 12, 0, 0, 0, loc)
	sun := time.Date(2025, 3, 16, 12, 0, 0, 0, loc)

	if !IsTradingDay(fri, loc) {
		t.Fatalf("friday should be a trading day")
	}
	if IsTradingDay(sat, loc) || IsTradingDay(sun, loc) {
		t.Fatalf("weekend should not be a trading day")
	}
}

func TestSameTradingDayAcrossZones(t *testing.T) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 01:00 UTC on the 15th is still the evening of the 14th in New York.
	a := time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 14, 18, 30, 0, 0, et)
	if !SameTradingDay(a, b, et) {
		t.Fatalf("expected same ET trading day")
	}
	if SameTradingDay(a, b, time.UTC) {
		t.Fatalf("expected different UTC days")
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	d, ok := DaysUntil("2025-03-24", now, time.UTC)
	if !ok || d != 10 {
		t.Fatalf("expected 10 days, got %d (ok=%v)", d, ok)
	}
	d, ok = DaysUntil("2025-03-14", now, time.UTC)
	if !ok || d != 0 {
		t.Fatalf("expected 0 days for today, got %d", d)
	}
	if _, ok := DaysUntil("bogus", now, time.UTC); ok {
		t.Fatalf("bogus date should not parse")
	}
}
