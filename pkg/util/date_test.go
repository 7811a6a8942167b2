package util

import (
	"testing"
	"time"
)

func TestParseDateLayouts(t *testing.T) {
	for _, s := range []string{"2024-03-15", "2024-03-15 09:31:00", "03/15/2024", "3/15/2024"} {
		got, err := ParseDate(s, nil)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", s, err)
		}
		if got.Format(DateLayout) != "2024-03-15" {
			t.Fatalf("ParseDate(%q) = %v", s, got)
		}
	}
	if _, err := ParseDate("15th of March", nil); err == nil {
		t.Fatalf("expected error for free text")
	}
}

func TestParseTimestampKeepsClock(t *testing.T) {
	got, err := ParseTimestamp("2024-03-15 09:31:00", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hour() != 9 || got.Minute() != 31 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestClockRoundTrip(t *testing.T) {
	m, ok := ClockMinutes("09:45")
	if !ok || m != 585 {
		t.Fatalf("ClockMinutes = %d, %v", m, ok)
	}
	if got := FormatClock(float64(m)); got != "09:45" {
		t.Fatalf("FormatClock = %s", got)
	}
	if _, ok := ClockMinutes("945"); ok {
		t.Fatalf("expected failure without colon")
	}
	if got := FormatClock(600.7); got != "10:00" {
		t.Fatalf("FormatClock fractional = %s", got)
	}
}

func TestParseWeekday(t *testing.T) {
	if d, ok := ParseWeekday("Monday"); !ok || d != time.Monday {
		t.Fatalf("Monday -> %v %v", d, ok)
	}
	if d, ok := ParseWeekday("fri"); !ok || d != time.Friday {
		t.Fatalf("fri -> %v %v", d, ok)
	}
	if _, ok := ParseWeekday("someday"); ok {
		t.Fatalf("expected unknown day")
	}
}
