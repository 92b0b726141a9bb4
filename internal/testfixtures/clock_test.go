package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if clock.Now().Weekday() != time.Monday {
		t.Fatalf("expected reference time to fall on a Monday, got %v", clock.Now().Weekday())
	}
}

func TestClockAdvance(t *testing.T) {
	start := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	clock := NewClock(start)
	nowFn := clock.NowFunc()

	if got := clock.Advance(90 * time.Minute); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", got)
	}
	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected NowFunc to track the clock, got %v", got)
	}

	clock.Set(start)
	if got := clock.AdvanceDays(7); !got.Equal(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("advance days returned %v", got)
	}
}

func TestClockAdvanceDaysKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	clock := NewClock(time.Date(2025, time.March, 8, 9, 0, 0, 0, loc))

	got := clock.AdvanceDays(1)
	if got.Hour() != 9 || got.Day() != 9 {
		t.Fatalf("expected 09:00 on the 9th, got %v", got)
	}
}
