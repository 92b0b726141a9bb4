package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseType(t *testing.T) {
	t.Parallel()

	cases := map[string]Type{
		"":        TypeNone,
		"none":    TypeNone,
		"Daily":   TypeDaily,
		" WEEKLY": TypeWeekly,
		"custom":  TypeCustom,
	}
	for input, want := range cases {
		got, err := ParseType(input)
		if err != nil {
			t.Fatalf("ParseType(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseType(%q) = %q, want %q", input, got, want)
		}
	}

	if _, err := ParseType("fortnightly"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	hour, minute, err := ParseTimeOfDay("7:05")
	if err != nil {
		t.Fatalf("ParseTimeOfDay returned error: %v", err)
	}
	if hour != 7 || minute != 5 {
		t.Fatalf("expected 7:05, got %d:%d", hour, minute)
	}

	hour, minute, err = ParseTimeOfDay("23:59")
	if err != nil || hour != 23 || minute != 59 {
		t.Fatalf("expected 23:59, got %d:%d (%v)", hour, minute, err)
	}

	if got := FormatTimeOfDay(time.Date(2024, 1, 1, 7, 5, 0, 0, time.UTC)); got != "07:05" {
		t.Fatalf("expected 07:05, got %q", got)
	}
}

func TestParseWeekdays(t *testing.T) {
	t.Parallel()

	got, err := ParseWeekdays([]string{"Thursday", "mon", "MONDAY", "sun"})
	if err != nil {
		t.Fatalf("ParseWeekdays returned error: %v", err)
	}
	want := []time.Weekday{time.Sunday, time.Monday, time.Thursday}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected weekdays (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"sunday", "monday", "thursday"}, WeekdayNames(got)); diff != "" {
		t.Fatalf("unexpected names (-want +got):\n%s", diff)
	}

	if _, err := ParseWeekdays([]string{"monday", "funday"}); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
}

func TestParseEndDate(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-5", -5*60*60)
	want := time.Date(2024, time.June, 5, 0, 0, 0, 0, loc)

	for _, input := range []string{"2024-06-05", " 2024-06-05T00:00:00Z", "2024-06-05T23:30:00+09:00"} {
		got, err := ParseEndDate(input, loc)
		if err != nil {
			t.Fatalf("ParseEndDate(%q) returned error: %v", input, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseEndDate(%q) = %s, want %s", input, got, want)
		}
	}

	if _, err := ParseEndDate("05/06/2024", loc); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
