package recurrence

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/go-cmp/cmp"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestExpander_Expand(t *testing.T) {
	t.Parallel()

	now := at(2024, time.June, 1, 12, 0)

	tests := []struct {
		name string
		rule Rule
		want []time.Time
	}{
		{
			name: "daily through inclusive end date",
			rule: Rule{
				Start:     at(2024, time.June, 3, 9, 0),
				Type:      TypeDaily,
				TimeOfDay: "09:00",
				EndDate:   datePtr(2024, time.June, 5),
			},
			want: []time.Time{
				at(2024, time.June, 3, 9, 0),
				at(2024, time.June, 4, 9, 0),
				at(2024, time.June, 5, 9, 0),
			},
		},
		{
			name: "custom weekdays apply time of day",
			rule: Rule{
				Start:     at(2024, time.June, 3, 9, 0),
				Type:      TypeCustom,
				TimeOfDay: "14:00",
				Weekdays:  []time.Weekday{time.Monday, time.Thursday},
				EndDate:   datePtr(2024, time.June, 13),
			},
			want: []time.Time{
				at(2024, time.June, 3, 14, 0),
				at(2024, time.June, 6, 14, 0),
				at(2024, time.June, 10, 14, 0),
				at(2024, time.June, 13, 14, 0),
			},
		},
		{
			name: "custom without weekdays is empty",
			rule: Rule{
				Start:     at(2024, time.June, 3, 9, 0),
				Type:      TypeCustom,
				TimeOfDay: "14:00",
				EndDate:   datePtr(2024, time.June, 13),
			},
			want: []time.Time{},
		},
		{
			name: "start date dropped when time of day already passed",
			rule: Rule{
				Start:     at(2024, time.June, 3, 15, 0),
				Type:      TypeDaily,
				TimeOfDay: "09:00",
				EndDate:   datePtr(2024, time.June, 5),
			},
			want: []time.Time{
				at(2024, time.June, 4, 9, 0),
				at(2024, time.June, 5, 9, 0),
			},
		},
		{
			name: "weekly repeats on the start weekday",
			rule: Rule{
				Start:     at(2024, time.June, 3, 9, 0),
				Type:      TypeWeekly,
				TimeOfDay: "09:00",
				EndDate:   datePtr(2024, time.June, 24),
			},
			want: []time.Time{
				at(2024, time.June, 3, 9, 0),
				at(2024, time.June, 10, 9, 0),
				at(2024, time.June, 17, 9, 0),
				at(2024, time.June, 24, 9, 0),
			},
		},
		{
			name: "weekly keeps cadence after dropping the first candidate",
			rule: Rule{
				Start:     at(2024, time.June, 3, 10, 0),
				Type:      TypeWeekly,
				TimeOfDay: "09:00",
				EndDate:   datePtr(2024, time.June, 20),
			},
			want: []time.Time{
				at(2024, time.June, 10, 9, 0),
				at(2024, time.June, 17, 9, 0),
			},
		},
		{
			name: "end date before start is empty",
			rule: Rule{
				Start:     at(2024, time.June, 10, 9, 0),
				Type:      TypeDaily,
				TimeOfDay: "09:00",
				EndDate:   datePtr(2024, time.June, 9),
			},
			want: []time.Time{},
		},
		{
			name: "none yields nothing",
			rule: Rule{
				Start:     at(2024, time.June, 10, 9, 0),
				Type:      TypeNone,
				TimeOfDay: "09:00",
			},
			want: []time.Time{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			expander := NewExpander(time.UTC, fixedNow(now))
			got, err := expander.Expand(tc.rule)
			if err != nil {
				t.Fatalf("Expand returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected occurrences (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpander_DefaultHorizon(t *testing.T) {
	t.Parallel()

	now := at(2024, time.June, 1, 12, 0)
	expander := NewExpander(time.UTC, fixedNow(now))

	got, err := expander.Expand(Rule{
		Start:     at(2024, time.June, 1, 9, 0),
		Type:      TypeDaily,
		TimeOfDay: "10:00",
	})
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(got) != 31 {
		t.Fatalf("expected 31 daily occurrences through 2024-07-01, got %d", len(got))
	}
	if last := got[len(got)-1]; !last.Equal(at(2024, time.July, 1, 10, 0)) {
		t.Fatalf("expected last occurrence on 2024-07-01, got %v", last)
	}

	short := NewExpander(time.UTC, fixedNow(now), WithHorizon(48*time.Hour))
	got, err = short.Expand(Rule{
		Start:     at(2024, time.June, 1, 9, 0),
		Type:      TypeDaily,
		TimeOfDay: "10:00",
	})
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 occurrences with a two day horizon, got %d", len(got))
	}
}

func TestExpander_Errors(t *testing.T) {
	t.Parallel()

	expander := NewExpander(nil, nil)
	start := at(2024, time.June, 3, 9, 0)

	for _, value := range []string{"", "9", "24:00", "12:60", "ab:cd", "9:5", "09:00:00"} {
		value := value
		t.Run("time "+value, func(t *testing.T) {
			t.Parallel()
			_, err := expander.Expand(Rule{Start: start, Type: TypeDaily, TimeOfDay: value, EndDate: datePtr(2024, time.June, 4)})
			if !errors.Is(err, ErrInvalidTimeFormat) {
				t.Fatalf("expected ErrInvalidTimeFormat for %q, got %v", value, err)
			}
		})
	}

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()
		_, err := expander.Expand(Rule{Start: start, Type: Type("monthly"), TimeOfDay: "09:00"})
		if !errors.Is(err, ErrInvalidType) {
			t.Fatalf("expected ErrInvalidType, got %v", err)
		}
	})
}

func TestExpander_Properties(t *testing.T) {
	t.Parallel()

	now := at(2024, time.January, 15, 8, 0)
	expander := NewExpander(time.UTC, fixedNow(now))
	end := datePtr(2024, time.March, 31)

	rules := []Rule{
		{Start: at(2024, time.January, 15, 8, 0), Type: TypeDaily, TimeOfDay: "07:30", EndDate: end},
		{Start: at(2024, time.January, 17, 12, 0), Type: TypeWeekly, TimeOfDay: "18:45", EndDate: end},
		{Start: at(2024, time.January, 15, 23, 59), Type: TypeCustom, TimeOfDay: "00:00",
			Weekdays: []time.Weekday{time.Saturday, time.Tuesday, time.Tuesday}, EndDate: end},
		{Start: at(2024, time.February, 29, 6, 0), Type: TypeDaily, TimeOfDay: "06:00"},
	}

	for i, rule := range rules {
		first, err := expander.Expand(rule)
		if err != nil {
			t.Fatalf("rule %d: Expand returned error: %v", i, err)
		}
		second, err := expander.Expand(rule)
		if err != nil {
			t.Fatalf("rule %d: second Expand returned error: %v", i, err)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("rule %d: expansion is not idempotent:\n%s", i, diff)
		}

		bound := expander.endDate(rule)
		for j, occurrence := range first {
			if occurrence.Before(rule.Start) {
				t.Fatalf("rule %d: occurrence %v precedes start %v", i, occurrence, rule.Start)
			}
			if civilDate(occurrence).After(civilDate(bound)) {
				t.Fatalf("rule %d: occurrence %v is after end date %v", i, occurrence, bound)
			}
			if j == 0 {
				continue
			}
			previous := first[j-1]
			if !occurrence.After(previous) {
				t.Fatalf("rule %d: occurrences not strictly increasing at %d", i, j)
			}
			switch rule.Type {
			case TypeDaily:
				if !previous.AddDate(0, 0, 1).Equal(occurrence) {
					t.Fatalf("rule %d: daily occurrences %v and %v are not one day apart", i, previous, occurrence)
				}
			case TypeWeekly:
				if !previous.AddDate(0, 0, 7).Equal(occurrence) {
					t.Fatalf("rule %d: weekly occurrences %v and %v are not seven days apart", i, previous, occurrence)
				}
			case TypeCustom:
				if wd := occurrence.Weekday(); wd != time.Saturday && wd != time.Tuesday {
					t.Fatalf("rule %d: unexpected weekday %v", i, wd)
				}
			}
		}
	}
}

func TestExpander_LocationAndDaylightSaving(t *testing.T) {
	t.Parallel()

	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	expander := NewExpander(newYork, fixedNow(time.Date(2024, time.March, 1, 0, 0, 0, 0, newYork)))
	end := time.Date(2024, time.March, 11, 0, 0, 0, 0, newYork)
	got, err := expander.Expand(Rule{
		Start:     time.Date(2024, time.March, 9, 9, 0, 0, 0, newYork),
		Type:      TypeDaily,
		TimeOfDay: "09:00",
		EndDate:   &end,
	})
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 occurrences across the DST change, got %d", len(got))
	}
	for _, occurrence := range got {
		if occurrence.Hour() != 9 || occurrence.Minute() != 0 {
			t.Fatalf("expected wall clock 09:00, got %v", occurrence)
		}
	}
	if gap := got[1].Sub(got[0]); gap != 23*time.Hour {
		t.Fatalf("expected 23h between occurrences spanning spring forward, got %v", gap)
	}

	tokyo := time.FixedZone("JST", 9*60*60)
	jstExpander := NewExpander(tokyo, nil)
	jstEnd := time.Date(2024, time.June, 4, 0, 0, 0, 0, tokyo)
	got, err = jstExpander.Expand(Rule{
		Start:     time.Date(2024, time.June, 2, 23, 0, 0, 0, time.UTC),
		Type:      TypeDaily,
		TimeOfDay: "09:00",
		EndDate:   &jstEnd,
	})
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	want := []time.Time{
		time.Date(2024, time.June, 3, 9, 0, 0, 0, tokyo),
		time.Date(2024, time.June, 4, 9, 0, 0, 0, tokyo),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected occurrences (-want +got):\n%s", diff)
	}
}
