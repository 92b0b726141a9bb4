package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// DefaultHorizon bounds expansion when a rule carries no end date.
const DefaultHorizon = 30 * 24 * time.Hour

var (
	// ErrInvalidTimeFormat indicates the time of day is not HH:MM.
	ErrInvalidTimeFormat = errors.New("recurrence: invalid time of day")
	// ErrInvalidType indicates the recurrence type is not supported.
	ErrInvalidType = errors.New("recurrence: invalid recurrence type")
	// ErrInvalidWeekday indicates a weekday name could not be recognised.
	ErrInvalidWeekday = errors.New("recurrence: invalid weekday")
	// ErrInvalidDate indicates an end date is neither YYYY-MM-DD nor RFC 3339.
	ErrInvalidDate = errors.New("recurrence: invalid date")
)

// Type enumerates the supported recurrence kinds.
type Type string

const (
	// TypeNone marks a single, non-recurring occurrence.
	TypeNone Type = "none"
	// TypeDaily repeats on every calendar day.
	TypeDaily Type = "daily"
	// TypeWeekly repeats every seventh day from the start date.
	TypeWeekly Type = "weekly"
	// TypeCustom repeats on the selected weekdays.
	TypeCustom Type = "custom"
)

// Rule describes a recurring schedule.
type Rule struct {
	// Start is the first candidate instant; earlier candidates are discarded.
	Start time.Time
	Type  Type
	// TimeOfDay is a 24-hour "HH:MM" wall clock time applied to every occurrence.
	TimeOfDay string
	// Weekdays is consulted only for TypeCustom.
	Weekdays []time.Weekday
	// EndDate is an inclusive date bound. When nil the expander horizon applies.
	EndDate *time.Time
}

// Expander turns rules into concrete occurrence instants.
type Expander struct {
	location *time.Location
	now      func() time.Time
	horizon  time.Duration
}

// Option configures an Expander.
type Option func(*Expander)

// WithHorizon overrides the window used for rules without an end date.
func WithHorizon(d time.Duration) Option {
	return func(e *Expander) {
		if d > 0 {
			e.horizon = d
		}
	}
}

// NewExpander constructs an Expander that evaluates calendar days in loc.
// If loc is nil, UTC is used. If now is nil, time.Now is used.
func NewExpander(loc *time.Location, now func() time.Time, opts ...Option) *Expander {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	e := &Expander{location: loc, now: now, horizon: DefaultHorizon}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location reports the zone used for calendar arithmetic.
func (e *Expander) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Expand produces the ordered occurrences for rule.
//
// Candidates are built one calendar day at a time from the start date through
// the end date inclusive, with TimeOfDay applied before comparing against
// Start. Degenerate rules (custom without weekdays, end before start) yield an
// empty result; a malformed TimeOfDay is the only error for known types.
func (e *Expander) Expand(rule Rule) ([]time.Time, error) {
	switch rule.Type {
	case TypeNone:
		return []time.Time{}, nil
	case TypeDaily, TypeWeekly, TypeCustom:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, rule.Type)
	}

	hour, minute, err := ParseTimeOfDay(rule.TimeOfDay)
	if err != nil {
		return nil, err
	}

	if rule.Type == TypeCustom && len(rule.Weekdays) == 0 {
		return []time.Time{}, nil
	}

	loc := e.Location()
	start := rule.Start.In(loc)
	first := civilDate(start)
	last := civilDate(e.endDate(rule))
	if last.Before(first) {
		return []time.Time{}, nil
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	occurrences := make([]time.Time, 0)
	for offset, day := 0, first; !day.After(last); offset, day = offset+1, day.AddDate(0, 0, 1) {
		if !shouldInclude(rule.Type, weekdaySet, offset, day.Weekday()) {
			continue
		}
		candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
		if candidate.Before(start) {
			continue
		}
		occurrences = append(occurrences, candidate)
	}

	return occurrences, nil
}

func (e *Expander) endDate(rule Rule) time.Time {
	if rule.EndDate != nil {
		return rule.EndDate.In(e.Location())
	}
	horizon := e.horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return e.now().In(e.Location()).Add(horizon)
}

// civilDate strips the clock and zone so day stepping and weekday checks are
// unaffected by daylight saving transitions.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func shouldInclude(kind Type, weekdaySet map[time.Weekday]struct{}, offset int, day time.Weekday) bool {
	switch kind {
	case TypeDaily:
		return true
	case TypeWeekly:
		return offset%7 == 0
	case TypeCustom:
		_, ok := weekdaySet[day]
		return ok
	default:
		return false
	}
}
