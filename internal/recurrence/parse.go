package recurrence

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var timeOfDayPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

// ParseType converts a case-insensitive name into a Type. An empty value is
// treated as TypeNone.
func ParseType(value string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(value))) {
	case "", TypeNone:
		return TypeNone, nil
	case TypeDaily:
		return TypeDaily, nil
	case TypeWeekly:
		return TypeWeekly, nil
	case TypeCustom:
		return TypeCustom, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, value)
	}
}

// ParseTimeOfDay splits a 24-hour "HH:MM" value into its components.
func ParseTimeOfDay(value string) (hour, minute int, err error) {
	matches := timeOfDayPattern.FindStringSubmatch(strings.TrimSpace(value))
	if matches == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	hour, _ = strconv.Atoi(matches[1])
	minute, _ = strconv.Atoi(matches[2])
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	return hour, minute, nil
}

// ParseEndDate reads an inclusive end date as a calendar day and returns
// midnight of that day in loc. RFC 3339 values keep the date written in their
// own offset.
func ParseEndDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is neither YYYY-MM-DD nor RFC 3339", ErrInvalidDate, value)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}

// FormatTimeOfDay renders the wall clock time of t as "HH:MM".
func FormatTimeOfDay(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// ParseWeekday accepts full English weekday names and three letter
// abbreviations in any case.
func ParseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, name)
	}
	return day, nil
}

// ParseWeekdays parses a list of names, collapsing duplicates and returning
// the days in Sunday-first order.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]struct{}, len(names))
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}

// WeekdayNames returns lower-case names for days, in the order given.
func WeekdayNames(days []time.Weekday) []string {
	if len(days) == 0 {
		return nil
	}
	names := make([]string, len(days))
	for i, day := range days {
		names[i] = strings.ToLower(day.String())
	}
	return names
}
