// Package schedule holds the pure date math behind recurring weekly
// schedules: weekday parsing, occurrence expansion and next-occurrence
// lookup. Keeping it free of SQL makes the expansion rules testable
// without a database.
package schedule

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire and DB format for class dates.
const DateLayout = "2006-01-02"

// TimeLayout is the DB format for times of day.
const TimeLayout = "15:04:05"

// ErrInvalidDayOfWeek is returned when a day name is not one of
// Monday..Sunday.
var ErrInvalidDayOfWeek = errors.New("invalid day of week")

var dayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseDayOfWeek converts an English weekday name (any case) into a
// time.Weekday. The canonical stored form is the capitalized name.
func ParseDayOfWeek(name string) (time.Weekday, error) {
	d, ok := dayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, ErrInvalidDayOfWeek
	}
	return d, nil
}

// CanonicalDayOfWeek normalizes a weekday name to its stored form
// ("Monday".."Sunday"). It returns an error for unknown names.
func CanonicalDayOfWeek(name string) (string, error) {
	d, err := ParseDayOfWeek(name)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" and returns the
// canonical "HH:MM:SS" form.
func ParseTimeOfDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("15:04", s); err == nil {
		return t.Format(TimeLayout), nil
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return "", err
	}
	return t.Format(TimeLayout), nil
}

// Occurrences returns every date in [from, from+daysAhead] (inclusive
// on both ends) that falls on the given weekday, formatted with
// DateLayout. The from date itself is included when its weekday
// matches. Callers expanding a class schedule usually want
// UpcomingOccurrences, which also drops occurrences whose start time
// has already passed.
func Occurrences(day time.Weekday, from time.Time, daysAhead int) []string {
	from = truncateToDay(from)
	dates := make([]string, 0, daysAhead/7+1)
	for i := 0; i <= daysAhead; i++ {
		d := from.AddDate(0, 0, i)
		if d.Weekday() == day {
			dates = append(dates, d.Format(DateLayout))
		}
	}
	return dates
}

// UpcomingOccurrences returns the Occurrences of the weekday within
// daysAhead of now whose start instant is still ahead of now. The only
// candidate that can be in the past is now's own date, so a horizon
// expansion run after a class started never materializes that
// occurrence. timeOfDay must be in TimeLayout form.
func UpcomingOccurrences(day time.Weekday, timeOfDay string, now time.Time, daysAhead int) ([]string, error) {
	all := Occurrences(day, now, daysAhead)
	dates := make([]string, 0, len(all))
	for _, d := range all {
		at, err := StartsAt(d, timeOfDay)
		if err != nil {
			return nil, err
		}
		if now.Before(at) {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// NextOccurrenceOnOrAfter returns the first date on or after `after`
// that falls on the given weekday.
func NextOccurrenceOnOrAfter(day time.Weekday, after time.Time) time.Time {
	after = truncateToDay(after)
	offset := (int(day) - int(after.Weekday()) + 7) % 7
	return after.AddDate(0, 0, offset)
}

// StartsAt composes a class date and start time into a UTC instant.
func StartsAt(date, timeOfDay string) (time.Time, error) {
	return time.Parse(DateLayout+" "+TimeLayout, date+" "+timeOfDay)
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
