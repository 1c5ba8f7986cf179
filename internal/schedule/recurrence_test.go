package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDayOfWeek(t *testing.T) {
	d, err := ParseDayOfWeek("Monday")
	assert.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	d, err = ParseDayOfWeek("  sunday ")
	assert.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	_, err = ParseDayOfWeek("Funday")
	assert.ErrorIs(t, err, ErrInvalidDayOfWeek)

	_, err = ParseDayOfWeek("")
	assert.ErrorIs(t, err, ErrInvalidDayOfWeek)
}

func TestCanonicalDayOfWeek(t *testing.T) {
	name, err := CanonicalDayOfWeek("wednesday")
	assert.NoError(t, err)
	assert.Equal(t, "Wednesday", name)

	_, err = CanonicalDayOfWeek("midweek")
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	assert.NoError(t, err)
	assert.Equal(t, "09:30:00", got)

	got, err = ParseTimeOfDay("17:45:30")
	assert.NoError(t, err)
	assert.Equal(t, "17:45:30", got)

	_, err = ParseTimeOfDay("9:99")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("later")
	assert.Error(t, err)
}

func TestOccurrencesThirtyDayHorizon(t *testing.T) {
	// 2026-08-03 is a Monday; a 30 day horizon covers 5 Mondays
	// including the start date itself.
	from := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	dates := Occurrences(time.Monday, from, 30)

	assert.Equal(t, []string{
		"2026-08-03",
		"2026-08-10",
		"2026-08-17",
		"2026-08-24",
		"2026-08-31",
	}, dates)
}

func TestOccurrencesInclusiveEnd(t *testing.T) {
	// from a Tuesday, horizon 7: both the start Tuesday and the one
	// exactly 7 days later are included.
	from := time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC)
	dates := Occurrences(time.Tuesday, from, 7)
	assert.Equal(t, []string{"2026-08-04", "2026-08-11"}, dates)
}

func TestOccurrencesOtherWeekday(t *testing.T) {
	// from a Monday looking for Fridays within 10 days.
	from := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	dates := Occurrences(time.Friday, from, 10)
	assert.Equal(t, []string{"2026-08-07"}, dates)
}

func TestOccurrencesIdempotentInput(t *testing.T) {
	// the same inputs always give the same expansion, regardless of
	// the time-of-day component of from.
	morning := time.Date(2026, 8, 3, 6, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 3, 23, 59, 0, 0, time.UTC)
	assert.Equal(t,
		Occurrences(time.Thursday, morning, 60),
		Occurrences(time.Thursday, evening, 60))
}

func TestUpcomingOccurrencesFourteenDayHorizon(t *testing.T) {
	// Monday 2026-08-03 at 10:00, weekly slot Mondays at 07:00. Today's
	// class already started, so a 14 day expansion yields exactly the
	// next two Mondays.
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	dates, err := UpcomingOccurrences(time.Monday, "07:00:00", now, 14)
	assert.NoError(t, err)
	assert.Equal(t, []string{"2026-08-10", "2026-08-17"}, dates)
}

func TestUpcomingOccurrencesKeepsTodayBeforeStart(t *testing.T) {
	// before 07:00 today's occurrence is still bookable and stays in.
	now := time.Date(2026, 8, 3, 6, 30, 0, 0, time.UTC)
	dates, err := UpcomingOccurrences(time.Monday, "07:00:00", now, 14)
	assert.NoError(t, err)
	assert.Equal(t, []string{"2026-08-03", "2026-08-10", "2026-08-17"}, dates)
}

func TestUpcomingOccurrencesBadTimeOfDay(t *testing.T) {
	now := time.Date(2026, 8, 3, 6, 30, 0, 0, time.UTC)
	_, err := UpcomingOccurrences(time.Monday, "late morning", now, 14)
	assert.Error(t, err)
}

func TestNextOccurrenceOnOrAfter(t *testing.T) {
	// Wednesday 2026-08-05
	wed := time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC)

	// same weekday returns the same date
	assert.Equal(t, "2026-08-05", NextOccurrenceOnOrAfter(time.Wednesday, wed).Format(DateLayout))
	// later weekday in the same week
	assert.Equal(t, "2026-08-07", NextOccurrenceOnOrAfter(time.Friday, wed).Format(DateLayout))
	// earlier weekday wraps to next week
	assert.Equal(t, "2026-08-10", NextOccurrenceOnOrAfter(time.Monday, wed).Format(DateLayout))
}

func TestStartsAt(t *testing.T) {
	at, err := StartsAt("2026-08-05", "18:30:00")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 5, 18, 30, 0, 0, time.UTC), at)

	_, err = StartsAt("2026-13-05", "18:30:00")
	assert.Error(t, err)
}
