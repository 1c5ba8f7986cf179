package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancellableAt(t *testing.T) {
	starts := time.Date(2026, 8, 5, 18, 0, 0, 0, time.UTC)

	// three hours before: fine
	assert.True(t, CancellableAt(starts, starts.Add(-3*time.Hour)))
	// exactly two hours before: window closed
	assert.False(t, CancellableAt(starts, starts.Add(-CancellationWindow)))
	// one second more than two hours: still open
	assert.True(t, CancellableAt(starts, starts.Add(-CancellationWindow-time.Second)))
	// after start: closed
	assert.False(t, CancellableAt(starts, starts.Add(time.Minute)))
}

func TestScheduleInstanceStartsAt(t *testing.T) {
	si := ScheduleInstance{ClassDate: "2026-08-05", StartTime: "06:30:00"}
	at, err := si.StartsAt()
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 5, 6, 30, 0, 0, time.UTC), at)

	si.StartTime = "late"
	_, err = si.StartsAt()
	assert.Error(t, err)
}
