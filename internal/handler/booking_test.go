package handler

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studioreform/booking-api/internal/model"
	"github.com/studioreform/booking-api/internal/repository"
)

func TestInstanceBookable(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	base := model.ScheduleInstance{
		ClassDate:   "2026-08-10",
		StartTime:   "07:00:00",
		MaxCapacity: 4,
		IsActive:    true,
	}

	ok := base
	assert.NoError(t, instanceBookable(&ok, now))

	cancelled := base
	cancelled.IsCancelled = true
	assert.ErrorIs(t, instanceBookable(&cancelled, now), repository.ErrInstanceUnavailable)

	inactive := base
	inactive.IsActive = false
	assert.ErrorIs(t, instanceBookable(&inactive, now), repository.ErrInstanceUnavailable)

	full := base
	full.CurrentBookings = 4
	assert.ErrorIs(t, instanceBookable(&full, now), repository.ErrInstanceFull)

	started := base
	started.ClassDate = "2026-08-03"
	assert.ErrorIs(t, instanceBookable(&started, now), repository.ErrInstanceInPast)
}

func TestInstanceBookableCheckOrder(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)

	// an unavailable instance reports unavailable even when also full
	inst := model.ScheduleInstance{
		ClassDate:       "2026-08-10",
		StartTime:       "07:00:00",
		MaxCapacity:     4,
		CurrentBookings: 4,
		IsActive:        true,
		IsCancelled:     true,
	}
	assert.ErrorIs(t, instanceBookable(&inst, now), repository.ErrInstanceUnavailable)

	// fullness outranks the start time
	inst.IsCancelled = false
	inst.ClassDate = "2026-08-03"
	assert.ErrorIs(t, instanceBookable(&inst, now), repository.ErrInstanceFull)
}

func TestBookingRefused(t *testing.T) {
	for _, err := range []error{
		repository.ErrInstanceUnavailable,
		repository.ErrInstanceFull,
		repository.ErrInstanceInPast,
		repository.ErrDuplicateBooking,
	} {
		assert.True(t, bookingRefused(err), err.Error())
	}
	assert.False(t, bookingRefused(errors.New("db gone")))
	assert.False(t, bookingRefused(repository.ErrMembershipNotFound))
}

// downConnector hands sql.DB a connection that never comes up.
type downConnector struct{}

func (downConnector) Connect(context.Context) (driver.Conn, error) {
	return nil, errors.New("connection refused")
}
func (downConnector) Driver() driver.Driver { return nil }

func TestClassNameOfLookupFailure(t *testing.T) {
	db := sql.OpenDB(downConnector{})
	defer db.Close()

	h := &BookingHandler{Classes: repository.NewClassRepo(db)}
	assert.Equal(t, "", h.classNameOf(context.Background(), 42))
}
