package model

import "time"

// WeeklySchedule is a recurring template: class X runs every <day> at
// <start>-<end> with <max capacity> beds. Dated ScheduleInstance rows
// are generated from it. Deactivating a schedule stops future instance
// generation but does not touch instances that already exist.
//
// DayOfWeek is stored as the English weekday name ("Monday".."Sunday"),
// StartTime/EndTime as "HH:MM:SS" strings matching the TIME column.
type WeeklySchedule struct {
	ID          uint64
	ClassID     uint64
	DayOfWeek   string
	StartTime   string
	EndTime     string
	MaxCapacity int
	IsActive    bool
	CreatedAt   time.Time
}

// ScheduleInstance is one concrete, dated, capacity-bounded occurrence
// of a class. WeeklyScheduleID is nil for ad hoc instances created
// outside a recurring template. At most one instance exists per
// (weekly_schedule_id, class_date) pair.
//
// Invariant: 0 <= CurrentBookings <= MaxCapacity while the instance is
// not cancelled. The counter is only ever changed through guarded
// UPDATEs inside the booking transaction.
type ScheduleInstance struct {
	ID               uint64
	WeeklyScheduleID *uint64
	ClassID          uint64
	ClassDate        string // "2006-01-02"
	StartTime        string // "15:04:05"
	EndTime          string // "15:04:05"
	MaxCapacity      int
	CurrentBookings  int
	IsActive         bool
	IsCancelled      bool
	CreatedAt        time.Time
}

// StartsAt combines ClassDate and StartTime into a UTC instant for
// comparisons against time.Now().UTC().
func (si *ScheduleInstance) StartsAt() (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05", si.ClassDate+" "+si.StartTime)
}
