package handler

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/studioreform/booking-api/internal/config"
	"github.com/studioreform/booking-api/internal/model"
	"github.com/studioreform/booking-api/internal/notify"
	"github.com/studioreform/booking-api/internal/repository"
	"github.com/studioreform/booking-api/internal/schedule"
)

// maxHorizonDays caps how far ahead instances can be generated in one
// request.
const maxHorizonDays = 365

// ScheduleHandler implements the admin timetable: weekly schedule
// templates, instance generation, instance cancellation with
// compensation and attendance capture.
type ScheduleHandler struct {
	Cfg         config.Config
	DB          *sql.DB
	Classes     *repository.ClassRepo
	Schedules   *repository.ScheduleRepo
	Instances   *repository.InstanceRepo
	Bookings    *repository.BookingRepo
	Memberships *repository.MembershipRepo
	Notifier    *notify.Notifier
}

func NewScheduleHandler(cfg config.Config, db *sql.DB, cl *repository.ClassRepo,
	s *repository.ScheduleRepo, i *repository.InstanceRepo, b *repository.BookingRepo,
	m *repository.MembershipRepo, n *notify.Notifier) *ScheduleHandler {
	return &ScheduleHandler{Cfg: cfg, DB: db, Classes: cl, Schedules: s,
		Instances: i, Bookings: b, Memberships: m, Notifier: n}
}

type createScheduleReq struct {
	ClassID     uint64 `json:"class_id"`
	DayOfWeek   string `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MaxCapacity int    `json:"max_capacity"`
}
type generateReq struct {
	DaysAhead int `json:"days_ahead"`
}
type attendanceReq struct {
	AttendedBookingIDs []uint64 `json:"attended_booking_ids"`
}

func scheduleJSON(s repository.ScheduleWithClass) echo.Map {
	return echo.Map{
		"id":           s.ID,
		"class_id":     s.ClassID,
		"class_name":   s.ClassName,
		"instructor":   s.Instructor,
		"day_of_week":  s.DayOfWeek,
		"start_time":   s.StartTime,
		"end_time":     s.EndTime,
		"max_capacity": s.MaxCapacity,
		"is_active":    s.IsActive,
		"created_at":   s.CreatedAt,
	}
}

// horizon clamps a requested generation horizon to the configured
// default and the hard cap.
func (h *ScheduleHandler) horizon(requested int) int {
	if requested <= 0 {
		requested = h.Cfg.ScheduleHorizonDays
	}
	if requested > maxHorizonDays {
		requested = maxHorizonDays
	}
	return requested
}

// CreateWeekly adds a weekly slot and immediately generates its
// instances over the default horizon so the timetable is bookable
// right away.
func (h *ScheduleHandler) CreateWeekly(c echo.Context) error {
	var req createScheduleReq
	if err := c.Bind(&req); err != nil || req.ClassID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "class_id required"})
	}
	day, err := schedule.ParseDayOfWeek(req.DayOfWeek)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day_of_week"})
	}
	startTime, err := schedule.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
	}
	endTime, err := schedule.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time"})
	}
	if endTime <= startTime {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	cl, err := h.Classes.GetByID(ctx, req.ClassID)
	if err != nil {
		if err == repository.ErrClassNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	capacity := req.MaxCapacity
	if capacity <= 0 {
		capacity = cl.Capacity
	}

	ws := model.WeeklySchedule{
		ClassID:     req.ClassID,
		DayOfWeek:   day.String(),
		StartTime:   startTime,
		EndTime:     endTime,
		MaxCapacity: capacity,
		IsActive:    true,
	}
	id, err := h.Schedules.Create(ctx, &ws)
	if err != nil {
		if err == repository.ErrSlotExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "schedule slot already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	ws.ID = id

	created, err := h.Instances.GenerateForSchedule(ctx, &ws, time.Now().UTC(), h.horizon(0))
	if err != nil {
		// the slot exists; generation can be retried via the generate endpoint
		log.Printf("schedule: generate after create failed for schedule %d: %v", id, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"schedule": echo.Map{
			"id":           ws.ID,
			"class_id":     ws.ClassID,
			"day_of_week":  ws.DayOfWeek,
			"start_time":   ws.StartTime,
			"end_time":     ws.EndTime,
			"max_capacity": ws.MaxCapacity,
			"is_active":    ws.IsActive,
		},
		"instances_created": created,
	})
}

// ListWeekly returns every weekly slot with class names. Admin view
// includes deactivated slots.
func (h *ScheduleHandler) ListWeekly(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Schedules.List(ctx, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, s := range list {
		out = append(out, scheduleJSON(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"schedules": out})
}

// Timetable returns the active weekly slots for the public site.
func (h *ScheduleHandler) Timetable(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Schedules.List(ctx, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, s := range list {
		out = append(out, scheduleJSON(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"schedule": out})
}

// ToggleWeekly flips a slot's active flag. Deactivating stops future
// generation; existing instances stay untouched.
func (h *ScheduleHandler) ToggleWeekly(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ws, err := h.Schedules.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrScheduleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Schedules.SetActive(ctx, id, !ws.IsActive); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_active": !ws.IsActive})
}

// DeleteWeekly removes a slot with no future instances.
func (h *ScheduleHandler) DeleteWeekly(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	today := time.Now().UTC().Format(schedule.DateLayout)
	switch err := h.Schedules.Delete(ctx, id, today); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrScheduleNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "schedule has future instances"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}

// Generate materializes instances for every active weekly slot over
// the requested horizon (default from config, capped at a year).
// Idempotent: existing dates are skipped.
func (h *ScheduleHandler) Generate(c echo.Context) error {
	var req generateReq
	_ = c.Bind(&req) // empty body means default horizon
	days := h.horizon(req.DaysAhead)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	schedules, err := h.Schedules.ListActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	from := time.Now().UTC()
	total := 0
	for i := range schedules {
		created, err := h.Instances.GenerateForSchedule(ctx, &schedules[i], from, days)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generation failed"})
		}
		total += created
	}
	return c.JSON(http.StatusOK, echo.Map{
		"schedules_processed": len(schedules),
		"instances_created":   total,
		"days_ahead":          days,
	})
}

// ListInstances returns instances in a date range for the admin
// schedule view, cancelled ones included. Defaults to the next two
// weeks.
func (h *ScheduleHandler) ListInstances(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	dateFrom := c.QueryParam("date_from")
	if dateFrom == "" {
		dateFrom = now.Format(schedule.DateLayout)
	}
	dateTo := c.QueryParam("date_to")
	if dateTo == "" {
		dateTo = now.AddDate(0, 0, 14).Format(schedule.DateLayout)
	}
	if _, err := time.Parse(schedule.DateLayout, dateFrom); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_from"})
	}
	if _, err := time.Parse(schedule.DateLayout, dateTo); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_to"})
	}
	var classID *uint64
	if c.QueryParam("class_id") != "" {
		if id, ok := queryID(c, "class_id"); ok {
			classID = &id
		} else {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class_id"})
		}
	}

	list, err := h.Instances.ListRange(ctx, dateFrom, dateTo, classID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, iw := range list {
		m := instanceJSON(iw)
		m["is_active"] = iw.IsActive
		m["is_cancelled"] = iw.IsCancelled
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, echo.Map{"instances": out})
}

// CancelInstance cancels one dated class: the instance is flagged
// cancelled, every active booking flips to cancelled_by_admin and each
// affected member gets the session credited back, all in one
// transaction. Affected members are notified after commit. The
// instance's booking counter is intentionally left as-is so the admin
// view still shows how many members were booked.
func (h *ScheduleHandler) CancelInstance(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instance id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()
	now := time.Now().UTC()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	inst, err := h.Instances.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrInstanceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "instance not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if inst.IsCancelled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "instance already cancelled"})
	}
	startsAt, err := inst.StartsAt()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invalid class time"})
	}
	if !now.Before(startsAt) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot cancel a class that has started"})
	}

	affected, err := h.Bookings.ListBookedByInstanceTx(ctx, tx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Instances.CancelTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}

	for _, spot := range affected {
		if err := h.Bookings.MarkCancelledTx(ctx, tx, spot.BookingID, model.BookingStatusCancelledByAdmin, now); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel bookings failed"})
		}
		ledger, err := h.Memberships.GetActiveForUserTx(ctx, tx, spot.UserID)
		if err == repository.ErrMembershipNotFound {
			ledger, err = h.Memberships.GetLatestForUserTx(ctx, tx, spot.UserID)
		}
		switch err {
		case nil:
			ledger.Credit()
			if err := h.Memberships.SaveBalancesTx(ctx, tx, &ledger); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger update failed"})
			}
		case repository.ErrMembershipNotFound:
			log.Printf("cancel-instance: user %d has no ledger to credit", spot.UserID)
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	className := ""
	if cl, err := h.Classes.GetByID(ctx, inst.ClassID); err == nil {
		className = cl.Name
	}
	for _, spot := range affected {
		h.Notifier.ClassCancelled(ctx, spot.UserID, spot.Phone, className, inst.ClassDate, inst.StartTime)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":            "instance cancelled",
		"cancelled_bookings": len(affected),
	})
}

// Roster lists every booking on an instance with member names, for
// the admin attendance screen.
func (h *ScheduleHandler) Roster(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instance id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Instances.GetByID(ctx, id); err != nil {
		if err == repository.ErrInstanceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "instance not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	roster, err := h.Bookings.ListByInstance(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(roster))
	for _, r := range roster {
		out = append(out, echo.Map{
			"booking_id":   r.Booking.ID,
			"user_id":      r.Booking.UserID,
			"user_name":    r.UserName,
			"phone":        r.Phone,
			"status":       r.Booking.Status,
			"attended_at":  r.Booking.AttendedAt,
			"cancelled_at": r.Booking.CancelledAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Attendance records the outcome of a class that has started: listed
// bookings become attended, the rest of the still-booked ones become
// no_show. Sessions are not refunded either way.
func (h *ScheduleHandler) Attendance(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instance id"})
	}
	var req attendanceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()
	now := time.Now().UTC()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	inst, err := h.Instances.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrInstanceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "instance not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	startsAt, err := inst.StartsAt()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invalid class time"})
	}
	if now.Before(startsAt) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "class has not started yet"})
	}

	attended, noShows, err := h.Bookings.MarkAttendanceTx(ctx, tx, id, req.AttendedBookingIDs, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "attendance update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"attended": attended,
		"no_shows": noShows,
	})
}
