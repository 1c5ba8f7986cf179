package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/studioreform/booking-api/internal/model"
	"github.com/studioreform/booking-api/internal/notify"
	"github.com/studioreform/booking-api/internal/repository"
	"github.com/studioreform/booking-api/internal/schedule"
)

// BookingHandler implements the member-facing booking engine. Booking
// and cancelling run inside a single transaction that locks the
// instance row, the membership ledger and (for cancel) the booking
// row, so the capacity counter and the session balance always move
// together.
type BookingHandler struct {
	DB          *sql.DB
	Instances   *repository.InstanceRepo
	Bookings    *repository.BookingRepo
	Memberships *repository.MembershipRepo
	Schedules   *repository.ScheduleRepo
	Classes     *repository.ClassRepo
	Users       *repository.UserRepo
	Notifier    *notify.Notifier
}

func NewBookingHandler(db *sql.DB, i *repository.InstanceRepo, b *repository.BookingRepo,
	m *repository.MembershipRepo, s *repository.ScheduleRepo, cl *repository.ClassRepo,
	u *repository.UserRepo, n *notify.Notifier) *BookingHandler {
	return &BookingHandler{DB: db, Instances: i, Bookings: b, Memberships: m,
		Schedules: s, Classes: cl, Users: u, Notifier: n}
}

type bookClassReq struct {
	ScheduleInstanceID uint64 `json:"schedule_instance_id"`
}
type bookWeeklyReq struct {
	WeeklyScheduleID uint64 `json:"weekly_schedule_id"`
	Weeks            int    `json:"weeks"`
	StartDate        string `json:"start_date"`
}

// maxWeeklyBookings caps how many weeks a recurring booking covers in
// one request.
const maxWeeklyBookings = 12

// instanceBookable checks the instance-side booking preconditions in
// order: available, spot left, not yet started. The caller holds the
// row lock, so the counter cannot move under us.
func instanceBookable(inst *model.ScheduleInstance, now time.Time) error {
	if !inst.IsActive || inst.IsCancelled {
		return repository.ErrInstanceUnavailable
	}
	if inst.CurrentBookings >= inst.MaxCapacity {
		return repository.ErrInstanceFull
	}
	startsAt, err := inst.StartsAt()
	if err != nil {
		return err
	}
	if !now.Before(startsAt) {
		return repository.ErrInstanceInPast
	}
	return nil
}

// checkBookable extends instanceBookable with the duplicate-booking
// check, which needs the transaction.
func (h *BookingHandler) checkBookable(ctx context.Context, tx *sql.Tx, uid uint64,
	inst *model.ScheduleInstance, now time.Time) error {
	if err := instanceBookable(inst, now); err != nil {
		return err
	}
	dup, err := h.Bookings.HasActiveBookingTx(ctx, tx, uid, inst.ID)
	if err != nil {
		return err
	}
	if dup {
		return repository.ErrDuplicateBooking
	}
	return nil
}

// bookingRefused reports whether err is one of the precondition
// sentinels a member request should see as a 409.
func bookingRefused(err error) bool {
	return errors.Is(err, repository.ErrInstanceUnavailable) ||
		errors.Is(err, repository.ErrInstanceFull) ||
		errors.Is(err, repository.ErrInstanceInPast) ||
		errors.Is(err, repository.ErrDuplicateBooking)
}

func instanceJSON(iw repository.InstanceWithClass) echo.Map {
	return echo.Map{
		"id":               iw.ID,
		"class_id":         iw.ClassID,
		"class_name":       iw.ClassName,
		"instructor":       iw.Instructor,
		"difficulty":       iw.Difficulty,
		"duration":         iw.Duration,
		"class_date":       iw.ClassDate,
		"start_time":       iw.StartTime,
		"end_time":         iw.EndTime,
		"max_capacity":     iw.MaxCapacity,
		"current_bookings": iw.CurrentBookings,
		"spots_left":       iw.MaxCapacity - iw.CurrentBookings,
	}
}

// AvailableClasses lists bookable instances from today onward,
// optionally filtered by ?class_id=.
func (h *BookingHandler) AvailableClasses(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var classID *uint64
	if c.QueryParam("class_id") != "" {
		if id, ok := queryID(c, "class_id"); ok {
			classID = &id
		} else {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class_id"})
		}
	}
	today := time.Now().UTC().Format(schedule.DateLayout)
	list, err := h.Instances.ListUpcoming(ctx, today, classID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, iw := range list {
		out = append(out, instanceJSON(iw))
	}
	return c.JSON(http.StatusOK, echo.Map{"classes": out})
}

// BookClass books the member into one dated instance, spending one
// session from their active ledger.
func (h *BookingHandler) BookClass(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookClassReq
	if err := c.Bind(&req); err != nil || req.ScheduleInstanceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "schedule_instance_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	return h.bookInstance(c, ctx, uid, func(tx *sql.Tx) (model.ScheduleInstance, error) {
		return h.Instances.GetForUpdateTx(ctx, tx, req.ScheduleInstanceID)
	})
}

// BookWeekly books a recurring weekly slot for several weeks in one
// transaction, creating missing instances on demand. Full or cancelled
// weeks are skipped without spending a session; the run stops when the
// requested weeks or the ledger run out.
func (h *BookingHandler) BookWeekly(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookWeeklyReq
	if err := c.Bind(&req); err != nil || req.WeeklyScheduleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "weekly_schedule_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()
	now := time.Now().UTC()

	ws, err := h.Schedules.GetByID(ctx, req.WeeklyScheduleID)
	if err != nil {
		if err == repository.ErrScheduleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ws.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "schedule is not active"})
	}
	day, err := schedule.ParseDayOfWeek(ws.DayOfWeek)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invalid schedule"})
	}

	// Default start: the next occurrence at least a week out.
	start := schedule.NextOccurrenceOnOrAfter(day, now.AddDate(0, 0, 7))
	if req.StartDate != "" {
		from, err := time.Parse(schedule.DateLayout, req.StartDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_date"})
		}
		if from.Before(now.Truncate(24 * time.Hour)) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date is in the past"})
		}
		start = schedule.NextOccurrenceOnOrAfter(day, from)
	}

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

	ledger, err := h.Memberships.ResolveActiveTx(ctx, tx, uid, now)
	if err != nil {
		if err == repository.ErrMembershipNotFound {
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "no active membership"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	weeks := req.Weeks
	if weeks <= 0 {
		weeks = ledger.RemainingSessions
	}
	if weeks > maxWeeklyBookings {
		weeks = maxWeeklyBookings
	}
	if weeks == 0 {
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "no remaining sessions"})
	}

	booked := 0
	var firstBooked *model.ScheduleInstance
	for i := 0; i < weeks; i++ {
		date := start.AddDate(0, 0, 7*i).Format(schedule.DateLayout)
		inst, err := h.Instances.GetOrCreateForScheduleTx(ctx, tx, &ws, date)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if err := h.checkBookable(ctx, tx, uid, &inst, now); err != nil {
			// refused weeks are skipped without spending a session
			if bookingRefused(err) {
				continue
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if err := ledger.Debit(now); err != nil {
			if err == model.ErrMembershipExpired {
				// validity is checked against the same clock every week, so
				// expiry can only hit before anything was booked
				if saveErr := h.Memberships.SaveBalancesTx(ctx, tx, &ledger); saveErr == nil {
					if tx.Commit() == nil {
						committed = true
					}
				}
				return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "membership expired"})
			}
			break // ledger exhausted
		}
		if err := h.Instances.TryIncrementTx(ctx, tx, inst.ID); err != nil {
			if err == repository.ErrInstanceFull {
				ledger.Credit()
				continue
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "capacity update failed"})
		}
		if _, err := h.Bookings.CreateTx(ctx, tx, uid, inst.ID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
		}
		if firstBooked == nil {
			fi := inst
			firstBooked = &fi
		}
		booked++
	}

	if err := h.Memberships.SaveBalancesTx(ctx, tx, &ledger); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	if firstBooked != nil {
		className := h.classNameOf(ctx, firstBooked.ClassID)
		if u, err := h.Users.GetByID(ctx, uid); err == nil {
			h.Notifier.BookingConfirmed(ctx, uid, u.Phone, className,
				firstBooked.ClassDate, firstBooked.StartTime, ledger.RemainingSessions)
		}
	}

	status := http.StatusOK
	if booked > 0 {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{
		"bookings_created":   booked,
		"remaining_sessions": ledger.RemainingSessions,
		"start_date":         start.Format(schedule.DateLayout),
		"end_date":           start.AddDate(0, 0, 7*(weeks-1)).Format(schedule.DateLayout),
	})
}

// bookInstance runs the shared booking transaction. resolve locks (or
// creates) the target instance inside the transaction.
func (h *BookingHandler) bookInstance(c echo.Context, ctx context.Context, uid uint64,
	resolve func(tx *sql.Tx) (model.ScheduleInstance, error)) error {

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

	inst, err := resolve(tx)
	if err != nil {
		if err == repository.ErrInstanceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.checkBookable(ctx, tx, uid, &inst, now); err != nil {
		if bookingRefused(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	ledger, err := h.Memberships.ResolveActiveTx(ctx, tx, uid, now)
	if err != nil {
		if err == repository.ErrMembershipNotFound {
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "no active membership"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := ledger.Debit(now); err != nil {
		switch err {
		case model.ErrMembershipExpired:
			// persist the deactivation so the next lookup skips this ledger
			if saveErr := h.Memberships.SaveBalancesTx(ctx, tx, &ledger); saveErr == nil {
				if tx.Commit() == nil {
					committed = true
				}
			}
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "membership expired"})
		case model.ErrInsufficientSessions:
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "no remaining sessions"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger update failed"})
		}
	}

	if err := h.Instances.TryIncrementTx(ctx, tx, inst.ID); err != nil {
		if err == repository.ErrInstanceFull {
			return c.JSON(http.StatusConflict, echo.Map{"error": "class is full"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "capacity update failed"})
	}
	bookingID, err := h.Bookings.CreateTx(ctx, tx, uid, inst.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
	if err := h.Memberships.SaveBalancesTx(ctx, tx, &ledger); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	// Best-effort SMS after commit; never fails the request.
	className := h.classNameOf(ctx, inst.ClassID)
	if u, err := h.Users.GetByID(ctx, uid); err == nil {
		h.Notifier.BookingConfirmed(ctx, uid, u.Phone, className, inst.ClassDate, inst.StartTime, ledger.RemainingSessions)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":           bookingID,
		"schedule_instance_id": inst.ID,
		"class_name":           className,
		"date":                 inst.ClassDate,
		"start_time":           inst.StartTime,
		"end_time":             inst.EndTime,
		"status":               model.BookingStatusBooked,
		"remaining_sessions":   ledger.RemainingSessions,
	})
}

// CancelBooking cancels the member's own booking if more than the
// cancellation window remains before class start, releasing the spot
// and crediting the session back.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
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

	booking, err := h.Bookings.GetOwnedForUpdateTx(ctx, tx, id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	}
	if booking.Status != model.BookingStatusBooked {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not active"})
	}

	inst, err := h.Instances.GetForUpdateTx(ctx, tx, booking.ScheduleInstanceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	startsAt, err := inst.StartsAt()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invalid class time"})
	}
	if !model.CancellableAt(startsAt, now) {
		return c.JSON(http.StatusConflict, echo.Map{"error": repository.ErrCancellationWindow.Error()})
	}

	if err := h.Bookings.MarkCancelledTx(ctx, tx, booking.ID, model.BookingStatusCancelled, now); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	if err := h.Instances.DecrementTx(ctx, tx, inst.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "capacity update failed"})
	}

	// Credit the session back: the active ledger if there is one, the
	// newest otherwise (the credit reactivates an exhausted ledger).
	remaining := -1
	ledger, err := h.Memberships.GetActiveForUserTx(ctx, tx, uid)
	if err == repository.ErrMembershipNotFound {
		ledger, err = h.Memberships.GetLatestForUserTx(ctx, tx, uid)
	}
	switch err {
	case nil:
		ledger.Credit()
		if err := h.Memberships.SaveBalancesTx(ctx, tx, &ledger); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger update failed"})
		}
		remaining = ledger.RemainingSessions
	case repository.ErrMembershipNotFound:
		// no ledger ever existed, nothing to credit
		log.Printf("cancel-booking: user %d has no ledger to credit", uid)
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	className := h.classNameOf(ctx, inst.ClassID)
	if u, err := h.Users.GetByID(ctx, uid); err == nil {
		h.Notifier.BookingCancelled(ctx, uid, u.Phone, className, inst.ClassDate, remaining)
	}

	resp := echo.Map{"message": "booking cancelled"}
	if remaining >= 0 {
		resp["remaining_sessions"] = remaining
	}
	return c.JSON(http.StatusOK, resp)
}

// MyBookedClasses lists the member's bookings with class details.
func (h *BookingHandler) MyBookedClasses(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Bookings.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, d := range list {
		out = append(out, echo.Map{
			"id":           d.ID,
			"class_id":     d.ClassID,
			"class_name":   d.ClassName,
			"instructor":   d.Instructor,
			"class_date":   d.ClassDate,
			"start_time":   d.StartTime,
			"end_time":     d.EndTime,
			"status":       d.Status,
			"attended_at":  d.AttendedAt,
			"cancelled_at": d.CancelledAt,
			"created_at":   d.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// MyMembership returns the member's session balance, lazily
// materializing the ledger from an approved purchase when needed.
func (h *BookingHandler) MyMembership(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
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

	ledger, err := h.Memberships.ResolveActiveTx(ctx, tx, uid, now)
	if err != nil && err != repository.ErrMembershipNotFound {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	if err == repository.ErrMembershipNotFound {
		// fall back to the newest inactive ledger so the member still
		// sees an expired or exhausted balance
		latest, lerr := h.Memberships.GetLatestForUser(ctx, uid)
		if lerr != nil {
			return c.JSON(http.StatusOK, echo.Map{"membership": nil})
		}
		ledger = latest
	}
	return c.JSON(http.StatusOK, echo.Map{"membership": membershipJSON(&ledger, now)})
}

func membershipJSON(m *model.UserMembership, now time.Time) echo.Map {
	return echo.Map{
		"id":                 m.ID,
		"package_type":       m.PackageType,
		"total_sessions":     m.TotalSessions,
		"used_sessions":      m.UsedSessions,
		"remaining_sessions": m.RemainingSessions,
		"valid_until":        m.ValidUntil,
		"is_active":          m.IsActive,
		"expired":            m.Expired(now),
	}
}

// classNameOf resolves a class name for responses and SMS texts. A
// failed lookup yields the empty string rather than a made-up name.
func (h *BookingHandler) classNameOf(ctx context.Context, classID uint64) string {
	cl, err := h.Classes.GetByID(ctx, classID)
	if err != nil {
		return ""
	}
	return cl.Name
}
