package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/studioreform/booking-api/internal/repository"
	"github.com/studioreform/booking-api/internal/schedule"
)

// AdminHandler serves the admin dashboard, the member directory and
// the contact inbox.
type AdminHandler struct {
	Users     *repository.UserRepo
	Classes   *repository.ClassRepo
	Bookings  *repository.BookingRepo
	Purchases   *repository.PurchaseRepo
	ContactRepo *repository.ContactRepo
}

func NewAdminHandler(u *repository.UserRepo, cl *repository.ClassRepo, b *repository.BookingRepo,
	p *repository.PurchaseRepo, ct *repository.ContactRepo) *AdminHandler {
	return &AdminHandler{Users: u, Classes: cl, Bookings: b, Purchases: p, ContactRepo: ct}
}

// Dashboard returns headline counts plus the recent booking feed.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	members, err := h.Users.CountMembers(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	classes, err := h.Classes.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	today := time.Now().UTC().Format(schedule.DateLayout)
	todayBookings, err := h.Bookings.CountOnDate(ctx, today)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	pending, err := h.Purchases.CountPendingApproval(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	recent, err := h.Bookings.Recent(ctx, 10)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	feed := make([]echo.Map, 0, len(recent))
	for _, r := range recent {
		feed = append(feed, echo.Map{
			"booking_id": r.BookingID,
			"user_name":  r.UserName,
			"class_name": r.ClassName,
			"class_date": r.ClassDate,
			"start_time": r.StartTime,
			"status":     r.Status,
			"created_at": r.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"members":           members,
		"classes":           len(classes),
		"bookings_today":    todayBookings,
		"pending_approvals": pending,
		"recent_bookings":   feed,
	})
}

// Members lists every member account.
func (h *AdminHandler) Members(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Users.ListMembers(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, u := range list {
		out = append(out, echo.Map{
			"id":              u.ID,
			"name":            u.Name,
			"email":           u.Email,
			"phone":           u.Phone,
			"membership_plan": u.MembershipPlan,
			"status":          u.Status,
			"created_at":      u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"members": out})
}

// Contacts lists the contact inbox.
func (h *AdminHandler) Contacts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.ContactRepo.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, m := range list {
		out = append(out, echo.Map{
			"id":         m.ID,
			"name":       m.Name,
			"email":      m.Email,
			"phone":      m.Phone,
			"subject":    m.Subject,
			"message":    m.Message,
			"status":     m.Status,
			"created_at": m.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": out})
}

type contactStatusReq struct {
	Status string `json:"status"`
}

// SetContactStatus moves a message through New -> Read -> Responded.
func (h *AdminHandler) SetContactStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid message id"})
	}
	var req contactStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	switch req.Status {
	case "New", "Read", "Responded":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.ContactRepo.SetStatus(ctx, id, req.Status); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "message not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}
