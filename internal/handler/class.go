package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/studioreform/booking-api/internal/model"
	"github.com/studioreform/booking-api/internal/repository"
	"github.com/studioreform/booking-api/internal/schedule"
)

// ClassHandler serves the class catalog: a public listing with the
// weekly timetable attached, and admin CRUD on catalog entries.
type ClassHandler struct {
	Classes   *repository.ClassRepo
	Schedules *repository.ScheduleRepo
}

func NewClassHandler(cl *repository.ClassRepo, s *repository.ScheduleRepo) *ClassHandler {
	return &ClassHandler{Classes: cl, Schedules: s}
}

type classReq struct {
	Name        string `json:"name"`
	Instructor  string `json:"instructor"`
	Duration    string `json:"duration"`
	Difficulty  string `json:"difficulty"`
	Capacity    int    `json:"capacity"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

func classJSON(cl model.Class) echo.Map {
	return echo.Map{
		"id":          cl.ID,
		"name":        cl.Name,
		"instructor":  cl.Instructor,
		"duration":    cl.Duration,
		"difficulty":  cl.Difficulty,
		"capacity":    cl.Capacity,
		"description": cl.Description,
		"image_url":   cl.ImageURL,
		"created_at":  cl.CreatedAt,
	}
}

// List returns the catalog with each class's active weekly slots and
// its current enrolled count across future instances. Public.
func (h *ClassHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	classes, err := h.Classes.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	slots, err := h.Schedules.List(ctx, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	today := time.Now().UTC().Format(schedule.DateLayout)
	enrolled, err := h.Classes.EnrolledCounts(ctx, today)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	slotsByClass := make(map[uint64][]echo.Map)
	for _, s := range slots {
		slotsByClass[s.ClassID] = append(slotsByClass[s.ClassID], echo.Map{
			"id":           s.ID,
			"day_of_week":  s.DayOfWeek,
			"start_time":   s.StartTime,
			"end_time":     s.EndTime,
			"max_capacity": s.MaxCapacity,
		})
	}

	out := make([]echo.Map, 0, len(classes))
	for _, cl := range classes {
		m := classJSON(cl)
		m["schedule"] = slotsByClass[cl.ID]
		m["enrolled"] = enrolled[cl.ID]
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, echo.Map{"classes": out})
}

// Get returns one catalog entry. Public.
func (h *ClassHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cl, err := h.Classes.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrClassNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"class": classJSON(cl)})
}

// Create adds a catalog entry. Admin only.
func (h *ClassHandler) Create(c echo.Context) error {
	var req classReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.Capacity <= 0 {
		req.Capacity = 8
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cl := model.Class{
		Name:        req.Name,
		Instructor:  strings.TrimSpace(req.Instructor),
		Duration:    strings.TrimSpace(req.Duration),
		Difficulty:  strings.TrimSpace(req.Difficulty),
		Capacity:    req.Capacity,
		Description: req.Description,
		ImageURL:    strings.TrimSpace(req.ImageURL),
	}
	id, err := h.Classes.Create(ctx, &cl)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	cl.ID = id
	return c.JSON(http.StatusCreated, echo.Map{"class": classJSON(cl)})
}

// Update edits a catalog entry. Admin only.
func (h *ClassHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	var req classReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Classes.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrClassNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	existing.Name = req.Name
	existing.Instructor = strings.TrimSpace(req.Instructor)
	existing.Duration = strings.TrimSpace(req.Duration)
	existing.Difficulty = strings.TrimSpace(req.Difficulty)
	if req.Capacity > 0 {
		existing.Capacity = req.Capacity
	}
	existing.Description = req.Description
	existing.ImageURL = strings.TrimSpace(req.ImageURL)

	if err := h.Classes.Update(ctx, &existing); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"class": classJSON(existing)})
}

// Delete removes a catalog entry that is not referenced by any
// schedule or instance. Admin only.
func (h *ClassHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Classes.Delete(ctx, id); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrClassNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "class has schedules or instances"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}
