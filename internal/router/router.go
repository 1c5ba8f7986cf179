package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/studioreform/booking-api/internal/handler"    // handlers implementing the endpoints
	"github.com/studioreform/booking-api/internal/middleware" // JWT authentication and role enforcement
	"github.com/studioreform/booking-api/internal/model"      // role constants
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance. Currently it exposes only a health
// check, usable by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes. Unauthenticated
// operations live under /v1/auth, while the profile endpoints live
// under /v1 behind the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	// issues a new access token without rotating the refresh token
	g.POST("/refresh-access", a.RefreshAccess)
	// logout accepts a refresh_token body or a Bearer header and does
	// not require the JWT middleware
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleMember))
	auth.GET("/me", a.Me)
	auth.PUT("/me", a.UpdateProfile)
	auth.POST("/me/password", a.ChangePassword)
}

// RegisterPublic registers the unauthenticated browse endpoints: the
// class catalog, the weekly timetable, upcoming bookable classes, the
// package price list and the contact form. Extra middleware (e.g. the
// response cache) applies only to these routes; cached responses must
// never be shared across authenticated users.
func RegisterPublic(e *echo.Echo, cl *handler.ClassHandler, s *handler.ScheduleHandler,
	b *handler.BookingHandler, p *handler.PurchaseHandler, ct *handler.ContactHandler,
	mw ...echo.MiddlewareFunc) {
	g := e.Group("", mw...)
	g.GET("/v1/classes", cl.List)
	g.GET("/v1/classes/:id", cl.Get)
	g.GET("/v1/schedule", s.Timetable)
	g.GET("/v1/available-classes", b.AvailableClasses)
	g.GET("/v1/packages", p.Packages)
	g.POST("/v1/contact", ct.Create)
}

// RegisterMember registers the endpoints a logged-in member uses to
// book classes and buy packages.
func RegisterMember(e *echo.Echo, b *handler.BookingHandler, p *handler.PurchaseHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin, model.RoleMember))

	g.POST("/book-class", b.BookClass)
	g.POST("/book-weekly-class", b.BookWeekly)
	g.POST("/cancel-booking/:id", b.CancelBooking)
	g.GET("/my-booked-classes", b.MyBookedClasses)
	g.GET("/my-membership", b.MyMembership)

	g.POST("/purchases", p.Create)
	g.POST("/purchases/:id/submit-payment", p.SubmitPayment)
	g.GET("/my-purchases", p.MyPurchases)
}

// RegisterAdmin registers the staff endpoints under /v1/admin. Every
// route requires a JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, ad *handler.AdminHandler, cl *handler.ClassHandler,
	s *handler.ScheduleHandler, p *handler.PurchaseHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.GET("/dashboard", ad.Dashboard)
	g.GET("/members", ad.Members)
	g.GET("/contact-messages", ad.Contacts)
	g.PUT("/contact-messages/:id/status", ad.SetContactStatus)

	// class catalog management
	g.POST("/classes", cl.Create)
	g.PUT("/classes/:id", cl.Update)
	g.DELETE("/classes/:id", cl.Delete)

	// weekly schedule templates
	g.POST("/weekly-schedule", s.CreateWeekly)
	g.GET("/weekly-schedule", s.ListWeekly)
	g.PUT("/weekly-schedule/:id/toggle", s.ToggleWeekly)
	g.DELETE("/weekly-schedule/:id", s.DeleteWeekly)

	// dated instances
	g.POST("/schedule-instances/generate", s.Generate)
	g.GET("/schedule-instances", s.ListInstances)
	g.POST("/schedule-instances/:id/cancel", s.CancelInstance)
	g.GET("/schedule-instances/:id/bookings", s.Roster)
	g.POST("/schedule-instances/:id/attendance", s.Attendance)

	// purchase approval queue ("bookings" in the admin UI)
	g.GET("/bookings/pending", p.Pending)
	g.POST("/bookings/:id/approve", p.Approve)
	g.POST("/bookings/:id/reject", p.Reject)
}
