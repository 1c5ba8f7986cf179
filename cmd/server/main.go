package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/studioreform/booking-api/internal/config"
	"github.com/studioreform/booking-api/internal/database"
	"github.com/studioreform/booking-api/internal/handler"
	"github.com/studioreform/booking-api/internal/middleware"
	"github.com/studioreform/booking-api/internal/notify"
	"github.com/studioreform/booking-api/internal/queue"
	"github.com/studioreform/booking-api/internal/repository"
	"github.com/studioreform/booking-api/internal/router"
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis is optional: a nil client disables rate limiting and the
	// response cache without affecting the rest of the API.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and response cache disabled")
	}

	// Background SMS delivery off the sms.outbound queue.
	go func() {
		if err := queue.StartSMSConsumer(); err != nil {
			log.Printf("sms consumer stopped: %v", err)
		}
	}()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	classes := repository.NewClassRepo(db)
	schedules := repository.NewScheduleRepo(db)
	instances := repository.NewInstanceRepo(db)
	bookings := repository.NewBookingRepo(db)
	memberships := repository.NewMembershipRepo(db)
	purchases := repository.NewPurchaseRepo(db)
	contacts := repository.NewContactRepo(db)
	notifier := notify.New()

	authH := handler.NewAuthHandler(cfg, users, tokens)
	classH := handler.NewClassHandler(classes, schedules)
	scheduleH := handler.NewScheduleHandler(cfg, db, classes, schedules, instances, bookings, memberships, notifier)
	bookingH := handler.NewBookingHandler(db, instances, bookings, memberships, schedules, classes, users, notifier)
	purchaseH := handler.NewPurchaseHandler(db, purchases, memberships, users, notifier)
	adminH := handler.NewAdminHandler(users, classes, bookings, purchases, contacts)
	contactH := handler.NewContactHandler(contacts)

	e := echo.New()
	var publicMW []echo.MiddlewareFunc
	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		// cache only the public browse endpoints
		publicMW = append(publicMW, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, classH, scheduleH, bookingH, purchaseH, contactH, publicMW...)
	router.RegisterMember(e, bookingH, purchaseH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, classH, scheduleH, purchaseH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
