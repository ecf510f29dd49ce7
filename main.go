package main

import (
	"log"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"

	"github.com/stageright/audition-service/config"
	"github.com/stageright/audition-service/internal/calendar"
	"github.com/stageright/audition-service/internal/consumer"
	"github.com/stageright/audition-service/internal/handler"
	"github.com/stageright/audition-service/internal/middleware"
	"github.com/stageright/audition-service/internal/notify"
	"github.com/stageright/audition-service/internal/queue"
	"github.com/stageright/audition-service/internal/repository"
	"github.com/stageright/audition-service/internal/service"
	"github.com/stageright/audition-service/pkg/database"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	tasks, err := queue.NewRabbitQueue(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer tasks.Close()

	notifier, err := notify.NewAMQPNotifier(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to set up notifier: %v", err)
	}
	defer notifier.Close()

	// Calendar provider: the real integration is a separate service; the
	// engine only needs the collaborator interface satisfied.
	var provider calendar.Provider = calendar.NoopProvider{}

	// Repositories
	slotRepo := repository.NewSlotRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	castingRepo := repository.NewCastingRepository(db)

	// Services, built leaves-first so every dependency is explicit.
	conflicts := service.NewConflictDetector(bookingRepo, castingRepo, provider, cfg.ConflictBufferMinutes)
	waitlist := service.NewWaitlistService(bookingRepo, slotRepo)
	reminders := service.NewReminderScheduler(bookingRepo, notifier, tasks, cfg.ReminderOffsets)
	slotSvc := service.NewSlotService(slotRepo, castingRepo, provider, cfg.MaxRecurrenceOccurrences)
	bookingSvc := service.NewBookingService(bookingRepo, slotRepo, castingRepo, waitlist, conflicts, reminders, notifier, tasks)

	// Background jobs: reminders and calendar sync.
	jobs := consumer.NewJobConsumer(tasks)
	jobs.Register(queue.JobBookingReminder, consumer.ReminderHandler(reminders))
	jobs.Register(queue.JobCalendarSync, consumer.CalendarSyncHandler(bookingRepo, slotRepo, provider))

	msgs, err := tasks.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming jobs: %v", err)
	}
	jobs.Start(msgs)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "audition-service"})
	})

	handler.NewSlotHandler(slotSvc).RegisterRoutes(e)
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e)

	log.Printf("Audition Service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
