package main

import (
	"context"
	"log"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"ordernudge/config"
	"ordernudge/mailer"
	"ordernudge/middleware"
	"ordernudge/reminder"
	"ordernudge/repository"
	"ordernudge/routes"
	"ordernudge/worker"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Initialize Sentry if configured
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			log.Printf("Sentry initialization failed: %v", err)
		}
	}

	// Structured logger for the reminder pipeline
	reminderLog := logrus.New()
	if config.AppConfig.Environment == "development" {
		reminderLog.SetLevel(logrus.DebugLevel)
	}

	// Optional redis client for the daily run lock
	var rdb *redis.Client
	if config.AppConfig.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Address,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		})
	}

	// Wire the reminder service
	customerRepo := repository.NewCustomerRepository(config.DB)
	settingRepo := repository.NewSettingRepository(config.DB)
	smtpMailer := mailer.NewSMTPMailer(config.AppConfig.SMTP)
	service := reminder.NewService(customerRepo, smtpMailer, settingRepo, reminderLog)

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	// Start the daily reminder worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.AppConfig.WorkerEnabled {
		reminderWorker := worker.NewReminderWorker(service, rdb, reminderLog, config.AppConfig.WorkerRunHour)
		go reminderWorker.Start(ctx)
	}

	// Setup routes
	routes.SetupRoutes(app, config.DB, service)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	log.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
