package routes

import (
	"log"
	"os"

	controller "ordernudge/controllers"
	"ordernudge/reminder"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, service *reminder.Service) {
	reminderLogger := log.New(os.Stdout, "REMINDER: ", log.Ldate|log.Ltime|log.Lshortfile)
	reminderController := controller.NewReminderController(db, service, reminderLogger)

	// API group with versioning and request logging
	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Reminder routes
	reminders := api.Group("/reminders")
	reminders.Post("/run", reminderController.TriggerRun)
	reminders.Get("/settings/:storeID", reminderController.GetSettings)

	reminderLogger.Println("Reminder routes initialized successfully")
}
