package controller

import (
	"log"
	"strconv"

	"ordernudge/models"
	"ordernudge/reminder"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ReminderController struct {
	DB      *gorm.DB
	Service *reminder.Service
	Logger  *log.Logger
}

func NewReminderController(db *gorm.DB, service *reminder.Service, logger *log.Logger) *ReminderController {
	return &ReminderController{
		DB:      db,
		Service: service,
		Logger:  logger,
	}
}

// TriggerRun runs the reminder batch on demand, for one store
// (?store_id=N) or for all stores. The run is synchronous; the response
// carries the run report.
func (rc *ReminderController) TriggerRun(c *fiber.Ctx) error {
	ctx := c.Context()

	if storeIDParam := c.Query("store_id"); storeIDParam != "" {
		storeID, err := strconv.ParseUint(storeIDParam, 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid store_id",
			})
		}

		var store models.Store
		if err := rc.DB.First(&store, uint(storeID)).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Store not found",
			})
		}

		report, err := rc.Service.RunStore(ctx, store)
		if err != nil {
			rc.Logger.Printf("Manual reminder run failed for store %s: %v", store.Code, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":  "Reminder run failed",
				"report": report,
			})
		}
		return c.JSON(fiber.Map{"status": "completed", "report": report})
	}

	report, err := rc.Service.Run(ctx)
	if err != nil {
		rc.Logger.Printf("Manual reminder run failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "Reminder run failed",
			"report": report,
		})
	}
	return c.JSON(fiber.Map{"status": "completed", "report": report})
}

// GetSettings returns the parsed reminder configuration for a store.
func (rc *ReminderController) GetSettings(c *fiber.Ctx) error {
	storeID, err := strconv.ParseUint(c.Params("storeID"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid store ID",
		})
	}

	settings, err := reminder.LoadSettings(c.Context(), rc.Service.Settings, uint(storeID))
	if err != nil {
		rc.Logger.Printf("Failed to load settings for store %d: %v", storeID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load settings",
		})
	}

	return c.JSON(fiber.Map{
		"enabled":         settings.Enabled,
		"count":           settings.Count,
		"interval_days":   settings.IntervalDays,
		"reminder_limit":  settings.ReminderLimit(),
		"terminal_action": settings.TerminalAction,
		"move_group":      settings.MoveGroup,
		"sender_name":     settings.SenderName,
		"sender_email":    settings.SenderEmail,
		"template":        settings.Template,
		"last_template":   settings.LastTemplate,
		"copy_to":         settings.CopyTo,
		"copy_method":     settings.CopyMethod,
		"timezone":        settings.Timezone,
	})
}
