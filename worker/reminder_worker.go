package worker

import (
	"context"
	"time"

	"ordernudge/reminder"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// ReminderWorker triggers the daily order reminder run. The run itself is
// sequential and synchronous; the worker only decides when it happens and
// makes sure it happens once per day even with multiple replicas.
type ReminderWorker struct {
	Service *reminder.Service
	Redis   *redis.Client // nil when redis is disabled
	Logger  *logrus.Logger
	RunHour int
}

func NewReminderWorker(service *reminder.Service, rdb *redis.Client, logger *logrus.Logger, runHour int) *ReminderWorker {
	return &ReminderWorker{
		Service: service,
		Redis:   rdb,
		Logger:  logger,
		RunHour: runHour,
	}
}

func (rw *ReminderWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	rw.Logger.Info("Order reminder worker started")

	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.Logger.Info("Order reminder worker shutting down...")
			return
		case <-ticker.C:
			rw.tick(ctx)
		}
	}
}

func (rw *ReminderWorker) tick(ctx context.Context) {
	now := time.Now()
	if now.Hour() != rw.RunHour {
		return
	}
	if !rw.acquireRunLock(ctx, now) {
		rw.Logger.Debug("Reminder run already performed today, skipping")
		return
	}
	rw.RunOnce(ctx)
}

// RunOnce executes a full reminder run and reports the outcome.
func (rw *ReminderWorker) RunOnce(ctx context.Context) {
	report, err := rw.Service.Run(ctx)
	if err != nil {
		rw.Logger.WithError(err).Error("Order reminder run failed")
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("component", "reminder_worker")
			sentry.CaptureException(err)
		})
		return
	}

	rw.Logger.WithFields(logrus.Fields{
		"stores":        report.Stores,
		"candidates":    report.Candidates,
		"skipped":       report.Skipped,
		"sent":          report.Sent,
		"send_failures": report.SendFailures,
		"moved":         report.Moved,
		"deleted":       report.Deleted,
	}).Info("Order reminder run finished")
}

// acquireRunLock claims today's run via redis SETNX. Without redis (single
// replica deployments) the lock is a no-op; if redis errors we run anyway
// rather than silently skip a day.
func (rw *ReminderWorker) acquireRunLock(ctx context.Context, now time.Time) bool {
	if rw.Redis == nil {
		return true
	}

	key := "ordernudge:run:" + now.Format("2006-01-02")
	ok, err := rw.Redis.SetNX(ctx, key, "1", 48*time.Hour).Result()
	if err != nil {
		rw.Logger.WithError(err).Warn("Run lock unavailable, continuing without it")
		return true
	}
	return ok
}
