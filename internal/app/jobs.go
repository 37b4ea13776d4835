package app

import (
	"time"

	"github.com/talkbase/wadash/internal/store"
	"go.uber.org/zap"
)

const logRetentionDays = 90

// InitJob registers the maintenance cron jobs and starts the scheduler.
func (a *Application) InitJob(users *store.Users, logs *store.Logs) {
	// reset per-user daily counters at midnight
	_, err := a.sched.AddFunc("@midnight", func() {
		n, err := users.ResetDailyCounters()
		if err != nil {
			zap.L().Error("daily counter reset failed", zap.Error(err))
			return
		}
		zap.L().Info("daily counters reset", zap.Int64("users", n))
	})
	if err != nil {
		zap.L().Error("failed to register daily reset job", zap.Error(err))
	}

	// trim old dispatch logs nightly
	_, err = a.sched.AddFunc("30 3 * * *", func() {
		cutoff := time.Now().AddDate(0, 0, -logRetentionDays)
		n, err := logs.TrimBefore(cutoff)
		if err != nil {
			zap.L().Error("message log trim failed", zap.Error(err))
			return
		}
		zap.L().Info("message log trimmed", zap.Int64("rows", n), zap.Time("cutoff", cutoff))
	})
	if err != nil {
		zap.L().Error("failed to register log trim job", zap.Error(err))
	}

	a.sched.Start()
}
