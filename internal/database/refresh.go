package database

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	demoapp "github.com/GoCodeAlone/demoapp"
)

// RefreshTaskName is the supervisor name of the refresh task.
const RefreshTaskName = "database-refresh"

// RefreshTask reloads the store from disk on database.refresh_schedule, a
// standard five-field cron expression. It returns nil when no schedule is set.
func RefreshTask() demoapp.Task {
	return demoapp.NewTask(RefreshTaskName, refresh)
}

func refresh(ctx context.Context, c *demoapp.Container) error {
	expr := c.Settings().Database.RefreshSchedule
	if expr == "" {
		return nil
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("parse refresh schedule %q: %w", expr, err)
	}
	store, ok := Store(c)
	if !ok {
		return ErrStoreUnavailable
	}
	logger := c.Logger()

	for {
		now := time.Now()
		next := schedule.Next(now)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if err := store.Refresh(); err != nil {
			// the monitor owns the missing-file case
			logger.Error("Database refresh failed", "path", store.Path(), "error", err)
			continue
		}
		logger.Debug("Database refreshed", "employees", store.Len(), "next", schedule.Next(time.Now()))
	}
}
