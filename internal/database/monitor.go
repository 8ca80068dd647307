package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	demoapp "github.com/GoCodeAlone/demoapp"
	"github.com/GoCodeAlone/demoapp/internal/employees"
)

// MonitorTaskName is the supervisor name of the monitor task.
const MonitorTaskName = "database-monitor"

var ErrStoreUnavailable = errors.New("database store not published")

var tracer = otel.Tracer("github.com/GoCodeAlone/demoapp/internal/database")

// MonitorTask checks every database.monitor_interval that the database
// file still exists. When it is gone the task logs with rising severity,
// asks the container to exit and returns.
func MonitorTask() demoapp.Task {
	return demoapp.NewTask(MonitorTaskName, monitor)
}

func monitor(ctx context.Context, c *demoapp.Container) error {
	store, ok := Store(c)
	if !ok {
		return ErrStoreUnavailable
	}
	interval := c.Settings().Database.MonitorInterval
	logger := c.Logger()

	var events <-chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("File watcher unavailable; polling only", "error", err)
	} else {
		defer func() { _ = watcher.Close() }()
		if err := watcher.Add(filepath.Dir(store.Path())); err != nil {
			logger.Warn("Cannot watch database directory; polling only", "error", err)
		} else {
			events = watcher.Events
		}
	}

	for {
		logger.Debug("Checking connection to database...")
		if !check(ctx, store) {
			logger.Warn("Database dump is missing", "path", store.Path())
			logger.Error("Checking connection to database... ERROR")
			demoapp.LogCritical(logger,
				fmt.Sprintf("Checking connection to database... Exiting application due to critical error: Database dump not found (%s)", store.Path()))
			c.ExitSoon()
			return nil
		}
		logger.Info("Checking connection to database... OK")

		if err := wait(ctx, interval, events, store.Path()); err != nil {
			return err
		}
	}
}

// check reports whether the database file exists, recording one span per check.
func check(ctx context.Context, store *employees.Store) bool {
	_, span := tracer.Start(ctx, "database.check",
		trace.WithAttributes(attribute.String("db.path", store.Path())))
	defer span.End()

	if !store.Exists() {
		span.SetStatus(codes.Error, "database dump not found")
		return false
	}
	return true
}

// wait blocks for interval, returning early when path is removed or
// renamed. It returns ctx.Err() once ctx is done.
func wait(ctx context.Context, interval time.Duration, events <-chan fsnotify.Event, path string) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == path && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return nil
			}
		}
	}
}
