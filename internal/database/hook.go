// Package database wires the employee store into the container: a hook
// that opens it, a monitor task that exits the process when the file
// disappears, and an optional scheduled refresh.
package database

import (
	"context"
	"fmt"

	demoapp "github.com/GoCodeAlone/demoapp"
	"github.com/GoCodeAlone/demoapp/internal/employees"
)

// StateKey is the name the store is published under.
const StateKey = "database"

// Hook opens the store at database.path and publishes it.
func Hook() demoapp.Hook {
	return demoapp.NewHook(StateKey, func(ctx context.Context, c *demoapp.Container) (demoapp.Release, error) {
		path := c.Settings().Database.Path
		logger := c.Logger()
		logger.Info("Opening database", "path", path)

		store, err := employees.Open(path)
		if err != nil {
			return nil, err
		}
		if err := c.Publish(StateKey, store); err != nil {
			return nil, fmt.Errorf("publish database: %w", err)
		}
		logger.Info("Database opened", "path", store.Path(), "employees", store.Len())

		return func(context.Context) error {
			logger.Warn("Closing database", "path", store.Path())
			return nil
		}, nil
	})
}

// Store returns the published store.
func Store(c *demoapp.Container) (*employees.Store, bool) {
	return demoapp.Lookup[*employees.Store](c, StateKey)
}
