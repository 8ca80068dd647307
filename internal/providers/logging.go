// Package providers holds the one-shot setup routines applied when the
// container starts: logging, metrics and tracing.
package providers

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	demoapp "github.com/GoCodeAlone/demoapp"
	"github.com/GoCodeAlone/demoapp/settings"
)

var levels = map[string]slog.Level{
	"debug":    slog.LevelDebug,
	"info":     slog.LevelInfo,
	"warn":     slog.LevelWarn,
	"warning":  slog.LevelWarn,
	"error":    slog.LevelError,
	"critical": demoapp.LevelCritical,
}

const (
	ansiReset  = "\x1b[0m"
	ansiBlue   = "\x1b[34m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiBold   = "\x1b[1;31m"
	ansiCyan   = "\x1b[36m"
	ansiGray   = "\x1b[90m"
)

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	l, ok := levels[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return l, nil
}

// NewLogger builds the slog logger described by the logging section.
// Colored console output goes through consoleHandler; everything else uses
// the slog text or JSON handler.
func NewLogger(w io.Writer, s settings.LogSettings) (*slog.Logger, error) {
	level, err := ParseLevel(s.Level)
	if err != nil {
		return nil, err
	}
	if s.Colors && s.Renderer != "json" {
		return slog.New(newConsoleHandler(w, level)), nil
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.LevelKey || len(groups) > 0 {
				return a
			}
			if lvl, ok := a.Value.Any().(slog.Level); ok {
				return slog.String(slog.LevelKey, levelName(lvl))
			}
			return a
		},
	}
	if s.Renderer == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func levelName(l slog.Level) string {
	if l >= demoapp.LevelCritical {
		return "CRITICAL"
	}
	return l.String()
}

func levelColor(l slog.Level) string {
	switch {
	case l >= demoapp.LevelCritical:
		return ansiBold
	case l >= slog.LevelError:
		return ansiRed
	case l >= slog.LevelWarn:
		return ansiYellow
	case l >= slog.LevelInfo:
		return ansiGreen
	default:
		return ansiBlue
	}
}

// Logging replaces the container logger with one built from the logging
// section and makes it the slog default.
func Logging(w io.Writer) demoapp.Provider {
	return func(c *demoapp.Container) error {
		s := c.Settings()
		logger, err := NewLogger(w, s.Logging)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		c.UseLogger(logger)
		logger.Debug("Logging configured", "level", s.Logging.Level, "renderer", s.Logging.Renderer, "access_log", s.Logging.AccessLog)
		return nil
	}
}
