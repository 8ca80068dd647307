// Package feeders provides configuration feeders for reading structured
// documents (JSON, YAML, TOML) into a generic tree that the config package
// turns into a file layer.
package feeders

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Static error definitions for feeders
var (
	ErrFileNotFound      = errors.New("configuration file not found")
	ErrUnsupportedFormat = errors.New("unsupported configuration file format")
	ErrParse             = errors.New("failed to parse configuration file")
)

// Feeder reads one configuration document.
type Feeder interface {
	// Feed returns the document as nested maps keyed by string.
	Feed() (map[string]any, error)

	// Location returns the path the feeder reads from.
	Location() string
}

type debugLogger interface {
	Debug(msg string, args ...any)
}

// fileFeeder holds the shared read / verbose-debug behaviour of every file format.
type fileFeeder struct {
	Path         string
	format       string
	decode       func([]byte, *map[string]any) error
	verboseDebug bool
	logger       debugLogger
}

// SetVerboseDebug enables or disables verbose debug logging
func (f *fileFeeder) SetVerboseDebug(enabled bool, logger debugLogger) {
	f.verboseDebug = enabled
	f.logger = logger
	if enabled && logger != nil {
		f.logger.Debug("Verbose feeder debugging enabled", "format", f.format, "filePath", f.Path)
	}
}

// Location returns the file path.
func (f *fileFeeder) Location() string {
	return f.Path
}

// Feed reads and parses the file. An empty file yields an empty document.
func (f *fileFeeder) Feed() (map[string]any, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, f.Path)
		}
		return nil, fmt.Errorf("failed to read %s file %s: %w", f.format, f.Path, err)
	}

	doc := make(map[string]any)
	if len(bytes.TrimSpace(data)) > 0 {
		if err := f.decode(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s file %s: %v", ErrParse, f.format, f.Path, err)
		}
	}

	if f.verboseDebug && f.logger != nil {
		f.logger.Debug("Feeder: document loaded", "format", f.format, "filePath", f.Path, "topLevelKeys", len(doc))
	}
	return doc, nil
}

// ForPath picks a feeder from the file extension.
func ForPath(path string) (Feeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONFeeder(path), nil
	case ".yaml", ".yml":
		return NewYamlFeeder(path), nil
	case ".toml":
		return NewTomlFeeder(path), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}
