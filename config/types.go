// Package config provides layered configuration resolution with per-field provenance.
//
// A Layer holds only the leaves a source explicitly provided. Layers are
// deep merged in precedence order (defaults < file < env < override), the
// merged tree is decoded into a target struct and validated, and every
// resolved field keeps a record of which source set it.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Static errors for the configuration package
var (
	ErrUnknownKey        = errors.New("unknown configuration key")
	ErrInvalidValue      = errors.New("invalid configuration value")
	ErrTargetNotStruct   = errors.New("config target must be a non-nil pointer to struct")
	ErrMalformedPair     = errors.New("malformed key=value pair")
	ErrUnsupportedSource = errors.New("unsupported configuration source")
)

// Source identifies where a configuration value came from.
type Source string

// Known sources, listed from lowest to highest precedence.
const (
	SourceDefault  Source = "default"
	SourceFile     Source = "file"
	SourceEnv      Source = "env"
	SourceOverride Source = "override"

	// SourceMerged marks a layer produced by Merge.
	SourceMerged Source = "merged"
)

// Priority returns the precedence of the source; higher wins.
func (s Source) Priority() int {
	switch s {
	case SourceDefault:
		return 0
	case SourceFile:
		return 10
	case SourceEnv:
		return 20
	case SourceOverride:
		return 30
	default:
		return -1
	}
}

// FieldProvenance represents provenance information for a configuration field
type FieldProvenance struct {
	FieldPath    string    `json:"field_path"`
	Source       Source    `json:"source"`        // e.g., "env", "file", "default"
	SourceDetail string    `json:"source_detail"` // e.g., "SERVER_PORT", "config.yaml", "--port"
	Value        any       `json:"value"`
	Timestamp    time.Time `json:"timestamp"`
}

// ConfigSource describes one layer that took part in a resolution.
type ConfigSource struct {
	Name     string `json:"name"`
	Type     Source `json:"type"`
	Location string `json:"location"`
	Priority int    `json:"priority"` // higher priority overrides lower
	Fields   int    `json:"fields"`
}

// FieldError reports a configuration problem tied to a single field.
type FieldError struct {
	Path   string
	Value  any
	Source Source
	Key    string
	Err    error
}

func (e *FieldError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "config field %q", e.Path)
	if e.Source != "" {
		fmt.Fprintf(&b, " from %s", e.Source)
		if e.Key != "" {
			fmt.Fprintf(&b, " (%s)", e.Key)
		}
	}
	fmt.Fprintf(&b, " value %v: %v", e.Value, e.Err)
	return b.String()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
