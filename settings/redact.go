package settings

import (
	"strings"

	"github.com/GoCodeAlone/demoapp/config"
)

// Redacted replaces secret values wherever settings are displayed.
const Redacted = "***"

const secretPath = "otlp.headers"

// IsSecretPath reports whether the field at path holds a secret. OTLP
// headers carry credentials whether they arrive as one map leaf (env) or
// one leaf per header (file).
func IsSecretPath(path string) bool {
	return path == secretPath || strings.HasPrefix(path, secretPath+".")
}

// Redact returns a copy of s with secret values replaced.
func (s Settings) Redact() Settings {
	out := s.Clone()
	for k := range out.OTLP.Headers {
		out.OTLP.Headers[k] = Redacted
	}
	return out
}

// RedactProvenance replaces secret values in fields and returns it.
func RedactProvenance(fields []config.FieldProvenance) []config.FieldProvenance {
	for i := range fields {
		if IsSecretPath(fields[i].FieldPath) {
			fields[i].Value = Redacted
		}
	}
	return fields
}
