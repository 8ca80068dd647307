package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// Environ looks up a single environment variable. Injecting it keeps
// resolution a pure function of its inputs.
type Environ func(key string) (string, bool)

// OSEnviron reads the process environment.
func OSEnviron() Environ {
	return os.LookupEnv
}

// MapEnviron serves lookups from a fixed map.
func MapEnviron(m map[string]string) Environ {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// EnvLayer reads every leaf field of target that carries an `env` tag.
// Unset or empty variables are not recorded. Conversion failures are
// returned as joined *FieldError values.
func EnvLayer(target any, lookup Environ) (*Layer, error) {
	t := reflect.TypeOf(target)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, ErrTargetNotStruct
	}
	if lookup == nil {
		lookup = OSEnviron()
	}

	l := NewLayer(SourceEnv, "environment")
	var errs []error
	walkStruct(t, "", func(path string, _ []int, f reflect.StructField) {
		name, ok := f.Tag.Lookup("env")
		if !ok || name == "" {
			return
		}
		raw, ok := lookup(name)
		if !ok || raw == "" {
			return
		}
		v, err := parseEnvValue(raw, f.Type)
		if err != nil {
			errs = append(errs, &FieldError{
				Path: path, Value: raw, Source: SourceEnv, Key: name,
				Err: fmt.Errorf("%w: %v", ErrInvalidValue, err),
			})
			return
		}
		l.Set(path, v, name)
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return l, nil
}

func parseEnvValue(raw string, t reflect.Type) (any, error) {
	switch {
	case t == durationType:
		return time.ParseDuration(strings.TrimSpace(raw))
	case t.Kind() == reflect.Slice:
		parts := splitList(raw)
		out := reflect.MakeSlice(t, 0, len(parts))
		for _, p := range parts {
			v, err := castTo(p, t.Elem())
			if err != nil {
				return nil, err
			}
			out = reflect.Append(out, v)
		}
		return out.Interface(), nil
	case t.Kind() == reflect.Map:
		out := reflect.MakeMap(t)
		for _, pair := range splitList(raw) {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrMalformedPair, pair)
			}
			ev, err := castTo(strings.TrimSpace(v), t.Elem())
			if err != nil {
				return nil, err
			}
			out.SetMapIndex(reflect.ValueOf(strings.TrimSpace(k)).Convert(t.Key()), ev)
		}
		return out.Interface(), nil
	default:
		v, err := castTo(strings.TrimSpace(raw), t)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}
}

func castTo(s string, t reflect.Type) (reflect.Value, error) {
	if t == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(d), nil
	}
	v, err := cast.FromType(s, t)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("cannot convert value to type %v: %w", t, err)
	}
	return reflect.ValueOf(v).Convert(t), nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
