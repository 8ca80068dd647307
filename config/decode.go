package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

var durationType = reflect.TypeOf(time.Duration(0))

// LayerFromStruct records every leaf field of v as an explicitly provided
// value. It is how compiled-in defaults enter the merge.
func LayerFromStruct(source Source, location string, v any) (*Layer, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, ErrTargetNotStruct
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, ErrTargetNotStruct
	}
	l := NewLayer(source, location)
	walkStruct(rv.Type(), "", func(path string, index []int, _ reflect.StructField) {
		l.Set(path, rv.FieldByIndex(index).Interface(), "")
	})
	return l, nil
}

// walkStruct visits every leaf field of t. Nested structs are namespaces,
// everything else (including durations, slices and maps) is a leaf.
func walkStruct(t reflect.Type, prefix string, fn func(path string, index []int, f reflect.StructField)) {
	var visit func(t reflect.Type, prefix string, index []int)
	visit = func(t reflect.Type, prefix string, index []int) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := keyName(f)
			if name == "" {
				continue
			}
			idx := append(append([]int(nil), index...), i)
			path := joinPath(prefix, name)
			if f.Type.Kind() == reflect.Struct && f.Type != durationType {
				visit(f.Type, path, idx)
				continue
			}
			fn(path, idx, f)
		}
	}
	visit(t, prefix, nil)
}

// keyName returns the configuration key of a struct field: the mapstructure
// tag when present, else the lowercased field name. "-" skips the field.
func keyName(f reflect.StructField) string {
	tag := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	switch tag {
	case "-":
		return ""
	case "":
		return strings.ToLower(f.Name)
	default:
		return tag
	}
}

// Decode assigns every leaf of l onto target, which must be a pointer to
// struct. Each failing leaf produces a *FieldError naming its path, value
// and source; all failures are joined.
func Decode(l *Layer, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrTargetNotStruct
	}
	var errs []error
	l.Walk(func(path string, v Value) {
		if err := assign(rv.Elem(), strings.Split(path, "."), v.Raw); err != nil {
			errs = append(errs, &FieldError{Path: path, Value: v.Raw, Source: v.Source, Key: v.Key, Err: err})
		}
	})
	return errors.Join(errs...)
}

func assign(v reflect.Value, parts []string, raw any) error {
	if len(parts) == 0 {
		return convertInto(v, raw)
	}
	switch v.Kind() {
	case reflect.Struct:
		if v.Type() == durationType {
			return ErrUnknownKey
		}
		f, ok := fieldByKey(v, parts[0])
		if !ok {
			return ErrUnknownKey
		}
		return assign(f, parts[1:], raw)
	case reflect.Map:
		if len(parts) != 1 || v.Type().Key().Kind() != reflect.String {
			return ErrUnknownKey
		}
		if v.IsNil() {
			v.Set(reflect.MakeMap(v.Type()))
		}
		elem := reflect.New(v.Type().Elem()).Elem()
		if err := convertInto(elem, raw); err != nil {
			return err
		}
		v.SetMapIndex(reflect.ValueOf(parts[0]).Convert(v.Type().Key()), elem)
		return nil
	default:
		return ErrUnknownKey
	}
}

func fieldByKey(v reflect.Value, key string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if name := keyName(f); name != "" && strings.EqualFold(name, key) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func convertInto(dst reflect.Value, raw any) error {
	if isNil(raw) {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	ptr := reflect.New(dst.Type())
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           ptr.Interface(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	dst.Set(ptr.Elem())
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
