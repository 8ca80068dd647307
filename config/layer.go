package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Value is one explicitly provided leaf. Its presence in a layer is the
// "was set" marker: a layer that never mentions a key holds no Value for it.
type Value struct {
	Raw    any
	Source Source
	Key    string // env var name, file path or flag that supplied the value
}

// Layer is a nested tree of explicitly provided values from one source.
// Inner nodes are map[string]any, leaves are Value.
type Layer struct {
	source   Source
	location string
	root     map[string]any
}

// NewLayer creates an empty layer for the given source.
func NewLayer(source Source, location string) *Layer {
	return &Layer{source: source, location: location, root: make(map[string]any)}
}

// LayerFromMap builds a layer from a decoded document. Nested maps become
// namespaces; everything else becomes a leaf. An empty mapping is a leaf
// holding an empty map, so "headers: {}" counts as set. Keys are lowercased.
func LayerFromMap(source Source, location string, doc map[string]any) *Layer {
	l := NewLayer(source, location)
	l.fill("", doc)
	return l
}

func (l *Layer) fill(prefix string, node map[string]any) {
	for k, v := range node {
		path := joinPath(prefix, k)
		switch child := v.(type) {
		case map[string]any:
			l.fillMap(path, child)
		case map[any]any:
			converted := make(map[string]any, len(child))
			for ck, cv := range child {
				converted[fmt.Sprint(ck)] = cv
			}
			l.fillMap(path, converted)
		default:
			l.Set(path, v, "")
		}
	}
}

func (l *Layer) fillMap(path string, child map[string]any) {
	if len(child) == 0 {
		l.Set(path, map[string]any{}, "")
		return
	}
	l.fill(path, child)
}

// Source returns the source this layer was read from.
func (l *Layer) Source() Source { return l.source }

// Location returns the file path or other detail of the layer.
func (l *Layer) Location() string { return l.location }

// Set records an explicitly provided value at a dot separated path.
// An empty key defaults to the layer location.
func (l *Layer) Set(path string, raw any, key string) {
	if key == "" {
		key = l.location
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return
	}
	node := l.root
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[p] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = Value{Raw: raw, Source: l.source, Key: key}
}

// Lookup returns the leaf at path, if the layer set one.
func (l *Layer) Lookup(path string) (Value, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return Value{}, false
	}
	node := l.root
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p].(map[string]any)
		if !ok {
			return Value{}, false
		}
		node = child
	}
	v, ok := node[parts[len(parts)-1]].(Value)
	return v, ok
}

// Walk visits every leaf in path order.
func (l *Layer) Walk(fn func(path string, v Value)) {
	walk("", l.root, fn)
}

func walk(prefix string, node map[string]any, fn func(string, Value)) {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := joinPath(prefix, k)
		switch child := node[k].(type) {
		case map[string]any:
			walk(path, child, fn)
		case Value:
			fn(path, child)
		}
	}
}

// Paths lists every leaf path in sorted order.
func (l *Layer) Paths() []string {
	var out []string
	l.Walk(func(path string, _ Value) { out = append(out, path) })
	return out
}

// Len returns the number of leaves.
func (l *Layer) Len() int {
	n := 0
	l.Walk(func(string, Value) { n++ })
	return n
}

// Merge deep merges layers given from lowest to highest precedence into a
// new layer. Nested namespaces merge recursively. A higher leaf replaces a
// lower one only when the values differ; equal values keep the lower
// leaf and its provenance. Inputs are never modified.
func Merge(layers ...*Layer) *Layer {
	out := NewLayer(SourceMerged, "")
	for _, l := range layers {
		if l == nil {
			continue
		}
		mergeInto(out.root, l.root)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, sv := range src {
		switch s := sv.(type) {
		case map[string]any:
			if d, ok := dst[k].(map[string]any); ok {
				mergeInto(d, s)
				continue
			}
			fresh := make(map[string]any, len(s))
			mergeInto(fresh, s)
			dst[k] = fresh
		case Value:
			if d, ok := dst[k].(Value); ok && equalRaw(d.Raw, s.Raw) {
				continue
			}
			// an empty mapping over a namespace sets nothing inside it
			if _, ns := dst[k].(map[string]any); ns && isEmptyMap(s.Raw) {
				continue
			}
			dst[k] = s
		}
	}
}

func equalRaw(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	if isScalar(a) && isScalar(b) {
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
	return false
}

func isEmptyMap(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Len() == 0
}

func isScalar(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Map, reflect.Struct, reflect.Pointer, reflect.Array:
		return false
	default:
		return true
	}
}

func splitPath(path string) []string {
	path = strings.Trim(strings.ToLower(path), ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func joinPath(prefix, key string) string {
	key = strings.ToLower(key)
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
