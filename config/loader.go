package config

import (
	"slices"
	"sort"
	"time"
)

// Loader merges a set of layers by source precedence and decodes the
// result into a target struct.
type Loader struct {
	layers    []*Layer
	validator *Validator
}

// NewLoader creates a new configuration loader. A nil validator skips validation.
func NewLoader(v *Validator) *Loader {
	return &Loader{validator: v}
}

// AddLayer adds a layer. Nil layers are ignored.
func (l *Loader) AddLayer(layer *Layer) *Loader {
	if layer != nil {
		l.layers = append(l.layers, layer)
	}
	return l
}

// Sources describes the configured layers, lowest precedence first.
func (l *Loader) Sources() []ConfigSource {
	ordered := l.ordered()
	out := make([]ConfigSource, 0, len(ordered))
	for _, layer := range ordered {
		out = append(out, ConfigSource{
			Name:     string(layer.Source()),
			Type:     layer.Source(),
			Location: layer.Location(),
			Priority: layer.Source().Priority(),
			Fields:   layer.Len(),
		})
	}
	return out
}

func (l *Loader) ordered() []*Layer {
	ordered := slices.Clone(l.layers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Source().Priority() < ordered[j].Source().Priority()
	})
	return ordered
}

// Load merges the layers, decodes them onto target and validates it.
// The merged layer is returned for provenance queries.
func (l *Loader) Load(target any) (*Layer, error) {
	for _, layer := range l.layers {
		if layer.Source().Priority() < 0 {
			return nil, &FieldError{Path: "", Value: layer.Location(), Source: layer.Source(), Err: ErrUnsupportedSource}
		}
	}
	merged := Merge(l.ordered()...)
	if err := Decode(merged, target); err != nil {
		return nil, err
	}
	if l.validator != nil {
		if err := l.validator.Validate(target, merged); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// Provenance reports, for each leaf of a merged layer, which source set it.
func Provenance(merged *Layer, at time.Time) map[string]FieldProvenance {
	out := make(map[string]FieldProvenance)
	merged.Walk(func(path string, v Value) {
		out[path] = FieldProvenance{
			FieldPath:    path,
			Source:       v.Source,
			SourceDetail: v.Key,
			Value:        v.Raw,
			Timestamp:    at,
		}
	})
	return out
}
