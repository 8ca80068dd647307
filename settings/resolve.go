package settings

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/demoapp/config"
	"github.com/GoCodeAlone/demoapp/feeders"
)

// ConfigPathEnv names the variable consulted when no configuration file is passed explicitly.
const ConfigPathEnv = "CONFIG_PATH"

// Static errors for settings resolution
var (
	ErrConfigFileNotFound = errors.New("configuration file not found")
	ErrConfigFile         = errors.New("cannot load configuration file")
	ErrResolve            = errors.New("cannot resolve settings")
)

var settingsValidator = sync.OnceValue(func() *config.Validator {
	v := config.NewValidator()
	if err := v.RegisterRule("cron", validateCron); err != nil {
		panic(err)
	}
	return v
})

func validateCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// ResolveOptions carries the inputs of Resolve besides the defaults.
type ResolveOptions struct {
	// ConfigFile is an optional JSON, YAML or TOML document. When empty,
	// CONFIG_PATH is consulted through Environ.
	ConfigFile string

	// Environ supplies environment variables. Nil reads the process environment.
	Environ config.Environ

	// Override holds explicitly provided values, typically from command line flags.
	Override *config.Layer
}

// Resolve merges defaults < file < environment < override into a Snapshot.
// A configuration file that does not exist is an error.
func Resolve(defaults Settings, opts ResolveOptions) (*Snapshot, error) {
	env := opts.Environ
	if env == nil {
		env = config.OSEnviron()
	}

	defaultsLayer, err := config.LayerFromStruct(config.SourceDefault, "defaults", defaults)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolve, err)
	}
	layers := []*config.Layer{defaultsLayer}

	path := opts.ConfigFile
	if path == "" {
		if p, ok := env(ConfigPathEnv); ok {
			path = p
		}
	}
	if path != "" {
		fileLayer, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		layers = append(layers, fileLayer)
	}

	envLayer, err := config.EnvLayer(&Settings{}, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolve, err)
	}
	layers = append(layers, envLayer)

	if opts.Override != nil {
		layers = append(layers, opts.Override)
	}
	return build(layers)
}

func loadFile(path string) (*config.Layer, error) {
	feeder, err := feeders.ForPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigFile, err)
	}
	doc, err := feeder.Feed()
	if err != nil {
		if errors.Is(err, feeders.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrConfigFile, err)
	}
	return config.LayerFromMap(config.SourceFile, path, doc), nil
}

func build(layers []*config.Layer) (*Snapshot, error) {
	loader := config.NewLoader(settingsValidator())
	for _, l := range layers {
		loader.AddLayer(l)
	}
	var s Settings
	merged, err := loader.Load(&s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolve, err)
	}
	return &Snapshot{
		settings:   s,
		merged:     merged,
		layers:     layers,
		sources:    loader.Sources(),
		resolvedAt: time.Now(),
	}, nil
}

// Snapshot is an immutable resolved configuration. Accessors return copies.
type Snapshot struct {
	settings   Settings
	merged     *config.Layer
	layers     []*config.Layer
	sources    []config.ConfigSource
	resolvedAt time.Time
}

// Settings returns a deep copy of the resolved settings.
func (s *Snapshot) Settings() Settings {
	return s.settings.Clone()
}

// Override resolves a new snapshot with l applied on top. The receiver is not modified.
func (s *Snapshot) Override(l *config.Layer) (*Snapshot, error) {
	layers := slices.Clone(s.layers)
	if l != nil {
		layers = append(layers, l)
	}
	return build(layers)
}

// Provenance lists, per field path, the source that supplied the value.
func (s *Snapshot) Provenance() []config.FieldProvenance {
	prov := config.Provenance(s.merged, s.resolvedAt)
	out := make([]config.FieldProvenance, 0, len(prov))
	for _, p := range prov {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FieldPath < out[j].FieldPath })
	return out
}

// SourceOf returns the provenance of a single field.
func (s *Snapshot) SourceOf(path string) (config.FieldProvenance, bool) {
	v, ok := s.merged.Lookup(path)
	if !ok {
		return config.FieldProvenance{}, false
	}
	return config.FieldProvenance{FieldPath: path, Source: v.Source, SourceDetail: v.Key, Value: v.Raw, Timestamp: s.resolvedAt}, true
}

// Sources describes the layers that took part, lowest precedence first.
func (s *Snapshot) Sources() []config.ConfigSource {
	return slices.Clone(s.sources)
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
