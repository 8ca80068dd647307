package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/GoCodeAlone/demoapp/config"
	"github.com/GoCodeAlone/demoapp/settings"
)

const configFileFlag = "config-file"

// toggle is a pair of --name / --no-name flags setting one or more paths.
type toggle struct {
	name  string
	short string
	usage string
	paths []string
}

// toggles are applied in order, so the narrower pairs win over --telemetry.
var toggles = []toggle{
	{name: "debug", short: "d", usage: "debug mode", paths: []string{"server.debug"}},
	{name: "access-log", usage: "access log", paths: []string{"logging.access_log"}},
	{name: "telemetry", usage: "observability telemetry", paths: []string{"telemetry.traces_enabled", "telemetry.metrics_enabled"}},
	{name: "traces", usage: "traces", paths: []string{"telemetry.traces_enabled"}},
	{name: "metrics", usage: "metrics", paths: []string{"telemetry.metrics_enabled"}},
}

// valueFlags maps plain flags to settings paths.
var valueFlags = []struct {
	name  string
	path  string
	lower bool
}{
	{name: "host", path: "server.host"},
	{name: "port", path: "server.port"},
	{name: "root-path", path: "server.root_path"},
	{name: "db", path: "database.path"},
	{name: "log-level", path: "logging.level", lower: true},
	{name: "traces-exporter", path: "telemetry.traces_exporter", lower: true},
}

func addSettingsFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("host", "", "Host server should listen to")
	flags.Int("port", 0, "Port server should listen to")
	flags.String("root-path", "", "Root path used to serve the application")
	flags.StringP(configFileFlag, "c", "", "Configuration file (JSON, YAML or TOML)")
	flags.String("db", "", "Path to JSON database file")
	flags.StringP("log-level", "l", "", "Logging level (debug, info, warning, error, critical)")
	flags.String("traces-exporter", "", "Traces exporter to use: console or otlp")

	for _, t := range toggles {
		flags.BoolP(t.name, t.short, false, "Enable "+t.usage)
		flags.Bool("no-"+t.name, false, "Disable "+t.usage)
		cmd.MarkFlagsMutuallyExclusive(t.name, "no-"+t.name)
	}
}

// overrideLayer collects the flags the user actually passed.
func overrideLayer(flags *pflag.FlagSet) (*config.Layer, error) {
	layer := config.NewLayer(config.SourceOverride, "command line")

	for _, f := range valueFlags {
		flag := flags.Lookup(f.name)
		if flag == nil || !flag.Changed {
			continue
		}
		var value any
		if f.name == "port" {
			port, err := flags.GetInt(f.name)
			if err != nil {
				return nil, err
			}
			value = port
		} else {
			s := flag.Value.String()
			if f.lower {
				s = strings.ToLower(s)
			}
			value = s
		}
		layer.Set(f.path, value, "--"+f.name)
	}

	for _, t := range toggles {
		for name, enabled := range map[string]bool{t.name: true, "no-" + t.name: false} {
			if flag := flags.Lookup(name); flag == nil || !flag.Changed {
				continue
			}
			on, err := flags.GetBool(name)
			if err != nil {
				return nil, err
			}
			if !on {
				continue
			}
			for _, path := range t.paths {
				layer.Set(path, enabled, "--"+name)
			}
		}
	}
	return layer, nil
}

func resolveSettings(flags *pflag.FlagSet, environ config.Environ) (*settings.Snapshot, error) {
	override, err := overrideLayer(flags)
	if err != nil {
		return nil, err
	}
	configFile, err := flags.GetString(configFileFlag)
	if err != nil {
		return nil, err
	}
	return settings.Resolve(settings.Defaults(), settings.ResolveOptions{
		ConfigFile: configFile,
		Environ:    environ,
		Override:   override,
	})
}
