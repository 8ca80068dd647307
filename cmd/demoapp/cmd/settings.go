package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/demoapp/config"
	"github.com/GoCodeAlone/demoapp/settings"
)

func newSettingsCommand(environ config.Environ) *cobra.Command {
	var (
		format     string
		provenance bool
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the resolved settings",
		Long: `Resolve settings exactly as the server would and print them.
With --provenance each field is listed with the source that set it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := resolveSettings(cmd.Flags(), environ)
			if err != nil {
				return err
			}
			var doc any = snap.Settings().Redact()
			if provenance {
				doc = settings.RedactProvenance(snap.Provenance())
			}
			return write(cmd.OutOrStdout(), format, doc)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "yaml", "Output format: yaml or json")
	cmd.Flags().BoolVar(&provenance, "provenance", false, "List the source of every field")
	return cmd
}

func write(w io.Writer, format string, doc any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		// round trip through JSON so YAML output uses the json field names
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
