package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/demoapp/config"
	"github.com/GoCodeAlone/demoapp/internal/app"
	"github.com/GoCodeAlone/demoapp/settings"
)

// OsExit is replaced in tests.
var OsExit = os.Exit

// Version information, set with -ldflags.
var (
	Commit = "none"
	Date   = "unknown"
)

// PrintVersion prints version information
func PrintVersion() string {
	meta := settings.DefaultMeta()
	return fmt.Sprintf("%s v%s (commit: %s, built on: %s)", meta.Title, meta.Version, Commit, Date)
}

// NewRootCommand creates the root command. Running it without a subcommand
// serves the application until interrupted or until the application asks to
// exit.
func NewRootCommand() *cobra.Command {
	return newRootCommand(config.OSEnviron())
}

func newRootCommand(environ config.Environ) *cobra.Command {
	meta := settings.DefaultMeta()
	cmd := &cobra.Command{
		Use:   meta.Name,
		Short: meta.Title + " - " + meta.Description,
		Long: `Serve the employee directory REST API.

Settings are resolved from compiled-in defaults, an optional configuration
file (--config-file or CONFIG_PATH), environment variables, and finally the
command line flags given explicitly.`,
		Version:       meta.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, environ)
		},
	}
	cmd.SetVersionTemplate(PrintVersion() + "\n")

	addSettingsFlags(cmd)
	cmd.AddCommand(newSettingsCommand(environ))

	return cmd
}

func serve(cmd *cobra.Command, environ config.Environ) error {
	snap, err := resolveSettings(cmd.Flags(), environ)
	if err != nil {
		return err
	}

	c, err := app.NewContainer(snap, app.Options{
		LogOutput:   cmd.ErrOrStderr(),
		TraceOutput: cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.Run(ctx)
}
