// Package commands implements postingctl, the operator CLI for the GL posting engine.
package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// Version is stamped by the build.
var Version = "dev"

// RootOptions holds the persistent flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json"
}

var validFormats = []string{"text", "json"}

// NewRootCommand creates the postingctl command tree backed by the configured database.
func NewRootCommand() *cobra.Command {
	return newRootCommand(OpenBackend)
}

func newRootCommand(open BackendFactory) *cobra.Command {
	opts := &RootOptions{}

	rootCmd := &cobra.Command{
		Use:     "postingctl",
		Short:   "Operate the GL posting engine",
		Long:    "Replay business records into the ledger, work the dead-letter queue and bootstrap tenant settings.",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a config file (default: config.toml lookup)")
	rootCmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	rootCmd.AddCommand(newReplayCommand(opts, open))
	rootCmd.AddCommand(newDeadLettersCommand(opts, open))
	rootCmd.AddCommand(newSettingsCommand(opts, open))

	return rootCmd
}
