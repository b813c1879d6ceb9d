package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

type settingsView struct {
	TenantID          string   `json:"tenant_id"`
	BaseCurrency      string   `json:"base_currency"`
	SupportedCurrency []string `json:"supported_currencies"`
	AutoPostMode      string   `json:"auto_post_mode"`
	RoundingTolerance int      `json:"rounding_tolerance_minor"`
	MaxEventRetries   int      `json:"max_event_retries"`
	LockPeriodThrough string   `json:"lock_period_through,omitempty"`
	Version           int      `json:"version"`
}

func newSettingsCommand(rootOpts *RootOptions, open BackendFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage tenant accounting settings",
	}
	cmd.AddCommand(newSettingsBootstrapCommand(rootOpts, open))
	return cmd
}

func newSettingsBootstrapCommand(opts *RootOptions, open BackendFactory) *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create a tenant's settings and fallback accounts if missing",
		Long: `Bootstrap provisions the settings row and the fallback chart accounts for a
tenant. Running it again on a provisioned tenant leaves everything unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseUUIDFlag("tenant", tenant)
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), opts, open, func(b *Backend) error {
				s, err := b.Settings.EnsureSettings(cmd.Context(), tenantID)
				if err != nil {
					return fmt.Errorf("bootstrap settings: %w", err)
				}
				view := settingsView{
					TenantID:          s.TenantID.String(),
					BaseCurrency:      s.BaseCurrency,
					SupportedCurrency: s.SupportedCurrencies,
					AutoPostMode:      string(s.AutoPostMode),
					RoundingTolerance: s.RoundingToleranceMinor,
					MaxEventRetries:   s.MaxEventRetries,
					LockPeriodThrough: s.LockPeriodThrough,
					Version:           s.Version,
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), view)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s settings ready (base currency %s, %s, version %d)\n",
					view.TenantID, view.BaseCurrency, view.AutoPostMode, view.Version)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
