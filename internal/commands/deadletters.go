package commands

import (
	"fmt"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type deadLetterOptions struct {
	*RootOptions
	Tenant string
	Actor  string
}

type deadLetterView struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	ConsumerName string    `json:"consumer_name"`
	Status       string    `json:"status"`
	Attempts     int       `json:"attempts"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

func toDeadLetterView(d *shared.DeadLetter) deadLetterView {
	return deadLetterView{
		ID:           d.ID.String(),
		EventID:      d.EventID.String(),
		EventType:    d.EventType,
		ConsumerName: d.ConsumerName,
		Status:       string(d.Status),
		Attempts:     d.Attempts,
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
	}
}

func newDeadLettersCommand(rootOpts *RootOptions, open BackendFactory) *cobra.Command {
	opts := &deadLetterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "deadletters",
		Aliases: []string{"dl"},
		Short:   "Inspect and settle events that exhausted their retries",
	}
	cmd.PersistentFlags().StringVar(&opts.Tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkPersistentFlagRequired("tenant")

	cmd.AddCommand(newDeadLettersListCommand(opts, open))
	cmd.AddCommand(newDeadLettersReplayCommand(opts, open))
	cmd.AddCommand(newDeadLettersResolveCommand(opts, open))
	return cmd
}

func newDeadLettersListCommand(opts *deadLetterOptions, open BackendFactory) *cobra.Command {
	var (
		status   string
		consumer string
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dead letters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseUUIDFlag("tenant", opts.Tenant)
			if err != nil {
				return err
			}
			switch shared.DeadLetterStatus(status) {
			case "", shared.DeadLetterOpen, shared.DeadLetterReplayed, shared.DeadLetterResolved:
			default:
				return fmt.Errorf("invalid --status %q: must be open, replayed or resolved", status)
			}

			return withBackend(cmd.Context(), opts.RootOptions, open, func(b *Backend) error {
				result, err := b.DeadLetters.ListDeadLetters(cmd.Context(), shared.DeadLetterFilter{
					TenantID:     tenantID,
					Status:       shared.DeadLetterStatus(status),
					ConsumerName: consumer,
					Page:         page,
					PageSize:     pageSize,
				})
				if err != nil {
					return fmt.Errorf("list dead letters: %w", err)
				}

				views := make([]deadLetterView, 0, len(result.Items))
				for _, d := range result.Items {
					views = append(views, toDeadLetterView(d))
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), map[string]any{
						"items":       views,
						"total":       result.Total,
						"page":        result.Page,
						"total_pages": result.TotalPages,
					})
				}

				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No dead letters.")
					return nil
				}
				tw := newTable(out)
				fmt.Fprintln(tw, "ID\tSTATUS\tCONSUMER\tEVENT TYPE\tATTEMPTS\tERROR")
				for _, v := range views {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", v.ID, v.Status, v.ConsumerName, v.EventType, v.Attempts, v.ErrorMessage)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "page %d of %d, %d total\n", result.Page, result.TotalPages, result.Total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", string(shared.DeadLetterOpen), "filter by status (open|replayed|resolved, empty for all)")
	cmd.Flags().StringVar(&consumer, "consumer", "", "filter by consumer name")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "page size")
	return cmd
}

func newDeadLettersReplayCommand(opts *deadLetterOptions, open BackendFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <id>",
		Short: "Run a dead letter through its consumer again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, id, actorID, err := settleArgs(opts, args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), opts.RootOptions, open, func(b *Backend) error {
				letter, err := b.DeadLetters.ReplayDeadLetter(cmd.Context(), tenantID, id, actorID)
				if err != nil {
					return fmt.Errorf("replay dead letter: %w", err)
				}
				return printDeadLetter(cmd, opts, letter)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "operator user id recorded on the dead letter (required)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newDeadLettersResolveCommand(opts *deadLetterOptions, open BackendFactory) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Close a dead letter without replaying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, id, actorID, err := settleArgs(opts, args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), opts.RootOptions, open, func(b *Backend) error {
				letter, err := b.DeadLetters.ResolveDeadLetter(cmd.Context(), tenantID, id, actorID, note)
				if err != nil {
					return fmt.Errorf("resolve dead letter: %w", err)
				}
				return printDeadLetter(cmd, opts, letter)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "operator user id recorded on the dead letter (required)")
	cmd.Flags().StringVar(&note, "note", "", "resolution note (required)")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

func settleArgs(opts *deadLetterOptions, rawID string) (tenantID, id, actorID uuid.UUID, err error) {
	if tenantID, err = parseUUIDFlag("tenant", opts.Tenant); err != nil {
		return
	}
	if actorID, err = parseUUIDFlag("actor", opts.Actor); err != nil {
		return
	}
	if id, err = parseUUIDFlag("id", rawID); err != nil {
		err = fmt.Errorf("invalid dead letter id %q", rawID)
	}
	return
}

func printDeadLetter(cmd *cobra.Command, opts *deadLetterOptions, letter *shared.DeadLetter) error {
	view := toDeadLetterView(letter)
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), view)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Dead letter %s is now %s\n", view.ID, view.Status)
	return nil
}
