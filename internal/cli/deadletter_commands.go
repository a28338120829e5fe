package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/dafibh/revledger/revledger-backend/internal/logger"
	"github.com/spf13/cobra"
)

func newDeadLettersCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deadletters",
		Aliases: []string{"dlq"},
		Short:   "Inspect and replay archived dead letters",
	}
	cmd.AddCommand(
		newDeadLettersListCommand(r),
		newDeadLettersShowCommand(r),
		newDeadLettersReplayCommand(r),
	)
	return cmd
}

func newDeadLettersListCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List dead letters archived on one day",
		Example: `  revctl deadletters list --day 2025-03-14`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dayFlag, _ := cmd.Flags().GetString("day")
			day := time.Now().UTC()
			if dayFlag != "" {
				parsed, err := time.Parse("2006-01-02", dayFlag)
				if err != nil {
					return fmt.Errorf("invalid day format. Use YYYY-MM-DD: %w", err)
				}
				day = parsed
			}

			return r.with(cmd, func(ctx context.Context, app *App) error {
				if app.DeadLetters == nil {
					return errArchiveNotConfigured
				}
				keys, err := app.DeadLetters.List(ctx, day)
				if err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("day", "", "Day to list (format: YYYY-MM-DD, default: today)")
	return cmd
}

func newDeadLettersShowCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Print one archived dead letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App) error {
				if app.DeadLetters == nil {
					return errArchiveNotConfigured
				}
				letter, err := app.DeadLetters.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), letter)
			})
		},
	}
}

func newDeadLettersReplayCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <key>...",
		Short: "Apply archived events again",
		Long: `Replay feeds archived events back into the ledger. By default the events
are applied in-process; with --publish they are sent to the invoice event
exchange instead and picked up by the running consumers.`,
		Example: `  revctl deadletters replay dead-letters/2025/03/14/101500_evt-1.json
  revctl dlq replay --publish dead-letters/2025/03/14/101500_evt-1.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			publish, _ := cmd.Flags().GetBool("publish")
			return r.with(cmd, func(ctx context.Context, app *App) error {
				if app.DeadLetters == nil {
					return errArchiveNotConfigured
				}
				if publish && app.Publisher == nil {
					return fmt.Errorf("--publish requires AMQP_URL")
				}
				return replay(ctx, cmd, app, args, publish)
			})
		},
	}
	cmd.Flags().Bool("publish", false, "Republish to the queue instead of applying in-process")
	return cmd
}

func replay(ctx context.Context, cmd *cobra.Command, app *App, keys []string, publish bool) error {
	log := logger.WithComponent("replay")
	failed := 0

	for _, key := range keys {
		letter, err := app.DeadLetters.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("load %s: %w", key, err)
		}

		if publish {
			if err := app.Publisher.PublishInvoiceEvent(ctx, letter.Event); err != nil {
				return fmt.Errorf("publish %s: %w", key, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tpublished\n", key)
			continue
		}

		result := app.Events.Handle(ctx, letter.Event)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key, result.Outcome)

		switch result.Outcome {
		case domain.OutcomeFailed, domain.OutcomeDropped:
			failed++
			log.Warn().
				Str("key", key).
				Str("event_id", letter.EventID).
				Str("error", result.Error).
				Msg("Replayed event failed again")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d events failed", failed, len(keys))
	}
	return nil
}

var errArchiveNotConfigured = errors.New("dead-letter archive not configured: set DEADLETTER_S3_BUCKET")
