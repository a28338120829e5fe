package cli

import (
	"context"
	"fmt"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/dafibh/revledger/revledger-backend/internal/logger"
	"github.com/spf13/cobra"
)

func newRecomputeCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <period>",
		Short: "Rebuild one period from the invoice store",
		Long: `Recompute replaces the totals of a period with sums over the invoices
stored for that month. The aggregate is marked as manually recomputed.`,
		Example: `  revctl recompute 2025-03`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App) error {
				log := logger.WithComponent("recompute")

				aggregate, err := app.Revenues.RecomputePeriod(ctx, args[0])
				if err != nil {
					return fmt.Errorf("recompute %s: %w", args[0], err)
				}

				log.Info().
					Str("period", domain.FormatPeriod(aggregate.Period)).
					Int64("invoice_count", aggregate.InvoiceCount).
					Int64("total_amount", aggregate.TotalAmount).
					Msg("Period recomputed")
				return printJSON(cmd.OutOrStdout(), aggregate)
			})
		},
	}
}

func newDeleteCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <period>",
		Short:   "Remove the stored aggregate of one period",
		Example: `  revctl delete 2024-11 --yes`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmed, _ := cmd.Flags().GetBool("yes")
			if !confirmed {
				return fmt.Errorf("refusing to delete %s without --yes", args[0])
			}
			return r.with(cmd, func(ctx context.Context, app *App) error {
				if err := app.Revenues.DeleteRevenue(ctx, args[0]); err != nil {
					return fmt.Errorf("delete %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm the deletion")
	return cmd
}

func newStatsCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print revenue statistics for a rolling window",
		RunE: func(cmd *cobra.Command, args []string) error {
			months, _ := cmd.Flags().GetInt("months")
			return r.with(cmd, func(ctx context.Context, app *App) error {
				stats, err := app.Revenues.GetRevenueStatistics(ctx, months)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
	cmd.Flags().Int("months", domain.DefaultRollingMonths, "Window length in months")
	return cmd
}

func newCoverageCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Check stored periods of a rolling window",
		Long: `Coverage compares the stored periods against the expected rolling window
and exits non-zero when duplicates, malformed periods, unexpected periods or
bad totals are found. Missing months are reported but not fatal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			months, _ := cmd.Flags().GetInt("months")
			return r.with(cmd, func(ctx context.Context, app *App) error {
				report, err := app.Revenues.GetCoverageReport(ctx, months)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if !report.Healthy() {
					return fmt.Errorf("coverage check failed")
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("months", domain.DefaultRollingMonths, "Window length in months")
	return cmd
}

func newPurgeClaimsCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge-claims",
		Short: "Delete processed-event claims older than the idempotency TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, app *App) error {
				if app.Claims == nil {
					return fmt.Errorf("purge-claims requires IDEMPOTENCY_BACKEND=postgres")
				}
				ttl, _ := cmd.Flags().GetDuration("ttl")
				if ttl <= 0 {
					ttl = app.ClaimTTL
				}
				removed, err := app.Claims.PurgeOlderThan(ctx, ttl)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d claims\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().Duration("ttl", 0, "Claim age to keep (default IDEMPOTENCY_TTL)")
	return cmd
}
