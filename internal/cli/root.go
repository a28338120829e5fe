package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/dafibh/revledger/revledger-backend/internal/logger"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

// RevenueAdmin is the reporting and maintenance surface used by the CLI
type RevenueAdmin interface {
	RecomputePeriod(ctx context.Context, period string) (*domain.RevenueAggregate, error)
	DeleteRevenue(ctx context.Context, period string) error
	GetRevenueStatistics(ctx context.Context, months int) (*domain.RevenueStatistics, error)
	GetCoverageReport(ctx context.Context, months int) (*domain.CoverageReport, error)
}

// EventApplier applies an invoice event to the ledger
type EventApplier interface {
	Handle(ctx context.Context, event domain.InvoiceEvent) domain.EventResult
}

// DeadLetterArchive reads archived dead letters
type DeadLetterArchive interface {
	List(ctx context.Context, day time.Time) ([]string, error)
	Get(ctx context.Context, key string) (*domain.DeadLetter, error)
}

// EventPublisher republishes invoice events to the queue
type EventPublisher interface {
	PublishInvoiceEvent(ctx context.Context, event domain.InvoiceEvent) error
}

// ClaimPurger removes expired idempotency claims
type ClaimPurger interface {
	PurgeOlderThan(ctx context.Context, ttl time.Duration) (int64, error)
}

// App holds the dependencies of a CLI invocation. Optional members are nil
// when the matching backend is not configured.
type App struct {
	Revenues    RevenueAdmin
	Events      EventApplier
	DeadLetters DeadLetterArchive
	Publisher   EventPublisher
	Claims      ClaimPurger
	ClaimTTL    time.Duration
}

// Loader builds the App for one command run. The returned cleanup func is
// called after the command finishes.
type Loader func(ctx context.Context) (*App, func(), error)

// NewRootCommand creates the revctl command tree
func NewRootCommand(load Loader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "revctl",
		Short: "Administer the revenue ledger",
		Long: `revctl inspects and repairs the monthly revenue aggregates kept by the
revenue ledger service.

It reads the same environment as the API server (DATABASE_URL, AMQP_URL,
DEADLETTER_S3_BUCKET, ...).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runner := &runner{load: load}

	rootCmd.AddCommand(
		newRecomputeCommand(runner),
		newDeleteCommand(runner),
		newStatsCommand(runner),
		newCoverageCommand(runner),
		newDeadLettersCommand(runner),
		newPurgeClaimsCommand(runner),
	)
	return rootCmd
}

// Execute runs the command tree and reports failures through the logger
func Execute(ctx context.Context, rootCmd *cobra.Command) error {
	log := logger.WithComponent("revctl")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		return err
	}
	return nil
}

type runner struct {
	load Loader
}

// with loads the App, runs fn and releases the dependencies
func (r *runner) with(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, cleanup, err := r.load(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	return fn(ctx, app)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
