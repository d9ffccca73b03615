package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/migrator"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
)

type runOptions struct {
	source           string
	reset            bool
	yes              bool
	batchSize        int
	progressInterval time.Duration
}

func runCommand(a *app) *cobra.Command {
	opts := runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a migration to completion",
		Long:  "Run migrates every stage of a source until it completes. An interrupted run resumes from the last committed batch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, opts)
		},
	}

	runCmd.Flags().StringVar(&opts.source, "source", "", "Plugin to migrate (affiliate_wp, solid_affiliate, affiliate_manager)")
	runCmd.Flags().BoolVar(&opts.reset, "reset", false, "Delete previously migrated data and start over")
	runCmd.Flags().BoolVar(&opts.yes, "yes", false, "Skip the reset confirmation")
	runCmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Source rows per batch (defaults to migration.batch_size)")
	runCmd.Flags().DurationVar(&opts.progressInterval, "progress-interval", 10*time.Second, "How often progress is printed")
	_ = runCmd.MarkFlagRequired("source")

	return runCmd
}

func (a *app) run(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	provider, err := a.activeProvider(ctx, opts.source)
	if err != nil {
		return err
	}
	src := provider.Source()

	if opts.reset {
		if !opts.yes {
			prompt := fmt.Sprintf("This deletes every migrated affiliate, referral, customer, payout and visit before migrating %s again.", src.DisplayName())
			if !confirm(cmd.InOrStdin(), out, prompt) {
				return errors.New("reset aborted")
			}
		}
		if err := a.store.ResetMigration(ctx, src); err != nil {
			return fmt.Errorf("failed to reset migration: %w", err)
		}
		fmt.Fprintf(out, "Reset %s migration data\n", src.DisplayName())
	}

	status, err := a.store.GetMigrationStatus(ctx, src)
	if err != nil {
		return err
	}
	if status.Completed() {
		fmt.Fprintf(out, "%s migration already completed, use --reset to run it again\n", src.DisplayName())
		return a.printStatistics(cmd, provider)
	}
	if status.RunID == "" {
		now := a.clock.Now().UTC()
		status.RunID = uuid.New().String()
		status.StartedAt = &now
		if _, err := a.store.UpdateMigrationStatus(ctx, src, status, true); err != nil {
			return err
		}
	}

	config := a.engineConfig()
	if opts.batchSize > 0 {
		config.BatchSize = opts.batchSize
	}
	engine := migrator.NewEngine(config, a.store, provider, a.clock, nil)

	fmt.Fprintf(out, "Migrating %s (run %s)\n", src.DisplayName(), status.RunID)
	for !status.Completed() {
		status, err = engine.Run(ctx, opts.progressInterval)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(out, "Interrupted, run again to resume")
			}
			return err
		}
		printProgress(out, status)
	}

	fmt.Fprintln(out, "Migration completed")
	return a.printStatistics(cmd, provider)
}

func (a *app) printStatistics(cmd *cobra.Command, provider source.Provider) error {
	counts, err := provider.Counts(cmd.Context())
	if err != nil {
		return err
	}
	migrated, err := a.store.CountMigrated(cmd.Context())
	if err != nil {
		return err
	}
	return writeStatsTable(cmd.OutOrStdout(), counts, migrated)
}

func printProgress(w io.Writer, status *domain.MigrationStatus) {
	stage := status.CurrentStage
	if stage == domain.StageCompleted {
		fmt.Fprintf(w, "  %-16s\n", stage)
		return
	}
	fmt.Fprintf(w, "  %-16s %d rows\n", stage, status.Cursor(stage))
}
