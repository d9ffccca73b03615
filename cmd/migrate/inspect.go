package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-affiliate-migrator/internal/api/shared/dto"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/migrator"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
)

func statusCommand(a *app) *cobra.Command {
	var sourceFlag string

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the progress document of a source",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := domain.ParseSource(sourceFlag)
			if err != nil {
				return err
			}
			status, err := a.store.GetMigrationStatus(cmd.Context(), src)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(dto.NewMigrationStatusResponse(src, status))
		},
	}

	statusCmd.Flags().StringVar(&sourceFlag, "source", "", "Plugin to inspect")
	_ = statusCmd.MarkFlagRequired("source")

	return statusCmd
}

func statsCommand(a *app) *cobra.Command {
	var sourceFlag string

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Compare legacy row counts with migrated row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var providers []source.Provider
			if sourceFlag != "" {
				provider, err := a.activeProvider(cmd.Context(), sourceFlag)
				if err != nil {
					return err
				}
				providers = append(providers, provider)
			} else {
				for _, provider := range a.registry.All() {
					active, err := provider.Detect(cmd.Context())
					if err != nil {
						return err
					}
					if active {
						providers = append(providers, provider)
					}
				}
			}

			if len(providers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No supported affiliate plugin is active")
				return nil
			}

			for _, provider := range providers {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", provider.Source().DisplayName())
				if err := a.printStatistics(cmd, provider); err != nil {
					return err
				}
			}
			return nil
		},
	}

	statsCmd.Flags().StringVar(&sourceFlag, "source", "", "Plugin to inspect, every active plugin when empty")

	return statsCmd
}

func recountCommand(a *app) *cobra.Command {
	recountCmd := &cobra.Command{
		Use:   "recount",
		Short: "Recompute earnings and counters of every migrated affiliate",
		RunE: func(cmd *cobra.Command, args []string) error {
			recounter := migrator.NewRecounter(a.store, a.clock, a.migration.RecountChunkSize, a.migration.Workers, nil)
			n, err := recounter.RecountAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("recount stopped after %d affiliates: %w", n, err)
			}
			if err := a.store.RecountPayoutTotals(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recounted %d affiliates\n", n)
			return nil
		},
	}

	return recountCmd
}
