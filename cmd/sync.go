package cmd

import (
	"errors"
	"fmt"

	"mlwh-sync/core/target"
	syncfeature "mlwh-sync/feature/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncPlatforms      []string
	syncStudies        []string
	syncDryRun         bool
	syncForceRegressed bool
	syncFormat         string
)

// syncCmd runs one reconciliation from the warehouse into the target store.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync sequencing data from the warehouse into ToLQC",
	Long: `Extracts every configured platform, classifies each data product against
the target store and writes the new and changed ones.

The run summary is printed to stdout. The command exits non-zero when a
platform failed to extract or look up, or when a write failed after retries.

Examples:
  # Classify only
  sync --dry-run

  # One platform, one study
  sync --platform pacbio --study 5901

  # Also apply updates that would downgrade a recorded QC verdict
  sync --force-regressed --format yaml`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncPlatforms, "platform", nil, "Platform to sync (repeatable: illumina, pacbio, ont)")
	syncCmd.Flags().StringSliceVar(&syncStudies, "study", nil, "Study id to sync (repeatable)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Classify without writing")
	syncCmd.Flags().BoolVar(&syncForceRegressed, "force-regressed", false, "Apply updates that regress a QC verdict")
	syncCmd.Flags().StringVar(&syncFormat, "format", formatJSON, "Summary format (json, yaml)")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := checkFormat(syncFormat); err != nil {
		return err
	}
	ctx := cmd.Context()

	rt, err := bootstrap(ctx, needs{warehouse: true, target: true, archive: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	svc := syncfeature.NewService(syncfeature.Deps{
		Warehouse: rt.warehouse,
		Target:    rt.target,
		Defaults:  rt.cfg.Sync,
		Archive:   rt.archive,
		Logger:    rt.log,
	})

	summary, _, err := svc.Run(ctx, syncfeature.Request{
		Platforms:      syncPlatforms,
		Studies:        syncStudies,
		DryRun:         syncDryRun,
		ForceRegressed: syncForceRegressed,
	})
	if errors.Is(err, target.ErrNoStudies) {
		rt.log.Info("Nothing to sync", zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if err := writeOutput(cmd.OutOrStdout(), syncFormat, summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if summary.DryRun {
		rt.log.Info("Dry-run mode: No changes were made.")
	}
	return summary.Err()
}
