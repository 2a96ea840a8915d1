package cmd

import (
	"errors"
	"fmt"

	"mlwh-sync/feature/integrity"
	"mlwh-sync/feature/platforms"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	checkPlatforms []string
	checkFix       bool
	checkOutput   string
)

var errChecksFailed = errors.New("integrity checks failed")

// checkCmd verifies the warehouse schema, the target store and the archive.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the warehouse schema and the sync's dependencies",
	Long: `Compares the warehouse schema with the tables and columns each platform
query reads, pings the target store and checks the report bucket.
Exits non-zero when any check fails.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringSliceVar(&checkPlatforms, "platform", nil, "Limit the schema check to these platforms")
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "Create the report bucket if it is missing")
	checkCmd.Flags().StringVar(&checkOutput, "format", formatJSON, "Report format (json, yaml)")

	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := checkFormat(checkOutput); err != nil {
		return err
	}
	adapters, err := platforms.Select(checkPlatforms)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	rt, err := bootstrap(ctx, needs{warehouse: true, target: true, archive: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	svc := integrity.NewService(rt.warehouse, platforms.Tables(adapters), rt.target.Store, rt.archive, rt.log)
	if checkFix {
		if _, err := svc.CheckArchive(ctx, true); err != nil && !errors.Is(err, integrity.ErrNotConfigured) {
			rt.log.Error("Archive fix failed", zap.Error(err))
		}
	}

	report := svc.CheckAll(ctx)
	if err := writeOutput(cmd.OutOrStdout(), checkOutput, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if !report.OK() {
		return errChecksFailed
	}
	return nil
}
