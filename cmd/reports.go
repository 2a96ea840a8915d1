package cmd

import (
	"fmt"
	"time"

	"mlwh-sync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reportsLimit     int
	reportsFormat    string
	reportsOlderThan time.Duration
)

// reportsCmd is the parent command for archived run reports.
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect run reports archived in object storage",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		reports, err := rt.archive.List(cmd.Context(), reportsLimit)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), reportsFormat, reports)
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Print one archived run summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		var summary reconcile.RunSummary
		if err := rt.archive.Get(cmd.Context(), args[0], &summary); err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), reportsFormat, &summary)
	},
}

var reportsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archived reports older than a duration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportsOlderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		rt, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		cutoff := time.Now().Add(-reportsOlderThan)
		removed, err := rt.archive.Prune(cmd.Context(), cutoff)
		if err != nil {
			return err
		}
		rt.log.Info("Pruned reports", zap.Int("removed", removed), zap.Time("cutoff", cutoff))
		return nil
	},
}

func init() {
	reportsCmd.PersistentFlags().StringVar(&reportsFormat, "format", formatJSON, "Output format (json, yaml)")
	reportsListCmd.Flags().IntVar(&reportsLimit, "limit", 20, "Maximum reports to list (0 for all)")
	reportsPruneCmd.Flags().DurationVar(&reportsOlderThan, "older-than", 30*24*time.Hour, "Age beyond which reports are deleted")

	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd, reportsPruneCmd)
	RootCmd.AddCommand(reportsCmd)
}

func openArchive(cmd *cobra.Command) (*conns, error) {
	if err := checkFormat(reportsFormat); err != nil {
		return nil, err
	}
	rt, err := bootstrap(cmd.Context(), needs{archive: true})
	if err != nil {
		return nil, err
	}
	if rt.archive == nil {
		rt.Close()
		return nil, errArchiveDisabled
	}
	return rt, nil
}
