package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Reconcile the Uptime Robot account to match the declaration",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runSync(cmd.Context(), false)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if !report.OK() {
				return fmt.Errorf("sync incomplete: %d operations failed, %d skipped",
					len(report.Failed), len(report.Skipped))
			}
			return nil
		},
	}
}
