package commands

import (
	"github.com/spf13/cobra"
)

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the operations a sync would perform without applying them",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runSync(cmd.Context(), true)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}
