package main

import (
	"github.com/spf13/cobra"

	"worktrack/pkg/store"
	"worktrack/process/report"
)

func newReportCmd(rt *runtime) *cobra.Command {
	var (
		username string
		month    string
		list     bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a monthly work and money report for a user",
		Long: `Print worked, scheduled and skipped days together with income and
expenses for one month. --month accepts YYYY-MM or phrases such as
"last month" or "March 2024".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer store.Close(db)
			return report.Run(cmd.Context(), db, cmd.OutOrStdout(), username, month, list)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username to report for")
	cmd.Flags().StringVarP(&month, "month", "m", "", "month to report (default: current month)")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list the month's transactions")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
