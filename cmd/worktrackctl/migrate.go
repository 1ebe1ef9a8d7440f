package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"worktrack/pkg/logx"
	"worktrack/pkg/schema"
)

func newMigrateCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := schema.Up(rt.cfg.DBDSN); err != nil {
					return err
				}
				rt.log.Info("Migrations applied", logx.FieldOperation, logx.OpMigrate)
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration (drops all data)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := schema.Down(rt.cfg.DBDSN); err != nil {
					return err
				}
				rt.log.Warn("Migrations rolled back", logx.FieldOperation, logx.OpMigrate)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				v, dirty, err := schema.Version(rt.cfg.DBDSN)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List the embedded migrations and mark the applied ones",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				files, err := schema.Files()
				if err != nil {
					return err
				}
				v, dirty, err := schema.Version(rt.cfg.DBDSN)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatStatus(files, v, dirty))
				return nil
			},
		},
	)
	return cmd
}

// formatStatus prints one line per up migration. Files are named
// NNNNNN_name.up.sql; those at or below version are applied.
func formatStatus(files []string, version uint, dirty bool) string {
	var b strings.Builder
	for _, f := range files {
		if !strings.HasSuffix(f, ".up.sql") {
			continue
		}
		mark := "pending"
		num, _, _ := strings.Cut(f, "_")
		if n, err := strconv.ParseUint(num, 10, 64); err == nil && uint(n) <= version {
			mark = "applied"
			if dirty && uint(n) == version {
				mark = "dirty"
			}
		}
		fmt.Fprintf(&b, "%-8s %s\n", mark, strings.TrimSuffix(f, ".up.sql"))
	}
	return b.String()
}
