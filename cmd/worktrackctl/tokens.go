package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"worktrack/pkg/accounts"
	"worktrack/pkg/store"
)

func newPruneTokensCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-tokens",
		Short: "Delete expired and revoked refresh tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer store.Close(db)
			n, err := accounts.NewService(db, rt.cfg.BcryptCost, rt.cfg.RefreshTokenTTL).Prune(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d refresh tokens\n", n)
			return nil
		},
	}
}
