package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"worktrack/pkg/accounts"
	"worktrack/pkg/store"
)

func newCreateUserCmd(rt *runtime) *cobra.Command {
	var hourlyRate float64
	cmd := &cobra.Command{
		Use:   "create-user <username> <email> <password>",
		Short: "Create a user with the default weekly schedule",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := accounts.Registration{Username: args[0], Email: args[1], Password: args[2]}
			if cmd.Flags().Changed("hourly-rate") {
				reg.HourlyRate = &hourlyRate
			}
			if err := reg.Validate(); err != nil {
				return err
			}

			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer store.Close(db)

			svc := accounts.NewService(db, rt.cfg.BcryptCost, rt.cfg.RefreshTokenTTL)
			user, err := svc.Register(cmd.Context(), reg)
			if errors.Is(err, accounts.ErrUserExists) {
				if existing, ferr := svc.FindByUsername(cmd.Context(), reg.Username); ferr == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "user %s already exists id=%d\n", existing.Username, existing.ID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s or email %s already exists\n", args[0], args[1])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s id=%d\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().Float64Var(&hourlyRate, "hourly-rate", 0, "hourly rate (defaults to the server default)")
	return cmd
}
