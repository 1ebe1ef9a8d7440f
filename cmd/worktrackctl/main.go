// Command worktrackctl runs the administrative tasks of worktrack: schema
// migrations, user creation, reports, the receipt inbox and the event tail.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"worktrack/pkg/config"
	"worktrack/pkg/logx"
	"worktrack/pkg/store"
)

// runtime is what every subcommand shares once the root has loaded it.
type runtime struct {
	cfg *config.Config
	log *logx.Logger
}

func (rt *runtime) openDB() (*gorm.DB, error) {
	if rt.cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN not set; export DB_DSN and retry")
	}
	return store.Open(rt.cfg)
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}
	root := &cobra.Command{
		Use:   "worktrackctl",
		Short: "Administrative tasks for the worktrack server",
		Long: `worktrackctl shares its configuration with the server: it reads the same
environment variables and optional .env file.

Examples:
  worktrackctl migrate up
  worktrackctl create-user sam sam@example.com s3cret --hourly-rate 22.5
  worktrackctl report --username sam --month "last month" --list
  worktrackctl inbox --watch`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.log = logx.New(logx.Config{
				Level:     cfg.LogLevel,
				Format:    cfg.LogFormat,
				Component: logx.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
			return nil
		},
	}
	root.AddCommand(
		newMigrateCmd(rt),
		newCreateUserCmd(rt),
		newReportCmd(rt),
		newInboxCmd(rt),
		newEventsCmd(rt),
		newPruneTokensCmd(rt),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
