package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewDaemonCommand creates the daemon command.
func NewDaemonCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled recovery and export jobs",
		Long: `Run the scheduler until interrupted. Jobs come from the schedule
section of the config (cron syntax with optional seconds, or @every/@daily):

  schedule:
    recover: "@every 1m"
    export: "0 0 23 * * *"

Example:
  offpos daemon --config ./offpos.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				ctx, cancel := context.WithCancel(s.ctx)
				defer cancel()

				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
				defer signal.Stop(sigChan)

				go func() {
					select {
					case sig := <-sigChan:
						s.log.Info("received signal, shutting down", zap.Stringer("signal", sig))
						cancel()
					case <-ctx.Done():
					}
				}()

				if rootOpts.Format != "json" {
					fmt.Fprintln(s.out.Writer, "Scheduler started. Press Ctrl-C to stop.")
				}
				if err := s.app.Run(ctx); err != nil {
					return s.out.Fail("scheduler failed", err)
				}
				s.log.Info("scheduler stopped")
				return nil
			})
		},
	}
}
