package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"studyforge/internal/config"
	"studyforge/internal/daemonrun"
	"studyforge/internal/runner"
	"studyforge/internal/store"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued jobs in the foreground",
		Long: "Run the job loop in this process until interrupted. With --once, claim and\n" +
			"process at most one job and exit non-zero if it failed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, closeLogger, err := ctx.logger(cmd, cfg)
				if err != nil {
					return err
				}
				defer closeLogger()

				registry, err := daemonrun.BuildRegistry(cmd.Context(), cfg, st, logger)
				if err != nil {
					return err
				}
				r := runner.New(cfg, st, registry, logger)
				out := cmd.OutOrStdout()

				if once {
					outcome, err := r.RunOnce(cmd.Context())
					if err != nil {
						return err
					}
					if outcome == nil {
						fmt.Fprintln(out, "No pending jobs")
						return nil
					}
					fmt.Fprintf(out, "Job %s (%s) %s in %s\n", outcome.JobID, outcome.Type, statusLabel(out, outcome.Status), outcome.Duration.Round(time.Millisecond))
					if outcome.Status == store.StatusFailed {
						return fmt.Errorf("job %s failed: %s", outcome.JobID, outcome.Message)
					}
					return nil
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				if err := r.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(out, "Worker %s processing jobs (Ctrl+C to stop)\n", r.WorkerID())
				<-runCtx.Done()
				r.Stop()
				fmt.Fprintln(out, "Worker stopped")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Process at most one job and exit")
	return cmd
}
