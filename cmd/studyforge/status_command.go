package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"studyforge/internal/config"
	"studyforge/internal/daemon"
	"studyforge/internal/preflight"
	"studyforge/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and dependency readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()

				held, err := daemon.LockHeld(cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Daemon running: %s\n", yesNo(held))
				fmt.Fprintf(out, "Store:          %s\n\n", st.Path())

				health, err := st.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(out, renderTable(
					[]string{"Pending", "Running", "Completed", "Failed", "Total"},
					[][]string{{
						strconv.Itoa(health.Pending),
						strconv.Itoa(health.Running),
						strconv.Itoa(health.Completed),
						strconv.Itoa(health.Failed),
						strconv.Itoa(health.Total),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
				))

				results := append(preflight.RunAll(cmd.Context(), cfg), preflight.CheckStore(cmd.Context(), st))
				checkRows := make([][]string, 0, len(results))
				for _, r := range results {
					checkRows = append(checkRows, []string{r.Name, passLabel(out, r.Passed), r.Detail})
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, renderTable([]string{"Check", "Result", "Detail"}, checkRows, nil))

				statuses := preflight.CheckSystemDeps(cfg)
				depRows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					detail := s.Path
					if !s.Available {
						detail = s.Detail
					}
					depRows = append(depRows, []string{s.Name, passLabel(out, s.Available), detail, s.Description})
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, renderTable([]string{"Tool", "Found", "Path", "Used for"}, depRows, nil))
				return nil
			})
		},
	}
}
