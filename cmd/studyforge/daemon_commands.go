package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"studyforge/internal/daemonctl"
)

const (
	daemonStartTimeout = 15 * time.Second
	daemonStopGrace    = 20 * time.Second
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the background worker daemon",
	}
	cmd.AddCommand(newDaemonStartCommand(ctx))
	cmd.AddCommand(newDaemonStopCommand(ctx))
	cmd.AddCommand(newDaemonRestartCommand(ctx))
	cmd.AddCommand(newDaemonStatusCommand(ctx))
	return cmd
}

func (c *commandContext) launchOptions(logLevel string) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{ConfigPath: c.configPath(), LogLevel: logLevel}
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start studyforged in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := daemonctl.ResolveExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cfg, exe, ctx.launchOptions(logLevel), daemonStartTimeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.State == daemonctl.StartStateAlreadyRunning {
				fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
				return nil
			}
			fmt.Fprintf(out, "Daemon started (pid %d)\n", result.PID)
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cfg, daemonStopGrace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Daemon did not stop in %s; killed pid %d\n", daemonStopGrace, result.PID)
				return nil
			}
			fmt.Fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}
}

func newDaemonRestartCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop the daemon if running, then start it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := daemonctl.ResolveExecutable()
			if err != nil {
				return err
			}
			if _, err := daemonctl.Stop(cfg, daemonStopGrace); err != nil && !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				return err
			}
			result, err := daemonctl.EnsureStarted(cfg, exe, ctx.launchOptions(logLevel), daemonStartTimeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon restarted (pid %d)\n", result.PID)
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon holds its lock",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			held, err := daemonctl.Running(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !held {
				fmt.Fprintln(out, "Daemon running: no")
				return nil
			}
			pid, err := daemonctl.ReadPID(cfg.PIDPath())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Daemon running: yes (pid %d)\n", pid)
			fmt.Fprintf(out, "Lock file:      %s\n", cfg.LockPath())
			return nil
		},
	}
}
