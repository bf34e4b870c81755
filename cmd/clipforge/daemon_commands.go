package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/daemon"
	"clipforge/internal/daemonctl"
	"clipforge/internal/daemonrun"
	"clipforge/internal/deps"
	"clipforge/internal/preflight"
	"clipforge/internal/queue"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the clipforge daemon",
	}

	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))

	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the clipforge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}

			if ctx.daemonRunning() {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}

			fmt.Fprintln(stdout, "Daemon not running, launching...")
			if err := daemonctl.Launch(exe, ctx.configPath()); err != nil {
				return err
			}

			client, err := ctx.dialClient()
			if err != nil {
				return err
			}
			if err := client.WaitForAPI(cmd.Context(), 10*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the clipforge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			pid, err := daemonctl.ReadPID(cfg)
			if err != nil {
				return err
			}
			if pid == 0 || !daemonctl.ProcessRunning(pid) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}

			fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", pid)
			if err := daemonctl.StopProcess(pid, 10*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusError
				if result.Passed {
					kind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(preflight.CheckSystemDeps(cmd.Context(), cfg), colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}

			var queueStats map[string]int
			if ctx.daemonRunning() {
				client, err := ctx.dialClient()
				if err != nil {
					return err
				}
				status, err := client.Status(cmd.Context())
				if err != nil {
					return wrapAPIError(err)
				}
				printDaemonStatus(stdout, status, colorize)
				queueStats = status.QueueStats
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not running (start with `clipforge daemon start`)", colorize))
				stats, err := withDirectStats(cmd, ctx)
				if err != nil {
					return err
				}
				queueStats = stats
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Queue Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildQueueStatusRows(queueStats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:    "run",
		Short:  "Run the daemon in the foreground",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: cfg.Logging.Level,
			})
		},
	}
}

func printDaemonStatus(out io.Writer, status *daemon.StatusResponse, colorize bool) {
	fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	fmt.Fprintln(out, renderStatusLine("Queue database", statusInfo, status.QueueDBPath, colorize))
	if status.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, status.LastError, colorize))
	}
	for _, stage := range status.Stages {
		kind := statusOK
		message := "Ready"
		if !stage.Ready {
			kind = statusError
			message = stage.Detail
			if message == "" {
				message = "not ready"
			}
		}
		fmt.Fprintln(out, renderStatusLine("Stage "+stage.Name, kind, message, colorize))
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func withDirectStats(cmd *cobra.Command, ctx *commandContext) (map[string]int, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	raw, err := store.Stats(cmd.Context())
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int, len(raw))
	for status, count := range raw {
		stats[string(status)] = count
	}
	return stats, nil
}
