package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/polydocs-mcp/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var follow bool
	var lines int
	var level string
	var filter string
	var noColor bool
	var logFile string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the polydocs server log",
		Long: `View and tail the polydocs server log (written when the server runs
over stdio, or whenever --debug is passed). By default shows the last 50
lines; use -f to follow new entries in real time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, follow, lines, level, filter, noColor, logFile)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&level, "level", "", "Filter by log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&filter, "filter", "", "Filter by pattern (regex)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&logFile, "file", "", "Path to log file (overrides the default location)")

	return cmd
}

func runLogs(cmd *cobra.Command, follow bool, lines int, level, filter string, noColor bool, logFile string) error {
	path, err := logging.FindLogFile(logFile)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if filter != "" {
		pattern, err = regexp.Compile(filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   level,
		Pattern: pattern,
		NoColor: noColor,
	}, cmd.OutOrStdout())

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "Log file: %s\n", path)
	if follow {
		fmt.Fprintln(errOut, "Following... (Ctrl+C to stop)")
	}
	fmt.Fprintln(errOut, "---")

	if !follow {
		entries, err := viewer.Tail(path, lines)
		if err != nil {
			return err
		}
		viewer.Print(entries)
		return nil
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() { errCh <- viewer.Follow(ctx, path, entries) }()

	for {
		select {
		case entry := <-entries:
			fmt.Fprintln(cmd.OutOrStdout(), viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			fmt.Fprintln(errOut, "Stopped.")
			return nil
		}
	}
}
