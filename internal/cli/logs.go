package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/labcv/labcv-desktop/internal/config"
	"github.com/labcv/labcv-desktop/internal/watcher"
)

var (
	logsList   bool
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the newest diagnostic log",
	Long: `Print the diagnostic log of the most recent LabCV session, including
everything the backend wrote to stdout and stderr.`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsList, "list", "l", false, "List session logs instead of printing the newest")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep printing the newest log as it grows")
}

func runLogs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if logsList {
		logs, err := config.ListLogs()
		if err != nil {
			return fmt.Errorf("failed to list logs: %w", err)
		}
		if len(logs) == 0 {
			fmt.Fprintln(out, styleHint.Render("No logs yet."))
			return nil
		}
		for _, l := range logs {
			fmt.Fprintf(out, "%s  %s  %s\n",
				styleValue.Render(l.StartedAt.Local().Format("2006-01-02 15:04:05")),
				styleLabel.Render(l.SessionID),
				styleHint.Render(formatSize(l.Size)),
			)
		}
		return nil
	}

	if logsFollow {
		return followLatest(cmd, out)
	}

	entry, content, err := config.ReadLatestLog()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, styleLabel.Render("# "+entry.Path))
	fmt.Fprint(out, content)
	return nil
}

func followLatest(cmd *cobra.Command, out io.Writer) error {
	logs, err := config.ListLogs()
	if err != nil {
		return fmt.Errorf("failed to list logs: %w", err)
	}
	if len(logs) == 0 {
		return fmt.Errorf("no logs found")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(out, styleLabel.Render("# "+logs[0].Path))
	err = watcher.Follow(ctx, logs[0].Path, out)
	if errors.Is(err, watcher.ErrRemoved) {
		fmt.Fprintln(out, styleHint.Render("Log file was removed."))
		return nil
	}
	return err
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
