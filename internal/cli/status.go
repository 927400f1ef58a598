package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/labcv/labcv-desktop/internal/config"
	"github.com/labcv/labcv-desktop/internal/readiness"
)

const statusProbeTimeout = 2 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether LabCV and its backend are running",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	running, info, err := config.IsInstanceRunning()
	if err != nil {
		return fmt.Errorf("failed to check instance status: %w", err)
	}

	out := cmd.OutOrStdout()
	if !running || info == nil {
		fmt.Fprintln(out, styleHint.Render("LabCV is not running."))
		return nil
	}

	uptime := time.Since(info.StartedAt).Truncate(time.Second)

	fmt.Fprintln(out, styleSuccess.Render("LabCV is running."))
	fmt.Fprintf(out, "  %s %s\n", styleLabel.Render("URL:       "), styleValue.Render(info.URL()))
	fmt.Fprintf(out, "  %s %s\n", styleLabel.Render("PID:       "), styleValue.Render(fmt.Sprint(info.PID)))
	if info.BackendPID != 0 {
		fmt.Fprintf(out, "  %s %s\n", styleLabel.Render("Backend:   "), styleValue.Render(fmt.Sprint(info.BackendPID)))
	}
	fmt.Fprintf(out, "  %s %s\n", styleLabel.Render("Uptime:    "), styleValue.Render(uptime.String()))

	ctx, cancel := context.WithTimeout(cmd.Context(), statusProbeTimeout)
	defer cancel()
	if err := readiness.NewHTTPProber().Probe(ctx, info.URL()); err != nil {
		fmt.Fprintf(out, "  %s %s\n", styleLabel.Render("Readiness: "), styleWarning.Render("not responding"))
		return nil
	}
	fmt.Fprintf(out, "  %s %s\n", styleLabel.Render("Readiness: "), styleSuccess.Render("ready"))
	return nil
}
