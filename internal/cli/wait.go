package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/labcv/labcv-desktop/internal/config"
	"github.com/labcv/labcv-desktop/internal/logging"
)

var (
	waitPort    string
	waitTimeout time.Duration
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until the backend answers on its port",
	Long: `Poll the backend every 200ms until it answers an HTTP request or the
timeout expires. Exits non-zero on timeout.`,
	Args: cobra.NoArgs,
	RunE: runWait,
}

func init() {
	waitCmd.Flags().StringVar(&waitPort, "port", "", "Backend port (default from settings or FLASK_PORT)")
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "How long to wait (default from settings, 30s)")
}

func runWait(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := applyFlags(settings, runFlags{port: waitPort, readyTimeout: waitTimeout}); err != nil {
		return err
	}

	log := logging.New(logging.Options{Console: os.Stderr, Verbose: verbose})
	gate := newGate(settings, log)

	port := settings.Backend.Port
	if err := gate.Wait(cmd.Context(), port, readyTimeout(settings)); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), styleError.Render("Backend is not ready."))
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styleSuccess.Render("Backend ready at"), styleValue.Render(gate.URL(port)))
	return nil
}
