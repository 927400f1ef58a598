package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// RunHeadless runs the backend without a window or tray. It prints the UI
// address once the gate resolves and blocks until ctx is cancelled, a
// termination signal arrives, or the backend exits.
func (a *App) RunHeadless(ctx context.Context, out io.Writer) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	a.Start(ctx)
	defer a.Shutdown()

	select {
	case <-a.Ready():
		fmt.Fprintf(out, "LabCV is available at %s\n", a.URL())
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
		return nil
	case <-ctx.Done():
		return nil
	}

	return a.wait(ctx, sigCh)
}

func (a *App) wait(ctx context.Context, sigCh <-chan os.Signal) error {
	h := a.process()
	if h == nil {
		return errors.New("backend failed to start")
	}

	select {
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	case <-ctx.Done():
	case <-h.Done():
		code, _ := h.ExitCode()
		return fmt.Errorf("backend exited with code %d", code)
	}
	return nil
}

func (a *App) process() Process {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.backend
}
