// Package readiness waits for the backend's HTTP endpoint to answer.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/labcv/labcv-desktop/internal/logging"
)

// Defaults for Gate.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultInterval = 200 * time.Millisecond
	DefaultHost     = "127.0.0.1"
)

// ErrTimedOut is returned when the backend did not answer before the deadline.
var ErrTimedOut = errors.New("timed out waiting for backend")

// Clock supplies time to the gate. Sleep returns early with ctx.Err() when
// the context is cancelled.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Prober makes a single readiness attempt against url. A nil error means the
// backend answered.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

// Gate polls the backend on a fixed cadence until it answers or the timeout
// elapses. Exactly one probe is in flight at a time.
type Gate struct {
	Prober   Prober
	Clock    Clock
	Interval time.Duration
	Host     string
	Logger   zerolog.Logger
}

// New returns a gate using HTTP probes and the real clock.
func New(log zerolog.Logger) *Gate {
	return &Gate{
		Prober:   NewHTTPProber(),
		Clock:    RealClock{},
		Interval: DefaultInterval,
		Host:     DefaultHost,
		Logger:   logging.Component(log, "readiness"),
	}
}

// URL returns the address probed for port.
func (g *Gate) URL(port string) string {
	host := g.Host
	if host == "" {
		host = DefaultHost
	}
	return fmt.Sprintf("http://%s:%s/", host, port)
}

// Wait blocks until the backend on port answers or timeout elapses. Any
// response counts as ready, whatever its status. A timeout ≤ 0 means
// DefaultTimeout. At least one probe is always made.
//
// Returns nil when ready, an error wrapping ErrTimedOut on timeout, or
// ctx.Err() if ctx is cancelled first.
func (g *Gate) Wait(ctx context.Context, port string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := g.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clock := g.Clock
	if clock == nil {
		clock = RealClock{}
	}
	prober := g.Prober
	if prober == nil {
		prober = NewHTTPProber()
	}

	url := g.URL(port)
	start := clock.Now()
	attempts := 0

	for {
		attempts++
		budget := timeout - clock.Now().Sub(start)
		if budget < interval {
			// The last retry lands on the deadline and still gets a full request.
			budget = interval
		}
		err := g.probe(ctx, prober, url, budget)
		if err == nil {
			g.Logger.Info().
				Str("url", url).
				Int("attempts", attempts).
				Dur("elapsed", clock.Now().Sub(start)).
				Msg("Backend is ready")
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		g.Logger.Debug().Err(err).Int("attempt", attempts).Msg("Backend not ready yet")

		elapsed := clock.Now().Sub(start)
		if elapsed >= timeout {
			return fmt.Errorf("%w on port %s after %v (%d attempts): %v", ErrTimedOut, port, elapsed.Round(time.Millisecond), attempts, err)
		}

		pause := interval
		if left := timeout - elapsed; left < pause {
			pause = left
		}
		if err := clock.Sleep(ctx, pause); err != nil {
			return err
		}
	}
}

// probe bounds a single attempt by budget so a hanging connection cannot
// hold up the loop.
func (g *Gate) probe(ctx context.Context, prober Prober, url string, budget time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return prober.Probe(attemptCtx, url)
}

// RealClock is the wall clock.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time {
	return time.Now()
}

// Sleep pauses for d or until ctx is done.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
