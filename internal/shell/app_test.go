package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/labcv/labcv-desktop/internal/readiness"
	"github.com/labcv/labcv-desktop/internal/supervisor"
)

type fakeProcess struct {
	pid  int
	code int
	err  error
	done chan struct{}
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, done: make(chan struct{})}
}

func (p *fakeProcess) PID() int              { return p.pid }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) ExitCode() (int, bool) {
	select {
	case <-p.done:
		return p.code, true
	default:
		return 0, false
	}
}

func (p *fakeProcess) ExitErr() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *fakeProcess) exit(code int) {
	p.code = code
	if code != 0 {
		p.err = fmt.Errorf("exit status %d", code)
	}
	close(p.done)
}

type fakeBackend struct {
	mu       sync.Mutex
	proc     *fakeProcess
	startErr error
	starts   int
	stops    int
}

func (b *fakeBackend) Start(cfg supervisor.Config) (Process, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts++
	if b.startErr != nil {
		return nil, b.startErr
	}
	return b.proc, nil
}

func (b *fakeBackend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
}

func (b *fakeBackend) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.proc != nil && b.stops == 0
}

func (b *fakeBackend) stopCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stops
}

// fakeGate blocks Wait until release receives a result.
type fakeGate struct {
	release chan error
}

func (g *fakeGate) Wait(ctx context.Context, port string, timeout time.Duration) error {
	select {
	case err := <-g.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *fakeGate) URL(port string) string {
	return "http://127.0.0.1:" + port + "/"
}

type fakeWindow struct {
	mu     sync.Mutex
	loads  []string
	events []string
	closed bool
	done   chan struct{}
	loaded chan struct{}
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{done: make(chan struct{}), loaded: make(chan struct{}, 8)}
}

func (w *fakeWindow) Load(url string) error {
	w.mu.Lock()
	w.loads = append(w.loads, url)
	w.events = append(w.events, "load")
	w.mu.Unlock()
	w.loaded <- struct{}{}
	return nil
}

func (w *fakeWindow) Show() error { w.record("show"); return nil }
func (w *fakeWindow) Hide() error { w.record("hide"); return nil }

func (w *fakeWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.events = append(w.events, "close")
	return nil
}

func (w *fakeWindow) Done() <-chan struct{} { return w.done }

func (w *fakeWindow) record(ev string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
}

func (w *fakeWindow) snapshot() ([]string, []string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.loads...), append([]string(nil), w.events...), w.closed
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type statusRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *statusRecorder) set(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
}

func (r *statusRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return ""
	}
	return r.lines[len(r.lines)-1]
}

type harness struct {
	app     *App
	backend *fakeBackend
	gate    *fakeGate
	opened  []*fakeWindow
	status  *statusRecorder
	logs    *logBuffer
	mu      sync.Mutex

	started   []Process
	shutdowns int
	uiQuits   int
}

func newHarness(t *testing.T, startErr error) *harness {
	t.Helper()
	h := &harness{
		backend: &fakeBackend{proc: newFakeProcess(4242), startErr: startErr},
		gate:    &fakeGate{release: make(chan error, 1)},
		status:  &statusRecorder{},
		logs:    &logBuffer{},
	}
	h.app = New(Options{
		Backend:       h.backend,
		BackendConfig: supervisor.Config{Port: "5123"},
		Gate:          h.gate,
		ReadyTimeout:  time.Second,
		OpenWindow:    h.openWindow,
		Logger:        zerolog.New(h.logs),
		OnStatus:      h.status.set,
		OnBackendStarted: func(p Process) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.started = append(h.started, p)
		},
		OnShutdown: func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.shutdowns++
		},
		QuitUI: func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.uiQuits++
		},
	})
	t.Cleanup(h.app.Shutdown)
	return h
}

func (h *harness) openWindow() (Window, error) {
	w := newFakeWindow()
	h.mu.Lock()
	h.opened = append(h.opened, w)
	h.mu.Unlock()
	return w, nil
}

func (h *harness) window(t *testing.T, i int) *fakeWindow {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if i >= len(h.opened) {
		t.Fatalf("window %d was never opened (opened %d)", i, len(h.opened))
	}
	return h.opened[i]
}

func (h *harness) windowCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.opened)
}

func waitLoaded(t *testing.T, w *fakeWindow) {
	t.Helper()
	select {
	case <-w.loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("window was never loaded")
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartLoadsURLOnlyAfterGate(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start(context.Background())

	w := h.window(t, 0)
	if loads, _, _ := w.snapshot(); len(loads) != 0 {
		t.Fatalf("window loaded %v before the gate resolved", loads)
	}
	select {
	case <-h.app.Ready():
		t.Fatal("Ready closed before the gate resolved")
	default:
	}

	h.gate.release <- nil
	waitLoaded(t, w)

	loads, _, _ := w.snapshot()
	if len(loads) != 1 || loads[0] != "http://127.0.0.1:5123/" {
		t.Errorf("loads = %v, want exactly the backend URL", loads)
	}
	if got := h.status.last(); got != "Backend: running (PID 4242)" {
		t.Errorf("status = %q", got)
	}
	if len(h.started) != 1 {
		t.Errorf("OnBackendStarted called %d times, want 1", len(h.started))
	}
}

func TestStartLoadsURLAfterTimeout(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start(context.Background())

	h.gate.release <- fmt.Errorf("port 5123: %w", readiness.ErrTimedOut)
	w := h.window(t, 0)
	waitLoaded(t, w)

	if loads, _, _ := w.snapshot(); len(loads) != 1 {
		t.Errorf("loads = %v, want one load", loads)
	}
}

func TestStartContinuesAfterLaunchFailure(t *testing.T) {
	launchErr := &supervisor.LaunchError{
		Strategy: supervisor.StrategyPath,
		Path:     "python",
		Err:      supervisor.ErrInterpreterNotFound,
	}
	h := newHarness(t, launchErr)
	h.app.Start(context.Background())

	if got := h.status.last(); got != "Backend: failed to start" {
		t.Errorf("status = %q", got)
	}
	if len(h.started) != 0 {
		t.Errorf("OnBackendStarted called after a failed launch")
	}

	h.gate.release <- readiness.ErrTimedOut
	waitLoaded(t, h.window(t, 0))
}

func TestBackendExitUpdatesStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start(context.Background())

	h.backend.proc.exit(3)
	eventually(t, "exit status", func() bool {
		return h.status.last() == "Backend: exited (code 3)"
	})
	if logs := h.logs.String(); !strings.Contains(logs, "exit status 3") {
		t.Errorf("exit log lacks the wait error: %s", logs)
	}
	if h.backend.starts != 1 {
		t.Errorf("backend started %d times, want no restart", h.backend.starts)
	}
}

func TestClosedWindowKeepsAppRunning(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start(context.Background())
	h.gate.release <- nil
	first := h.window(t, 0)
	waitLoaded(t, first)

	close(first.done)
	eventually(t, "window to be forgotten", func() bool {
		h.app.mu.Lock()
		defer h.app.mu.Unlock()
		return h.app.win == nil
	})

	if n := h.backend.stopCount(); n != 0 {
		t.Fatalf("backend stopped %d times after window close", n)
	}

	h.app.ShowWindow()
	if n := h.windowCount(); n != 2 {
		t.Fatalf("opened %d windows, want 2", n)
	}
	second := h.window(t, 1)
	waitLoaded(t, second)
	if loads, _, _ := second.snapshot(); len(loads) != 1 || loads[0] != "http://127.0.0.1:5123/" {
		t.Errorf("reopened window loads = %v", loads)
	}
}

func TestShowHideWindow(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start(context.Background())

	h.app.HideWindow()
	h.app.ShowWindow()

	_, events, _ := h.window(t, 0).snapshot()
	want := []string{"hide", "show"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
	if n := h.windowCount(); n != 1 {
		t.Errorf("opened %d windows, want 1", n)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start(context.Background())

	h.app.Quit()
	h.app.Shutdown()
	h.app.Quit()

	if n := h.backend.stopCount(); n != 1 {
		t.Errorf("backend stopped %d times, want 1", n)
	}
	if _, _, closed := h.window(t, 0).snapshot(); !closed {
		t.Error("window not closed")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shutdowns != 1 {
		t.Errorf("OnShutdown called %d times, want 1", h.shutdowns)
	}
	if h.uiQuits != 2 {
		t.Errorf("QuitUI called %d times, want 2", h.uiQuits)
	}
}

func TestShutdownBeforeReadySkipsLoad(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start(context.Background())

	h.app.Shutdown()

	// The gate observes cancellation and never loads.
	time.Sleep(50 * time.Millisecond)
	if loads, _, _ := h.window(t, 0).snapshot(); len(loads) != 0 {
		t.Errorf("loads = %v after shutdown", loads)
	}
}

func TestRunHeadlessReturnsOnBackendExit(t *testing.T) {
	h := newHarness(t, nil)
	h.app.opts.OpenWindow = nil

	var out bytes.Buffer
	errCh := make(chan error, 1)
	go func() { errCh <- h.app.RunHeadless(context.Background(), &out) }()

	h.gate.release <- nil
	<-h.app.Ready()
	h.backend.proc.exit(1)

	select {
	case err := <-errCh:
		if err == nil || !strings.Contains(err.Error(), "code 1") {
			t.Errorf("RunHeadless error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunHeadless did not return")
	}

	if !strings.Contains(out.String(), "http://127.0.0.1:5123/") {
		t.Errorf("output %q lacks the URL", out.String())
	}
	if n := h.backend.stopCount(); n != 1 {
		t.Errorf("backend stopped %d times, want 1", n)
	}
	if n := h.windowCount(); n != 0 {
		t.Errorf("headless mode opened %d windows", n)
	}
}

func TestRunHeadlessStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	h.app.opts.OpenWindow = nil

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.app.RunHeadless(ctx, &bytes.Buffer{}) }()

	h.gate.release <- nil
	<-h.app.Ready()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("RunHeadless error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunHeadless did not return")
	}
	if n := h.backend.stopCount(); n != 1 {
		t.Errorf("backend stopped %d times, want 1", n)
	}
}

func TestSupervisorBackendLaunchFailureIsNilProcess(t *testing.T) {
	sup := supervisor.New(supervisor.Options{
		Logger: zerolog.New(&bytes.Buffer{}),
		Probe: supervisor.Probe{
			Exists:   func(string) bool { return false },
			LookPath: func(string) (string, error) { return "", errors.New("not found") },
		},
	})
	p, err := SupervisorBackend(sup).Start(supervisor.Config{Port: "5123", InstallDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected launch error")
	}
	var le *supervisor.LaunchError
	if !errors.As(err, &le) {
		t.Errorf("error %v is not a *LaunchError", err)
	}
	if p != nil {
		t.Errorf("process = %v, want nil interface", p)
	}
}
