// Package window shows the backend's web UI in a Chrome app window.
package window

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"sync"

	"github.com/zserge/lorca"
)

// ErrBrowserNotFound is returned when no Chrome or Chromium install is found.
var ErrBrowserNotFound = errors.New("chrome or chromium not found")

// Options configures Open.
type Options struct {
	Title      string
	Width      int
	Height     int
	ProfileDir string // empty = a temporary profile
}

// Window is one app window. It is closed either by Close or by the user.
type Window struct {
	ui lorca.UI

	mu     sync.Mutex
	closed bool
}

// Open launches the window showing a placeholder page until Load is called.
func Open(opts Options) (*Window, error) {
	if lorca.LocateChrome() == "" {
		return nil, ErrBrowserNotFound
	}

	ui, err := lorca.New(PlaceholderURL(opts.Title), opts.ProfileDir, opts.Width, opts.Height, "--class="+opts.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to open window: %w", err)
	}
	return &Window{ui: ui}, nil
}

// PlaceholderURL returns a data URL for the page shown while the backend starts.
func PlaceholderURL(title string) string {
	t := html.EscapeString(title)
	page := `<!doctype html><html><head><meta charset="utf-8"><title>` + t + `</title></head>` +
		`<body style="font-family:sans-serif;display:flex;align-items:center;justify-content:center;height:100vh;margin:0;color:#555">` +
		`<p>Starting ` + t + `&hellip;</p></body></html>`
	return "data:text/html," + url.PathEscape(page)
}

// Load navigates the window to rawURL.
func (w *Window) Load(rawURL string) error {
	return w.ui.Load(rawURL)
}

// Show restores the window from its minimized state.
func (w *Window) Show() error {
	return w.setState(lorca.WindowStateNormal)
}

// Hide minimizes the window; Chrome app windows cannot be hidden outright.
func (w *Window) Hide() error {
	return w.setState(lorca.WindowStateMinimized)
}

func (w *Window) setState(state lorca.WindowState) error {
	if err := w.ui.SetBounds(lorca.Bounds{WindowState: state}); err != nil {
		return fmt.Errorf("failed to set window state %s: %w", state, err)
	}
	return nil
}

// Done is closed when the window goes away.
func (w *Window) Done() <-chan struct{} {
	return w.ui.Done()
}

// Close closes the window. Safe to call more than once.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.ui.Close()
}
