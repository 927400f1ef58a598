package readiness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labcv/labcv-desktop/internal/buildinfo"
)

// DefaultProbeTimeout caps a single HTTP attempt.
const DefaultProbeTimeout = 5 * time.Second

// HTTPProber issues plain GET requests. The response status and body are
// not inspected: a server that answers at all is up.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber creates a prober that never reuses connections, so each
// attempt reflects whether the backend accepts new ones.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		client: &http.Client{
			Timeout: DefaultProbeTimeout,
			Transport: &http.Transport{
				Proxy:             nil,
				DisableKeepAlives: true,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Probe performs one GET against url.
func (p *HTTPProber) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create readiness request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
	return nil
}
