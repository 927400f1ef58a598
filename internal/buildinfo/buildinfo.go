// Package buildinfo holds version information injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/labcv/labcv-desktop/internal/buildinfo.Version=1.2.0" ./cmd/labcv
package buildinfo

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// UserAgent identifies the shell in outbound requests to the backend.
func UserAgent() string {
	return "labcv-desktop/" + Version
}
