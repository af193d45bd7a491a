// Package buildinfo holds version information injected at build time via
// ldflags, e.g. -X github.com/watchfire-io/dropdeck/internal/buildinfo.Version=1.2.0.
package buildinfo

import "fmt"

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// String returns a one-line version description.
func String() string {
	return fmt.Sprintf("dropdeck %s (%s, built %s)", Version, CommitHash, BuildDate)
}
