package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/cdstail/cdstail/internal/version.Version=..."
var (
	Version = "dev"

	Commit = "unknown"

	BuildDate = "unknown"
)

// GetFullVersion returns detailed version information
func GetFullVersion() string {
	return fmt.Sprintf("cdstail %s (commit: %s, built: %s, %s/%s)", Version, Commit, BuildDate, runtime.GOOS, runtime.GOARCH)
}
