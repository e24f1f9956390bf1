// Package version holds build metadata injected with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
	"time"
)

var (
	Version   = "dev"                           // ex: v0.3.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2026-03-01T09:12:00Z
	GoVersion = runtime.Version()
)

// String renders the metadata on one line for --version and startup logs.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s)", Version, Commit, BuildDate, GoVersion)
}
