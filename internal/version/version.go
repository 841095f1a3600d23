// Package version provides build version information for the tcjs tools.
package version

import "fmt"

// Set with -ldflags "-X github.com/albertocavalcante/tcjs/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
