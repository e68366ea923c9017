// Package buildinfo carries release metadata stamped in at build time.
package buildinfo

import "fmt"

// Set via -ldflags at release build; defaults identify a source build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the metadata for the CLI's --version output.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
