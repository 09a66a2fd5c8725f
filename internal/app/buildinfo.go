package app

import "fmt"

// Build information set with -ldflags "-X .../internal/app.BuildVersion=...".
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// VersionString is printed by the commands' -version flag.
func VersionString(name string) string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", name, BuildVersion, BuildCommit, BuildDate)
}
