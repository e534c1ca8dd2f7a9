// Package version holds build metadata for mockup-studio and composite.
package version

// Set with -ldflags "-X mockup-studio/internal/version.Version=...".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for -version output and the about dialog.
func String() string {
	return Version + " (" + GitCommit + ", built " + BuildTime + ")"
}
