// Package version carries the build-time version stamp for the host.
package version

// Overridden at build time via
// -ldflags "-X nucleusd/pkg/version.Version=v0.3.0 -X nucleusd/pkg/version.Commit=abc123".
var (
	Version = "0.3.0-dev"
	Commit  = ""
)

// String renders the version, including the commit when stamped.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + "+" + Commit
}
