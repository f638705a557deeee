// Package buildinfo carries version metadata injected at link time:
//
//	-X 'github.com/m3rciful/shopbot/core/buildinfo.Version=v0.4.0'
//	-X 'github.com/m3rciful/shopbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/shopbot/core/buildinfo.Date=2026-10-01T12:00:00Z'
package buildinfo

var (
	// Version reports the release tag of the binary.
	Version = "dev"
	// Commit reports the source control revision.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders version metadata for startup logs and the health endpoint.
func String() string {
	s := Version + "@" + Commit
	if Date != "" {
		s += " (" + Date + ")"
	}
	return s
}
