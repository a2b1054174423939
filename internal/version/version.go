// Package version provides build version information for ontolock.
package version

// Overridable at build time:
// go build -ldflags "-X ontolock/internal/version.Version=1.0.0 -X ontolock/internal/version.Commit=abc123"
var (
	// Version is the semantic version of ontolock
	Version = "0.4.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// LockfileFormat is written into every lockfile record. Bump it when the
// canonical snapshot layout changes in a way old readers cannot parse.
const LockfileFormat = 1

// Info returns a short version string including the abbreviated commit.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "ontolock version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
