package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the launcher build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit, build time and target.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s, target: %s/%s",
		Version, Commit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

// UserAgent is the User-Agent header value sent to the release store.
func UserAgent() string {
	return "nonodo-launcher/" + Version
}
