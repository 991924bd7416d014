package version

import (
	"runtime"
)

// These variables are intended to be set at build time via -ldflags.
var (
	// Version is the semantic version of the build, e.g. v0.1.0. Defaults to "dev".
	Version = "dev"
	// Commit is the short git commit hash.
	Commit = ""
	// Date is the build timestamp in RFC3339.
	Date = ""
	// Go is the Go toolchain version used for the build.
	Go = runtime.Version()
)

const product = "buffer-go"

// Info returns build metadata suitable for logging or JSON responses.
func Info() map[string]string {
	return map[string]string{
		"name":    product,
		"version": Version,
		"commit":  Commit,
		"date":    Date,
		"go":      Go,
	}
}

// UserAgent is the User-Agent sent to the Buffer API.
func UserAgent() string {
	ua := product + "/" + Version
	if Commit != "" {
		ua += " (" + Commit + ")"
	}
	return ua
}
