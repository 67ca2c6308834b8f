package version

import (
	"fmt"

	"github.com/fatih/color"
)

// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the compiler.
	Version = "0.3.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	nameColor    = color.New(color.FgCyan, color.Bold)
	versionColor = color.New(color.FgYellow, color.Bold)
	metaColor    = color.New(color.Faint)
)

// Banner renders the one-line version banner printed by `cc16 version`.
// Colors follow color.NoColor, so piping the output yields plain text.
func Banner() string {
	s := nameColor.Sprint("cc16") + " " + versionColor.Sprint(Version)
	if GitCommit != "" {
		s += metaColor.Sprintf(" (%s)", shortCommit(GitCommit))
	}
	if BuildDate != "" {
		s += metaColor.Sprintf(" built %s", BuildDate)
	}
	return s
}

// CacheKey identifies the compiler build in cache keys; it never carries
// color codes.
func CacheKey() string {
	return fmt.Sprintf("%s+%s", Version, GitCommit)
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
