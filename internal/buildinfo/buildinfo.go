// Package buildinfo carries the version stamped into the binary.
package buildinfo

import "runtime/debug"

// Set at build time via -ldflags "-X pulsar/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns a compact build identifier for the window title and logs.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if c := commit(); c != "" {
		if len(c) > 12 {
			c = c[:12]
		}
		return c
	}
	return "dev"
}

// Long returns version, commit and build date on one line.
func Long() string {
	c := commit()
	if c == "" {
		c = "unknown"
	}
	return Version + " (" + c + ", " + Date + ")"
}

// commit prefers the stamped commit and falls back to the VCS revision the Go
// toolchain records.
func commit() string {
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
