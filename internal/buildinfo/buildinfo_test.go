package buildinfo

import (
	"strings"
	"testing"
)

func TestShortPrefersVersion(t *testing.T) {
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)

	Version, Commit = "1.2.0", "abcdef0123456789"
	if got := Short(); got != "1.2.0" {
		t.Fatalf("Short() = %q, want %q", got, "1.2.0")
	}
	Version = "dev"
	if got := Short(); got != "abcdef012345" {
		t.Fatalf("Short() = %q, want %q", got, "abcdef012345")
	}
}

func TestLong(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)

	Version, Commit, Date = "1.2.0", "abc", "2026-01-02"
	if got := Long(); got != "1.2.0 (abc, 2026-01-02)" {
		t.Fatalf("Long() = %q", got)
	}
	Commit = "unknown"
	if got := Long(); !strings.HasPrefix(got, "1.2.0 (") {
		t.Fatalf("Long() = %q", got)
	}
}
