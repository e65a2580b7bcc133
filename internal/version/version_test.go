package version

import (
	"strings"
	"testing"
)

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestVersionStringCarriesOverride(t *testing.T) {
	old := Version
	Version = "9.9.9"
	t.Cleanup(func() { Version = old })
	if s := String(); !strings.HasPrefix(s, "9.9.9 (") {
		t.Fatalf("String() = %q, want prefix %q", s, "9.9.9 (")
	}
}
