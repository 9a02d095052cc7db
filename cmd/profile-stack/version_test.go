package main

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	v := getVersion()

	if v == "" {
		t.Fatal("getVersion() returned empty string")
	}

	// Tests run without ldflags, so expect "dev" or a module semver.
	if v != "dev" && !strings.HasPrefix(v, "v") {
		t.Errorf("getVersion() = %q, want 'dev' or 'vX.Y.Z'", v)
	}
}

func TestGetVersion_LDFlags(t *testing.T) {
	old := version
	version = "v9.9.9"
	defer func() { version = old }()

	if got := getVersion(); got != "v9.9.9" {
		t.Errorf("getVersion() = %q, want v9.9.9", got)
	}
}
