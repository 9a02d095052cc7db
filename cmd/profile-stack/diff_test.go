package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDiffCmd(t *testing.T) {
	cmd := newDiffCmd()

	if cmd.Use != "diff <template1> [template2]" {
		t.Errorf("Use = %q, want 'diff <template1> [template2]'", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}

	// Check flags exist
	if cmd.Flags().Lookup("format") == nil {
		t.Error("missing --format flag")
	}

	if cmd.Flags().Lookup("ignore-order") == nil {
		t.Error("missing --ignore-order flag")
	}
}

func TestDiff_SnapshotAgainstSynth(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "snapshot.json")
	if _, err := execute(t, "build", "-o", snapshot, "--log-level", "error"); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	out, err := execute(t, "diff", snapshot, "--log-level", "error")
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if !strings.Contains(out, "No differences.") {
		t.Errorf("expected no differences, got:\n%s", out)
	}
}

func TestDiff_StageChange(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "snapshot.json")
	if _, err := execute(t, "build", "-o", snapshot, "--log-level", "error"); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	cfg := filepath.Join(dir, "qa.yaml")
	if err := os.WriteFile(cfg, []byte("api:\n  stageName: qa\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "diff", snapshot, "--config", cfg, "--log-level", "error")
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if !strings.Contains(out, "~ DevStage (AWS::ApiGateway::Stage)") || !strings.Contains(out, "StageName modified") {
		t.Errorf("expected stage change, got:\n%s", out)
	}
	if !strings.Contains(out, "~ Outputs/ServiceEndpoint") {
		t.Errorf("expected endpoint output change, got:\n%s", out)
	}
}
