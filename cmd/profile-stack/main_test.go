package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/asset"
	"github.com/profilemcp/profile-stack/internal/stack"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{"build", "list", "graph", "check", "validate", "diff", "watch", "package", "smoke", "version"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}

	if root.PersistentFlags().Lookup("log-level") == nil {
		t.Error("missing --log-level flag")
	}
	if root.PersistentFlags().Lookup("log-format") == nil {
		t.Error("missing --log-format flag")
	}
}

func TestNewBuildCmd(t *testing.T) {
	cmd := newBuildCmd()

	if cmd.Use != "build" {
		t.Errorf("Use = %q, want 'build'", cmd.Use)
	}
	if len(cmd.Aliases) != 1 || cmd.Aliases[0] != "synth" {
		t.Errorf("Aliases = %v, want [synth]", cmd.Aliases)
	}

	for _, name := range []string{"config", "format", "output", "resolve-env"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
}

func TestBuild_JSON(t *testing.T) {
	out, err := execute(t, "build", "--log-level", "error")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var tmpl profilestack.Template
	if err := json.Unmarshal([]byte(out), &tmpl); err != nil {
		t.Fatalf("output is not a template: %v", err)
	}
	if len(tmpl.Resources) != 11 {
		t.Errorf("got %d resources, want 11", len(tmpl.Resources))
	}
	if _, ok := tmpl.Outputs["ServiceEndpoint"]; !ok {
		t.Error("missing ServiceEndpoint output")
	}
}

func TestBuild_SynthAliasYAMLToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.yaml")
	if _, err := execute(t, "synth", "--format", "yaml", "-o", path, "--log-level", "error"); err != nil {
		t.Fatalf("synth failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "AWS::DynamoDB::Table") {
		t.Error("YAML template missing the table")
	}
}

func TestBuild_UnknownFormat(t *testing.T) {
	if _, err := execute(t, "build", "--format", "xml", "--log-level", "error"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestBuild_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("api:\n  stageName: \"bad stage\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "build", "--config", path, "--log-level", "error"); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestList_JSONDependencyOrder(t *testing.T) {
	out, err := execute(t, "list", "--format", "json", "--log-level", "error")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var result profilestack.ListResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	position := make(map[string]int)
	for i, r := range result.Resources {
		position[r.Name] = i
	}
	for _, r := range result.Resources {
		for _, dep := range r.DependsOn {
			if position[dep] >= position[r.Name] {
				t.Errorf("%s listed before its dependency %s", r.Name, dep)
			}
		}
	}
}

func TestNewGraphCmd(t *testing.T) {
	cmd := newGraphCmd()

	if cmd.Use != "graph [template]" {
		t.Errorf("Use = %q, want 'graph [template]'", cmd.Use)
	}
	if cmd.Flags().Lookup("include-parameters") == nil {
		t.Error("missing --include-parameters flag")
	}
	if cmd.Flags().Lookup("cluster") == nil {
		t.Error("missing --cluster flag")
	}
}

func TestGraph_Mermaid(t *testing.T) {
	out, err := execute(t, "graph", "-f", "mermaid", "--log-level", "error")
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	if !strings.Contains(out, "ProfileTable") {
		t.Errorf("graph output missing ProfileTable:\n%s", out)
	}
}

func TestNewCheckCmd(t *testing.T) {
	cmd := newCheckCmd()

	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}
	if cmd.Flags().Lookup("rules") == nil {
		t.Error("missing --rules flag")
	}
}

func TestCheck_SynthesizedStackPasses(t *testing.T) {
	out, err := execute(t, "check", "--format", "json", "--log-level", "error")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	var result profilestack.CheckResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success, got %+v", result.Issues)
	}
	for _, issue := range result.Issues {
		if issue.Severity != "info" {
			t.Errorf("unexpected %s issue: %s", issue.Severity, issue.Message)
		}
	}
}

func TestCheck_TemplateFileUsesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "staging.yaml")
	if err := os.WriteFile(cfgPath, []byte("api:\n  stageName: staging\n  pathPart: profiles\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tmplPath := filepath.Join(dir, "template.json")
	if _, err := execute(t, "build", "--config", cfgPath, "-o", tmplPath, "--log-level", "error"); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	out, err := execute(t, "check", tmplPath, "--config", cfgPath, "--format", "json", "--log-level", "error")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	var result profilestack.CheckResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success with the config's stage and path, got %+v", result.Issues)
	}
}

func TestNewValidateCmd(t *testing.T) {
	cmd := newValidateCmd()

	if cmd.Use != "validate" {
		t.Errorf("Use = %q, want 'validate'", cmd.Use)
	}
	if cmd.Flags().Lookup("format") == nil {
		t.Error("missing --format flag")
	}
}

func TestNewPackageCmd(t *testing.T) {
	cmd := newPackageCmd()

	for _, name := range []string{"dir", "out-dir", "bucket", "format"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
}

func TestPackage_Text(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "index.js"), []byte("exports.handler = 1"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "package", "--dir", src, "--out-dir", t.TempDir(), "--bucket", "assets", "--log-level", "error")
	if err != nil {
		t.Fatalf("package failed: %v", err)
	}
	if !strings.Contains(out, "Packaged 1 files") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "ProfileMcpServerCodeBucket=assets") {
		t.Errorf("missing parameter overrides:\n%s", out)
	}
}

func TestBuild_DefaultsCodeKeyToPackagedAsset(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "server")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "index.js"), []byte("exports.handler = 1"), 0644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "profile-stack.yaml")
	if err := os.WriteFile(cfgPath, []byte("function:\n  codeAsset: "+src+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	distDir := filepath.Join(dir, "dist")

	if _, err := execute(t, "package", "--config", cfgPath, "--out-dir", distDir, "--log-level", "error"); err != nil {
		t.Fatalf("package failed: %v", err)
	}
	manifest, err := asset.ReadManifest(distDir)
	if err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "build", "--config", cfgPath, "--asset-dir", distDir, "--log-level", "error")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	var tmpl profilestack.Template
	if err := json.Unmarshal([]byte(out), &tmpl); err != nil {
		t.Fatalf("output is not a template: %v", err)
	}
	param, ok := tmpl.Parameters[stack.ParamCodeKey]
	if !ok {
		t.Fatalf("missing %s parameter", stack.ParamCodeKey)
	}
	if param.Default != manifest.ObjectKey {
		t.Errorf("%s default = %v, want %s", stack.ParamCodeKey, param.Default, manifest.ObjectKey)
	}

	// An explicit key wins over the manifest.
	if err := os.WriteFile(cfgPath, []byte("function:\n  codeAsset: "+src+"\n  codeKey: pinned.zip\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "build", "--config", cfgPath, "--asset-dir", distDir, "--log-level", "error")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	tmpl = profilestack.Template{}
	if err := json.Unmarshal([]byte(out), &tmpl); err != nil {
		t.Fatalf("output is not a template: %v", err)
	}
	if got := tmpl.Parameters[stack.ParamCodeKey].Default; got != "pinned.zip" {
		t.Errorf("%s default = %v, want pinned.zip", stack.ParamCodeKey, got)
	}
}

func TestNewSmokeCmd(t *testing.T) {
	cmd := newSmokeCmd()

	for _, name := range []string{"url", "api-id", "region", "stage", "path", "timeout"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
}

func TestSmoke_RequiresEndpoint(t *testing.T) {
	if _, err := execute(t, "smoke", "--log-level", "error"); err == nil {
		t.Error("expected error without --url or --api-id")
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "profile-stack ") {
		t.Errorf("unexpected version output %q", out)
	}
}
