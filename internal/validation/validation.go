// Package validation validates the synthesized profile stack.
//
// Validation runs in two layers:
//   - check: the profile stack's own invariants (PRF rules)
//   - cfn-lint-go: CloudFormation schema and best-practice rules (library dependency)
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/check"
	"github.com/profilemcp/profile-stack/internal/config"
	"github.com/profilemcp/profile-stack/internal/stack"
	"github.com/profilemcp/profile-stack/internal/template"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// StackResult contains all validation results for one configuration.
type StackResult struct {
	Template *profilestack.Template
	Check    check.Result
	CfnLint  *CfnLintResult
}

// Passed reports whether neither layer found an error.
func (r *StackResult) Passed() bool {
	return r.Check.Success && r.CfnLint != nil && r.CfnLint.Passed
}

// ToContract flattens both layers into the CLI JSON shape.
func (r *StackResult) ToContract() profilestack.ValidateResult {
	out := profilestack.ValidateResult{
		Success:   r.Passed(),
		Resources: len(r.Template.Resources),
	}
	for _, issue := range r.Check.Issues {
		line := fmt.Sprintf("%s: %s", issue.Rule, issue.Message)
		if issue.Resource != "" {
			line = fmt.Sprintf("%s: %s (at Resources/%s)", issue.Rule, issue.Message, issue.Resource)
		}
		switch issue.Severity {
		case check.SeverityError:
			out.Errors = append(out.Errors, line)
		case check.SeverityWarning:
			out.Warnings = append(out.Warnings, line)
		default:
			out.Informational = append(out.Informational, line)
		}
	}
	if r.CfnLint != nil {
		out.Errors = append(out.Errors, r.CfnLint.Errors...)
		out.Warnings = append(out.Warnings, r.CfnLint.Warnings...)
		out.Informational = append(out.Informational, r.CfnLint.Informational...)
	}
	return out
}

// ValidateStack synthesizes the stack for cfg, checks its invariants and runs
// cfn-lint over the template.
func ValidateStack(cfg *config.Config) (*StackResult, error) {
	tmpl, err := stack.Synth(cfg)
	if err != nil {
		return nil, fmt.Errorf("synthesizing stack: %w", err)
	}

	result := &StackResult{
		Template: tmpl,
		Check: check.Run(tmpl, check.Options{
			PathPart:  cfg.API.PathPart,
			StageName: cfg.API.StageName,
		}),
	}

	result.CfnLint, err = LintTemplate(tmpl)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LintTemplate writes tmpl to a temporary file and runs cfn-lint on it.
func LintTemplate(tmpl *profilestack.Template) (*CfnLintResult, error) {
	data, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}

	dir, err := os.MkdirTemp("", "profile-stack-lint-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}
	return RunCfnLint(path)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Warnings are acceptable.
	result.Passed = len(result.Errors) == 0
	return result, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}
