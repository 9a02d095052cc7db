// Package check asserts the invariants of the synthesized profile stack.
//
// Rules:
//
//	PRF001: Profile table is keyed by a single string partition key "id"
//	PRF002: Profile table bills per request
//	PRF003: Profile table is destroyed with the stack
//	PRF004: Execution role holds exactly the declared permission set
//	PRF005: Function receives the table name in PROFILE_TABLE_NAME
//	PRF006: ANY method at the API path proxies to the function
//	PRF007: Endpoint injects no authentication
//	PRF008: Exactly one deployment bound to one named stage
//	PRF009: Function ARN and service endpoint are exported
//	PRF010: Known production gaps (informational)
package check

import (
	profilestack "github.com/profilemcp/profile-stack"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single finding.
type Issue struct {
	Rule     string
	Resource string
	Severity Severity
	Message  string
}

// Rule checks one invariant over a template.
type Rule interface {
	ID() string
	Description() string
	Check(t *profilestack.Template) []Issue
}

// Options configures a check run.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// PathPart is the expected API path segment. Defaults to "mcp".
	PathPart string
	// StageName is the expected stage. Defaults to "dev".
	StageName string
}

// Result contains the outcome of a check run.
type Result struct {
	Success bool
	Issues  []Issue
}

// AllRules returns every rule with default expectations.
func AllRules() []Rule {
	return []Rule{
		TableKeySchema{},
		TableBilling{},
		TableDeletion{},
		ExactPermissions{},
		TableNameEnvironment{},
		ProxyMethod{PathPart: "mcp"},
		OpenEndpoint{PathPart: "mcp", StageName: "dev"},
		SingleStage{StageName: "dev"},
		DeployOutputs{StageName: "dev"},
		ProductionGaps{},
	}
}

// Run applies the enabled rules. A run succeeds when no error-severity issue
// is found.
func Run(t *profilestack.Template, opts Options) Result {
	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(t)...)
	}

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
			break
		}
	}
	return Result{Success: success, Issues: issues}
}

// getRules returns the rules to use based on options.
func getRules(opts Options) []Rule {
	all := AllRules()

	for i, r := range all {
		switch rule := r.(type) {
		case ProxyMethod:
			if opts.PathPart != "" {
				rule.PathPart = opts.PathPart
				all[i] = rule
			}
		case OpenEndpoint:
			if opts.PathPart != "" {
				rule.PathPart = opts.PathPart
			}
			if opts.StageName != "" {
				rule.StageName = opts.StageName
			}
			all[i] = rule
		case SingleStage:
			if opts.StageName != "" {
				rule.StageName = opts.StageName
				all[i] = rule
			}
		case DeployOutputs:
			if opts.StageName != "" {
				rule.StageName = opts.StageName
				all[i] = rule
			}
		}
	}

	if len(opts.EnabledRules) == 0 {
		return all
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ToContract converts issues to the CLI JSON shape.
func (r Result) ToContract() profilestack.CheckResult {
	out := profilestack.CheckResult{Success: r.Success}
	for _, issue := range r.Issues {
		out.Issues = append(out.Issues, profilestack.CheckIssue{
			Resource: issue.Resource,
			Severity: string(issue.Severity),
			Message:  issue.Message,
			Rule:     issue.Rule,
		})
	}
	return out
}
