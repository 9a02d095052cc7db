// Package profilestack declares the profile-server CloudFormation stack in Go.
//
// The stack is a static resource graph: a DynamoDB table holding profile
// records, an IAM execution role, a Lambda function serving the profile MCP
// endpoint, and an API Gateway REST API proxying /mcp to that function.
//
// Resources are declared with typed structs from the resources/ packages:
//
//	table := b.Add(stack.ProfileTable, dynamodb.Table{
//	    BillingMode: dynamodb.BillingModePayPerRequest,
//	})
//
//	b.Add(stack.ProfileMcpServerLambda, lambda.Function{
//	    Role: role.Attr("Arn"),  // GetAtt reference
//	})
//
// The profile-stack CLI synthesizes the declarations into a CloudFormation
// template. Provisioning is left to CloudFormation itself.
package profilestack

import (
	"encoding/json"
	"sort"
)

// Resource represents a CloudFormation resource.
// All resource types (dynamodb.Table, iam.Role, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::DynamoDB::Table")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
//
// Example:
//
//	role := b.Add("LambdaRole", iam.Role{...})
//	b.Add("Fn", lambda.Function{
//	    Role: role.Attr("Arn"),
//	})
//
// When serialized to CloudFormation JSON, AttrRef becomes:
//
//	{"Fn::GetAtt": ["LambdaRole", "Arn"]}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "RootResourceId")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceNames returns the logical IDs of all resources, sorted.
func (t *Template) ResourceNames() []string {
	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResourcesOfType returns the sorted logical IDs of resources with the given
// CloudFormation type.
func (t *Template) ResourcesOfType(resourceType string) []string {
	var names []string
	for name, def := range t.Resources {
		if def.Type == resourceType {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type                string         `json:"Type" yaml:"Type"`
	Properties          map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn           []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	DeletionPolicy      string         `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type          string   `json:"Type" yaml:"Type"`
	Description   string   `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default       any      `json:"Default,omitempty" yaml:"Default,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string  `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any     `json:"Value" yaml:"Value"`
	Export      *Export `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// Export names a stack output for cross-stack Fn::ImportValue.
type Export struct {
	Name string `json:"Name" yaml:"Name"`
}

// BuildResult is the JSON output from `profile-stack build` on failure paths.
type BuildResult struct {
	Success   bool     `json:"success"`
	Template  Template `json:"template,omitempty"`
	Resources []string `json:"resources,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// CheckResult is the JSON output from `profile-stack check`.
type CheckResult struct {
	Success bool         `json:"success"`
	Issues  []CheckIssue `json:"issues,omitempty"`
}

// CheckIssue is a single finding from a stack check rule.
type CheckIssue struct {
	Resource string `json:"resource,omitempty"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Rule     string `json:"rule"`
}

// ValidateResult is the JSON output from `profile-stack validate`.
type ValidateResult struct {
	Success       bool     `json:"success"`
	Resources     int      `json:"resources"`
	Errors        []string `json:"errors,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Informational []string `json:"informational,omitempty"`
}

// ListResult is the JSON output from `profile-stack list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// DiffEntry describes one added, removed or modified resource or output.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type,omitempty"`
	Changes  []string `json:"changes,omitempty"`
}

// TemplateDiff groups the differences between two templates.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
	Outputs  []DiffEntry `json:"outputs,omitempty"`
}

// DiffSummary counts the differences in a TemplateDiff.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Outputs  int `json:"outputs"`
	Total    int `json:"total"`
}

// SmokeResult is the JSON output from `profile-stack smoke`.
type SmokeResult struct {
	Success    bool   `json:"success"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	ErrorType  string `json:"error_type,omitempty"`
	Message    string `json:"message,omitempty"`
}
