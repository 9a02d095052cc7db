// Package iam provides CloudFormation resource types for AWS Identity and
// Access Management.
package iam

// Role represents an AWS::IAM::Role.
//
// Attributes available through GetAtt: Arn, RoleId.
// Ref returns the role name.
type Role struct {
	RoleName                 any    `json:"RoleName,omitempty"`
	Description              string `json:"Description,omitempty"`
	Path                     string `json:"Path,omitempty"`
	AssumeRolePolicyDocument any    `json:"AssumeRolePolicyDocument"`
	ManagedPolicyArns        []any  `json:"ManagedPolicyArns,omitempty"`
	Policies                 []any  `json:"Policies,omitempty"`
	PermissionsBoundary      any    `json:"PermissionsBoundary,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Role) ResourceType() string {
	return "AWS::IAM::Role"
}

// Policy represents an AWS::IAM::Policy, an inline policy attached to
// roles, users or groups.
type Policy struct {
	PolicyName     any   `json:"PolicyName"`
	PolicyDocument any   `json:"PolicyDocument"`
	Roles          []any `json:"Roles,omitempty"`
	Users          []any `json:"Users,omitempty"`
	Groups         []any `json:"Groups,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Policy) ResourceType() string {
	return "AWS::IAM::Policy"
}
