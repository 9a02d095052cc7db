package intrinsics

import (
	"encoding/json"
)

// PolicyVersion is the only IAM policy language version in use.
const PolicyVersion = "2012-10-17"

// PolicyDocument represents an IAM policy document.
type PolicyDocument struct {
	Version   string            `json:"Version,omitempty"`
	Statement []PolicyStatement `json:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the default version.
func NewPolicyDocument(statements ...PolicyStatement) PolicyDocument {
	return PolicyDocument{Version: PolicyVersion, Statement: statements}
}

// PolicyStatement represents an IAM policy statement.
//
// Action and Resource accept a single value or a []any, matching what
// CloudFormation emits for one-element and multi-element lists.
type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
}

// Allow builds an Allow statement for the given actions on one resource.
// A single action is emitted as a scalar.
func Allow(resource any, actions ...string) PolicyStatement {
	stmt := PolicyStatement{Effect: "Allow", Resource: resource}
	if len(actions) == 1 {
		stmt.Action = actions[0]
		return stmt
	}
	list := make([]any, len(actions))
	for i, a := range actions {
		list[i] = a
	}
	stmt.Action = list
	return stmt
}

// AssumeRoleFor builds the trust statement letting a service assume a role.
func AssumeRoleFor(service string) PolicyStatement {
	return PolicyStatement{
		Effect:    "Allow",
		Principal: ServicePrincipal{service},
		Action:    "sts:AssumeRole",
	}
}

// ServicePrincipal represents a service principal (e.g., lambda.amazonaws.com).
// Serializes to {"Service": ...} format.
type ServicePrincipal []any

// MarshalJSON serializes to {"Service": ...} format.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"Service": p[0]})
	}
	return json.Marshal(map[string]any{"Service": []any(p)})
}

// AWSManagedPolicyArn returns the partition-aware ARN of an AWS managed
// policy, e.g. "service-role/AWSLambdaBasicExecutionRole".
func AWSManagedPolicyArn(name string) Join {
	return Join{
		Delimiter: "",
		Values:    []any{"arn:", AWS_PARTITION, ":iam::aws:policy/" + name},
	}
}
