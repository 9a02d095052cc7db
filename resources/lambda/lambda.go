// Package lambda provides CloudFormation resource types for AWS Lambda.
package lambda

// Function represents an AWS::Lambda::Function.
//
// Attributes available through GetAtt: Arn.
// Ref returns the function name.
type Function struct {
	FunctionName  any                   `json:"FunctionName,omitempty"`
	Description   string                `json:"Description,omitempty"`
	Runtime       string                `json:"Runtime,omitempty"`
	Handler       string                `json:"Handler,omitempty"`
	Code          Function_Code         `json:"Code"`
	Role          any                   `json:"Role"`
	Environment   *Function_Environment `json:"Environment,omitempty"`
	MemorySize    int                   `json:"MemorySize,omitempty"`
	Timeout       int                   `json:"Timeout,omitempty"`
	Architectures []string              `json:"Architectures,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Function) ResourceType() string {
	return "AWS::Lambda::Function"
}

// Function_Code locates the deployment package.
type Function_Code struct {
	S3Bucket any    `json:"S3Bucket,omitempty"`
	S3Key    any    `json:"S3Key,omitempty"`
	ZipFile  string `json:"ZipFile,omitempty"`
}

// Function_Environment holds the function's environment variables.
type Function_Environment struct {
	Variables map[string]any `json:"Variables,omitempty"`
}

// Permission represents an AWS::Lambda::Permission, a resource-based policy
// statement on a function.
type Permission struct {
	Action        string `json:"Action"`
	FunctionName  any    `json:"FunctionName"`
	Principal     string `json:"Principal"`
	SourceArn     any    `json:"SourceArn,omitempty"`
	SourceAccount any    `json:"SourceAccount,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Permission) ResourceType() string {
	return "AWS::Lambda::Permission"
}
