// Package intrinsics provides the CloudFormation intrinsic functions used by
// the profile stack.
//
// Core intrinsic types are re-exported from cloudformation-schema-go:
//
//	Ref{LogicalName: "ProfileTable"}          → {"Ref": "ProfileTable"}
//	Sub{String: "${AWS::StackName}-profiles"} → {"Fn::Sub": "${AWS::StackName}-profiles"}
//	Join{Delimiter: "", Values: []any{"a", "b"}} → {"Fn::Join": ["", ["a", "b"]]}
//
// Pseudo-parameters:
//
//	AWS_REGION, AWS_ACCOUNT_ID, AWS_PARTITION, AWS_URL_SUFFIX, AWS_STACK_NAME
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Select represents a CloudFormation Fn::Select intrinsic function.
	Select = intrinsics.Select

	// Split represents a CloudFormation Fn::Split intrinsic function.
	Split = intrinsics.Split

	// ImportValue represents a CloudFormation Fn::ImportValue intrinsic function.
	ImportValue = intrinsics.ImportValue
)

// Pseudo-parameters are predefined by CloudFormation and resolve per stack.
var (
	// AWS_ACCOUNT_ID is the account the stack is created in.
	AWS_ACCOUNT_ID = intrinsics.AWS_ACCOUNT_ID

	// AWS_PARTITION is the partition (aws, aws-cn, aws-us-gov).
	AWS_PARTITION = intrinsics.AWS_PARTITION

	// AWS_REGION is the region the stack is created in.
	AWS_REGION = intrinsics.AWS_REGION

	// AWS_STACK_NAME is the name of the stack.
	AWS_STACK_NAME = intrinsics.AWS_STACK_NAME

	// AWS_URL_SUFFIX is the domain suffix, usually amazonaws.com.
	AWS_URL_SUFFIX = intrinsics.AWS_URL_SUFFIX
)

// IsPseudoParameter reports whether a Ref target is an AWS:: pseudo-parameter
// rather than a resource or template parameter.
func IsPseudoParameter(name string) bool {
	return len(name) > 5 && name[:5] == "AWS::"
}
