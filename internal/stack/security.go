package stack

import (
	"github.com/profilemcp/profile-stack/internal/template"
	"github.com/profilemcp/profile-stack/intrinsics"
	"github.com/profilemcp/profile-stack/resources/iam"
)

// ----------------------------------------------------------------------------
// Execution role
// ----------------------------------------------------------------------------

func (s *declarer) identity(table template.Handle) (role, policy template.Handle) {
	role = s.b.Add(LambdaRole, iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.AssumeRoleFor("lambda.amazonaws.com"),
		),
		ManagedPolicyArns: []any{intrinsics.AWSManagedPolicyArn(BasicExecutionPolicy)},
	})

	// Bedrock is granted on "*"; the table grant is scoped to its ARN.
	policy = s.b.Add(LambdaRoleDefaultPolicy, iam.Policy{
		PolicyName: LambdaRoleDefaultPolicy,
		PolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.Allow("*", BedrockActions...),
			intrinsics.Allow(table.Attr("Arn"), TableActions...),
		),
		Roles: []any{role.Ref()},
	})
	return role, policy
}
