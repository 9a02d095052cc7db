package stack

import (
	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/template"
	"github.com/profilemcp/profile-stack/resources/lambda"
)

// ----------------------------------------------------------------------------
// MCP server function
// ----------------------------------------------------------------------------

func (s *declarer) compute(table, role, policy template.Handle) template.Handle {
	fc := s.cfg.Function

	bucket := s.b.AddParameter(ParamCodeBucket, profilestack.Parameter{
		Type:        "String",
		Description: "S3 bucket holding the packaged " + fc.CodeAsset + " asset",
		Default:     optional(fc.CodeBucket),
	})
	key := s.b.AddParameter(ParamCodeKey, profilestack.Parameter{
		Type:        "String",
		Description: "S3 key of the packaged asset (asset.<sha256>.zip)",
		Default:     optional(fc.CodeKey),
	})

	// The function must not start before its grants exist.
	return s.b.Add(ProfileMcpServerLambda, lambda.Function{
		Runtime: fc.Runtime,
		Handler: fc.Handler,
		Code: lambda.Function_Code{
			S3Bucket: bucket,
			S3Key:    key,
		},
		Role: role.Attr("Arn"),
		Environment: &lambda.Function_Environment{
			Variables: map[string]any{
				TableNameEnvVar: table.Ref(),
			},
		},
	}, template.DependsOn(policy, role))
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
