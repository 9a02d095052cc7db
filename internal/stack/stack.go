// Package stack declares the profile-server stack: a profile table, the
// function's execution role and grants, the MCP server function, and the
// REST API proxying /mcp to it.
package stack

import (
	"fmt"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/config"
	"github.com/profilemcp/profile-stack/internal/template"
	"github.com/profilemcp/profile-stack/intrinsics"
)

// Logical IDs of the declared resources.
const (
	ProfileTable                         = "ProfileTable"
	LambdaRole                           = "LambdaRole"
	LambdaRoleDefaultPolicy              = "LambdaRoleDefaultPolicy"
	ProfileMcpServerLambda               = "ProfileMcpServerLambda"
	ApiGatewayRestApi                    = "ApiGatewayRestApi"
	ApiGatewayResourceMcp                = "ApiGatewayResourceMcp"
	ApiGatewayMethodMcpAny               = "ApiGatewayMethodMcpAny"
	ApiGatewayMethodMcpAnyPermission     = "ApiGatewayMethodMcpAnyPermission"
	ApiGatewayMethodMcpAnyTestPermission = "ApiGatewayMethodMcpAnyTestPermission"
	ApiGatewayDeployment                 = "ApiGatewayDeployment"
	DevStage                             = "DevStage"
)

// Parameters locating the function code asset.
const (
	ParamCodeBucket = "ProfileMcpServerCodeBucket"
	ParamCodeKey    = "ProfileMcpServerCodeKey"
)

// Outputs.
const (
	OutputFunctionArn     = "ProfileMcpServerLambdaFunctionQualifiedArn"
	OutputServiceEndpoint = "ServiceEndpoint"
)

// TableNameEnvVar carries the table name into the function.
const TableNameEnvVar = "PROFILE_TABLE_NAME"

// BasicExecutionPolicy is the managed policy granting log delivery.
const BasicExecutionPolicy = "service-role/AWSLambdaBasicExecutionRole"

// BedrockActions are granted on every resource.
var BedrockActions = []string{
	"bedrock:InvokeModel",
	"bedrock:InvokeModelWithResponseStream",
}

// TableActions are granted on the profile table only.
var TableActions = []string{
	"dynamodb:GetItem",
	"dynamodb:PutItem",
	"dynamodb:UpdateItem",
	"dynamodb:DeleteItem",
	"dynamodb:Query",
	"dynamodb:Scan",
}

// New declares every resource, parameter and output on a fresh builder.
func New(cfg *config.Config) (*template.Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &declarer{cfg: cfg, b: template.NewBuilder(cfg.Description)}
	table := s.storage()
	role, policy := s.identity(table)
	fn := s.compute(table, role, policy)
	api := s.api(fn)
	s.outputs(fn, api)
	return s.b, nil
}

// Synth declares the stack and builds its template.
func Synth(cfg *config.Config) (*profilestack.Template, error) {
	b, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

type declarer struct {
	cfg *config.Config
	b   *template.Builder
}

// region is the pinned region, or AWS::Region when the stack is
// environment-agnostic.
func (s *declarer) region() any {
	if s.cfg.Env.Region != "" {
		return s.cfg.Env.Region
	}
	return intrinsics.AWS_REGION
}

func (s *declarer) account() any {
	if s.cfg.Env.Account != "" {
		return s.cfg.Env.Account
	}
	return intrinsics.AWS_ACCOUNT_ID
}
