package template

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/intrinsics"
	"github.com/profilemcp/profile-stack/resources/apigateway"
	"github.com/profilemcp/profile-stack/resources/dynamodb"
	"github.com/profilemcp/profile-stack/resources/iam"
	"github.com/profilemcp/profile-stack/resources/lambda"
)

func TestBuilder_Build_SimpleResource(t *testing.T) {
	b := NewBuilder("profile store")
	b.Add("ProfileTable", dynamodb.Table{BillingMode: dynamodb.BillingModePayPerRequest},
		WithDeletionPolicy(DeletionPolicyDelete))

	tmpl, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "2010-09-09", tmpl.AWSTemplateFormatVersion)
	assert.Equal(t, "profile store", tmpl.Description)
	require.Len(t, tmpl.Resources, 1)

	table := tmpl.Resources["ProfileTable"]
	assert.Equal(t, "AWS::DynamoDB::Table", table.Type)
	assert.Equal(t, "PAY_PER_REQUEST", table.Properties["BillingMode"])
	assert.Equal(t, "Delete", table.DeletionPolicy)
	assert.Equal(t, "Delete", table.UpdateReplacePolicy)
	assert.Nil(t, tmpl.Parameters)
	assert.Nil(t, tmpl.Outputs)
}

func TestBuilder_Build_WithDependencies(t *testing.T) {
	b := NewBuilder("")
	table := b.Add("ProfileTable", dynamodb.Table{})
	role := b.Add("LambdaRole", iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(intrinsics.AssumeRoleFor("lambda.amazonaws.com")),
	})
	policy := b.Add("LambdaRoleDefaultPolicy", iam.Policy{
		PolicyName: "default",
		PolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.Allow(table.Attr("Arn"), "dynamodb:GetItem"),
		),
		Roles: []any{role.Ref()},
	})
	b.Add("Fn", lambda.Function{
		Role: role.Attr("Arn"),
		Environment: &lambda.Function_Environment{
			Variables: map[string]any{"PROFILE_TABLE_NAME": table.Ref()},
		},
	}, DependsOn(policy, role))

	tmpl, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, tmpl.Resources, 4)

	fn := tmpl.Resources["Fn"]
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"LambdaRole", "Arn"}}, fn.Properties["Role"])
	assert.Equal(t, []string{"LambdaRoleDefaultPolicy", "LambdaRole"}, fn.DependsOn)

	deps, err := b.Dependencies()
	require.NoError(t, err)
	assert.Equal(t, []string{"LambdaRole", "LambdaRoleDefaultPolicy", "ProfileTable"}, deps["Fn"])
	assert.Equal(t, []string{"LambdaRole", "ProfileTable"}, deps["LambdaRoleDefaultPolicy"])
	assert.Empty(t, deps["ProfileTable"])
}

func TestBuilder_Order(t *testing.T) {
	b := NewBuilder("")
	// Declared out of dependency order on purpose.
	b.Add("C", apigateway.Deployment{RestApiId: intrinsics.Ref{LogicalName: "B"}})
	b.Add("B", apigateway.RestApi{Name: intrinsics.Ref{LogicalName: "A"}})
	b.Add("A", apigateway.RestApi{})
	b.Add("D", apigateway.RestApi{})

	order, err := b.Order()
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
	assert.Equal(t, []string{"C", "B", "A", "D"}, b.Declared())
}

func TestBuilder_Order_Deterministic(t *testing.T) {
	build := func() []string {
		b := NewBuilder("")
		for _, name := range []string{"Zeta", "Alpha", "Mu", "Beta"} {
			b.Add(name, apigateway.RestApi{})
		}
		order, err := b.Order()
		require.NoError(t, err)
		return order
	}

	first := build()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, build())
	}
	assert.Equal(t, []string{"Alpha", "Beta", "Mu", "Zeta"}, first)
}

func TestBuilder_DetectCycle(t *testing.T) {
	b := NewBuilder("")
	b.Add("A", apigateway.Deployment{RestApiId: intrinsics.Ref{LogicalName: "B"}})
	b.Add("B", apigateway.Deployment{RestApiId: intrinsics.Ref{LogicalName: "C"}})
	b.Add("C", apigateway.Deployment{RestApiId: intrinsics.Ref{LogicalName: "A"}})

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.Contains(t, err.Error(), "A -> B -> C -> A")
}

func TestBuilder_SelfReference(t *testing.T) {
	b := NewBuilder("")
	b.Add("A", apigateway.Deployment{RestApiId: intrinsics.Ref{LogicalName: "A"}})

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestBuilder_DuplicateResource(t *testing.T) {
	b := NewBuilder("")
	first := b.Add("ProfileTable", dynamodb.Table{})
	second := b.Add("ProfileTable", dynamodb.Table{})
	assert.Equal(t, first, second)

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateResource)
	assert.Contains(t, err.Error(), "ProfileTable")
}

func TestBuilder_DuplicateParameterAndResource(t *testing.T) {
	b := NewBuilder("")
	b.AddParameter("Code", profilestack.Parameter{})
	b.Add("Code", dynamodb.Table{})

	_, err := b.Build()
	assert.ErrorIs(t, err, ErrDuplicateResource)
}

func TestBuilder_DuplicateOutput(t *testing.T) {
	b := NewBuilder("")
	b.AddOutput("Endpoint", profilestack.Output{Value: "a"})
	b.AddOutput("Endpoint", profilestack.Output{Value: "b"})

	_, err := b.Build()
	assert.ErrorIs(t, err, ErrDuplicateResource)
}

func TestBuilder_UnknownReference(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *Builder)
		want  string
	}{
		{
			name: "ref",
			setup: func(b *Builder) {
				b.Add("Fn", lambda.Function{Role: intrinsics.Ref{LogicalName: "MissingRole"}})
			},
			want: "MissingRole",
		},
		{
			name: "getatt",
			setup: func(b *Builder) {
				b.Add("Fn", lambda.Function{Role: profilestack.AttrRef{Resource: "LambdaRole", Attribute: "Arn"}})
			},
			want: "LambdaRole",
		},
		{
			name: "depends on",
			setup: func(b *Builder) {
				b.Add("Deployment", apigateway.Deployment{RestApiId: "abc"}, DependsOn(Handle{LogicalID: "Method"}))
			},
			want: "Method",
		},
		{
			name: "output",
			setup: func(b *Builder) {
				b.AddOutput("Arn", profilestack.Output{Value: intrinsics.GetAtt{LogicalName: "Fn", Attribute: "Arn"}})
			},
			want: "Fn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder("")
			tt.setup(b)

			_, err := b.Build()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownReference)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuilder_PseudoParametersAreNotDependencies(t *testing.T) {
	b := NewBuilder("")
	b.Add("Api", apigateway.RestApi{Name: intrinsics.Sub{String: "${AWS::StackName}-api"}})

	tmpl, err := b.Build()
	require.NoError(t, err)
	assert.Contains(t, tmpl.Resources, "Api")
}

func TestBuilder_Parameters(t *testing.T) {
	b := NewBuilder("")
	bucket := b.AddParameter("CodeBucket", profilestack.Parameter{Description: "asset bucket"})
	key := b.AddParameter("CodeKey", profilestack.Parameter{Type: "String", Default: "asset.abc.zip"})
	b.Add("Fn", lambda.Function{
		Code: lambda.Function_Code{S3Bucket: bucket, S3Key: key},
	})

	tmpl, err := b.Build()
	require.NoError(t, err)

	require.Len(t, tmpl.Parameters, 2)
	assert.Equal(t, "String", tmpl.Parameters["CodeBucket"].Type)
	assert.Equal(t, "asset.abc.zip", tmpl.Parameters["CodeKey"].Default)

	code := tmpl.Resources["Fn"].Properties["Code"].(map[string]any)
	assert.Equal(t, map[string]any{"Ref": "CodeBucket"}, code["S3Bucket"])

	deps, err := b.Dependencies()
	require.NoError(t, err)
	assert.Empty(t, deps["Fn"])
}

func TestBuilder_OutputWithJoin(t *testing.T) {
	b := NewBuilder("")
	api := b.Add("Api", apigateway.RestApi{Name: "profile-mcp-server"})
	b.AddOutput("ServiceEndpoint", profilestack.Output{
		Description: "URL of the service endpoint",
		Value: intrinsics.Join{Delimiter: "", Values: []any{
			"https://", api.Ref(), ".execute-api.", intrinsics.AWS_REGION, ".", intrinsics.AWS_URL_SUFFIX, "/dev",
		}},
		Export: &profilestack.Export{Name: "profile-mcp-server-dev-ServiceEndpoint"},
	})

	tmpl, err := b.Build()
	require.NoError(t, err)

	out := tmpl.Outputs["ServiceEndpoint"]
	assert.Equal(t, map[string]any{"Fn::Join": []any{"", []any{
		"https://",
		map[string]any{"Ref": "Api"},
		".execute-api.",
		map[string]any{"Ref": "AWS::Region"},
		".",
		map[string]any{"Ref": "AWS::URLSuffix"},
		"/dev",
	}}}, out.Value)
	assert.Equal(t, "profile-mcp-server-dev-ServiceEndpoint", out.Export.Name)
}

func TestHandle(t *testing.T) {
	h := Handle{LogicalID: "ApiGatewayRestApi"}
	assert.Equal(t, intrinsics.Ref{LogicalName: "ApiGatewayRestApi"}, h.Ref())
	assert.Equal(t, profilestack.AttrRef{Resource: "ApiGatewayRestApi", Attribute: "RootResourceId"}, h.Attr("RootResourceId"))
}

func TestToJSON(t *testing.T) {
	tmpl := &profilestack.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]profilestack.ResourceDef{
			"ProfileTable": {
				Type:       "AWS::DynamoDB::Table",
				Properties: map[string]any{"BillingMode": "PAY_PER_REQUEST"},
			},
		},
	}

	data, err := ToJSON(tmpl)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "2010-09-09", parsed["AWSTemplateFormatVersion"])
	table := parsed["Resources"].(map[string]any)["ProfileTable"].(map[string]any)
	assert.Equal(t, "AWS::DynamoDB::Table", table["Type"])
}

func TestToYAML(t *testing.T) {
	b := NewBuilder("")
	api := b.Add("Api", apigateway.RestApi{Name: "profile-mcp-server"})
	b.AddOutput("ApiId", profilestack.Output{Value: api.Ref()})

	tmpl, err := b.Build()
	require.NoError(t, err)

	data, err := ToYAML(tmpl)
	require.NoError(t, err)

	assert.Contains(t, string(data), "AWSTemplateFormatVersion")
	assert.Contains(t, string(data), "AWS::ApiGateway::RestApi")
	assert.Contains(t, string(data), "Ref: Api")
}
