package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/intrinsics"
	"github.com/profilemcp/profile-stack/resources/apigateway"
	"github.com/profilemcp/profile-stack/resources/dynamodb"
	"github.com/profilemcp/profile-stack/resources/lambda"
)

func TestResource_SimpleStruct(t *testing.T) {
	table := dynamodb.Table{
		BillingMode: dynamodb.BillingModePayPerRequest,
	}

	props, err := Resource(table)
	require.NoError(t, err)

	assert.Equal(t, "PAY_PER_REQUEST", props["BillingMode"])
	assert.NotContains(t, props, "KeySchema")               // Empty slice should be omitted
	assert.NotContains(t, props, "TimeToLiveSpecification") // Nil pointer should be omitted
	assert.NotContains(t, props, "TableName")               // Nil interface should be omitted
}

func TestResource_WithSlice(t *testing.T) {
	keys, attrs := dynamodb.PartitionKey("id", dynamodb.AttributeTypeString)
	table := dynamodb.Table{
		KeySchema:            keys,
		AttributeDefinitions: attrs,
	}

	props, err := Resource(table)
	require.NoError(t, err)

	schema := props["KeySchema"].([]any)
	require.Len(t, schema, 1)
	key := schema[0].(map[string]any)
	assert.Equal(t, "id", key["AttributeName"])
	assert.Equal(t, "HASH", key["KeyType"])

	defs := props["AttributeDefinitions"].([]any)
	assert.Equal(t, "S", defs[0].(map[string]any)["AttributeType"])
}

func TestResource_WithMapOfIntrinsics(t *testing.T) {
	fn := lambda.Function{
		Runtime: "nodejs22.x",
		Role:    profilestack.AttrRef{Resource: "LambdaRole", Attribute: "Arn"},
		Environment: &lambda.Function_Environment{
			Variables: map[string]any{
				"PROFILE_TABLE_NAME": intrinsics.Ref{LogicalName: "ProfileTable"},
				"STAGE":              "dev",
			},
		},
	}

	props, err := Resource(fn)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"LambdaRole", "Arn"}}, props["Role"])
	env := props["Environment"].(map[string]any)["Variables"].(map[string]any)
	assert.Equal(t, map[string]any{"Ref": "ProfileTable"}, env["PROFILE_TABLE_NAME"])
	assert.Equal(t, "dev", env["STAGE"])
}

func TestResource_FalsePointerIsEmitted(t *testing.T) {
	method := apigateway.Method{
		HttpMethod:     "ANY",
		ApiKeyRequired: apigateway.Bool(false),
	}

	props, err := Resource(method)
	require.NoError(t, err)

	assert.Equal(t, false, props["ApiKeyRequired"])
	assert.NotContains(t, props, "Integration")
}

func TestResource_RenamedField(t *testing.T) {
	method := apigateway.Method{
		Integration: &apigateway.Method_Integration{
			Type_:                 apigateway.IntegrationTypeAWSProxy,
			IntegrationHttpMethod: "POST",
		},
	}

	props, err := Resource(method)
	require.NoError(t, err)

	integration := props["Integration"].(map[string]any)
	assert.Equal(t, "AWS_PROXY", integration["Type"])
	assert.NotContains(t, integration, "Type_")
}

func TestResource_OmitsZeroValues(t *testing.T) {
	props, err := Resource(dynamodb.Table{})
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestResource_WithPointer(t *testing.T) {
	props, err := Resource(&apigateway.Resource{PathPart: "mcp"})
	require.NoError(t, err)
	assert.Equal(t, "mcp", props["PathPart"])
}

func TestResource_NonStruct(t *testing.T) {
	props, err := Resource("not a struct")
	require.NoError(t, err)
	assert.Nil(t, props)
}

func TestValue(t *testing.T) {
	v, err := Value(intrinsics.Join{Delimiter: "", Values: []any{"https://", intrinsics.Ref{LogicalName: "Api"}}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"Fn::Join": []any{"", []any{"https://", map[string]any{"Ref": "Api"}}},
	}, v)

	v, err = Value(nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestReferences(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected []string
	}{
		{
			name:     "ref",
			value:    intrinsics.Ref{LogicalName: "ProfileTable"},
			expected: []string{"ProfileTable"},
		},
		{
			name:     "pseudo parameter excluded",
			value:    intrinsics.AWS_REGION,
			expected: []string{},
		},
		{
			name:     "getatt array",
			value:    profilestack.AttrRef{Resource: "LambdaRole", Attribute: "Arn"},
			expected: []string{"LambdaRole"},
		},
		{
			name:     "getatt dotted string",
			value:    map[string]any{"Fn::GetAtt": "ApiGatewayRestApi.RootResourceId"},
			expected: []string{"ApiGatewayRestApi"},
		},
		{
			name:     "sub placeholders",
			value:    intrinsics.Sub{String: "arn:${AWS::Partition}:execute-api:${AWS::Region}:${AWS::AccountId}:${ApiGatewayRestApi}/dev/*/mcp ${ProfileTable.Arn} ${!Literal}"},
			expected: []string{"ApiGatewayRestApi", "ProfileTable"},
		},
		{
			name: "sub with local variables",
			value: map[string]any{"Fn::Sub": []any{
				"${Api}/${Local}",
				map[string]any{"Local": map[string]any{"Ref": "ProfileTable"}},
			}},
			expected: []string{"Api", "ProfileTable"},
		},
		{
			name: "nested and deduplicated",
			value: lambda.Function{
				Role: profilestack.AttrRef{Resource: "LambdaRole", Attribute: "Arn"},
				Environment: &lambda.Function_Environment{Variables: map[string]any{
					"A": intrinsics.Ref{LogicalName: "ProfileTable"},
					"B": intrinsics.GetAtt{LogicalName: "ProfileTable", Attribute: "Arn"},
				}},
			},
			expected: []string{"LambdaRole", "ProfileTable"},
		},
		{
			name:     "literals only",
			value:    apigateway.RestApi{Name: "profile-mcp-server"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, err := References(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, refs)
		})
	}
}
