// Package apigateway provides CloudFormation resource types for Amazon API
// Gateway REST APIs.
package apigateway

// Endpoint types for RestApi_EndpointConfiguration.
const (
	EndpointTypeEdge     = "EDGE"
	EndpointTypeRegional = "REGIONAL"
	EndpointTypePrivate  = "PRIVATE"
)

// Authorization types for Method.AuthorizationType.
const (
	AuthorizationNone    = "NONE"
	AuthorizationIAM     = "AWS_IAM"
	AuthorizationCustom  = "CUSTOM"
	AuthorizationCognito = "COGNITO_USER_POOLS"
)

// IntegrationTypeAWSProxy passes the whole request to a Lambda function and
// returns its response unmodified.
const IntegrationTypeAWSProxy = "AWS_PROXY"

// RestApi represents an AWS::ApiGateway::RestApi.
//
// Attributes available through GetAtt: RestApiId, RootResourceId.
// Ref returns the API ID.
type RestApi struct {
	Name                  any                            `json:"Name,omitempty"`
	Description           string                         `json:"Description,omitempty"`
	EndpointConfiguration *RestApi_EndpointConfiguration `json:"EndpointConfiguration,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (RestApi) ResourceType() string {
	return "AWS::ApiGateway::RestApi"
}

// RestApi_EndpointConfiguration selects EDGE, REGIONAL or PRIVATE.
type RestApi_EndpointConfiguration struct {
	Types []string `json:"Types,omitempty"`
}

// Resource represents an AWS::ApiGateway::Resource, one path segment.
type Resource struct {
	ParentId  any    `json:"ParentId"`
	PathPart  string `json:"PathPart"`
	RestApiId any    `json:"RestApiId"`
}

// ResourceType returns the CloudFormation type.
func (Resource) ResourceType() string {
	return "AWS::ApiGateway::Resource"
}

// Method represents an AWS::ApiGateway::Method.
type Method struct {
	HttpMethod        string              `json:"HttpMethod"`
	ResourceId        any                 `json:"ResourceId"`
	RestApiId         any                 `json:"RestApiId"`
	AuthorizationType string              `json:"AuthorizationType,omitempty"`
	AuthorizerId      any                 `json:"AuthorizerId,omitempty"`
	ApiKeyRequired    *bool               `json:"ApiKeyRequired,omitempty"`
	Integration       *Method_Integration `json:"Integration,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Method) ResourceType() string {
	return "AWS::ApiGateway::Method"
}

// Method_Integration is the backend a method forwards to.
type Method_Integration struct {
	Type_                 string `json:"Type"`
	IntegrationHttpMethod string `json:"IntegrationHttpMethod,omitempty"`
	Uri                   any    `json:"Uri,omitempty"`
}

// Deployment represents an AWS::ApiGateway::Deployment, a snapshot of the
// API configuration.
type Deployment struct {
	RestApiId   any    `json:"RestApiId"`
	Description string `json:"Description,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Deployment) ResourceType() string {
	return "AWS::ApiGateway::Deployment"
}

// Stage represents an AWS::ApiGateway::Stage.
type Stage struct {
	RestApiId    any    `json:"RestApiId"`
	DeploymentId any    `json:"DeploymentId"`
	StageName    string `json:"StageName"`
	Description  string `json:"Description,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Stage) ResourceType() string {
	return "AWS::ApiGateway::Stage"
}

// Bool returns a pointer to b, for properties that must be emitted even when
// false.
func Bool(b bool) *bool {
	return &b
}
