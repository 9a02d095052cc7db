package stack

import (
	"github.com/profilemcp/profile-stack/internal/template"
	"github.com/profilemcp/profile-stack/intrinsics"
	"github.com/profilemcp/profile-stack/resources/apigateway"
	"github.com/profilemcp/profile-stack/resources/lambda"
)

// ----------------------------------------------------------------------------
// REST API
// ----------------------------------------------------------------------------

func (s *declarer) api(fn template.Handle) template.Handle {
	ac := s.cfg.API

	api := s.b.Add(ApiGatewayRestApi, apigateway.RestApi{
		Name: ac.Name,
		EndpointConfiguration: &apigateway.RestApi_EndpointConfiguration{
			Types: []string{ac.EndpointType},
		},
	})

	resource := s.b.Add(ApiGatewayResourceMcp, apigateway.Resource{
		RestApiId: api.Ref(),
		ParentId:  api.Attr("RootResourceId"),
		PathPart:  ac.PathPart,
	})

	// ------------------------------------------------------------------------
	// ANY /{pathPart}, proxied verbatim, no authorization
	// ------------------------------------------------------------------------

	method := s.b.Add(ApiGatewayMethodMcpAny, apigateway.Method{
		RestApiId:         api.Ref(),
		ResourceId:        resource.Ref(),
		HttpMethod:        "ANY",
		AuthorizationType: apigateway.AuthorizationNone,
		ApiKeyRequired:    apigateway.Bool(false),
		Integration: &apigateway.Method_Integration{
			Type_:                 apigateway.IntegrationTypeAWSProxy,
			IntegrationHttpMethod: "POST",
			Uri: intrinsics.Join{Delimiter: "", Values: []any{
				"arn:",
				intrinsics.AWS_PARTITION,
				":apigateway:",
				s.region(),
				":lambda:path/2015-03-31/functions/",
				fn.Attr("Arn"),
				"/invocations",
			}},
		},
	})

	s.b.Add(ApiGatewayMethodMcpAnyPermission, lambda.Permission{
		Action:       "lambda:InvokeFunction",
		FunctionName: fn.Attr("Arn"),
		Principal:    "apigateway.amazonaws.com",
		SourceArn:    s.executeAPIArn(api, ac.StageName),
	})
	s.b.Add(ApiGatewayMethodMcpAnyTestPermission, lambda.Permission{
		Action:       "lambda:InvokeFunction",
		FunctionName: fn.Attr("Arn"),
		Principal:    "apigateway.amazonaws.com",
		SourceArn:    s.executeAPIArn(api, "test-invoke-stage"),
	})

	// ------------------------------------------------------------------------
	// Deployment and stage
	// ------------------------------------------------------------------------

	deployment := s.b.Add(ApiGatewayDeployment, apigateway.Deployment{
		RestApiId: api.Ref(),
	}, template.DependsOn(method))

	s.b.Add(DevStage, apigateway.Stage{
		RestApiId:    api.Ref(),
		DeploymentId: deployment.Ref(),
		StageName:    ac.StageName,
	})

	return api
}

// executeAPIArn is the source ARN of ANY requests to the path on a stage.
func (s *declarer) executeAPIArn(api template.Handle, stage string) intrinsics.Join {
	return intrinsics.Join{Delimiter: "", Values: []any{
		"arn:",
		intrinsics.AWS_PARTITION,
		":execute-api:",
		s.region(),
		":",
		s.account(),
		":",
		api.Ref(),
		"/" + stage + "/*/" + s.cfg.API.PathPart,
	}}
}
