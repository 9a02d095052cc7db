package check

import (
	"fmt"
	"sort"
	"strings"

	profilestack "github.com/profilemcp/profile-stack"
)

// CloudFormation types the rules inspect.
const (
	typeTable      = "AWS::DynamoDB::Table"
	typeRole       = "AWS::IAM::Role"
	typePolicy     = "AWS::IAM::Policy"
	typeFunction   = "AWS::Lambda::Function"
	typeRestAPI    = "AWS::ApiGateway::RestApi"
	typeResource   = "AWS::ApiGateway::Resource"
	typeMethod     = "AWS::ApiGateway::Method"
	typeDeployment = "AWS::ApiGateway::Deployment"
	typeStage      = "AWS::ApiGateway::Stage"
	typeAuthorizer = "AWS::ApiGateway::Authorizer"
	typeUsagePlan  = "AWS::ApiGateway::UsagePlan"
	typePermission = "AWS::Lambda::Permission"
)

// Service principals and the console test stage.
const (
	lambdaService   = "lambda.amazonaws.com"
	gatewayService  = "apigateway.amazonaws.com"
	testInvokeStage = "test-invoke-stage"
)

// refTarget returns X for {"Ref": X}.
func refTarget(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	name, ok := m["Ref"].(string)
	return name, ok
}

// getAttTarget returns the resource and attribute of an Fn::GetAtt in array
// or dotted-string form.
func getAttTarget(v any) (string, string, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", "", false
	}
	switch target := m["Fn::GetAtt"].(type) {
	case []any:
		if len(target) != 2 {
			return "", "", false
		}
		name, _ := target[0].(string)
		attr, _ := target[1].(string)
		return name, attr, name != ""
	case []string:
		if len(target) != 2 {
			return "", "", false
		}
		return target[0], target[1], target[0] != ""
	case string:
		name, attr, found := strings.Cut(target, ".")
		return name, attr, found
	}
	return "", "", false
}

// joinParts returns the values of an Fn::Join with an empty delimiter.
func joinParts(v any) ([]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	args, ok := m["Fn::Join"].([]any)
	if !ok || len(args) != 2 {
		return nil, false
	}
	if delim, _ := args[0].(string); delim != "" {
		return nil, false
	}
	parts, ok := args[1].([]any)
	return parts, ok
}

// stringList flattens a scalar or list of strings.
func stringList(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, elem := range val {
			out = append(out, fmt.Sprint(elem))
		}
		return out
	}
	return nil
}

// isTrue accepts booleans and their string spellings.
func isTrue(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	}
	return false
}

// contains reports whether v, at any depth, is or contains target.
func contains(v any, pred func(any) bool) bool {
	if pred(v) {
		return true
	}
	switch val := v.(type) {
	case map[string]any:
		for _, elem := range val {
			if contains(elem, pred) {
				return true
			}
		}
	case []any:
		for _, elem := range val {
			if contains(elem, pred) {
				return true
			}
		}
	}
	return false
}

// isGetAttOf matches Fn::GetAtt [name, attr].
func isGetAttOf(name, attr string) func(any) bool {
	return func(v any) bool {
		n, a, ok := getAttTarget(v)
		return ok && n == name && a == attr
	}
}

// isRefOf matches Ref name.
func isRefOf(name string) func(any) bool {
	return func(v any) bool {
		n, ok := refTarget(v)
		return ok && n == name
	}
}

// only returns the single resource of a type, or an issue when there is not
// exactly one.
func only(t *profilestack.Template, rule, resourceType, what string) (string, profilestack.ResourceDef, *Issue) {
	names := t.ResourcesOfType(resourceType)
	if len(names) != 1 {
		return "", profilestack.ResourceDef{}, &Issue{
			Rule:     rule,
			Severity: SeverityError,
			Message:  fmt.Sprintf("expected exactly one %s (%s), found %d", what, resourceType, len(names)),
		}
	}
	return names[0], t.Resources[names[0]], nil
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func equalSets(a, b []string) bool {
	a, b = sortedCopy(a), sortedCopy(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
