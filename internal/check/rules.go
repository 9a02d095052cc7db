package check

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/stack"
)

// TableKeySchema checks that profiles are keyed by "id" alone.
type TableKeySchema struct{}

func (r TableKeySchema) ID() string { return "PRF001" }
func (r TableKeySchema) Description() string {
	return "Profile table is keyed by a single string partition key \"id\""
}

func (r TableKeySchema) Check(t *profilestack.Template) []Issue {
	name, def, issue := only(t, r.ID(), typeTable, "profile table")
	if issue != nil {
		return []Issue{*issue}
	}

	var issues []Issue
	fail := func(format string, args ...any) {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Severity: SeverityError,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	keys, _ := def.Properties["KeySchema"].([]any)
	if len(keys) != 1 {
		fail("key schema must have exactly one element, found %d", len(keys))
	} else {
		key, _ := keys[0].(map[string]any)
		if key["AttributeName"] != "id" || key["KeyType"] != "HASH" {
			fail("partition key must be id (HASH), found %v (%v)", key["AttributeName"], key["KeyType"])
		}
	}

	attrs, _ := def.Properties["AttributeDefinitions"].([]any)
	if len(attrs) != 1 {
		fail("attribute definitions must declare only id, found %d", len(attrs))
	} else {
		attr, _ := attrs[0].(map[string]any)
		if attr["AttributeName"] != "id" || attr["AttributeType"] != "S" {
			fail("id must be typed S, found %v: %v", attr["AttributeName"], attr["AttributeType"])
		}
	}

	for _, prop := range []string{"GlobalSecondaryIndexes", "LocalSecondaryIndexes", "TimeToLiveSpecification"} {
		if _, ok := def.Properties[prop]; ok {
			fail("%s is not part of the profile data model", prop)
		}
	}
	return issues
}

// TableBilling checks on-demand billing.
type TableBilling struct{}

func (r TableBilling) ID() string          { return "PRF002" }
func (r TableBilling) Description() string { return "Profile table bills per request" }

func (r TableBilling) Check(t *profilestack.Template) []Issue {
	name, def, issue := only(t, r.ID(), typeTable, "profile table")
	if issue != nil {
		return []Issue{*issue}
	}

	var issues []Issue
	if mode := def.Properties["BillingMode"]; mode != "PAY_PER_REQUEST" {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Severity: SeverityError,
			Message:  fmt.Sprintf("BillingMode must be PAY_PER_REQUEST, found %v", mode),
		})
	}
	if _, ok := def.Properties["ProvisionedThroughput"]; ok {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Severity: SeverityError,
			Message:  "ProvisionedThroughput must not be set on an on-demand table",
		})
	}
	return issues
}

// TableDeletion checks that the table is removed with the stack.
type TableDeletion struct{}

func (r TableDeletion) ID() string          { return "PRF003" }
func (r TableDeletion) Description() string { return "Profile table is destroyed with the stack" }

func (r TableDeletion) Check(t *profilestack.Template) []Issue {
	name, def, issue := only(t, r.ID(), typeTable, "profile table")
	if issue != nil {
		return []Issue{*issue}
	}

	var issues []Issue
	if def.DeletionPolicy != "Delete" {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Severity: SeverityError,
			Message:  fmt.Sprintf("DeletionPolicy must be Delete, found %q", def.DeletionPolicy),
		})
	}
	if def.UpdateReplacePolicy != "Delete" {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Severity: SeverityError,
			Message:  fmt.Sprintf("UpdateReplacePolicy must be Delete, found %q", def.UpdateReplacePolicy),
		})
	}
	return issues
}

// ExactPermissions checks the execution role's grants: basic logging, model
// invocation on every resource, and item access on the profile table.
type ExactPermissions struct{}

func (r ExactPermissions) ID() string { return "PRF004" }
func (r ExactPermissions) Description() string {
	return "Execution role holds exactly the declared permission set"
}

func (r ExactPermissions) Check(t *profilestack.Template) []Issue {
	fnName, fn, issue := only(t, r.ID(), typeFunction, "function")
	if issue != nil {
		return []Issue{*issue}
	}
	tableName, _, issue := only(t, r.ID(), typeTable, "profile table")
	if issue != nil {
		return []Issue{*issue}
	}

	roleName, attr, ok := getAttTarget(fn.Properties["Role"])
	role, declared := t.Resources[roleName]
	if !ok || attr != "Arn" || !declared || role.Type != typeRole {
		return []Issue{{
			Rule:     r.ID(),
			Resource: fnName,
			Severity: SeverityError,
			Message:  "function Role must be the Arn of an AWS::IAM::Role in this stack",
		}}
	}

	var issues []Issue
	fail := func(resource, format string, args ...any) {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: resource,
			Severity: SeverityError,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	r.checkTrust(roleName, role.Properties["AssumeRolePolicyDocument"], fail)

	managed, _ := role.Properties["ManagedPolicyArns"].([]any)
	if len(managed) != 1 || !isManagedPolicy(managed[0], stack.BasicExecutionPolicy) {
		fail(roleName, "managed policies must be exactly %s, found %d", stack.BasicExecutionPolicy, len(managed))
	}

	// action -> resource keys granted
	granted := make(map[string][]string)
	addStatements := func(owner string, doc any) {
		for _, stmt := range statements(doc) {
			if stmt["Effect"] != "Allow" {
				fail(owner, "unexpected %v statement", stmt["Effect"])
				continue
			}
			if _, ok := stmt["NotAction"]; ok {
				fail(owner, "NotAction widens the permission set")
			}
			for _, action := range stringList(stmt["Action"]) {
				for _, res := range resourceKeys(stmt["Resource"]) {
					granted[action] = append(granted[action], res)
				}
			}
		}
	}

	if inline, ok := role.Properties["Policies"].([]any); ok {
		for _, p := range inline {
			pm, _ := p.(map[string]any)
			addStatements(roleName, pm["PolicyDocument"])
		}
	}
	for _, policyName := range t.ResourcesOfType(typePolicy) {
		policy := t.Resources[policyName]
		if contains(policy.Properties["Roles"], isRefOf(roleName)) {
			addStatements(policyName, policy.Properties["PolicyDocument"])
		}
	}

	expected := make(map[string][]string)
	for _, action := range stack.BedrockActions {
		expected[action] = []string{"*"}
	}
	tableArn := "Fn::GetAtt:" + tableName + ".Arn"
	for _, action := range stack.TableActions {
		expected[action] = []string{tableArn}
	}

	for _, action := range sortedKeys(expected) {
		got, ok := granted[action]
		if !ok {
			fail(roleName, "missing %s on %s", action, strings.Join(expected[action], ", "))
			continue
		}
		if !equalSets(dedupe(got), expected[action]) {
			fail(roleName, "%s granted on %s, want %s", action, strings.Join(dedupe(got), ", "), strings.Join(expected[action], ", "))
		}
	}
	for _, action := range sortedKeys(granted) {
		if _, ok := expected[action]; !ok {
			fail(roleName, "unexpected action %s", action)
		}
	}
	return issues
}

// checkTrust requires a trust policy with a single statement letting only
// the Lambda service assume the role.
func (r ExactPermissions) checkTrust(roleName string, doc any, fail func(resource, format string, args ...any)) {
	stmts := statements(doc)
	if len(stmts) != 1 {
		fail(roleName, "trust policy must have exactly one statement, found %d", len(stmts))
		return
	}

	stmt := stmts[0]
	if stmt["Effect"] != "Allow" {
		fail(roleName, "trust statement must Allow, found %v", stmt["Effect"])
	}
	if actions := stringList(stmt["Action"]); len(actions) != 1 || actions[0] != "sts:AssumeRole" {
		fail(roleName, "trust statement must allow only sts:AssumeRole, found %v", stmt["Action"])
	}
	for _, key := range []string{"NotAction", "NotPrincipal"} {
		if _, ok := stmt[key]; ok {
			fail(roleName, "%s widens the trust policy", key)
		}
	}

	principal, _ := stmt["Principal"].(map[string]any)
	services := stringList(principal["Service"])
	if len(principal) != 1 || len(services) != 1 || services[0] != lambdaService {
		fail(roleName, "role must be assumable only by %s, found principal %v", lambdaService, stmt["Principal"])
	}
}

// statements returns the statements of a policy document, accepting a single
// statement object in place of a list.
func statements(doc any) []map[string]any {
	docMap, _ := doc.(map[string]any)
	var raw []any
	switch val := docMap["Statement"].(type) {
	case []any:
		raw = val
	case map[string]any:
		raw = []any{val}
	}

	out := make([]map[string]any, 0, len(raw))
	for _, s := range raw {
		stmt, _ := s.(map[string]any)
		out = append(out, stmt)
	}
	return out
}

// isManagedPolicy matches a managed policy ARN given literally or as the
// partition-aware Fn::Join.
func isManagedPolicy(v any, name string) bool {
	suffix := ":iam::aws:policy/" + name
	if s, ok := v.(string); ok {
		return strings.HasSuffix(s, suffix)
	}
	parts, ok := joinParts(v)
	if !ok || len(parts) == 0 {
		return false
	}
	last, _ := parts[len(parts)-1].(string)
	return strings.HasSuffix(last, suffix)
}

// resourceKeys renders policy Resource values comparably.
func resourceKeys(v any) []string {
	var values []any
	switch val := v.(type) {
	case []any:
		values = val
	case nil:
		return []string{""}
	default:
		values = []any{val}
	}

	keys := make([]string, 0, len(values))
	for _, elem := range values {
		if s, ok := elem.(string); ok {
			keys = append(keys, s)
			continue
		}
		if name, attr, ok := getAttTarget(elem); ok {
			keys = append(keys, "Fn::GetAtt:"+name+"."+attr)
			continue
		}
		data, _ := json.Marshal(elem)
		keys = append(keys, string(data))
	}
	return keys
}

func dedupe(s []string) []string {
	seen := make(map[string]bool, len(s))
	var out []string
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TableNameEnvironment checks the table-name wiring into the function.
type TableNameEnvironment struct{}

func (r TableNameEnvironment) ID() string { return "PRF005" }
func (r TableNameEnvironment) Description() string {
	return "Function receives the table name in " + stack.TableNameEnvVar
}

func (r TableNameEnvironment) Check(t *profilestack.Template) []Issue {
	fnName, fn, issue := only(t, r.ID(), typeFunction, "function")
	if issue != nil {
		return []Issue{*issue}
	}
	tableName, _, issue := only(t, r.ID(), typeTable, "profile table")
	if issue != nil {
		return []Issue{*issue}
	}

	env, _ := fn.Properties["Environment"].(map[string]any)
	vars, _ := env["Variables"].(map[string]any)
	value, ok := vars[stack.TableNameEnvVar]
	if !ok {
		return []Issue{{
			Rule:     r.ID(),
			Resource: fnName,
			Severity: SeverityError,
			Message:  stack.TableNameEnvVar + " is not set",
		}}
	}
	if target, isRef := refTarget(value); !isRef || target != tableName {
		return []Issue{{
			Rule:     r.ID(),
			Resource: fnName,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s must be Ref %s", stack.TableNameEnvVar, tableName),
		}}
	}
	return nil
}

// ProxyMethod checks the ANY method at the API path and its proxy
// integration to the function.
type ProxyMethod struct {
	PathPart string
}

func (r ProxyMethod) ID() string { return "PRF006" }
func (r ProxyMethod) Description() string {
	return "ANY method at the API path proxies to the function"
}

func (r ProxyMethod) Check(t *profilestack.Template) []Issue {
	apiName, _, issue := only(t, r.ID(), typeRestAPI, "REST API")
	if issue != nil {
		return []Issue{*issue}
	}
	fnName, _, issue := only(t, r.ID(), typeFunction, "function")
	if issue != nil {
		return []Issue{*issue}
	}

	var resourceName string
	for _, name := range t.ResourcesOfType(typeResource) {
		res := t.Resources[name]
		if res.Properties["PathPart"] == r.PathPart && contains(res.Properties["ParentId"], isGetAttOf(apiName, "RootResourceId")) {
			resourceName = name
			break
		}
	}
	if resourceName == "" {
		return []Issue{{
			Rule:     r.ID(),
			Resource: apiName,
			Severity: SeverityError,
			Message:  fmt.Sprintf("no /%s resource under the API root", r.PathPart),
		}}
	}

	var methods []string
	for _, name := range t.ResourcesOfType(typeMethod) {
		m := t.Resources[name]
		if m.Properties["HttpMethod"] == "ANY" && contains(m.Properties["ResourceId"], isRefOf(resourceName)) {
			methods = append(methods, name)
		}
	}
	if len(methods) != 1 {
		return []Issue{{
			Rule:     r.ID(),
			Resource: resourceName,
			Severity: SeverityError,
			Message:  fmt.Sprintf("expected one ANY method on /%s, found %d", r.PathPart, len(methods)),
		}}
	}

	method := t.Resources[methods[0]]
	integration, _ := method.Properties["Integration"].(map[string]any)
	var issues []Issue
	if integration["Type"] != "AWS_PROXY" {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: methods[0],
			Severity: SeverityError,
			Message:  fmt.Sprintf("integration type must be AWS_PROXY, found %v", integration["Type"]),
		})
	}
	if integration["IntegrationHttpMethod"] != "POST" {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: methods[0],
			Severity: SeverityError,
			Message:  "Lambda proxy integrations must invoke with POST",
		})
	}
	if !contains(integration["Uri"], isGetAttOf(fnName, "Arn")) {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: methods[0],
			Severity: SeverityError,
			Message:  fmt.Sprintf("integration URI does not target %s", fnName),
		})
	}
	return issues
}

// OpenEndpoint checks that the gateway itself authenticates nothing and is
// allowed to invoke the function.
type OpenEndpoint struct {
	PathPart  string
	StageName string
}

func (r OpenEndpoint) ID() string { return "PRF007" }
func (r OpenEndpoint) Description() string {
	return "Endpoint injects no authentication and may invoke the function"
}

func (r OpenEndpoint) Check(t *profilestack.Template) []Issue {
	issues := r.checkPermissions(t)
	for _, name := range t.ResourcesOfType(typeMethod) {
		props := t.Resources[name].Properties
		if props["AuthorizationType"] != "NONE" {
			issues = append(issues, Issue{
				Rule:     r.ID(),
				Resource: name,
				Severity: SeverityError,
				Message:  fmt.Sprintf("AuthorizationType must be NONE, found %v", props["AuthorizationType"]),
			})
		}
		if isTrue(props["ApiKeyRequired"]) {
			issues = append(issues, Issue{
				Rule:     r.ID(),
				Resource: name,
				Severity: SeverityError,
				Message:  "ApiKeyRequired must be false",
			})
		}
		if _, ok := props["AuthorizerId"]; ok {
			issues = append(issues, Issue{
				Rule:     r.ID(),
				Resource: name,
				Severity: SeverityError,
				Message:  "AuthorizerId must not be set",
			})
		}
	}
	for _, typ := range []string{typeAuthorizer, typeUsagePlan} {
		for _, name := range t.ResourcesOfType(typ) {
			issues = append(issues, Issue{
				Rule:     r.ID(),
				Resource: name,
				Severity: SeverityError,
				Message:  typ + " adds authentication in front of the handler",
			})
		}
	}
	return issues
}

// checkPermissions requires an invoke permission for the stage. A missing
// test-invoke permission only breaks console testing and is a warning.
func (r OpenEndpoint) checkPermissions(t *profilestack.Template) []Issue {
	fnName, _, issue := only(t, r.ID(), typeFunction, "function")
	if issue != nil {
		return []Issue{*issue}
	}
	apiName, _, issue := only(t, r.ID(), typeRestAPI, "REST API")
	if issue != nil {
		return []Issue{*issue}
	}

	var stage, testInvoke bool
	for _, name := range t.ResourcesOfType(typePermission) {
		props := t.Resources[name].Properties
		if props["Action"] != "lambda:InvokeFunction" || props["Principal"] != gatewayService {
			continue
		}
		if !isGetAttOf(fnName, "Arn")(props["FunctionName"]) {
			continue
		}
		if r.sourceArnFor(props["SourceArn"], apiName, r.StageName) {
			stage = true
		}
		if r.sourceArnFor(props["SourceArn"], apiName, testInvokeStage) {
			testInvoke = true
		}
	}

	var issues []Issue
	if !stage {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: fnName,
			Severity: SeverityError,
			Message: fmt.Sprintf("no lambda:InvokeFunction permission lets %s call the function on /%s/*/%s",
				gatewayService, r.StageName, r.PathPart),
		})
	}
	if !testInvoke {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: fnName,
			Severity: SeverityWarning,
			Message:  "no invoke permission for the " + testInvokeStage + "; console tests will fail",
		})
	}
	return issues
}

// sourceArnFor matches execute-api ARNs ending in /{stage}/*/{pathPart},
// given literally or as an Fn::Join over the API reference.
func (r OpenEndpoint) sourceArnFor(v any, apiName, stage string) bool {
	suffix := "/" + stage + "/*/" + r.PathPart
	if s, ok := v.(string); ok {
		return strings.HasSuffix(s, suffix)
	}
	parts, ok := joinParts(v)
	if !ok || len(parts) == 0 {
		return false
	}
	last, _ := parts[len(parts)-1].(string)
	return strings.HasSuffix(last, suffix) && contains(v, isRefOf(apiName))
}

// SingleStage checks for one deployment bound to one named stage.
type SingleStage struct {
	StageName string
}

func (r SingleStage) ID() string { return "PRF008" }
func (r SingleStage) Description() string {
	return "Exactly one deployment bound to one named stage"
}

func (r SingleStage) Check(t *profilestack.Template) []Issue {
	var issues []Issue
	depName, dep, depIssue := only(t, r.ID(), typeDeployment, "deployment")
	if depIssue != nil {
		issues = append(issues, *depIssue)
	}
	stageName, stage, stageIssue := only(t, r.ID(), typeStage, "stage")
	if stageIssue != nil {
		issues = append(issues, *stageIssue)
	}
	if depIssue != nil || stageIssue != nil {
		return issues
	}

	fail := func(resource, format string, args ...any) {
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: resource,
			Severity: SeverityError,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if _, ok := dep.Properties["StageName"]; ok {
		fail(depName, "deployment must not create its own stage")
	}
	if !contains(stage.Properties["DeploymentId"], isRefOf(depName)) {
		fail(stageName, "stage must be bound to %s", depName)
	}
	if got := stage.Properties["StageName"]; got != r.StageName {
		fail(stageName, "stage name must be %q, found %v", r.StageName, got)
	}

	hasMethod := false
	for _, d := range dep.DependsOn {
		if def, ok := t.Resources[d]; ok && def.Type == typeMethod {
			hasMethod = true
		}
	}
	if !hasMethod {
		fail(depName, "deployment must DependsOn the API methods")
	}
	return issues
}

// DeployOutputs checks the deploy-time outputs.
type DeployOutputs struct {
	StageName string
}

func (r DeployOutputs) ID() string { return "PRF009" }
func (r DeployOutputs) Description() string {
	return "Function ARN and service endpoint are exported"
}

func (r DeployOutputs) Check(t *profilestack.Template) []Issue {
	fnName, _, issue := only(t, r.ID(), typeFunction, "function")
	if issue != nil {
		return []Issue{*issue}
	}
	apiName, _, issue := only(t, r.ID(), typeRestAPI, "REST API")
	if issue != nil {
		return []Issue{*issue}
	}

	var arnOutput, endpointOutput string
	for _, name := range sortedKeys(t.Outputs) {
		out := t.Outputs[name]
		if isGetAttOf(fnName, "Arn")(out.Value) && arnOutput == "" {
			arnOutput = name
		}
		if r.isEndpoint(out.Value, apiName) && endpointOutput == "" {
			endpointOutput = name
		}
	}

	var issues []Issue
	for what, name := range map[string]string{
		"function ARN":          arnOutput,
		"service endpoint URL": endpointOutput,
	} {
		if name == "" {
			issues = append(issues, Issue{
				Rule:     r.ID(),
				Severity: SeverityError,
				Message:  "no output exposes the " + what,
			})
			continue
		}
		if t.Outputs[name].Export == nil {
			issues = append(issues, Issue{
				Rule:     r.ID(),
				Resource: name,
				Severity: SeverityWarning,
				Message:  "output is not exported",
			})
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Message < issues[j].Message })
	return issues
}

// isEndpoint matches https://{api}.execute-api.{region}.{suffix}/{stage}.
func (r DeployOutputs) isEndpoint(v any, apiName string) bool {
	parts, ok := joinParts(v)
	if !ok || len(parts) < 2 {
		return false
	}
	first, _ := parts[0].(string)
	last, _ := parts[len(parts)-1].(string)
	return strings.HasPrefix(first, "https://") &&
		strings.HasSuffix(last, "/"+r.StageName) &&
		contains(v, isRefOf(apiName))
}

// ProductionGaps reports the known non-production choices. It never fails a
// run.
type ProductionGaps struct{}

func (r ProductionGaps) ID() string          { return "PRF010" }
func (r ProductionGaps) Description() string { return "Known production gaps (informational)" }

func (r ProductionGaps) Check(t *profilestack.Template) []Issue {
	var issues []Issue
	info := func(resource, msg string) {
		issues = append(issues, Issue{Rule: r.ID(), Resource: resource, Severity: SeverityInfo, Message: msg})
	}

	for _, name := range t.ResourcesOfType(typePolicy) {
		doc, _ := t.Resources[name].Properties["PolicyDocument"].(map[string]any)
		stmts, _ := doc["Statement"].([]any)
		for _, s := range stmts {
			stmt, _ := s.(map[string]any)
			if stmt["Resource"] != "*" {
				continue
			}
			for _, action := range stringList(stmt["Action"]) {
				if strings.HasPrefix(action, "bedrock:") {
					info(name, "model invocation is granted on every model (Resource \"*\")")
					break
				}
			}
		}
	}
	for _, name := range t.ResourcesOfType(typeMethod) {
		if t.Resources[name].Properties["AuthorizationType"] == "NONE" {
			info(name, "endpoint is reachable anonymously; authentication is left to the handler")
		}
	}
	for _, name := range t.ResourcesOfType(typeTable) {
		if t.Resources[name].DeletionPolicy == "Delete" {
			info(name, "table data is destroyed when the stack is deleted")
		}
	}
	return issues
}
