package graph

import (
	"strings"
	"testing"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/config"
	"github.com/profilemcp/profile-stack/internal/stack"
)

func simpleTemplate() *profilestack.Template {
	return &profilestack.Template{
		Parameters: map[string]profilestack.Parameter{
			"CodeBucket": {Type: "String"},
		},
		Resources: map[string]profilestack.ResourceDef{
			"ProfileTable": {Type: "AWS::DynamoDB::Table"},
			"LambdaRole":   {Type: "AWS::IAM::Role"},
			"Fn": {
				Type: "AWS::Lambda::Function",
				Properties: map[string]any{
					"Role": map[string]any{"Fn::GetAtt": []any{"LambdaRole", "Arn"}},
					"Code": map[string]any{"S3Bucket": map[string]any{"Ref": "CodeBucket"}},
					"Environment": map[string]any{"Variables": map[string]any{
						"PROFILE_TABLE_NAME": map[string]any{"Ref": "ProfileTable"},
					}},
				},
				DependsOn: []string{"LambdaRole"},
			},
		},
	}
}

func TestGenerator_Generate_SimpleGraph(t *testing.T) {
	gen := &Generator{}
	var sb strings.Builder
	if err := gen.Generate(simpleTemplate(), &sb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := sb.String()

	if !strings.Contains(output, "digraph") {
		t.Error("expected digraph declaration")
	}
	for _, name := range []string{"ProfileTable", "LambdaRole", "Fn"} {
		if !strings.Contains(output, name) {
			t.Errorf("expected %s node", name)
		}
	}
	if !strings.Contains(output, "AWS::Lambda::Function") {
		t.Error("expected resource type in label")
	}
	if !strings.Contains(output, "->") {
		t.Error("expected edges")
	}
}

func TestGenerator_Generate_WithGetAtt(t *testing.T) {
	gen := &Generator{}
	output, err := gen.GenerateString(simpleTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// GetAtt wins over the explicit DependsOn on the same pair.
	if !strings.Contains(output, "blue") {
		t.Error("expected blue color for GetAtt edge")
	}
}

func TestGenerator_Generate_DependsOnIsDashed(t *testing.T) {
	tmpl := &profilestack.Template{
		Resources: map[string]profilestack.ResourceDef{
			"Method":     {Type: "AWS::ApiGateway::Method"},
			"Deployment": {Type: "AWS::ApiGateway::Deployment", DependsOn: []string{"Method"}},
		},
	}

	output, err := (&Generator{}).GenerateString(tmpl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "dashed") {
		t.Errorf("expected dashed DependsOn edge, got:\n%s", output)
	}
}

func TestGenerator_Generate_WithParameters(t *testing.T) {
	gen := &Generator{IncludeParameters: true}
	output, err := gen.GenerateString(simpleTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "CodeBucket") {
		t.Error("expected CodeBucket parameter node")
	}
	if !strings.Contains(output, "ellipse") {
		t.Error("expected ellipse shape for parameter")
	}
}

func TestGenerator_Generate_WithoutParameters(t *testing.T) {
	output, err := (&Generator{}).GenerateString(simpleTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(output, "CodeBucket") {
		t.Error("parameters should be omitted by default")
	}
}

func TestGenerator_Generate_ClusterByService(t *testing.T) {
	tmpl, err := stack.Synth(config.Default())
	if err != nil {
		t.Fatalf("synth: %v", err)
	}

	output, err := (&Generator{ClusterByService: true}).GenerateString(tmpl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "cluster_ApiGateway") {
		t.Error("expected ApiGateway cluster")
	}
	if !strings.Contains(output, "cluster_Lambda") {
		t.Error("expected Lambda cluster")
	}
	if strings.Contains(output, "cluster_DynamoDB") {
		t.Error("single-resource services should not be clustered")
	}
}

func TestGenerator_Generate_MermaidFormat(t *testing.T) {
	gen := &Generator{Format: FormatMermaid}
	output, err := gen.GenerateString(simpleTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "graph") && !strings.Contains(output, "flowchart") {
		t.Errorf("expected mermaid graph/flowchart, got:\n%s", output)
	}
	if strings.Contains(output, "digraph") {
		t.Error("expected mermaid format, not DOT")
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	tmpl, err := stack.Synth(config.Default())
	if err != nil {
		t.Fatalf("synth: %v", err)
	}

	gen := &Generator{ClusterByService: true, IncludeParameters: true}
	first, err := gen.GenerateString(tmpl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := gen.GenerateString(tmpl)
		if again != first {
			t.Fatal("graph output is not deterministic")
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatDOT, "dot": FormatDOT, "mermaid": FormatMermaid} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("svg"); err == nil {
		t.Error("expected error for svg")
	}
}

func TestExtractService(t *testing.T) {
	tests := map[string]string{
		"AWS::ApiGateway::Method": "ApiGateway",
		"AWS::DynamoDB::Table":    "DynamoDB",
		"Custom":                  "Other",
	}
	for in, want := range tests {
		if got := extractService(in); got != want {
			t.Errorf("extractService(%q) = %q, want %q", in, got, want)
		}
	}
}
