// Package graph renders the dependency graph of a synthesized template in DOT
// and Mermaid formats.
package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/serialize"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatDOT, FormatMermaid:
		return Format(s), nil
	case "":
		return FormatDOT, nil
	}
	return "", fmt.Errorf("unknown graph format %q (want dot or mermaid)", s)
}

// Generator creates dependency graphs from a template.
type Generator struct {
	// IncludeParameters includes parameter references in the graph.
	IncludeParameters bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByService groups resources by AWS service.
	ClusterByService bool
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(t *profilestack.Template, w io.Writer) error {
	graph, err := g.buildGraph(t)
	if err != nil {
		return err
	}

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err = w.Write([]byte(output))
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(t *profilestack.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(t, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// edge kinds, in increasing precedence when one pair has several.
const (
	edgeRef = iota
	edgeDependsOn
	edgeGetAtt
)

// buildGraph creates the dot.Graph structure from the template.
func (g *Generator) buildGraph(t *profilestack.Template) (*dot.Graph, error) {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := t.ResourceNames()
	if g.ClusterByService {
		g.addClusteredNodes(graph, t, names)
	} else {
		for _, name := range names {
			graph.Node(name).Label(nodeLabel(name, t.Resources[name].Type))
		}
	}

	if g.IncludeParameters {
		for _, name := range sortedKeys(t.Parameters) {
			n := graph.Node(name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			n.Label(name)
		}
	}

	for _, name := range names {
		edges, err := g.edgesFrom(t, name)
		if err != nil {
			return nil, err
		}
		for _, dep := range sortedKeys(edges) {
			e := graph.Edge(graph.Node(name), graph.Node(dep))
			switch edges[dep] {
			case edgeGetAtt:
				e.Attr("color", "blue")
			case edgeDependsOn:
				e.Attr("style", "dashed")
			}
		}
	}

	return graph, nil
}

// edgesFrom returns the targets referenced by one resource with their kind.
func (g *Generator) edgesFrom(t *profilestack.Template, name string) (map[string]int, error) {
	def := t.Resources[name]
	edges := make(map[string]int)

	refs, err := serialize.References(def.Properties)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", name, err)
	}
	for _, ref := range refs {
		if _, isResource := t.Resources[ref]; isResource {
			edges[ref] = edgeRef
			continue
		}
		if _, isParam := t.Parameters[ref]; isParam && g.IncludeParameters {
			edges[ref] = edgeRef
		}
	}
	for _, dep := range def.DependsOn {
		if kind, ok := edges[dep]; !ok || kind < edgeDependsOn {
			edges[dep] = edgeDependsOn
		}
	}
	collectGetAtts(def.Properties, func(target string) {
		if _, ok := edges[target]; ok {
			edges[target] = edgeGetAtt
		}
	})
	return edges, nil
}

// collectGetAtts calls fn for every Fn::GetAtt target in v.
func collectGetAtts(v any, fn func(string)) {
	switch val := v.(type) {
	case map[string]any:
		if target, ok := val["Fn::GetAtt"]; ok && len(val) == 1 {
			switch tgt := target.(type) {
			case []any:
				if len(tgt) > 0 {
					if s, ok := tgt[0].(string); ok {
						fn(s)
					}
				}
			case string:
				fn(strings.SplitN(tgt, ".", 2)[0])
			}
			return
		}
		for _, elem := range val {
			collectGetAtts(elem, fn)
		}
	case []any:
		for _, elem := range val {
			collectGetAtts(elem, fn)
		}
	}
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, t *profilestack.Template, names []string) {
	serviceResources := make(map[string][]string)
	for _, name := range names {
		service := extractService(t.Resources[name].Type)
		serviceResources[service] = append(serviceResources[service], name)
	}

	for _, service := range sortedKeys(serviceResources) {
		resNames := serviceResources[service]
		if len(resNames) > 1 {
			cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
			cluster.Attr("label", service)
			cluster.Attr("style", "rounded")
			cluster.Attr("bgcolor", "lightyellow")

			for _, name := range resNames {
				cluster.Node(name).Label(nodeLabel(name, t.Resources[name].Type))
			}
			continue
		}
		// Single resource, no cluster needed
		for _, name := range resNames {
			graph.Node(name).Label(nodeLabel(name, t.Resources[name].Type))
		}
	}
}

func nodeLabel(name, cfType string) string {
	return name + "\\n[" + cfType + "]"
}

// extractService extracts the AWS service from a CloudFormation type.
// e.g., "AWS::ApiGateway::Method" -> "ApiGateway"
func extractService(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
