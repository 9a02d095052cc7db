// Package template assembles declared resources, parameters and outputs into
// a CloudFormation template.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/serialize"
	"github.com/profilemcp/profile-stack/intrinsics"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

// Deletion policies accepted by WithDeletionPolicy.
const (
	DeletionPolicyDelete   = "Delete"
	DeletionPolicyRetain   = "Retain"
	DeletionPolicySnapshot = "Snapshot"
)

var (
	// ErrDuplicateResource is returned when two declarations share a logical ID.
	ErrDuplicateResource = errors.New("duplicate logical ID")

	// ErrUnknownReference is returned when a declaration refers to a logical
	// ID that was never declared.
	ErrUnknownReference = errors.New("reference to undeclared logical ID")

	// ErrCycle is returned when the resource dependencies form a cycle.
	ErrCycle = errors.New("circular dependency detected")
)

// Handle identifies a declared resource and produces references to it.
type Handle struct {
	LogicalID string
}

// Ref returns a Ref to the resource.
func (h Handle) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: h.LogicalID}
}

// Attr returns a GetAtt reference to one of the resource's attributes.
func (h Handle) Attr(name string) profilestack.AttrRef {
	return profilestack.AttrRef{Resource: h.LogicalID, Attribute: name}
}

// Option customizes a resource declaration.
type Option func(*declaration)

// DependsOn adds explicit DependsOn entries, in the given order.
func DependsOn(handles ...Handle) Option {
	return func(d *declaration) {
		for _, h := range handles {
			d.dependsOn = append(d.dependsOn, h.LogicalID)
		}
	}
}

// WithDeletionPolicy sets both DeletionPolicy and UpdateReplacePolicy.
func WithDeletionPolicy(policy string) Option {
	return func(d *declaration) {
		d.deletionPolicy = policy
	}
}

type declaration struct {
	resource       profilestack.Resource
	dependsOn      []string
	deletionPolicy string
}

// resolved holds serialized properties and the dependency graph.
type resolved struct {
	properties map[string]map[string]any
	deps       map[string][]string
	outputs    map[string]any
	order      []string
}

// Builder constructs a CloudFormation template from declarations.
type Builder struct {
	description string
	declared    []string
	resources   map[string]*declaration
	parameters  map[string]profilestack.Parameter
	outputs     map[string]profilestack.Output
	errs        []error
}

// NewBuilder creates an empty template builder.
func NewBuilder(description string) *Builder {
	return &Builder{
		description: description,
		resources:   make(map[string]*declaration),
		parameters:  make(map[string]profilestack.Parameter),
		outputs:     make(map[string]profilestack.Output),
	}
}

// Add declares a resource under a logical ID. A duplicate ID is recorded and
// reported by Build.
func (b *Builder) Add(name string, r profilestack.Resource, opts ...Option) Handle {
	if err := b.claim(name); err != nil {
		b.errs = append(b.errs, err)
		return Handle{LogicalID: name}
	}

	d := &declaration{resource: r}
	for _, opt := range opts {
		opt(d)
	}
	b.resources[name] = d
	b.declared = append(b.declared, name)
	return Handle{LogicalID: name}
}

// AddParameter declares a template parameter and returns a Ref to it.
func (b *Builder) AddParameter(name string, p profilestack.Parameter) intrinsics.Ref {
	if err := b.claim(name); err != nil {
		b.errs = append(b.errs, err)
		return intrinsics.Ref{LogicalName: name}
	}
	if p.Type == "" {
		p.Type = "String"
	}
	b.parameters[name] = p
	return intrinsics.Ref{LogicalName: name}
}

// AddOutput declares a template output.
func (b *Builder) AddOutput(name string, o profilestack.Output) {
	if _, exists := b.outputs[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("output %s: %w", name, ErrDuplicateResource))
		return
	}
	b.outputs[name] = o
}

// Declared returns logical IDs in declaration order.
func (b *Builder) Declared() []string {
	return append([]string(nil), b.declared...)
}

func (b *Builder) claim(name string) error {
	if name == "" {
		return errors.New("empty logical ID")
	}
	if _, exists := b.resources[name]; exists {
		return fmt.Errorf("%s: %w", name, ErrDuplicateResource)
	}
	if _, exists := b.parameters[name]; exists {
		return fmt.Errorf("%s: %w", name, ErrDuplicateResource)
	}
	return nil
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*profilestack.Template, error) {
	res, err := b.resolve()
	if err != nil {
		return nil, err
	}

	tmpl := &profilestack.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]profilestack.ResourceDef, len(b.resources)),
	}

	if len(b.parameters) > 0 {
		tmpl.Parameters = make(map[string]profilestack.Parameter, len(b.parameters))
		for name, p := range b.parameters {
			def, err := serialize.Value(p.Default)
			if err != nil {
				return nil, fmt.Errorf("serializing parameter %s: %w", name, err)
			}
			p.Default = def
			tmpl.Parameters[name] = p
		}
	}

	for _, name := range res.order {
		d := b.resources[name]
		def := profilestack.ResourceDef{
			Type:       d.resource.ResourceType(),
			Properties: res.properties[name],
		}
		if len(d.dependsOn) > 0 {
			def.DependsOn = append([]string(nil), d.dependsOn...)
		}
		if d.deletionPolicy != "" {
			def.DeletionPolicy = d.deletionPolicy
			def.UpdateReplacePolicy = d.deletionPolicy
		}
		tmpl.Resources[name] = def
	}

	if len(b.outputs) > 0 {
		tmpl.Outputs = make(map[string]profilestack.Output, len(b.outputs))
		for name, o := range b.outputs {
			o.Value = res.outputs[name]
			tmpl.Outputs[name] = o
		}
	}

	return tmpl, nil
}

// Order returns resources in dependency order. Ties are broken by name.
func (b *Builder) Order() ([]string, error) {
	res, err := b.resolve()
	if err != nil {
		return nil, err
	}
	return res.order, nil
}

// Dependencies maps every logical ID to the sorted resources it depends on,
// through references and explicit DependsOn.
func (b *Builder) Dependencies() (map[string][]string, error) {
	res, err := b.resolve()
	if err != nil {
		return nil, err
	}
	return res.deps, nil
}

func (b *Builder) resolve() (*resolved, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	res := &resolved{
		properties: make(map[string]map[string]any, len(b.resources)),
		deps:       make(map[string][]string, len(b.resources)),
		outputs:    make(map[string]any, len(b.outputs)),
	}

	var errs []error
	for _, name := range b.declared {
		d := b.resources[name]
		props, err := serialize.Resource(d.resource)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		if len(props) == 0 {
			props = nil
		}
		res.properties[name] = props

		refs, err := serialize.References(props)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", name, err)
		}

		deps := make(map[string]bool)
		for _, ref := range refs {
			switch {
			case ref == name:
				errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrCycle, name, name))
			case b.resources[ref] != nil:
				deps[ref] = true
			case b.hasParameter(ref):
			default:
				errs = append(errs, fmt.Errorf("%s refers to %q: %w", name, ref, ErrUnknownReference))
			}
		}
		for _, dep := range d.dependsOn {
			if b.resources[dep] == nil {
				errs = append(errs, fmt.Errorf("%s DependsOn %q: %w", name, dep, ErrUnknownReference))
				continue
			}
			deps[dep] = true
		}
		res.deps[name] = sortedKeys(deps)
	}

	for _, name := range sortedKeys(b.outputs) {
		value, err := serialize.Value(b.outputs[name].Value)
		if err != nil {
			return nil, fmt.Errorf("serializing output %s: %w", name, err)
		}
		res.outputs[name] = value

		refs, err := serialize.References(value)
		if err != nil {
			return nil, fmt.Errorf("scanning output %s: %w", name, err)
		}
		for _, ref := range refs {
			if b.resources[ref] == nil && !b.hasParameter(ref) {
				errs = append(errs, fmt.Errorf("output %s refers to %q: %w", name, ref, ErrUnknownReference))
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	order, err := topologicalSort(res.deps)
	if err != nil {
		return nil, err
	}
	res.order = order
	return res, nil
}

func (b *Builder) hasParameter(name string) bool {
	_, ok := b.parameters[name]
	return ok
}

// topologicalSort returns resources in dependency order.
func topologicalSort(deps map[string][]string) ([]string, error) {
	dependents := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range deps {
		inDegree[name] = 0
	}
	for name, ds := range deps {
		for _, dep := range ds {
			dependents[dep] = append(dependents[dep], name)
			inDegree[name]++
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, next := range dependents[node] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(deps) {
		return nil, detectCycle(deps)
	}
	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func detectCycle(deps map[string][]string) error {
	visited := make(map[string]bool)
	onPath := make(map[string]bool)
	var stack []string
	var cycle []string

	var visit func(node string) bool
	visit = func(node string) bool {
		visited[node] = true
		onPath[node] = true
		stack = append(stack, node)

		for _, dep := range deps[node] {
			if onPath[dep] {
				for i, n := range stack {
					if n == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						return true
					}
				}
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}

		onPath[node] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, name := range sortedKeys(deps) {
		if !visited[name] && visit(name) {
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
		}
	}
	return ErrCycle
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToJSON serializes the template to JSON.
func ToJSON(t *profilestack.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *profilestack.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
