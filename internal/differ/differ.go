// Package differ compares two synthesized CloudFormation templates, for
// example a committed snapshot against a fresh synth. It never reads
// deployed stack state.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	profilestack "github.com/profilemcp/profile-stack"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    profilestack.TemplateDiff
	Summary profilestack.DiffSummary
}

// Empty reports whether the templates are equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0
}

// Compare compares two CloudFormation templates and returns differences.
func Compare(template1, template2 *profilestack.Template, opts Options) (*Result, error) {
	t1, err := normalizeTemplate(template1)
	if err != nil {
		return nil, err
	}
	t2, err := normalizeTemplate(template2)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	res1, res2 := t1.Resources, t2.Resources

	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, profilestack.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, profilestack.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, profilestack.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	result.Diff.Outputs = compareOutputs(t1.Outputs, t2.Outputs, opts)

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)
	sortEntries(result.Diff.Outputs)

	result.Summary = profilestack.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
		Outputs:  len(result.Diff.Outputs),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed +
		result.Summary.Modified + result.Summary.Outputs

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*profilestack.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var template profilestack.Template

	// Try JSON first
	if err := json.Unmarshal(data, &template); err != nil {
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}

	return &template, nil
}

// normalizeTemplate round-trips through JSON so in-memory values (int64,
// typed slices) compare equal to values loaded from a file.
func normalizeTemplate(t *profilestack.Template) (*profilestack.Template, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("normalizing template: %w", err)
	}
	var out profilestack.Template
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalizing template: %w", err)
	}
	return &out, nil
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 profilestack.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalStringSlices(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %s → %s", orNone(def1.DeletionPolicy), orNone(def2.DeletionPolicy)))
	}
	if def1.UpdateReplacePolicy != def2.UpdateReplacePolicy {
		changes = append(changes, fmt.Sprintf("UpdateReplacePolicy changed: %s → %s", orNone(def1.UpdateReplacePolicy), orNone(def2.UpdateReplacePolicy)))
	}

	return changes
}

// compareProperties recursively compares property maps, reporting the
// deepest differing path.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s added", path))
			continue
		}

		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}
		if !deepEqual(val1, val2, opts) {
			changes = append(changes, fmt.Sprintf("%s modified", path))
		}
	}

	for key := range props1 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", path))
		}
	}

	sort.Strings(changes)
	return changes
}

// compareOutputs reports added, removed and modified outputs.
func compareOutputs(out1, out2 map[string]profilestack.Output, opts Options) []profilestack.DiffEntry {
	var entries []profilestack.DiffEntry

	for name, o2 := range out2 {
		o1, exists := out1[name]
		if !exists {
			entries = append(entries, profilestack.DiffEntry{Resource: name, Changes: []string{"added"}})
			continue
		}

		var changes []string
		if !deepEqual(o1.Value, o2.Value, opts) {
			changes = append(changes, "Value modified")
		}
		if o1.Description != o2.Description {
			changes = append(changes, "Description modified")
		}
		if exportName(o1) != exportName(o2) {
			changes = append(changes, fmt.Sprintf("Export changed: %s → %s", orNone(exportName(o1)), orNone(exportName(o2))))
		}
		if len(changes) > 0 {
			entries = append(entries, profilestack.DiffEntry{Resource: name, Changes: changes})
		}
	}

	for name := range out1 {
		if _, exists := out2[name]; !exists {
			entries = append(entries, profilestack.DiffEntry{Resource: name, Changes: []string{"removed"}})
		}
	}

	return entries
}

func exportName(o profilestack.Output) string {
	if o.Export == nil {
		return ""
	}
	return o.Export.Name
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// isIntrinsic reports whether m is a single-key intrinsic function, which is
// compared as a whole.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || len(k) > 4 && k[:4] == "Fn::"
	}
	return false
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts every list by its JSON rendering.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		keys := make([]string, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
			data, _ := json.Marshal(result[i])
			keys[i] = string(data)
		}
		sort.Sort(byKey{values: result, keys: keys})
		return result
	case map[string]any:
		result := make(map[string]any)
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

type byKey struct {
	values []any
	keys   []string
}

func (s byKey) Len() int           { return len(s.values) }
func (s byKey) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s byKey) Swap(i, j int) {
	s.values[i], s.values[j] = s.values[j], s.values[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
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

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []profilestack.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
