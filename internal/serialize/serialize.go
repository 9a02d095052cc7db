// Package serialize converts typed resource structs into CloudFormation
// properties and extracts the logical IDs they reference.
package serialize

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/profilemcp/profile-stack/intrinsics"
)

// Resource serializes a Go struct to CloudFormation resource properties.
// It handles:
// - json tag names (BillingMode, not billing_mode)
// - Omitting nil/zero values
// - Nested structs
// - json.Marshaler values (intrinsics, AttrRef)
func Resource(v any) (map[string]any, error) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return nil, nil
	}

	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		name := getFieldName(field)
		if name == "-" {
			continue
		}

		if isZeroValue(fieldVal) {
			continue
		}

		serialized, err := serializeValue(fieldVal)
		if err != nil {
			return nil, err
		}

		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// Value converts an arbitrary value (an intrinsic, a literal, a nested
// structure) to its JSON-compatible form. Output values and parameter
// defaults go through here so YAML and JSON renderings agree.
func Value(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return serializeValue(reflect.ValueOf(v))
}

// getFieldName returns the JSON field name for a struct field.
func getFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}

	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		return field.Name
	}
	return name
}

// isZeroValue returns true if the value is the zero value for its type.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.CanInterface() {
			if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
				return zeroer.IsZero()
			}
		}
		return false
	default:
		return false
	}
}

// serializeValue converts a reflect.Value to a JSON-compatible value.
func serializeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		// Pointer receivers may implement json.Marshaler; check before unwrapping.
		if v.Kind() == reflect.Ptr && v.CanInterface() {
			if _, ok := v.Interface().(json.Marshaler); ok {
				return viaJSON(v.Interface())
			}
		}
		return serializeValue(v.Elem())
	}

	if v.CanInterface() {
		if _, ok := v.Interface().(json.Marshaler); ok {
			return viaJSON(v.Interface())
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		return Resource(v.Interface())

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := serializeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			result[i] = elem
		}
		return result, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make(map[string]any)
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			val, err := serializeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			result[key] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil

	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		return viaJSON(v.Interface())
	}
}

func viaJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// subVariable matches ${Name} and ${Name.Attr} placeholders. ${!Literal}
// escapes are not matched.
var subVariable = regexp.MustCompile(`\$\{([^!}][^}]*)\}`)

// References returns the sorted, de-duplicated logical IDs that v refers to
// through Ref, Fn::GetAtt and Fn::Sub placeholders. Pseudo-parameters are
// excluded.
func References(v any) ([]string, error) {
	normalized, err := viaJSON(v)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	collectReferences(normalized, seen)

	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs, nil
}

func collectReferences(v any, seen map[string]bool) {
	add := func(name string) {
		if name != "" && !intrinsics.IsPseudoParameter(name) {
			seen[name] = true
		}
	}

	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if ref, ok := val["Ref"].(string); ok {
				add(ref)
				return
			}
			if getAtt, ok := val["Fn::GetAtt"]; ok {
				switch target := getAtt.(type) {
				case []any:
					if len(target) > 0 {
						if name, ok := target[0].(string); ok {
							add(name)
						}
					}
				case string:
					add(strings.SplitN(target, ".", 2)[0])
				}
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				collectSub(sub, seen, add)
				return
			}
		}
		for _, elem := range val {
			collectReferences(elem, seen)
		}

	case []any:
		for _, elem := range val {
			collectReferences(elem, seen)
		}
	}
}

func collectSub(sub any, seen map[string]bool, add func(string)) {
	var (
		body string
		vars map[string]any
	)
	switch s := sub.(type) {
	case string:
		body = s
	case []any:
		if len(s) > 0 {
			body, _ = s[0].(string)
		}
		if len(s) > 1 {
			vars, _ = s[1].(map[string]any)
		}
	}

	for _, m := range subVariable.FindAllStringSubmatch(body, -1) {
		name := strings.SplitN(m[1], ".", 2)[0]
		if _, local := vars[name]; local {
			continue
		}
		add(name)
	}
	for _, val := range vars {
		collectReferences(val, seen)
	}
}
