package util

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var kindTypes = map[reflect.Kind]string{
	reflect.String:  "string",
	reflect.Bool:    "boolean",
	reflect.Int:     "integer",
	reflect.Int8:    "integer",
	reflect.Int16:   "integer",
	reflect.Int32:   "integer",
	reflect.Int64:   "integer",
	reflect.Uint:    "integer",
	reflect.Uint8:   "integer",
	reflect.Uint16:  "integer",
	reflect.Uint32:  "integer",
	reflect.Uint64:  "integer",
	reflect.Float32: "number",
	reflect.Float64: "number",
	reflect.Slice:   "array",
	reflect.Array:   "array",
	reflect.Map:     "object",
	reflect.Struct:  "object",
}

// CreateSchema builds a tool argument schema from a struct's exported fields.
// Property names follow the json tag, the description tag becomes the
// property description, and fields are required unless they are pointers or
// tagged omitempty.
func CreateSchema(structType any) map[string]any {
	properties := map[string]any{}
	schema := map[string]any{"type": "object", "properties": properties}

	t := reflect.TypeOf(structType)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return schema
	}

	var required []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if !f.IsExported() || name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		ft := f.Type
		optional := ft.Kind() == reflect.Ptr || strings.Contains(","+opts+",", ",omitempty,")
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		typ, ok := kindTypes[ft.Kind()]
		if !ok {
			typ = "string"
		}

		prop := map[string]any{"type": typ}
		if d := f.Tag.Get("description"); d != "" {
			prop["description"] = d
		}
		properties[name] = prop
		if !optional {
			required = append(required, name)
		}
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// NormalizeParameters checks params against schema and returns a copy with
// scalar values converted to their declared type. Arguments parsed from an
// "Action:" line are always strings, so "9" satisfies an integer property
// and becomes int64(9); JSON numbers are converted the same way. Integers are
// always int64, numbers float64. Properties not in the schema pass through.
func NormalizeParameters(params, schema map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	for _, name := range requiredFields(schema) {
		if _, ok := out[name]; !ok {
			return nil, &ValidationError{Field: name, Message: "required field is missing"}
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, value := range out {
		prop, _ := properties[name].(map[string]any)
		typ, _ := prop["type"].(string)
		if typ == "" || value == nil {
			continue
		}
		v, ok := coerce(value, typ)
		if !ok {
			return nil, &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("expected %s, got %#v", typ, value),
			}
		}
		out[name] = v
	}
	return out, nil
}

// requiredFields accepts both []string (schemas built in Go) and []any
// (schemas decoded from JSON).
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func coerce(value any, typ string) (any, bool) {
	switch typ {
	case "string":
		s, ok := value.(string)
		return s, ok
	case "integer":
		return toInt(value)
	case "number":
		return toFloat(value)
	case "boolean":
		switch v := value.(type) {
		case bool:
			return v, true
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			return b, err == nil
		}
		return nil, false
	case "array":
		_, ok := value.([]any)
		return value, ok
	case "object":
		_, ok := value.(map[string]any)
		return value, ok
	default:
		return value, true
	}
}

func toInt(value any) (any, bool) {
	switch v := value.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	}
	return nil, false
}

func toFloat(value any) (any, bool) {
	switch v := value.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return nil, false
}
