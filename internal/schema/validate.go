package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Issue is a single validation failure.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every issue found while validating a value.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Path == "" {
			parts = append(parts, is.Message)
			continue
		}
		parts = append(parts, is.Path+": "+is.Message)
	}
	return "invalid value: " + strings.Join(parts, "; ")
}

// Validate checks a decoded JSON value against n. Numbers may be float64 or
// any Go integer type. Unknown object keys are accepted.
func Validate(n *Node, value any) error {
	if n == nil {
		return nil
	}
	var issues []Issue
	validate(n, value, "", &issues)
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func validate(n *Node, v any, path string, issues *[]Issue) {
	add := func(format string, args ...any) {
		*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch n.kind {
	case KindOpaque:
		return
	case KindNullable:
		if v == nil {
			return
		}
		validate(n.inner, v, path, issues)
		return
	case KindOptional, KindDefault:
		validate(n.inner, v, path, issues)
		return
	}

	if v == nil {
		add("expected %s, got null", n.kind)
		return
	}

	switch n.kind {
	case KindString:
		if _, ok := v.(string); !ok {
			add("expected string, got %s", typeName(v))
		}
	case KindNumber:
		if !isNumber(v) {
			add("expected number, got %s", typeName(v))
		}
	case KindBoolean:
		if _, ok := v.(bool); !ok {
			add("expected boolean, got %s", typeName(v))
		}
	case KindEnum:
		s, ok := v.(string)
		if !ok {
			add("expected one of %v, got %s", n.values, typeName(v))
			return
		}
		if !slices.Contains(n.values, s) {
			add("%q is not one of %v", s, n.values)
		}
	case KindArray:
		items, ok := v.([]any)
		if !ok {
			add("expected array, got %s", typeName(v))
			return
		}
		for i, item := range items {
			validate(n.inner, item, fmt.Sprintf("%s[%d]", path, i), issues)
		}
	case KindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			add("expected object, got %s", typeName(v))
			return
		}
		for _, f := range n.fields {
			fv, present := obj[f.Name]
			if !present {
				if n.IsRequired(f.Name) {
					*issues = append(*issues, Issue{Path: JoinPath(path, f.Name), Message: "required"})
				}
				continue
			}
			validate(f.Node, fv, JoinPath(path, f.Name), issues)
		}
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if isNumber(v) {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// ApplyDefaults returns a copy of value with every absent object field that
// has a Default filled in. The input is not modified.
func ApplyDefaults(n *Node, value any) any {
	if n == nil {
		return value
	}
	switch n.kind {
	case KindOptional, KindNullable, KindDefault:
		return ApplyDefaults(n.inner, value)
	case KindArray:
		items, ok := value.([]any)
		if !ok {
			return value
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = ApplyDefaults(n.inner, item)
		}
		return out
	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return value
		}
		out := make(map[string]any, len(obj))
		for k, v := range obj {
			out[k] = v
		}
		for _, f := range n.fields {
			if fv, present := out[f.Name]; present {
				out[f.Name] = ApplyDefaults(f.Node, fv)
				continue
			}
			if d, ok := defaultOf(f.Node); ok {
				out[f.Name] = d
			}
		}
		return out
	default:
		return value
	}
}

// defaultOf finds the outermost Default in a field's wrapper chain.
func defaultOf(n *Node) (any, bool) {
	for cur := n; cur != nil && cur.kind.IsWrapper(); cur = cur.inner {
		if cur.kind == KindDefault {
			return cur.def, true
		}
	}
	return nil, false
}
