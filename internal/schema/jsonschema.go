package schema

// Extension keywords carried in rendered JSON Schema.
const (
	KeywordFieldFrom = "x-field-from"
	KeywordContext   = "x-context"
)

// JSONSchema renders n as a draft-07 style JSON Schema object for tool
// listings. Optional fields are expressed through the parent's required list,
// Nullable as anyOf with null, and Default through the default keyword.
func JSONSchema(n *Node) map[string]any {
	if n == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return Fold(n, jsonSchemaFolder{})
}

type jsonSchemaFolder struct{}

func (jsonSchemaFolder) Scalar(n *Node) map[string]any {
	var out map[string]any
	switch n.kind {
	case KindString:
		out = map[string]any{"type": "string"}
	case KindNumber:
		out = map[string]any{"type": "number"}
	case KindBoolean:
		out = map[string]any{"type": "boolean"}
	case KindEnum:
		values := make([]any, len(n.values))
		for i, v := range n.values {
			values[i] = v
		}
		out = map[string]any{"type": "string", "enum": values}
	default:
		out = map[string]any{}
	}
	return annotateJSON(n, out)
}

func (jsonSchemaFolder) Object(n *Node, fields []FieldResult[map[string]any]) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f.Name] = f.Value
	}
	out := map[string]any{"type": "object", "properties": props}
	if req := n.Required(); len(req) > 0 {
		out["required"] = req
	}
	return annotateJSON(n, out)
}

func (jsonSchemaFolder) Array(n *Node, elem map[string]any) map[string]any {
	return annotateJSON(n, map[string]any{"type": "array", "items": elem})
}

func (jsonSchemaFolder) Wrapper(n *Node, inner map[string]any) map[string]any {
	var out map[string]any
	switch n.kind {
	case KindNullable:
		out = map[string]any{"anyOf": []any{inner, map[string]any{"type": "null"}}}
	case KindDefault:
		out = make(map[string]any, len(inner)+1)
		for k, v := range inner {
			out[k] = v
		}
		out["default"] = n.def
	default:
		out = inner
	}
	return annotateJSON(n, out)
}

func annotateJSON(n *Node, out map[string]any) map[string]any {
	a, ok := n.Annotation()
	if !ok {
		return out
	}
	switch a.Kind {
	case FieldFrom:
		out[KeywordFieldFrom] = a.Function
	case UserContext:
		out[KeywordContext] = ContextUser
	case OrganizationContext:
		out[KeywordContext] = ContextOrganization
	}
	return out
}
