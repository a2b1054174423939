package mcp

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"ontolock/internal/access"
	"ontolock/internal/ontology"
	"ontolock/internal/schema"
)

// Tool is one function as a caller sees it: context fields removed from the
// input schema and every cross-function field reference spelled out.
type Tool struct {
	Name            string                  `json:"name"`
	Description     string                  `json:"description"`
	InputSchema     map[string]interface{}  `json:"inputSchema"`
	OutputSchema    map[string]interface{}  `json:"outputSchema,omitempty"`
	FieldReferences []schema.FieldReference `json:"fieldReferences"`
}

// ToolFor renders fn for listing.
func ToolFor(fn *ontology.Function) Tool {
	exposed := access.ExposedSchema(fn)
	input := schema.JSONSchema(exposed)
	if _, ok := input["type"]; !ok {
		// Tool inputs are always objects on the wire.
		input = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}

	t := Tool{
		Name:            fn.Name,
		Description:     fn.Description,
		InputSchema:     input,
		FieldReferences: schema.ExtractReferences(exposed, ""),
	}
	if fn.Outputs != nil {
		t.OutputSchema = schema.JSONSchema(fn.Outputs)
	}
	return t
}

// BuildTools lists every function the filter's principal can reach,
// sorted by name.
func BuildTools(f *access.Filter) []Tool {
	fns := f.Functions()
	tools := make([]Tool, 0, len(fns))
	for _, fn := range fns {
		tools = append(tools, ToolFor(fn))
	}
	return tools
}

// ComputeToolsetHash returns a short content hash of tools. Tools must
// already be sorted by name.
func ComputeToolsetHash(tools []Tool) string {
	h := sha256.New()
	for _, t := range tools {
		h.Write([]byte(t.Name))
		h.Write([]byte{0})
		h.Write([]byte(t.Description))
		if data, err := json.Marshal(t.InputSchema); err == nil {
			h.Write(data)
		}
		if data, err := json.Marshal(t.FieldReferences); err == nil {
			h.Write(data)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
