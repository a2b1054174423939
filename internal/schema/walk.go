package schema

import (
	"errors"
	"fmt"
)

// SkipChildren can be returned by a WalkFunc to avoid descending into a node.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every node in pre-order with the node's field path.
type WalkFunc func(path string, n *Node) error

// Walk visits n and its descendants in pre-order, following field declaration
// order. Object fields extend the path with ".name" (no leading dot at the
// root), array elements with "[]", and wrappers keep their parent's path.
func Walk(n *Node, path string, fn WalkFunc) error {
	if n == nil {
		return nil
	}
	if err := fn(path, n); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}

	switch n.kind {
	case KindObject:
		for _, f := range n.fields {
			if err := Walk(f.Node, JoinPath(path, f.Name), fn); err != nil {
				return err
			}
		}
	case KindArray:
		return Walk(n.inner, path+"[]", fn)
	case KindOptional, KindNullable, KindDefault:
		return Walk(n.inner, path, fn)
	}
	return nil
}

// JoinPath appends a field name to a path.
func JoinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// FieldReference records that the input at Path draws its options from
// FunctionName's output.
type FieldReference struct {
	Path         string `json:"path"`
	FunctionName string `json:"functionName"`
}

// ExtractReferences returns every FieldFrom annotation under n with its path,
// in pre-order matching field declaration order.
func ExtractReferences(n *Node, path string) []FieldReference {
	refs := []FieldReference{}
	_ = Walk(n, path, func(p string, node *Node) error {
		if a, ok := node.Annotation(); ok && a.Kind == FieldFrom {
			refs = append(refs, FieldReference{Path: p, FunctionName: a.Function})
		}
		return nil
	})
	return refs
}

// StructureError describes a violation of the schema tree invariants.
type StructureError struct {
	Path    string
	Message string
}

func (e *StructureError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Message
	}
	return fmt.Sprintf("schema at %q: %s", e.Path, e.Message)
}

// Check verifies the structural invariants of a tree:
//   - annotations only on object fields (never the root or an array element)
//   - at most one annotation per field, counting its wrappers
//   - FieldFrom names a function
//   - object field names are unique and required names exist
//   - enums have values; wrappers and arrays have a child
func Check(n *Node) error {
	if n == nil {
		return nil
	}
	return check(n, "", false)
}

func check(n *Node, path string, annotatable bool) error {
	if n == nil {
		return &StructureError{Path: path, Message: "missing node"}
	}

	// A field's annotation may sit on the field node or any wrapper under it.
	count := 0
	core := n
	for {
		if a, ok := core.Annotation(); ok {
			if !annotatable {
				return &StructureError{Path: path, Message: "annotation " + a.String() + " is only allowed on object fields"}
			}
			if a.Kind == FieldFrom && a.Function == "" {
				return &StructureError{Path: path, Message: "fieldFrom requires a function name"}
			}
			count++
		}
		if !core.kind.IsWrapper() {
			break
		}
		if core.inner == nil {
			return &StructureError{Path: path, Message: core.kind.String() + " has no inner schema"}
		}
		core = core.inner
	}
	if count > 1 {
		return &StructureError{Path: path, Message: "a field may carry at most one annotation"}
	}

	switch core.kind {
	case KindObject:
		seen := make(map[string]bool, len(core.fields))
		for _, f := range core.fields {
			if f.Name == "" {
				return &StructureError{Path: path, Message: "object field with empty name"}
			}
			if seen[f.Name] {
				return &StructureError{Path: path, Message: "duplicate field " + f.Name}
			}
			seen[f.Name] = true
			if err := check(f.Node, JoinPath(path, f.Name), true); err != nil {
				return err
			}
		}
		for name := range core.required {
			if !seen[name] {
				return &StructureError{Path: path, Message: "required field " + name + " is not declared"}
			}
		}
	case KindArray:
		if core.inner == nil {
			return &StructureError{Path: path, Message: "array has no element schema"}
		}
		return check(core.inner, path+"[]", false)
	case KindEnum:
		if len(core.values) == 0 {
			return &StructureError{Path: path, Message: "enum has no values"}
		}
	}
	return nil
}
