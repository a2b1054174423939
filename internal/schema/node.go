// Package schema implements the typed schema tree that describes function
// inputs and outputs. Nodes are immutable once built; every builder method
// returns a new node. Fields may carry one categorical annotation marking
// them as system-injected (user or organization context) or as sourced from
// another function's output.
package schema

import (
	"fmt"
	"slices"
)

// Kind identifies the variant of a Node.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindObject
	KindArray
	KindOptional
	KindNullable
	KindEnum
	KindDefault
	// KindOpaque stands in for a schema that could not be introspected.
	KindOpaque
)

var kindNames = map[Kind]string{
	KindString:   "string",
	KindNumber:   "number",
	KindBoolean:  "boolean",
	KindObject:   "object",
	KindArray:    "array",
	KindOptional: "optional",
	KindNullable: "nullable",
	KindEnum:     "enum",
	KindDefault:  "default",
	KindOpaque:   "opaque",
}

// String returns the type tag used in canonical output.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsWrapper reports whether the kind is transparent for paths and annotations.
func (k Kind) IsWrapper() bool {
	return k == KindOptional || k == KindNullable || k == KindDefault
}

// AnnotationKind identifies a categorical field annotation.
type AnnotationKind int

const (
	// UserContext marks a field populated from the calling principal's user.
	UserContext AnnotationKind = iota + 1
	// OrganizationContext marks a field populated from the principal's organization.
	OrganizationContext
	// FieldFrom marks a field whose options come from another function's output.
	FieldFrom
)

// String returns the annotation name.
func (a AnnotationKind) String() string {
	switch a {
	case UserContext:
		return "userContext"
	case OrganizationContext:
		return "organizationContext"
	case FieldFrom:
		return "fieldFrom"
	default:
		return "none"
	}
}

// Annotation is a categorical marker attached to a field.
type Annotation struct {
	Kind AnnotationKind
	// Function is set for FieldFrom only.
	Function string
}

// IsContext reports whether the annotation marks a system-injected field.
func (a Annotation) IsContext() bool {
	return a.Kind == UserContext || a.Kind == OrganizationContext
}

func (a Annotation) String() string {
	if a.Kind == FieldFrom {
		return "fieldFrom(" + a.Function + ")"
	}
	return a.Kind.String()
}

// Field is a named member of an object node.
type Field struct {
	Name string
	Node *Node
}

// Prop is shorthand for Field{name, n}.
func Prop(name string, n *Node) Field {
	return Field{Name: name, Node: n}
}

// Node is one element of the schema tree.
type Node struct {
	kind       Kind
	fields     []Field
	required   map[string]struct{}
	inner      *Node
	values     []string
	def        any
	annotation *Annotation
}

// String creates a string node.
func String() *Node { return &Node{kind: KindString} }

// Number creates a number node.
func Number() *Node { return &Node{kind: KindNumber} }

// Boolean creates a boolean node.
func Boolean() *Node { return &Node{kind: KindBoolean} }

// Opaque creates a node that accepts any value.
func Opaque() *Node { return &Node{kind: KindOpaque} }

// Enum creates a string enumeration node.
func Enum(values ...string) *Node {
	return &Node{kind: KindEnum, values: slices.Clone(values)}
}

// Object creates an object node. Fields whose node is Optional or Default
// are not required; every other field is.
func Object(fields ...Field) *Node {
	n := &Node{
		kind:     KindObject,
		fields:   slices.Clone(fields),
		required: make(map[string]struct{}, len(fields)),
	}
	for _, f := range fields {
		if f.Node != nil && (f.Node.kind == KindOptional || f.Node.kind == KindDefault) {
			continue
		}
		n.required[f.Name] = struct{}{}
	}
	return n
}

// Array creates an array node.
func Array(elem *Node) *Node { return &Node{kind: KindArray, inner: elem} }

// Optional wraps inner so that the field may be absent.
func Optional(inner *Node) *Node { return &Node{kind: KindOptional, inner: inner} }

// Nullable wraps inner so that the value may be null.
func Nullable(inner *Node) *Node { return &Node{kind: KindNullable, inner: inner} }

// Default wraps inner with a value used when the field is absent.
func Default(inner *Node, value any) *Node {
	return &Node{kind: KindDefault, inner: inner, def: value}
}

// Optional returns Optional(n).
func (n *Node) Optional() *Node { return Optional(n) }

// Nullable returns Nullable(n).
func (n *Node) Nullable() *Node { return Nullable(n) }

// Default returns Default(n, value).
func (n *Node) Default(value any) *Node { return Default(n, value) }

// UserContext returns a copy of n annotated as user context.
func (n *Node) UserContext() *Node {
	return n.annotate(Annotation{Kind: UserContext})
}

// OrganizationContext returns a copy of n annotated as organization context.
func (n *Node) OrganizationContext() *Node {
	return n.annotate(Annotation{Kind: OrganizationContext})
}

// FieldFrom returns a copy of n annotated as sourced from fn's output.
func (n *Node) FieldFrom(fn string) *Node {
	return n.annotate(Annotation{Kind: FieldFrom, Function: fn})
}

// Annotate returns a copy of n carrying a.
func (n *Node) Annotate(a Annotation) *Node {
	return n.annotate(a)
}

// WithRequired returns a copy of an object node with an explicit required set.
func (n *Node) WithRequired(names ...string) *Node {
	c := n.clone()
	c.required = make(map[string]struct{}, len(names))
	for _, name := range names {
		c.required[name] = struct{}{}
	}
	return c
}

func (n *Node) annotate(a Annotation) *Node {
	c := n.clone()
	c.annotation = &a
	return c
}

// clone is shallow: children are shared, which is safe because nodes are immutable.
func (n *Node) clone() *Node {
	c := *n
	if n.required != nil {
		c.required = make(map[string]struct{}, len(n.required))
		for k := range n.required {
			c.required[k] = struct{}{}
		}
	}
	return &c
}

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// Fields returns the object's fields in declaration order.
func (n *Node) Fields() []Field { return slices.Clone(n.fields) }

// Field looks up an object field by name.
func (n *Node) Field(name string) (*Node, bool) {
	for _, f := range n.fields {
		if f.Name == name {
			return f.Node, true
		}
	}
	return nil, false
}

// IsRequired reports whether the object requires name.
func (n *Node) IsRequired(name string) bool {
	_, ok := n.required[name]
	return ok
}

// Required returns required field names in declaration order, followed by
// any required names that do not match a field, sorted.
func (n *Node) Required() []string {
	out := make([]string, 0, len(n.required))
	seen := make(map[string]bool, len(n.required))
	for _, f := range n.fields {
		if n.IsRequired(f.Name) {
			out = append(out, f.Name)
			seen[f.Name] = true
		}
	}
	var extra []string
	for name := range n.required {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// Elem returns the element node of an array.
func (n *Node) Elem() *Node {
	if n.kind != KindArray {
		return nil
	}
	return n.inner
}

// Inner returns the wrapped node of Optional, Nullable or Default.
func (n *Node) Inner() *Node {
	if !n.kind.IsWrapper() {
		return nil
	}
	return n.inner
}

// Values returns enum values in declaration order.
func (n *Node) Values() []string { return slices.Clone(n.values) }

// DefaultValue returns the value of a Default node.
func (n *Node) DefaultValue() any { return n.def }

// Annotation returns the node's own annotation, if any.
func (n *Node) Annotation() (Annotation, bool) {
	if n.annotation == nil {
		return Annotation{}, false
	}
	return *n.annotation, true
}

// Unwrap strips Optional, Nullable and Default wrappers.
func (n *Node) Unwrap() *Node {
	for n != nil && n.kind.IsWrapper() {
		n = n.inner
	}
	return n
}

// FieldAnnotation returns the annotation carried by a field: the first one
// found on n or any wrapper beneath it.
func FieldAnnotation(n *Node) (Annotation, bool) {
	for cur := n; cur != nil; cur = cur.inner {
		if cur.annotation != nil {
			return *cur.annotation, true
		}
		if !cur.kind.IsWrapper() {
			break
		}
	}
	return Annotation{}, false
}
