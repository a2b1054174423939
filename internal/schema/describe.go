package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// Descriptor is the structural, order-independent form of a Node. It is what
// gets hashed and persisted in the lockfile. JSON encoding sorts property
// keys, so two descriptors are equal exactly when their encodings are.
type Descriptor struct {
	Type       string                 `json:"type"`
	Properties map[string]*Descriptor `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
	Items      *Descriptor            `json:"items,omitempty"`
	Inner      *Descriptor            `json:"inner,omitempty"`
	Enum       []string               `json:"enum,omitempty"`
	Default    any                    `json:"default,omitempty"`
	Context    string                 `json:"context,omitempty"`
	FieldFrom  string                 `json:"fieldFrom,omitempty"`
}

// Context values in a Descriptor
const (
	ContextUser         = "user"
	ContextOrganization = "organization"
)

// Describe converts n to its Descriptor. A nil node yields a nil descriptor.
// It fails only when a default value cannot be encoded as JSON.
func Describe(n *Node) (*Descriptor, error) {
	if n == nil {
		return nil, nil
	}

	d := &Descriptor{Type: n.kind.String()}
	if a, ok := n.Annotation(); ok {
		switch a.Kind {
		case UserContext:
			d.Context = ContextUser
		case OrganizationContext:
			d.Context = ContextOrganization
		case FieldFrom:
			d.FieldFrom = a.Function
		}
	}

	switch n.kind {
	case KindObject:
		if len(n.fields) > 0 {
			d.Properties = make(map[string]*Descriptor, len(n.fields))
		}
		for _, f := range n.fields {
			child, err := Describe(f.Node)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			d.Properties[f.Name] = child
		}
		if len(n.required) > 0 {
			d.Required = make([]string, 0, len(n.required))
			for name := range n.required {
				d.Required = append(d.Required, name)
			}
			sort.Strings(d.Required)
		}
	case KindArray:
		items, err := Describe(n.inner)
		if err != nil {
			return nil, fmt.Errorf("[]: %w", err)
		}
		d.Items = items
	case KindOptional, KindNullable, KindDefault:
		inner, err := Describe(n.inner)
		if err != nil {
			return nil, err
		}
		d.Inner = inner
		if n.kind == KindDefault {
			v, err := normalizeJSON(n.def)
			if err != nil {
				return nil, fmt.Errorf("default value: %w", err)
			}
			d.Default = v
		}
	case KindEnum:
		d.Enum = slices.Clone(n.values)
		sort.Strings(d.Enum)
		d.Enum = slices.Compact(d.Enum)
	}
	return d, nil
}

// normalizeJSON round-trips v through JSON so that numbers, maps and slices
// take the same Go types they will have after reading a lockfile back.
func normalizeJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Equal reports deep structural equality of two descriptors.
func Equal(a, b *Descriptor) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// ChangeType classifies a structural schema change.
type ChangeType string

const (
	FieldAdded        ChangeType = "field_added"
	FieldRemoved      ChangeType = "field_removed"
	TypeChanged       ChangeType = "type_changed"
	RequiredChanged   ChangeType = "required_changed"
	AnnotationChanged ChangeType = "annotation_changed"
	EnumChanged       ChangeType = "enum_changed"
	DefaultChanged    ChangeType = "default_changed"
)

// Change is one path-level difference between two descriptors.
type Change struct {
	Path     string     `json:"path"`
	Type     ChangeType `json:"type"`
	OldValue any        `json:"oldValue,omitempty"`
	NewValue any        `json:"newValue,omitempty"`
}

// Compare returns the path-level differences between before and after, in
// pre-order with properties visited alphabetically.
func Compare(before, after *Descriptor) []Change {
	var changes []Change
	compare(before, after, "", &changes)
	return changes
}

func compare(before, after *Descriptor, path string, out *[]Change) {
	switch {
	case before == nil && after == nil:
		return
	case before == nil:
		*out = append(*out, Change{Path: path, Type: FieldAdded, NewValue: after.Type})
		return
	case after == nil:
		*out = append(*out, Change{Path: path, Type: FieldRemoved, OldValue: before.Type})
		return
	}

	if before.Type != after.Type {
		*out = append(*out, Change{Path: path, Type: TypeChanged, OldValue: before.Type, NewValue: after.Type})
		return
	}
	if annotationOf(before) != annotationOf(after) {
		*out = append(*out, Change{Path: path, Type: AnnotationChanged, OldValue: annotationOf(before), NewValue: annotationOf(after)})
	}

	switch before.Type {
	case "object":
		names := make([]string, 0, len(before.Properties)+len(after.Properties))
		for name := range before.Properties {
			names = append(names, name)
		}
		for name := range after.Properties {
			if _, ok := before.Properties[name]; !ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			compare(before.Properties[name], after.Properties[name], JoinPath(path, name), out)
		}
		if !slices.Equal(before.Required, after.Required) {
			*out = append(*out, Change{Path: path, Type: RequiredChanged, OldValue: before.Required, NewValue: after.Required})
		}
	case "array":
		compare(before.Items, after.Items, path+"[]", out)
	case "optional", "nullable", "default":
		compare(before.Inner, after.Inner, path, out)
		if before.Type == "default" && !jsonEqual(before.Default, after.Default) {
			*out = append(*out, Change{Path: path, Type: DefaultChanged, OldValue: before.Default, NewValue: after.Default})
		}
	case "enum":
		if !slices.Equal(before.Enum, after.Enum) {
			*out = append(*out, Change{Path: path, Type: EnumChanged, OldValue: before.Enum, NewValue: after.Enum})
		}
	}
}

func annotationOf(d *Descriptor) string {
	switch {
	case d.Context != "":
		return d.Context + "Context"
	case d.FieldFrom != "":
		return "fieldFrom(" + d.FieldFrom + ")"
	default:
		return ""
	}
}

func jsonEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ab, bb)
}
