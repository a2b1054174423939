// Package access decides which functions a principal may see and call, and
// shapes their schemas and arguments accordingly. Every helper is pure and
// works on one immutable ontology snapshot.
package access

import (
	"maps"

	"ontolock/internal/errors"
	"ontolock/internal/ontology"
	"ontolock/internal/schema"
)

// Principal is an already-authenticated caller.
type Principal = ontology.Principal

// Reachable returns every function whose access list shares at least one
// group with groups, sorted by name.
func Reachable(def *ontology.Definition, groups []string) []*ontology.Function {
	var out []*ontology.Function
	for _, fn := range def.Functions() {
		if fn.AllowedBy(groups) {
			out = append(out, fn)
		}
	}
	return out
}

// ExposedSchema returns fn's input schema without the fields the system
// injects. Context fields are removed from their object's properties and
// required set at every depth.
func ExposedSchema(fn *ontology.Function) *schema.Node {
	if fn.Inputs == nil {
		return schema.Object()
	}
	out := schema.Transform(fn.Inputs, func(n *schema.Node) *schema.Node {
		if a, ok := n.Annotation(); ok && a.IsContext() {
			return nil
		}
		return n
	})
	if out == nil {
		return schema.Object()
	}
	return out
}

// InjectContext returns a copy of args with every context field set from the
// principal. When the principal has no value for a field, whatever the
// caller sent under that key is removed so validation reports it missing.
// args is never modified.
func InjectContext(fn *ontology.Function, args map[string]any, p Principal) map[string]any {
	out := maps.Clone(args)
	if out == nil {
		out = map[string]any{}
	}
	root := fn.Inputs.Unwrap()
	if root == nil || root.Kind() != schema.KindObject {
		return out
	}
	return injectObject(root, out, p)
}

// injectObject writes into obj, which the caller owns.
func injectObject(n *schema.Node, obj map[string]any, p Principal) map[string]any {
	for _, f := range n.Fields() {
		if a, ok := schema.FieldAnnotation(f.Node); ok && a.IsContext() {
			v := p.User
			if a.Kind == schema.OrganizationContext {
				v = p.Organization
			}
			if v == nil {
				delete(obj, f.Name)
			} else {
				obj[f.Name] = v
			}
			continue
		}
		if cur, ok := obj[f.Name]; ok {
			obj[f.Name] = injectValue(f.Node, cur, p)
		}
	}
	return obj
}

// injectValue returns v with context fields injected at any depth below n.
// Arrays of arrays are followed until an object is reached.
func injectValue(n *schema.Node, v any, p Principal) any {
	n = n.Unwrap()
	if n == nil {
		return v
	}
	switch n.Kind() {
	case schema.KindObject:
		if sub, ok := v.(map[string]any); ok {
			return injectObject(n, maps.Clone(sub), p)
		}
	case schema.KindArray:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		copied := make([]any, len(items))
		for i, item := range items {
			copied[i] = injectValue(n.Elem(), item, p)
		}
		return copied
	}
	return v
}

// Filter answers access questions for one request against one snapshot.
type Filter struct {
	def       *ontology.Definition
	principal Principal
}

// NewFilter binds a principal to a snapshot. Callers should take the
// snapshot once per request and not re-read the holder.
func NewFilter(def *ontology.Definition, p Principal) *Filter {
	return &Filter{def: def, principal: p}
}

// Definition returns the bound snapshot.
func (f *Filter) Definition() *ontology.Definition { return f.def }

// Principal returns the bound principal.
func (f *Filter) Principal() Principal { return f.principal }

// Functions returns the functions the principal can reach.
func (f *Filter) Functions() []*ontology.Function {
	return Reachable(f.def, f.principal.Groups)
}

// Lookup returns fn if it exists and the principal can reach it.
func (f *Filter) Lookup(name string) (*ontology.Function, error) {
	fn, ok := f.def.Function(name)
	if !ok {
		return nil, errors.Errorf(errors.FunctionNotFound, "function %q not found", name)
	}
	if !fn.AllowedBy(f.principal.Groups) {
		return nil, errors.Errorf(errors.AccessDenied, "function %q is not available to this caller", name)
	}
	return fn, nil
}

// Prepare turns caller arguments into the arguments a resolver receives:
// context injected, defaults applied, then validated against the full
// input schema.
func (f *Filter) Prepare(name string, args map[string]any) (*ontology.Function, map[string]any, error) {
	fn, err := f.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	prepared := InjectContext(fn, args, f.principal)
	if withDefaults, ok := schema.ApplyDefaults(fn.Inputs, prepared).(map[string]any); ok {
		prepared = withDefaults
	}
	if err := schema.Validate(fn.Inputs, prepared); err != nil {
		e := errors.NewError(errors.InvalidArguments, "invalid arguments for "+name, err)
		if verr, ok := err.(*schema.ValidationError); ok {
			e = e.WithDetails(verr.Issues)
		}
		return nil, nil, e
	}
	return fn, prepared, nil
}
