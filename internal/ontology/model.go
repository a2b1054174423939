// Package ontology holds the declared capability surface: functions, the
// access groups allowed to call them, domain entities and environments.
// A Definition is immutable once built; hot reload builds a new one and
// swaps it in through a Holder.
package ontology

import (
	"context"
	"maps"
	"slices"

	"ontolock/internal/schema"
)

// AccessGroup is a named permission bucket.
type AccessGroup struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Entity is a domain entity that functions can be tagged with.
type Entity struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Environment is a named set of variables available to resolvers.
type Environment struct {
	Name      string
	Variables map[string]string
}

// Principal is an already-authenticated caller. User and Organization are
// nil when the caller has no such context.
type Principal struct {
	User         any      `json:"user,omitempty"`
	Organization any      `json:"organization,omitempty"`
	Groups       []string `json:"groups"`
}

// AuthHook resolves a request credential into a Principal.
type AuthHook func(ctx context.Context, token string) (Principal, error)

// Function is one callable capability.
type Function struct {
	Name        string
	Description string
	Access      []string
	Entities    []string
	Inputs      *schema.Node
	Outputs     *schema.Node
	// Resolver names the implementation bound to this function. It is not
	// part of the capability surface.
	Resolver string
	UI       bool
}

// AllowedBy reports whether any of groups appears in the function's access list.
func (f *Function) AllowedBy(groups []string) bool {
	for _, g := range groups {
		if slices.Contains(f.Access, g) {
			return true
		}
	}
	return false
}

// Definition is a validated, immutable ontology.
type Definition struct {
	functions    map[string]*Function
	groups       map[string]AccessGroup
	entities     map[string]Entity
	environments map[string]Environment
	auth         AuthHook
	warnings     []error
}

// Function looks up a function by name.
func (d *Definition) Function(name string) (*Function, bool) {
	fn, ok := d.functions[name]
	return fn, ok
}

// Functions returns every function sorted by name.
func (d *Definition) Functions() []*Function {
	out := make([]*Function, 0, len(d.functions))
	for _, name := range sortedKeys(d.functions) {
		out = append(out, d.functions[name])
	}
	return out
}

// AccessGroups returns every access group sorted by name.
func (d *Definition) AccessGroups() []AccessGroup {
	out := make([]AccessGroup, 0, len(d.groups))
	for _, name := range sortedKeys(d.groups) {
		out = append(out, d.groups[name])
	}
	return out
}

// Entities returns every entity sorted by name.
func (d *Definition) Entities() []Entity {
	out := make([]Entity, 0, len(d.entities))
	for _, name := range sortedKeys(d.entities) {
		out = append(out, d.entities[name])
	}
	return out
}

// Environment looks up a named environment.
func (d *Definition) Environment(name string) (Environment, bool) {
	env, ok := d.environments[name]
	return env, ok
}

// EnvironmentNames returns the declared environment names, sorted.
func (d *Definition) EnvironmentNames() []string {
	return sortedKeys(d.environments)
}

// Auth returns the auth hook, or nil.
func (d *Definition) Auth() AuthHook { return d.auth }

// Warnings returns the non-fatal problems found while building, such as a
// function schema that had to be degraded.
func (d *Definition) Warnings() []error { return slices.Clone(d.warnings) }

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
