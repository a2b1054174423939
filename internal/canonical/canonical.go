// Package canonical produces the order-independent form of an ontology that
// is hashed into the lockfile. Only the capability surface is included:
// resolvers, UI hints, environments and the auth hook never affect it.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	"ontolock/internal/ontology"
	"ontolock/internal/schema"
)

// Ontology is the canonical snapshot persisted in the lockfile.
type Ontology struct {
	Functions    map[string]Function `json:"functions"`
	AccessGroups map[string]string   `json:"accessGroups"`
	Entities     map[string]string   `json:"entities"`
}

// Function is the canonical form of one function.
type Function struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Access      []string           `json:"access"`
	Entities    []string           `json:"entities"`
	Inputs      *schema.Descriptor `json:"inputs"`
	Outputs     *schema.Descriptor `json:"outputs,omitempty"`
}

// Empty returns the snapshot of an ontology with nothing declared.
func Empty() *Ontology {
	return &Ontology{
		Functions:    map[string]Function{},
		AccessGroups: map[string]string{},
		Entities:     map[string]string{},
	}
}

// Canonicalize converts def to its canonical form.
func Canonicalize(def *ontology.Definition) *Ontology {
	out := Empty()
	if def == nil {
		return out
	}
	for _, g := range def.AccessGroups() {
		out.AccessGroups[g.Name] = g.Description
	}
	for _, e := range def.Entities() {
		out.Entities[e.Name] = e.Description
	}
	for _, fn := range def.Functions() {
		out.Functions[fn.Name] = Function{
			Name:        fn.Name,
			Description: fn.Description,
			Access:      sortedSet(fn.Access),
			Entities:    sortedSet(fn.Entities),
			Inputs:      describe(fn.Inputs),
			Outputs:     describe(fn.Outputs),
		}
	}
	return out
}

// describe falls back to an opaque descriptor; Build has already degraded
// any schema that cannot be described, so this is unreachable in practice.
func describe(n *schema.Node) *schema.Descriptor {
	d, err := schema.Describe(n)
	if err != nil {
		return &schema.Descriptor{Type: schema.KindOpaque.String()}
	}
	return d
}

func sortedSet(in []string) []string {
	out := slices.Clone(in)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Marshal returns the compact deterministic encoding of o.
// encoding/json writes map keys in sorted order.
func Marshal(o *Ontology) ([]byte, error) {
	return json.Marshal(o)
}

// MarshalIndent returns the human-diffable encoding of o.
func MarshalIndent(o *Ontology) ([]byte, error) {
	return json.MarshalIndent(o, "", "  ")
}

// Hash returns the hex sha256 of Marshal(o).
func Hash(o *Ontology) (string, error) {
	b, err := Marshal(o)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the hex sha256 of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Names returns the sorted function names in o.
func (o *Ontology) Names() []string {
	names := make([]string, 0, len(o.Functions))
	for name := range o.Functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
