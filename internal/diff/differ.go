// Package diff explains what changed between two canonical snapshots of the
// capability surface.
package diff

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"ontolock/internal/canonical"
	"ontolock/internal/schema"
)

// Compute returns the change set from before to after. A nil snapshot is
// treated as the empty ontology. Each changed (kind, name) appears once.
func Compute(before, after *canonical.Ontology) *Diff {
	if before == nil {
		before = canonical.Empty()
	}
	if after == nil {
		after = canonical.Empty()
	}

	changes := []Change{}
	changes = append(changes, compareFunctions(before.Functions, after.Functions)...)
	changes = append(changes, compareDescribed(KindAccessGroup, before.AccessGroups, after.AccessGroups)...)
	changes = append(changes, compareDescribed(KindEntity, before.Entities, after.Entities)...)

	d := &Diff{Changes: changes, HasChanges: len(changes) > 0}
	for _, c := range changes {
		switch c.Type {
		case ChangeAdded:
			d.AddedCount++
		case ChangeRemoved:
			d.RemovedCount++
		case ChangeModified:
			d.ModifiedCount++
		}
	}
	d.Summary = computeSummary(changes)
	return d
}

func compareFunctions(before, after map[string]canonical.Function) []Change {
	var changes []Change

	for name := range before {
		if _, exists := after[name]; !exists {
			changes = append(changes, Change{
				Type:        ChangeRemoved,
				Kind:        KindFunction,
				Name:        name,
				Severity:    SeverityBreaking,
				Description: fmt.Sprintf("Function '%s' was removed", name),
			})
		}
	}

	for name, fn := range after {
		old, exists := before[name]
		if !exists {
			changes = append(changes, Change{
				Type:        ChangeAdded,
				Kind:        KindFunction,
				Name:        name,
				Severity:    SeverityNonBreaking,
				Description: fmt.Sprintf("New function '%s' available to %s", name, strings.Join(fn.Access, ", ")),
			})
			continue
		}
		if c, changed := compareFunction(old, fn); changed {
			changes = append(changes, c)
		}
	}
	return changes
}

func compareFunction(old, fn canonical.Function) (Change, bool) {
	c := Change{
		Type:     ChangeModified,
		Kind:     KindFunction,
		Name:     fn.Name,
		Severity: SeverityNonBreaking,
	}
	var parts []string

	if !sameSet(old.Access, fn.Access) {
		c.FieldChanges = append(c.FieldChanges, FieldChange{Field: FieldAccess, OldValue: old.Access, NewValue: fn.Access})
		parts = append(parts, fmt.Sprintf("access %v -> %v", old.Access, fn.Access))
		c.Severity = maxSeverity(c.Severity, accessSeverity(old.Access, fn.Access))
	}
	if !sameSet(old.Entities, fn.Entities) {
		c.FieldChanges = append(c.FieldChanges, FieldChange{Field: FieldEntities, OldValue: old.Entities, NewValue: fn.Entities})
		parts = append(parts, fmt.Sprintf("entities %v -> %v", old.Entities, fn.Entities))
	}
	if old.Description != fn.Description {
		c.FieldChanges = append(c.FieldChanges, FieldChange{Field: FieldDescription, OldValue: old.Description, NewValue: fn.Description})
		parts = append(parts, "description")
	}

	if !schema.Equal(old.Inputs, fn.Inputs) {
		c.InputsChanged = true
		sc := schemaChanges("inputs", old.Inputs, fn.Inputs)
		c.SchemaChanges = append(c.SchemaChanges, sc...)
		c.Severity = maxSeverity(c.Severity, schemaSeverity(sc))
		parts = append(parts, "inputs")
	}
	if !schema.Equal(old.Outputs, fn.Outputs) {
		c.OutputsChanged = true
		sc := schemaChanges("outputs", old.Outputs, fn.Outputs)
		c.SchemaChanges = append(c.SchemaChanges, sc...)
		c.Severity = maxSeverity(c.Severity, schemaSeverity(sc))
		parts = append(parts, "outputs")
	}

	if len(parts) == 0 {
		return Change{}, false
	}
	c.Description = fmt.Sprintf("Function '%s' changed: %s", fn.Name, strings.Join(parts, "; "))
	return c, true
}

func compareDescribed(kind Kind, before, after map[string]string) []Change {
	var changes []Change
	for name := range before {
		if _, exists := after[name]; !exists {
			changes = append(changes, Change{
				Type:        ChangeRemoved,
				Kind:        kind,
				Name:        name,
				Severity:    SeverityBreaking,
				Description: fmt.Sprintf("%s '%s' was removed", kindLabel(kind), name),
			})
		}
	}
	for name, desc := range after {
		old, exists := before[name]
		switch {
		case !exists:
			changes = append(changes, Change{
				Type:        ChangeAdded,
				Kind:        kind,
				Name:        name,
				Severity:    SeverityNonBreaking,
				Description: fmt.Sprintf("New %s '%s'", strings.ToLower(kindLabel(kind)), name),
			})
		case old != desc:
			changes = append(changes, Change{
				Type:         ChangeModified,
				Kind:         kind,
				Name:         name,
				Severity:     SeverityNonBreaking,
				Description:  fmt.Sprintf("%s '%s' description changed", kindLabel(kind), name),
				FieldChanges: []FieldChange{{Field: FieldDescription, OldValue: old, NewValue: desc}},
			})
		}
	}
	return changes
}

func kindLabel(k Kind) string {
	switch k {
	case KindAccessGroup:
		return "Access group"
	case KindEntity:
		return "Entity"
	default:
		return "Function"
	}
}

func sameSet(a, b []string) bool {
	as, bs := slices.Clone(a), slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(slices.Compact(as), slices.Compact(bs))
}

// accessSeverity: losing a group locks callers out, gaining one widens exposure.
func accessSeverity(old, cur []string) Severity {
	for _, g := range old {
		if !slices.Contains(cur, g) {
			return SeverityBreaking
		}
	}
	return SeverityWarning
}

func schemaChanges(which string, before, after *schema.Descriptor) []SchemaChange {
	var out []SchemaChange
	for _, c := range schema.Compare(before, after) {
		out = append(out, SchemaChange{Schema: which, Change: c})
	}
	return out
}

// schemaSeverity treats a new optional input or any new output field as
// non-breaking; everything else may break existing callers.
func schemaSeverity(changes []SchemaChange) Severity {
	sev := SeverityNonBreaking
	for _, c := range changes {
		if c.Type == schema.FieldAdded {
			if c.Schema == "outputs" || (c.Path != "" && (c.NewValue == "optional" || c.NewValue == "default")) {
				continue
			}
		}
		sev = SeverityBreaking
	}
	return sev
}

func severityOrder(s Severity) int {
	switch s {
	case SeverityBreaking:
		return 0
	case SeverityWarning:
		return 1
	case SeverityNonBreaking:
		return 2
	default:
		return 3
	}
}

func maxSeverity(a, b Severity) Severity {
	if severityOrder(b) < severityOrder(a) {
		return b
	}
	return a
}

func computeSummary(changes []Change) *Summary {
	s := &Summary{
		TotalChanges: len(changes),
		ByKind:       make(map[string]int),
	}
	for _, c := range changes {
		s.ByKind[string(c.Kind)]++
		switch c.Severity {
		case SeverityBreaking:
			s.BreakingChanges++
		case SeverityWarning:
			s.Warnings++
		case SeverityNonBreaking:
			s.NonBreaking++
		}
	}
	return s
}

var typeOrder = map[ChangeType]int{ChangeModified: 0, ChangeRemoved: 1, ChangeAdded: 2}
var kindOrder = map[Kind]int{KindFunction: 0, KindAccessGroup: 1, KindEntity: 2}

// Sorted returns the changes in presentation order: modified records first,
// then removed, then added; within each, functions before access groups
// before entities, alphabetically by name.
func (d *Diff) Sorted() []Change {
	out := slices.Clone(d.Changes)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Type != b.Type {
			return typeOrder[a.Type] < typeOrder[b.Type]
		}
		if a.Kind != b.Kind {
			return kindOrder[a.Kind] < kindOrder[b.Kind]
		}
		return a.Name < b.Name
	})
	return out
}
