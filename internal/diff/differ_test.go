package diff

import (
	"reflect"
	"testing"

	"ontolock/internal/canonical"
	"ontolock/internal/schema"
)

func desc(t *testing.T, n *schema.Node) *schema.Descriptor {
	t.Helper()
	d, err := schema.Describe(n)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func fn(t *testing.T, name string, access ...string) canonical.Function {
	return canonical.Function{
		Name:        name,
		Description: name + " description",
		Access:      access,
		Entities:    []string{},
		Inputs:      desc(t, schema.Object(schema.Prop("id", schema.String()))),
	}
}

func snapshot(fns ...canonical.Function) *canonical.Ontology {
	o := canonical.Empty()
	o.AccessGroups["admin"] = "Administrators"
	o.AccessGroups["public"] = "Everyone"
	for _, f := range fns {
		o.Functions[f.Name] = f
	}
	return o
}

func TestCompute_GetUserScenario(t *testing.T) {
	old := snapshot(fn(t, "getUser", "admin"))
	cur := snapshot(fn(t, "getUser", "admin", "public"))

	d := Compute(old, cur)
	if !d.HasChanges || d.ModifiedCount != 1 || d.AddedCount != 0 || d.RemovedCount != 0 {
		t.Fatalf("diff = %+v", d)
	}
	c := d.Changes[0]
	if c.Type != ChangeModified || c.Kind != KindFunction || c.Name != "getUser" {
		t.Errorf("change = %+v", c)
	}
	want := []FieldChange{{Field: "access", OldValue: []string{"admin"}, NewValue: []string{"admin", "public"}}}
	if !reflect.DeepEqual(c.FieldChanges, want) {
		t.Errorf("FieldChanges = %+v, want %+v", c.FieldChanges, want)
	}
	if c.InputsChanged || c.OutputsChanged {
		t.Error("schemas did not change")
	}
	if c.Severity != SeverityWarning {
		t.Errorf("widening access should be a warning, got %s", c.Severity)
	}
}

func TestCompute_NoChanges(t *testing.T) {
	s := snapshot(fn(t, "getUser", "admin"))
	d := Compute(s, s)
	if d.HasChanges || len(d.Changes) != 0 {
		t.Errorf("diff = %+v, want no changes", d)
	}
	if d.Changes == nil {
		t.Error("Changes should encode as an empty list, not null")
	}
}

func TestCompute_AddedRemoved(t *testing.T) {
	old := snapshot(fn(t, "getUser", "admin"), fn(t, "deleteUser", "admin"))
	cur := snapshot(fn(t, "getUser", "admin"), fn(t, "listUsers", "public"))
	delete(cur.AccessGroups, "public")
	cur.AccessGroups["support"] = "Support staff"
	cur.Entities["User"] = "A person"

	d := Compute(old, cur)

	checks := []struct {
		kind Kind
		name string
		typ  ChangeType
		sev  Severity
	}{
		{KindFunction, "deleteUser", ChangeRemoved, SeverityBreaking},
		{KindFunction, "listUsers", ChangeAdded, SeverityNonBreaking},
		{KindAccessGroup, "public", ChangeRemoved, SeverityBreaking},
		{KindAccessGroup, "support", ChangeAdded, SeverityNonBreaking},
		{KindEntity, "User", ChangeAdded, SeverityNonBreaking},
	}
	for _, tc := range checks {
		c, ok := d.Find(tc.kind, tc.name)
		if !ok {
			t.Errorf("missing %s %s", tc.kind, tc.name)
			continue
		}
		if c.Type != tc.typ || c.Severity != tc.sev {
			t.Errorf("%s %s = %s/%s, want %s/%s", tc.kind, tc.name, c.Type, c.Severity, tc.typ, tc.sev)
		}
	}
	if len(d.Changes) != len(checks) {
		t.Errorf("got %d changes, want %d: %+v", len(d.Changes), len(checks), d.Changes)
	}
	if d.AddedCount != 3 || d.RemovedCount != 2 {
		t.Errorf("counts = +%d -%d", d.AddedCount, d.RemovedCount)
	}
	if !d.HasBreakingChanges() || d.Summary.ByKind["function"] != 2 {
		t.Errorf("summary = %+v", d.Summary)
	}
}

func TestCompute_Symmetry(t *testing.T) {
	a := snapshot(fn(t, "a", "admin"), fn(t, "b", "admin"), fn(t, "c", "admin"))
	b := snapshot(fn(t, "b", "admin", "public"), fn(t, "d", "public"))
	b.Entities["Order"] = "An order"

	ab, ba := Compute(a, b), Compute(b, a)
	if ab.AddedCount != ba.RemovedCount || ab.RemovedCount != ba.AddedCount {
		t.Errorf("asymmetric counts: %+v vs %+v", ab, ba)
	}
	if ab.ModifiedCount != ba.ModifiedCount {
		t.Errorf("modified counts differ: %d vs %d", ab.ModifiedCount, ba.ModifiedCount)
	}

	seen := map[string]bool{}
	for _, c := range ab.Changes {
		key := string(c.Kind) + "/" + c.Name
		if seen[key] {
			t.Errorf("%s appears twice", key)
		}
		seen[key] = true
	}
}

func TestCompute_NarrowedAccessIsBreaking(t *testing.T) {
	d := Compute(snapshot(fn(t, "f", "admin", "public")), snapshot(fn(t, "f", "admin")))
	c, _ := d.Find(KindFunction, "f")
	if c.Severity != SeverityBreaking {
		t.Errorf("severity = %s, want breaking", c.Severity)
	}
}

func TestCompute_SchemaChanges(t *testing.T) {
	tests := []struct {
		name     string
		inputs   *schema.Node
		outputs  *schema.Node
		severity Severity
		inputs2  bool
		outputs2 bool
	}{
		{
			name:     "optional input added",
			inputs:   schema.Object(schema.Prop("id", schema.String()), schema.Prop("verbose", schema.Optional(schema.Boolean()))),
			severity: SeverityNonBreaking,
			inputs2:  true,
		},
		{
			name:     "required input added",
			inputs:   schema.Object(schema.Prop("id", schema.String()), schema.Prop("reason", schema.String())),
			severity: SeverityBreaking,
			inputs2:  true,
		},
		{
			name:     "context annotation added",
			inputs:   schema.Object(schema.Prop("id", schema.String().UserContext())),
			severity: SeverityBreaking,
			inputs2:  true,
		},
		{
			name:     "outputs added",
			inputs:   schema.Object(schema.Prop("id", schema.String())),
			outputs:  schema.Object(schema.Prop("name", schema.String())),
			severity: SeverityNonBreaking,
			outputs2: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after := fn(t, "f", "admin")
			after.Inputs = desc(t, tt.inputs)
			after.Outputs = desc(t, tt.outputs)

			d := Compute(snapshot(fn(t, "f", "admin")), snapshot(after))
			c, ok := d.Find(KindFunction, "f")
			if !ok {
				t.Fatal("expected a modified record")
			}
			if c.InputsChanged != tt.inputs2 || c.OutputsChanged != tt.outputs2 {
				t.Errorf("inputsChanged=%v outputsChanged=%v", c.InputsChanged, c.OutputsChanged)
			}
			if c.Severity != tt.severity {
				t.Errorf("severity = %s, want %s (%+v)", c.Severity, tt.severity, c.SchemaChanges)
			}
			if len(c.SchemaChanges) == 0 {
				t.Error("expected path-level schema changes")
			}
			if len(c.FieldChanges) != 0 {
				t.Errorf("schema changes are reported as flags, not field changes: %+v", c.FieldChanges)
			}
		})
	}
}

func TestCompute_DescriptionOnly(t *testing.T) {
	after := fn(t, "f", "admin")
	after.Description = "new wording"
	old := snapshot(fn(t, "f", "admin"))
	cur := snapshot(after)
	cur.AccessGroups["admin"] = "Admins"

	d := Compute(old, cur)
	if d.ModifiedCount != 2 {
		t.Fatalf("ModifiedCount = %d, want 2", d.ModifiedCount)
	}
	g, ok := d.Find(KindAccessGroup, "admin")
	if !ok || g.FieldChanges[0].NewValue != "Admins" {
		t.Errorf("group change = %+v", g)
	}
	if d.HasBreakingChanges() {
		t.Error("description changes are not breaking")
	}
}

func TestCompute_NilSnapshots(t *testing.T) {
	d := Compute(nil, snapshot(fn(t, "getUser", "admin")))
	if d.AddedCount != 3 {
		t.Errorf("AddedCount = %d, want function plus two groups", d.AddedCount)
	}
	if Compute(nil, nil).HasChanges {
		t.Error("two empty snapshots have no changes")
	}
}

func TestDiff_Sorted(t *testing.T) {
	d := &Diff{Changes: []Change{
		{Type: ChangeAdded, Kind: KindFunction, Name: "b"},
		{Type: ChangeModified, Kind: KindEntity, Name: "a"},
		{Type: ChangeRemoved, Kind: KindFunction, Name: "z"},
		{Type: ChangeModified, Kind: KindFunction, Name: "c"},
		{Type: ChangeAdded, Kind: KindFunction, Name: "a"},
	}}

	var got []string
	for _, c := range d.Sorted() {
		got = append(got, string(c.Type)+":"+c.Name)
	}
	want := []string{"modified:c", "modified:a", "removed:z", "added:a", "added:b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}
	if d.Changes[0].Name != "b" {
		t.Error("Sorted must not reorder the diff in place")
	}
}
