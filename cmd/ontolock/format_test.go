package main

import (
	"strings"
	"testing"

	"ontolock/internal/canonical"
	"ontolock/internal/diff"
	"ontolock/internal/ontology"
	"ontolock/internal/schema"
	"ontolock/internal/testutil"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatHuman, false},
		{"human", FormatHuman, false},
		{"JSON", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDiffHuman_NoChanges(t *testing.T) {
	d := diff.Compute(canonical.Empty(), canonical.Empty())
	if got := formatDiffHuman(d); !strings.Contains(got, "No changes") {
		t.Errorf("formatDiffHuman() = %q", got)
	}
	if got := formatDiffHuman(nil); !strings.Contains(got, "No changes") {
		t.Errorf("formatDiffHuman(nil) = %q", got)
	}
}

func snapshot(t *testing.T, groups []string, access ...string) *canonical.Ontology {
	t.Helper()
	src := ontology.Source{
		Functions: []ontology.Function{{
			Name:   "getUser",
			Access: access,
			Inputs: schema.Object(schema.Prop("id", schema.String())),
		}},
	}
	for _, g := range groups {
		src.AccessGroups = append(src.AccessGroups, ontology.AccessGroup{Name: g})
	}
	def, err := ontology.Build(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	return canonical.Canonicalize(def)
}

func TestFormatDiffHuman(t *testing.T) {
	before := snapshot(t, []string{"admin"}, "admin")
	after := snapshot(t, []string{"admin", "public"}, "admin", "public")

	got := formatDiffHuman(diff.Compute(before, after))
	for _, want := range []string{
		"1 added, 0 removed, 1 modified",
		"~ function",
		"getUser",
		`access: ["admin"] -> ["admin","public"]`,
		"+ accessGroup",
		"public",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	// Modified records are listed before additions.
	if strings.Index(got, "getUser") > strings.Index(got, "public") {
		t.Errorf("modified change should come first:\n%s", got)
	}
}

func TestCompact(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "none"},
		{"text", "text"},
		{[]string{"a"}, `["a"]`},
		{3, "3"},
	}
	for _, tt := range tests {
		if got := compact(tt.in); got != tt.want {
			t.Errorf("compact(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGolden_DiffFromEmpty(t *testing.T) {
	testutil.ForEachFixture(t, func(t *testing.T, fixture *testutil.FixtureContext) {
		d := diff.Compute(canonical.Empty(), canonical.Canonicalize(fixture.Definition(t)))
		testutil.CompareGoldenText(t, fixture, "diff", formatDiffHuman(d))
	})
}
