package testutil

import "testing"

func TestMarshalNormalized(t *testing.T) {
	fixture := &FixtureContext{Root: "/tmp/fx"}
	got := MarshalNormalized(t, fixture, map[string]any{
		"writtenAt": "2026-01-01T00:00:00Z",
		"path":      "/tmp/fx/ontology.yaml",
		"b":         1,
		"a":         []any{map[string]any{"decidedAt": "x", "id": "keep"}},
	})
	want := `{
  "a": [
    {
      "id": "keep"
    }
  ],
  "b": 1,
  "path": "<fixture>/ontology.yaml"
}
`
	if string(got) != want {
		t.Errorf("MarshalNormalized() =\n%s\nwant\n%s", got, want)
	}
}

func TestNormalize_RawJSON(t *testing.T) {
	got := Normalize(t, nil, []byte(`{"requestId":"r","ok":true}`))
	m, ok := got.(map[string]any)
	if !ok || len(m) != 1 || m["ok"] != true {
		t.Errorf("Normalize() = %#v", got)
	}
}

func TestLineDiff(t *testing.T) {
	out := lineDiff("a\nb\nc\n", "a\nx\nc\n")
	want := "   2 - b\n   2 + x\n"
	if out != want {
		t.Errorf("lineDiff() = %q, want %q", out, want)
	}
	if lineDiff("same", "same") != "" {
		t.Error("equal input should produce no diff")
	}
}

func TestFixtures(t *testing.T) {
	names := AvailableFixtures(t)
	if len(names) < 2 {
		t.Fatalf("AvailableFixtures() = %v", names)
	}

	users := LoadFixture(t, "users")
	if users.EnvironmentsPath == "" {
		t.Error("users fixture should have an environments sidecar")
	}
	def := users.Definition(t)
	if len(def.Functions()) != 2 {
		t.Errorf("users fixture has %d functions, want 2", len(def.Functions()))
	}
	env, ok := def.Environment("dev")
	if !ok || env.Variables["API_URL"] != "http://127.0.0.1:8080" {
		t.Errorf("sidecar should override dev API_URL, got %+v", env)
	}
	if _, ok := def.Environment("production"); !ok {
		t.Error("production environment from sidecar missing")
	}
}
