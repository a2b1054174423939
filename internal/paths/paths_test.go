package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayout(t *testing.T) {
	root := filepath.FromSlash("/srv/api")

	if got, want := LockfilePath(root), filepath.Join(root, ".ontolock", "ontology.lock.json"); got != want {
		t.Errorf("LockfilePath = %s, want %s", got, want)
	}
	if got, want := HistoryDBPath(root), filepath.Join(root, ".ontolock", "history.db"); got != want {
		t.Errorf("HistoryDBPath = %s, want %s", got, want)
	}
	if got, want := ServeLogPath(root), filepath.Join(root, ".ontolock", "logs", "serve.log"); got != want {
		t.Errorf("ServeLogPath = %s, want %s", got, want)
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "x.yaml")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{abs, abs},
		{"ontology.yaml", filepath.Join(root, "ontology.yaml")},
		{"defs/ontology.yaml", filepath.Join(root, "defs", "ontology.yaml")},
	}
	for _, tt := range tests {
		if got := Resolve(root, tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRelativeAndWithin(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "defs", "ontology.yaml")
	if err := os.MkdirAll(filepath.Dir(inside), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(inside, []byte("functions: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rel, err := Relative(inside, root)
	if err != nil {
		t.Fatalf("Relative: %v", err)
	}
	if rel != "defs/ontology.yaml" {
		t.Errorf("Relative = %q, want defs/ontology.yaml", rel)
	}
	if !IsWithinProject(inside, root) {
		t.Error("expected inside path to be within project")
	}
	if IsWithinProject(filepath.Join(filepath.Dir(root), "elsewhere"), root) {
		t.Error("expected sibling path to be outside project")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	got, err := EnsureDir(dir)
	if err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if info, err := os.Stat(got); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be a directory", got)
	}
}
