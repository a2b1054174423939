// Package testutil provides fixture and golden-file helpers for tests.
//
// Fixtures live in testdata/fixtures/<name>/ at the module root. Each holds
// an ontology.yaml, an optional environments.toml, and an expected/ directory
// of golden files.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"ontolock/internal/ontology"
)

// FixtureContext holds information about a loaded fixture.
type FixtureContext struct {
	// Name is the fixture directory name (e.g., "users")
	Name string

	// Root is the absolute path to the fixture directory
	Root string

	// OntologyPath is the path to the fixture's ontology.yaml
	OntologyPath string

	// EnvironmentsPath is the path to environments.toml, or "" if the
	// fixture has none
	EnvironmentsPath string

	// ExpectedDir is the path to the expected/ directory
	ExpectedDir string
}

// LoadFixture loads a fixture, failing the test on error.
func LoadFixture(t *testing.T, name string) *FixtureContext {
	t.Helper()

	fixtureDir := filepath.Join(getFixturesRoot(t), name)
	ontologyPath := filepath.Join(fixtureDir, "ontology.yaml")
	if _, err := os.Stat(ontologyPath); os.IsNotExist(err) {
		t.Fatalf("Fixture ontology not found: %s", ontologyPath)
	}

	envPath := filepath.Join(fixtureDir, "environments.toml")
	if _, err := os.Stat(envPath); err != nil {
		envPath = ""
	}

	expectedDir := filepath.Join(fixtureDir, "expected")
	if _, err := os.Stat(expectedDir); os.IsNotExist(err) {
		if err := os.MkdirAll(expectedDir, 0o755); err != nil {
			t.Fatalf("Failed to create expected directory: %v", err)
		}
	}

	return &FixtureContext{
		Name:             name,
		Root:             fixtureDir,
		OntologyPath:     ontologyPath,
		EnvironmentsPath: envPath,
		ExpectedDir:      expectedDir,
	}
}

// ExpectedPath returns the path to a golden file within the fixture.
// The name should not include the .json extension.
func (f *FixtureContext) ExpectedPath(name string) string {
	return filepath.Join(f.ExpectedDir, name+".json")
}

// Definition loads the fixture's ontology, with its environments sidecar
// when present.
func (f *FixtureContext) Definition(t *testing.T) *ontology.Definition {
	t.Helper()

	def, err := ontology.LoadFile(f.OntologyPath, ontology.LoadOptions{EnvironmentsPath: f.EnvironmentsPath})
	if err != nil {
		t.Fatalf("Failed to load fixture %s: %v", f.Name, err)
	}
	return def
}

// getFixturesRoot returns the absolute path to testdata/fixtures/.
func getFixturesRoot(t *testing.T) string {
	t.Helper()

	// Get the directory of this source file
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	fixturesRoot := filepath.Join(projectRoot, "testdata", "fixtures")

	if _, err := os.Stat(fixturesRoot); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", fixturesRoot)
	}

	return fixturesRoot
}

// AvailableFixtures returns the names of all fixtures with an ontology.yaml.
func AvailableFixtures(t *testing.T) []string {
	t.Helper()

	root := getFixturesRoot(t)
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("Failed to read fixtures directory: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || isHiddenDir(entry.Name()) {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, entry.Name(), "ontology.yaml")); err == nil {
			names = append(names, entry.Name())
		}
	}
	return names
}

// ForEachFixture runs fn as a subtest for every fixture.
func ForEachFixture(t *testing.T, fn func(t *testing.T, fixture *FixtureContext)) {
	t.Helper()

	names := AvailableFixtures(t)
	if len(names) == 0 {
		t.Skip("No fixtures available")
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			fn(t, LoadFixture(t, name))
		})
	}
}

func isHiddenDir(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
