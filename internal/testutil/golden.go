package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Use: go test ./... -run TestGolden -update
var updateGolden = flag.Bool("update", false, "rewrite golden files from current output")

// maxDiffLines bounds how much of a mismatch is printed.
const maxDiffLines = 40

// ShouldUpdate reports whether -update was given.
func ShouldUpdate() bool {
	return *updateGolden
}

// CompareGolden normalizes got (see MarshalNormalized) and compares it with
// expected/<name>.json.
func CompareGolden(t *testing.T, fixture *FixtureContext, name string, got any) {
	t.Helper()
	compareFile(t, fixture.ExpectedPath(name), MarshalNormalized(t, fixture, got))
}

// CompareGoldenText compares rendered text with expected/<name>.txt.
func CompareGoldenText(t *testing.T, fixture *FixtureContext, name, got string) {
	t.Helper()
	compareFile(t, filepath.Join(fixture.ExpectedDir, name+".txt"), []byte(got))
}

func compareFile(t *testing.T, path string, got []byte) {
	t.Helper()

	if *updateGolden {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create expected directory: %v", err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", path)
		return
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("Golden file missing: %s\n\nGot:\n%s\nRun with -update to create it:\n  go test ./... -run %s -update",
			path, got, t.Name())
	}
	if err != nil {
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(want, got) {
		t.Errorf("Golden mismatch for %s:\n%s\nRun with -update to refresh:\n  go test ./... -run %s -update",
			path, lineDiff(string(want), string(got)), t.Name())
	}
}

// lineDiff lists differing lines by number, golden side first. It compares
// position by position, so an inserted line shows every later line as
// changed; that is enough to spot what moved.
func lineDiff(want, got string) string {
	wantLines := strings.Split(want, "\n")
	gotLines := strings.Split(got, "\n")

	var b strings.Builder
	shown := 0
	for i := 0; i < max(len(wantLines), len(gotLines)); i++ {
		w, g := lineAt(wantLines, i), lineAt(gotLines, i)
		if w == g {
			continue
		}
		if shown == maxDiffLines {
			b.WriteString("...\n")
			break
		}
		if i < len(wantLines) {
			fmt.Fprintf(&b, "%4d - %s\n", i+1, w)
		}
		if i < len(gotLines) {
			fmt.Fprintf(&b, "%4d + %s\n", i+1, g)
		}
		shown++
	}
	return b.String()
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}
