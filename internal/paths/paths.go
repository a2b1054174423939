// Package paths centralizes the on-disk layout of a project's .ontolock directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// StateDirName is the per-project state directory
	StateDirName = ".ontolock"
	// LockfileName is the default lockfile name inside the state directory
	LockfileName = "ontology.lock.json"
	// ConfigName is the config file base name (viper adds the extension)
	ConfigName = "config"
	// HistoryDBName is the approval history database
	HistoryDBName = "history.db"
	// LogsDirName holds server logs
	LogsDirName = "logs"
)

// StateDir returns <projectRoot>/.ontolock
func StateDir(projectRoot string) string {
	return filepath.Join(projectRoot, StateDirName)
}

// LockfilePath returns the default lockfile location.
func LockfilePath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), LockfileName)
}

// HistoryDBPath returns the default approval history database location.
func HistoryDBPath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), HistoryDBName)
}

// ServeLogPath returns the log file used by `ontolock serve`.
func ServeLogPath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), LogsDirName, "serve.log")
}

// EnsureDir creates dir (and parents) if missing.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// Resolve makes p absolute relative to projectRoot unless it already is.
func Resolve(projectRoot, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectRoot, filepath.FromSlash(p))
}

// Relative converts an absolute path to a project-relative, forward-slash path.
// Symlinks are resolved when the target exists.
func Relative(absolutePath, projectRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(projectRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = projectRoot
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinProject reports whether path lies inside projectRoot.
func IsWithinProject(path, projectRoot string) bool {
	rel, err := Relative(path, projectRoot)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, "../")
}
