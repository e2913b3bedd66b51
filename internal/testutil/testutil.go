// Package testutil locates the module checkout and its shared test data.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// rootMarkers are paths every checkout of the module contains.
var rootMarkers = []string{"go.mod", filepath.Join("internal", "code11"), filepath.Join("testdata", "fixtures")}

// ProjectRoot walks up from this source file to the first directory that
// holds every root marker.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("testutil: no caller information")
	}

	for dir := filepath.Dir(filename); ; {
		if isProjectRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("testutil: no project root above %s", filepath.Dir(filename))
		}
		dir = parent
	}
}

func isProjectRoot(dir string) bool {
	for _, marker := range rootMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err != nil {
			return false
		}
	}
	return true
}

// TestDataDir returns <root>/testdata.
func TestDataDir(t *testing.T) string {
	t.Helper()

	root, err := ProjectRoot()
	require.NoError(t, err, "Failed to find project root")
	return filepath.Join(root, "testdata")
}

// FixturesPath returns the path of the shared fixture file below root.
func FixturesPath(root string) string {
	return filepath.Join(root, "testdata", "fixtures", FixturesFile)
}

// EnsureDir creates a directory and its parents.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}
