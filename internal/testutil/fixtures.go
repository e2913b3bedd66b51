package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// FixturesFile is the fixture file name under testdata/fixtures.
const FixturesFile = "barcodes.json"

// BarcodeFixture is a label sequence with its expected validation outcome.
type BarcodeFixture struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
	UseCheck    bool     `json:"use_check"`
	MinDigits   int      `json:"min_digits"`
	Valid       bool     `json:"valid"`
	// CheckChar is empty when no check character is recorded.
	CheckChar string `json:"check_char,omitempty"`
}

// ReadFixtures decodes a fixture file.
func ReadFixtures(path string) ([]BarcodeFixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: fixture paths are controlled by tests
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}

	var fixtures []BarcodeFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("decoding fixtures %s: %w", path, err)
	}
	if len(fixtures) == 0 {
		return nil, fmt.Errorf("fixture file %s is empty", path)
	}
	return fixtures, nil
}

// FindFixture returns the fixture called name.
func FindFixture(fixtures []BarcodeFixture, name string) (BarcodeFixture, bool) {
	for _, f := range fixtures {
		if f.Name == name {
			return f, true
		}
	}
	return BarcodeFixture{}, false
}

// LoadFixtures loads every shared barcode fixture.
func LoadFixtures(t *testing.T) []BarcodeFixture {
	t.Helper()

	root, err := ProjectRoot()
	require.NoError(t, err, "Failed to find project root")

	fixtures, err := ReadFixtures(FixturesPath(root))
	require.NoError(t, err)
	return fixtures
}

// LoadFixture returns the shared fixture called name.
func LoadFixture(t *testing.T, name string) BarcodeFixture {
	t.Helper()

	f, ok := FindFixture(LoadFixtures(t), name)
	require.True(t, ok, "no fixture named %q", name)
	return f
}

// SaveFixtures writes fixtures as indented JSON to dir/FixturesFile.
func SaveFixtures(t *testing.T, dir string, fixtures []BarcodeFixture) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, FixturesFile)

	data, err := json.MarshalIndent(fixtures, "", "  ")
	require.NoError(t, err, "Failed to marshal fixtures to JSON")
	require.NoError(t, os.WriteFile(path, data, 0o600), "Failed to write fixture file: %s", path)

	return path
}
