package testutil

import (
	"path/filepath"
	"testing"
)

// TempDBPath returns a path for a throwaway SQLite database inside the
// test's temp dir. The file itself is created by the store on open.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "decisions.db")
}
