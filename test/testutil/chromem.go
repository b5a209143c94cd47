package testutil

import (
	"path/filepath"
	"testing"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/require"
)

// CreateTempChromemGoClient creates a new, in-memory chromem-go instance
// suitable for isolated testing. It returns the client and a no-op cleanup
// function, as the instance is garbage collected after the test.
func CreateTempChromemGoClient(t *testing.T) (*chromem.DB, func()) {
	// As of chromem-go v0.7.0, NewDB() doesn't return an error.
	client := chromem.NewDB()

	cleanupFunc := func() {}

	return client, cleanupFunc
}

// CreateTempChromemGoPath returns a path inside a test-scoped temporary
// directory for an on-disk chromem-go instance. The directory is removed
// automatically when the test finishes.
func CreateTempChromemGoPath(t *testing.T) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "chromem")
	require.NotEmpty(t, path)
	return path
}
