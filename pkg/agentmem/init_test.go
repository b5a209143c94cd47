package agentmem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuzeru/agent-memory/pkg/config"
)

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Memory.File.Path = filepath.Join(dir, "memories.json")
	cfg.Memory.File.HistoryPath = filepath.Join(dir, "history.json")
	cfg.Embedding.Provider = "deterministic"
	cfg.Embedding.Dimensions = 32
	return cfg
}

func TestNewFromConfig_FileStore(t *testing.T) {
	client, err := NewFromConfig(fileConfig(t))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	id, err := client.IngestText(ctx, "built from config", IngestOptions{})
	require.NoError(t, err)

	entry, err := client.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "built from config", entry.Content)
}

func TestNewFromConfig_BoltStore(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Memory.Store = "boltdb"
	cfg.Memory.BoltDB.Path = filepath.Join(t.TempDir(), "memories.bolt.db")

	client, err := NewFromConfig(cfg)
	require.NoError(t, err)

	count, err := client.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Close must release bolt's exclusive file lock so a second client can
	// open the same path.
	require.NoError(t, client.Close())

	client2, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.NoError(t, client2.Close())
}

func TestNewFromConfig_ChromemStore(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Memory.Store = "chromem"
	cfg.Memory.Chromem.Collection = "config_test"

	client, err := NewFromConfig(cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	id, err := client.IngestText(ctx, "stored in chromem", IngestOptions{})
	require.NoError(t, err)

	entry, err := client.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "stored in chromem", entry.Content)
}

func TestNewFromConfig_UnsupportedStore(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Memory.Store = "cassandra"

	_, err := NewFromConfig(cfg)
	require.Error(t, err)
}

func TestNewFromConfig_ScriptEngine(t *testing.T) {
	scriptDir := t.TempDir()
	script := `
		function before_recall(query)
			return query .. " expanded"
		end
	`
	require.NoError(t, os.WriteFile(filepath.Join(scriptDir, "hooks.lua"), []byte(script), 0o644))

	cfg := fileConfig(t)
	cfg.Scripting.Paths = []string{scriptDir}

	client, err := NewFromConfig(cfg)
	require.NoError(t, err)
	defer client.Close()
	require.NotNil(t, client.scriptEngine)

	// The hook rewrites the query before embedding; recall still works.
	_, err = client.Recall(context.Background(), "original", RecallOptions{})
	require.NoError(t, err)
}

func TestNewFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
memory:
  store: file
  file:
    path: ` + filepath.Join(dir, "memories.json") + `
    history_path: ` + filepath.Join(dir, "history.json") + `
embedding:
  provider: deterministic
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	client, err := NewFromConfigFile(path)
	require.NoError(t, err)
	defer client.Close()

	count, err := client.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
