package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuzeru/agent-memory/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextConverter_Txt(t *testing.T) {
	path := writeFile(t, "notes.txt", "one two three\nfour five")

	doc, err := NewTextConverter().Convert(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "one two three\nfour five", doc.Content)
	assert.Equal(t, "txt", doc.Metadata.OriginalFormat)
	assert.Equal(t, 5, doc.Metadata.WordCount)
}

func TestTextConverter_Markdown(t *testing.T) {
	path := writeFile(t, "readme.MD", "# Title\n\nbody text")

	doc, err := NewTextConverter().Convert(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "md", doc.Metadata.OriginalFormat)
	assert.Equal(t, 4, doc.Metadata.WordCount)
}

func TestTextConverter_NoExtensionDefaultsToTxt(t *testing.T) {
	path := writeFile(t, "LICENSE", "some text")

	doc, err := NewTextConverter().Convert(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "txt", doc.Metadata.OriginalFormat)
}

func TestTextConverter_UnsupportedFormat(t *testing.T) {
	path := writeFile(t, "image.png", "binary-ish")

	_, err := NewTextConverter().Convert(context.Background(), path)
	assert.ErrorIs(t, err, errors.ErrUnsupportedInput)
}

func TestTextConverter_MissingFile(t *testing.T) {
	_, err := NewTextConverter().Convert(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestTextConverter_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.txt", "")

	doc, err := NewTextConverter().Convert(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, doc.Content)
	assert.Zero(t, doc.Metadata.WordCount)
}
