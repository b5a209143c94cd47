// Package convert extracts plain text from files prior to ingestion.
package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	memerrors "github.com/wuzeru/agent-memory/pkg/errors"
)

// DocumentMetadata describes the converted document.
type DocumentMetadata struct {
	// OriginalFormat is the source format, e.g. "txt" or "md".
	OriginalFormat string `json:"original_format"`

	// WordCount is the number of whitespace-separated words in Content.
	WordCount int `json:"word_count"`
}

// Document is the result of text extraction.
type Document struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// Converter turns a file into plain document text.
type Converter interface {
	// Convert reads the file at path and extracts its text. A missing file
	// is ErrNotFound; a format the converter cannot handle is
	// ErrUnsupportedInput.
	Convert(ctx context.Context, path string) (Document, error)
}

// TextConverter handles plain-text formats: .txt, .md and extensionless
// files.
type TextConverter struct{}

// NewTextConverter creates a plain-text converter.
func NewTextConverter() *TextConverter {
	return &TextConverter{}
}

// Convert implements the Converter interface.
func (c *TextConverter) Convert(ctx context.Context, path string) (Document, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch format {
	case "", "txt", "md", "markdown", "text":
	default:
		return Document{}, memerrors.Wrap(memerrors.ErrUnsupportedInput, "file format %q", format)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, memerrors.Wrap(memerrors.ErrNotFound, "file %s", path)
		}
		return Document{}, memerrors.Wrap(err, "failed to read %s", path)
	}

	content := string(data)
	if format == "" {
		format = "txt"
	}

	return Document{
		Content: content,
		Metadata: DocumentMetadata{
			OriginalFormat: format,
			WordCount:      len(strings.Fields(content)),
		},
	}, nil
}
