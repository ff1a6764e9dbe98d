// Package parser converts uploaded files into plain editable text.
// Operation orders arrive as text, Markdown, HTML, Word, or PDF; every
// format is flattened to a single content string so downstream term
// analysis works on byte offsets into one document.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ImportedDoc is the flattened result of parsing an uploaded file.
// Pages is only populated for paginated formats (PDF) and carries the
// per-page text in order.
type ImportedDoc struct {
	Title   string
	Content string
	Pages   []string
}

// Parser converts raw document bytes into an ImportedDoc.
type Parser interface {
	Parse(r io.Reader, filename string) (*ImportedDoc, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// titleFromFilename strips the extension to get a default title.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
