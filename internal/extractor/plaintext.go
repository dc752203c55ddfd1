package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/docontext/pkg/types"
)

// pageSize is the character count per synthetic page for formats without
// native pagination.
const pageSize = 3000

var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".text":     true,
	".rst":      true,
}

// PlainTextExtractor handles text-like files, splitting them into synthetic
// pages so downstream page bookkeeping works uniformly.
type PlainTextExtractor struct{}

// NewPlainTextExtractor creates the plain-text backend.
func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

func (e *PlainTextExtractor) Name() string { return "plaintext" }

func (e *PlainTextExtractor) Supports(path string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(path))]
}

func (e *PlainTextExtractor) Extract(ctx context.Context, path string) ([]types.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	text := SanitizeText(string(raw))
	if text == "" {
		return nil, types.ErrEmptyText
	}

	var pages []types.Page
	for num := 1; len(text) > 0; num++ {
		cut := len(text)
		if cut > pageSize {
			// Prefer a paragraph break near the page boundary.
			cut = pageSize
			if idx := strings.LastIndex(text[:cut], "\n\n"); idx > pageSize/2 {
				cut = idx
			}
		}
		content := strings.TrimSpace(text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
		if content == "" {
			continue
		}
		pages = append(pages, types.Page{
			Number:    num,
			Content:   content,
			CharCount: len(content),
			HasTables: looksTabular(content),
			HasCode:   looksCode(content),
		})
	}
	return pages, nil
}
