package extractor

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dshills/docontext/pkg/types"
)

// PDFExtractor reads PDF files page by page.
type PDFExtractor struct{}

// NewPDFExtractor creates the PDF backend.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Name() string { return "pdf" }

func (e *PDFExtractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Extract pulls plain text from every page. Pages with no extractable text
// are skipped; an entirely empty document is an error so the chain can try
// another backend.
func (e *PDFExtractor) Extract(ctx context.Context, path string) ([]types.Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	var pages []types.Page
	total := reader.NumPage()
	for num := 1; num <= total; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			log.Printf("extractor: %s page %d unreadable: %v", path, num, err)
			continue
		}
		text = SanitizeText(text)
		if text == "" {
			continue
		}
		pages = append(pages, types.Page{
			Number:    num,
			Content:   text,
			CharCount: len(text),
			HasTables: looksTabular(text),
			HasCode:   looksCode(text),
		})
	}
	if len(pages) == 0 {
		return nil, types.ErrEmptyText
	}
	return pages, nil
}

// looksTabular flags pages with pipe-delimited rows so the segmenter keeps
// table blocks atomic.
func looksTabular(text string) bool {
	rows := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Count(line, "|") >= 2 {
			rows++
			if rows >= 2 {
				return true
			}
		}
	}
	return false
}

// looksCode flags pages containing fenced code blocks.
func looksCode(text string) bool {
	return strings.Contains(text, "```")
}
