// Package extractor turns source files into extracted Documents. Multiple
// backends are tried in priority order until one yields usable text; the
// chain itself is the only thing the pipeline depends on.
package extractor

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dshills/docontext/pkg/types"
)

// Minimum total characters an extraction must yield to count as usable.
const minExtractionChars = 100

// TextExtractor is one extraction backend. Supports reports whether the
// backend understands the file at all (usually by extension); Extract
// returns per-page text and layout hints.
type TextExtractor interface {
	Name() string
	Supports(path string) bool
	Extract(ctx context.Context, path string) ([]types.Page, error)
}

// Chain tries its backends in priority order until one succeeds.
type Chain struct {
	backends []TextExtractor
}

// NewChain builds an extraction chain. Backends are tried in the order given.
func NewChain(backends ...TextExtractor) *Chain {
	return &Chain{backends: backends}
}

// DefaultChain is the standard backend ordering: PDF first, plain text for
// everything textual.
func DefaultChain() *Chain {
	return NewChain(NewPDFExtractor(), NewPlainTextExtractor())
}

// Supports reports whether any backend in the chain accepts the path.
func (c *Chain) Supports(path string) bool {
	for _, b := range c.backends {
		if b.Supports(path) {
			return true
		}
	}
	return false
}

// Extract runs the priority chain for one file. Every backend failure is
// collected; if all backends fail the returned error wraps
// types.ErrExtractionFailed so the coordinator can categorize it.
func (c *Chain) Extract(ctx context.Context, path string) ([]types.Page, string, error) {
	var attempts []string
	for _, b := range c.backends {
		if !b.Supports(path) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		pages, err := b.Extract(ctx, path)
		if err != nil {
			// A dead context is a timeout or cancellation, not a backend
			// defect; surface it as such instead of trying further backends.
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			log.Printf("extractor: backend %s failed for %s: %v", b.Name(), path, err)
			attempts = append(attempts, fmt.Sprintf("%s: %v", b.Name(), err))
			continue
		}
		if !usable(pages) {
			attempts = append(attempts, fmt.Sprintf("%s: insufficient text", b.Name()))
			continue
		}
		return pages, b.Name(), nil
	}
	if len(attempts) == 0 {
		return nil, "", fmt.Errorf("%w: no backend supports %s", types.ErrExtractionFailed, path)
	}
	return nil, "", fmt.Errorf("%w: %s", types.ErrExtractionFailed, strings.Join(attempts, "; "))
}

// usable validates an extraction result: at least one page and a minimum
// total character yield. Garbage extractions (a few stray glyphs from a
// scanned PDF) should fall through to the next backend.
func usable(pages []types.Page) bool {
	if len(pages) == 0 {
		return false
	}
	total := 0
	for i := range pages {
		total += len(strings.TrimSpace(pages[i].Content))
	}
	return total >= minExtractionChars
}
