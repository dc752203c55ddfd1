package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Page is one extracted page of a source document with layout hints the
// segmenter uses to keep tables and code blocks intact.
type Page struct {
	Number    int
	Content   string
	CharCount int
	HasTables bool
	HasCode   bool
}

// Document represents one source file after extraction. The extracted pages
// are immutable once extraction succeeds; a changed source file produces a
// new Document rather than mutating this one.
type Document struct {
	ID          string
	Path        string // relative to the corpus root
	Fingerprint string // sha256 hex of the file bytes
	SizeBytes   int64
	ModTime     time.Time

	Pages      []Page
	TotalPages int
	Backend    string // extraction backend that produced the pages

	// Document-level metadata detected from the first pages.
	Title        string
	Authors      []string
	Language     string
	DocType      string
	Version      string
	CreationDate *time.Time
}

// FullText joins all page contents with blank lines between pages.
func (d *Document) FullText() string {
	total := 0
	for i := range d.Pages {
		total += len(d.Pages[i].Content) + 2
	}
	buf := make([]byte, 0, total)
	for i := range d.Pages {
		if i > 0 {
			buf = append(buf, "\n\n"...)
		}
		buf = append(buf, d.Pages[i].Content...)
	}
	return string(buf)
}

// DocumentID derives a stable document identifier from the corpus-relative
// path. It must not depend on file content or timestamps so that chunk IDs
// stay stable across reprocessing of an unchanged file.
func DocumentID(relPath string) string {
	sum := sha256.Sum256([]byte(relPath))
	return "doc_" + hex.EncodeToString(sum[:6])
}
