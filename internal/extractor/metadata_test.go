package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docontext/pkg/types"
)

func docWithPages(path string, pages ...string) *types.Document {
	doc := &types.Document{Path: path}
	for i, content := range pages {
		doc.Pages = append(doc.Pages, types.Page{Number: i + 1, Content: content})
	}
	doc.TotalPages = len(doc.Pages)
	return doc
}

func TestDetectMetadataFull(t *testing.T) {
	doc := docWithPages("manuals/net.pdf",
		"Network Administration Guide\n"+
			"Author: Jane Smith\n"+
			"Version 2.1\n"+
			"Published: 2023-06-15\n"+
			"This manual describes the configuration and the procedures for the network.")
	DetectMetadata(doc)

	assert.Equal(t, "Network Administration Guide", doc.Title)
	assert.Equal(t, []string{"Jane Smith"}, doc.Authors)
	assert.Equal(t, "manual", doc.DocType)
	assert.Equal(t, "2.1", doc.Version)
	require.NotNil(t, doc.CreationDate)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), *doc.CreationDate)
	assert.Equal(t, "en", doc.Language)
}

func TestDetectTitleFallsBackToFirstLine(t *testing.T) {
	doc := docWithPages("docs/notes.txt",
		"Deployment runbook for the billing cluster\nmore text follows here")
	DetectMetadata(doc)
	assert.Equal(t, "Deployment runbook for the billing cluster", doc.Title)
}

func TestDetectTitleFallsBackToFileStem(t *testing.T) {
	doc := docWithPages("docs/runbook.txt", "short")
	DetectMetadata(doc)
	assert.Equal(t, "runbook", doc.Title)
}

func TestDetectAuthorsMultiple(t *testing.T) {
	doc := docWithPages("a.txt", "Authors: Alice Jones, Bob Lee and Carol King\nbody")
	DetectMetadata(doc)
	assert.ElementsMatch(t, []string{"Alice Jones", "Bob Lee", "Carol King"}, doc.Authors)
}

func TestDetectDocTypeUnknown(t *testing.T) {
	doc := docWithPages("a.txt", "Nothing indicative in this text at all.")
	DetectMetadata(doc)
	assert.Equal(t, "unknown", doc.DocType)
}

func TestDetectLanguageGerman(t *testing.T) {
	doc := docWithPages("a.txt",
		"Die Konfiguration und die Verwaltung der Systeme mit der Software und das Handbuch für die Benutzer.")
	DetectMetadata(doc)
	assert.Equal(t, "de", doc.Language)
}
