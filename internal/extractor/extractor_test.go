package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docontext/pkg/types"
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPlainTextExtract(t *testing.T) {
	content := strings.Repeat("This is a sentence about configuration management. ", 20)
	path := writeDoc(t, "doc.txt", content)

	pages, err := NewPlainTextExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, pages)
	assert.Equal(t, 1, pages[0].Number)
	assert.NotEmpty(t, pages[0].Content)
}

func TestPlainTextSyntheticPaging(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(strings.Repeat("Paragraph text with enough words to matter. ", 5))
		b.WriteString("\n\n")
	}
	path := writeDoc(t, "long.txt", b.String())

	pages, err := NewPlainTextExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	require.Greater(t, len(pages), 1)
	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
		assert.LessOrEqual(t, p.CharCount, pageSize)
	}
}

func TestPlainTextEmptyFile(t *testing.T) {
	path := writeDoc(t, "empty.txt", "   \n\n  ")

	_, err := NewPlainTextExtractor().Extract(context.Background(), path)
	require.ErrorIs(t, err, types.ErrEmptyText)
}

func TestPlainTextSupports(t *testing.T) {
	e := NewPlainTextExtractor()
	assert.True(t, e.Supports("a.txt"))
	assert.True(t, e.Supports("A.MD"))
	assert.True(t, e.Supports("notes.rst"))
	assert.False(t, e.Supports("a.pdf"))
	assert.False(t, e.Supports("a.docx"))
}

func TestPDFSupports(t *testing.T) {
	e := NewPDFExtractor()
	assert.True(t, e.Supports("manual.pdf"))
	assert.True(t, e.Supports("MANUAL.PDF"))
	assert.False(t, e.Supports("manual.txt"))
}

func TestChainExtract(t *testing.T) {
	content := strings.Repeat("Useful documentation text for the extraction chain. ", 10)
	path := writeDoc(t, "doc.md", content)

	pages, backend, err := DefaultChain().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "plaintext", backend)
	require.NotEmpty(t, pages)
}

func TestChainRejectsTooShort(t *testing.T) {
	path := writeDoc(t, "short.txt", "too short")

	_, _, err := DefaultChain().Extract(context.Background(), path)
	require.ErrorIs(t, err, types.ErrExtractionFailed)
}

// cancellingBackend kills its own context mid-extraction, the way a wedged
// backend looks when the per-document deadline fires.
type cancellingBackend struct{ cancel context.CancelFunc }

func (cancellingBackend) Name() string { return "cancelling" }

func (cancellingBackend) Supports(string) bool { return true }

func (b cancellingBackend) Extract(ctx context.Context, path string) ([]types.Page, error) {
	b.cancel()
	return nil, errors.New("interrupted")
}

func TestChainSurfacesDeadContext(t *testing.T) {
	path := writeDoc(t, "doc.txt", "content")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chain := NewChain(cancellingBackend{cancel: cancel}, NewPlainTextExtractor())

	_, _, err := chain.Extract(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, types.ErrExtractionFailed)
}

func TestChainUnsupportedFile(t *testing.T) {
	path := writeDoc(t, "image.png", "not really an image")

	_, _, err := DefaultChain().Extract(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrExtractionFailed))
}

func TestChainSupports(t *testing.T) {
	chain := DefaultChain()
	assert.True(t, chain.Supports("a.pdf"))
	assert.True(t, chain.Supports("a.txt"))
	assert.False(t, chain.Supports("a.exe"))
}

func TestSanitizeText(t *testing.T) {
	in := "Hello\x00 world\x01\x02 with\ttabs\nand lines\r\n"
	out := SanitizeText(in)
	assert.Equal(t, "Hello world with\ttabs\nand lines", out)
}

func TestLooksTabularAndCode(t *testing.T) {
	table := "| Name | Value |\n| --- | --- |\n| a | 1 |"
	assert.True(t, looksTabular(table))
	assert.False(t, looksTabular("plain prose without pipes"))

	assert.True(t, looksCode("before\n```go\nfmt.Println()\n```\nafter"))
	assert.False(t, looksCode("no fences here"))
}
