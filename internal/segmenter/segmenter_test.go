package segmenter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docontext/internal/config"
	"github.com/dshills/docontext/pkg/types"
)

func testConfig() config.ChunkingConfig {
	return config.ChunkingConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		MinChunkSize: 100,
		MaxChunkSize: 2000,
	}
}

func docOf(text string) *types.Document {
	return &types.Document{
		ID:    types.DocumentID("test.txt"),
		Pages: []types.Page{{Number: 1, Content: text, CharCount: len(text)}},
	}
}

func paragraphs(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(strings.Repeat("Some sentence with a handful of words in it. ", 6))
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestSplitEmptyInput(t *testing.T) {
	s := New(testConfig())
	assert.Nil(t, s.Split(docOf("   \n  ")))
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	s := New(testConfig())
	segs := s.Split(docOf("A short document, well below the chunk size."))

	require.Len(t, segs, 1)
	assert.Equal(t, "A short document, well below the chunk size.", segs[0].Content)
	assert.Equal(t, []int{1}, segs[0].Pages)
}

func TestSplitRespectsSizeBounds(t *testing.T) {
	cfg := testConfig()
	s := New(cfg)
	segs := s.Split(docOf(paragraphs(30)))

	require.Greater(t, len(segs), 1)
	for i, seg := range segs {
		n := len([]rune(seg.Content))
		assert.LessOrEqual(t, n, cfg.MaxChunkSize, "segment %d too large", i)
		assert.NotEmpty(t, seg.Content)
	}
	// No undersized fragment except possibly a merged tail.
	for i := 0; i < len(segs)-1; i++ {
		assert.GreaterOrEqual(t, len([]rune(segs[i].Content)), cfg.MinChunkSize)
	}
}

func TestMergeSmallFoldsFragments(t *testing.T) {
	s := New(testConfig())
	segs := s.mergeSmall([]Segment{
		{Content: strings.Repeat("a", 1000), Pages: []int{1}},
		{Content: strings.Repeat("b", 90), Pages: []int{2}},
	})

	require.Len(t, segs, 1)
	assert.LessOrEqual(t, len([]rune(segs[0].Content)), testConfig().MaxChunkSize)
	assert.Equal(t, []int{1, 2}, segs[0].Pages)
}

func TestMergeSmallRespectsMaxSize(t *testing.T) {
	// A tight ceiling: folding the 90-rune tail into its 1000-rune
	// predecessor would breach it, so the fragment stays separate.
	s := New(config.ChunkingConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		MinChunkSize: 100,
		MaxChunkSize: 1050,
	})
	segs := s.mergeSmall([]Segment{
		{Content: strings.Repeat("a", 1000)},
		{Content: strings.Repeat("b", 90)},
	})

	require.Len(t, segs, 2)
	for _, seg := range segs {
		assert.LessOrEqual(t, len([]rune(seg.Content)), 1050)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := New(testConfig())
	segs := s.Split(docOf(paragraphs(30)))

	boundaryCuts := 0
	for _, seg := range segs {
		if strings.HasSuffix(strings.TrimSpace(seg.Content), ".") {
			boundaryCuts++
		}
	}
	// Most cuts should land on sentence or paragraph ends for this input.
	assert.Greater(t, boundaryCuts, len(segs)/2)
}

func TestSplitKeepsCodeFenceAtomic(t *testing.T) {
	code := "```\n" + strings.Repeat("x := compute(input)\n", 20) + "```"
	text := paragraphs(5) + code + "\n\n" + paragraphs(5)
	s := New(testConfig())
	segs := s.Split(docOf(text))

	for _, seg := range segs {
		fences := strings.Count(seg.Content, "```")
		assert.Equal(t, 0, fences%2, "segment splits a code fence: %q", seg.Content[:min(80, len(seg.Content))])
	}
}

func TestSplitAnnotatesHeadings(t *testing.T) {
	text := "Chapter 1: Installation\n\n" + paragraphs(15) +
		"Chapter 2: Configuration\n\n" + paragraphs(15)
	s := New(testConfig())
	segs := s.Split(docOf(text))

	require.Greater(t, len(segs), 2)
	assert.Equal(t, "Chapter 1: Installation", segs[0].Heading)

	var sawSecond bool
	for _, seg := range segs {
		if seg.Heading == "Chapter 2: Configuration" {
			sawSecond = true
		}
	}
	assert.True(t, sawSecond)
}

func TestSplitCoversAllPages(t *testing.T) {
	doc := &types.Document{
		ID: types.DocumentID("multi.txt"),
		Pages: []types.Page{
			{Number: 1, Content: paragraphs(4)},
			{Number: 2, Content: paragraphs(4)},
			{Number: 3, Content: paragraphs(4)},
		},
	}
	s := New(testConfig())
	segs := s.Split(doc)

	covered := map[int]bool{}
	for _, seg := range segs {
		for _, p := range seg.Pages {
			covered[p] = true
		}
	}
	assert.True(t, covered[1] && covered[2] && covered[3])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
