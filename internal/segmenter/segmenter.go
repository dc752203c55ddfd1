// Package segmenter splits extracted document text into overlapping chunks,
// cutting on structural boundaries when possible and keeping tables and
// fenced code blocks whole.
package segmenter

import (
	"regexp"
	"strings"

	"github.com/dshills/docontext/internal/config"
	"github.com/dshills/docontext/pkg/types"
)

// forcedCutLookback bounds how far back from a forced cut we search for a
// whitespace rune before splitting mid-word.
const forcedCutLookback = 80

// Segment is one raw chunk of text before enrichment and validation.
type Segment struct {
	Content string
	Heading string // nearest heading line preceding the segment, if any
	Pages   []int
	Start   int // rune offset into the full document text
}

// Segmenter carries the chunking limits.
type Segmenter struct {
	chunkSize int
	overlap   int
	minSize   int
	maxSize   int
}

// New builds a segmenter from chunking configuration.
func New(cfg config.ChunkingConfig) *Segmenter {
	return &Segmenter{
		chunkSize: cfg.ChunkSize,
		overlap:   cfg.ChunkOverlap,
		minSize:   cfg.MinChunkSize,
		maxSize:   cfg.MaxChunkSize,
	}
}

var (
	headingPattern = regexp.MustCompile(`(?m)^(?:#{1,6}\s+.+|Chapter\s+\d+.*|\d+(?:\.\d+)*\.?\s+[A-Z].+)$`)
	listPattern    = regexp.MustCompile(`(?m)^\s*(?:[-*•]\s+|\d+[.)]\s+)`)
)

// Split chunks a document's full text. The result is never empty for
// non-empty input: text shorter than the minimum still yields one chunk.
func (s *Segmenter) Split(doc *types.Document) []Segment {
	text := doc.FullText()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pageAt := pageOffsets(doc)

	runes := []rune(text)
	if len(runes) <= s.chunkSize {
		return []Segment{{
			Content: strings.TrimSpace(text),
			Heading: firstHeading(text),
			Pages:   pagesInRange(pageAt, 0, len(runes)),
		}}
	}

	atomic := findAtomicBlocks(text)

	var segs []Segment
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.cutPoint(runes, start, end, atomic)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			segs = append(segs, Segment{
				Content: content,
				Pages:   pagesInRange(pageAt, start, end),
				Start:   start,
			})
		}
		if end >= len(runes) {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = end
		}
		// Overlap must not restart inside a table or code fence.
		for _, blk := range atomic {
			if next > blk.start && next < blk.end {
				next = end
				break
			}
		}
		start = next
	}

	segs = s.mergeSmall(segs)
	annotateHeadings(text, segs)
	return segs
}

// cutPoint picks the best split position at or before the target end.
// Preference order: heading start, list-item start, paragraph break,
// sentence end, then a forced whitespace cut.
func (s *Segmenter) cutPoint(runes []rune, start, end int, atomic []span) int {
	max := start + s.maxSize
	if max > len(runes) {
		max = len(runes)
	}
	if end > max {
		end = max
	}

	// Never cut inside a table or code fence; extend to the block end when
	// it fits inside the hard maximum, otherwise cut before the block.
	for _, blk := range atomic {
		if blk.start < end && end < blk.end {
			if blk.end <= max {
				return blk.end
			}
			if blk.start > start+s.minSize {
				return blk.start
			}
			break
		}
	}

	window := string(runes[start:end])
	floor := s.minSize

	if idx := lastMatchStart(headingPattern, window, floor); idx >= 0 {
		return start + idx
	}
	if idx := lastMatchStart(listPattern, window, floor); idx >= 0 {
		return start + idx
	}
	if idx := strings.LastIndex(window, "\n\n"); idx >= floor {
		return start + idx
	}
	if idx := lastSentenceEnd(window); idx >= floor {
		return start + idx
	}
	// Forced cut: back up to whitespace within the lookback window.
	for i := end - 1; i > end-forcedCutLookback && i > start+floor; i-- {
		if runes[i] == ' ' || runes[i] == '\n' {
			return i
		}
	}
	return end
}

// lastMatchStart returns the rune offset of the last pattern match in the
// window that begins at or after floor, or -1.
func lastMatchStart(re *regexp.Regexp, window string, floor int) int {
	best := -1
	for _, loc := range re.FindAllStringIndex(window, -1) {
		off := len([]rune(window[:loc[0]]))
		if off >= floor && off > best {
			best = off
		}
	}
	return best
}

func lastSentenceEnd(window string) int {
	best := -1
	for _, mark := range []string{". ", ".\n", "! ", "? "} {
		if idx := strings.LastIndex(window, mark); idx > best {
			best = idx + 1
		}
	}
	if best < 0 {
		return -1
	}
	return len([]rune(window[:best]))
}

// mergeSmall folds trailing fragments below the minimum size into their
// predecessor so no undersized chunk survives except a lone one. A merge
// that would push the predecessor past the hard maximum is skipped; the
// size ceiling outranks the size floor.
func (s *Segmenter) mergeSmall(segs []Segment) []Segment {
	if len(segs) < 2 {
		return segs
	}
	out := segs[:0]
	for _, seg := range segs {
		if len(out) > 0 && len([]rune(seg.Content)) < s.minSize {
			prev := &out[len(out)-1]
			if len([]rune(prev.Content))+2+len([]rune(seg.Content)) <= s.maxSize {
				prev.Content = prev.Content + "\n\n" + seg.Content
				prev.Pages = mergePages(prev.Pages, seg.Pages)
				continue
			}
		}
		out = append(out, seg)
	}
	return out
}

// span is a half-open rune range.
type span struct{ start, end int }

// findAtomicBlocks locates fenced code blocks and contiguous table rows
// that must not be split.
func findAtomicBlocks(text string) []span {
	var blocks []span

	// Fenced code blocks.
	offset := 0
	rest := text
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			break
		}
		close := strings.Index(rest[open+3:], "```")
		if close < 0 {
			break
		}
		absStart := offset + open
		absEnd := offset + open + 3 + close + 3
		blocks = append(blocks, span{
			start: len([]rune(text[:absStart])),
			end:   len([]rune(text[:absEnd])),
		})
		rest = rest[open+3+close+3:]
		offset = absEnd
	}

	// Runs of pipe-table rows.
	lineStart := 0
	tblStart := -1
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == '\n' {
			line := text[lineStart:i]
			if strings.Count(line, "|") >= 2 {
				if tblStart < 0 {
					tblStart = lineStart
				}
			} else if tblStart >= 0 {
				blocks = append(blocks, span{
					start: len([]rune(text[:tblStart])),
					end:   len([]rune(text[:lineStart])),
				})
				tblStart = -1
			}
			lineStart = i + 1
		}
	}
	if tblStart >= 0 {
		blocks = append(blocks, span{
			start: len([]rune(text[:tblStart])),
			end:   len([]rune(text)),
		})
	}
	return blocks
}

// pageOffsets maps each page's starting rune offset in FullText output.
func pageOffsets(doc *types.Document) []struct{ offset, page int } {
	var out []struct{ offset, page int }
	offset := 0
	for i, p := range doc.Pages {
		out = append(out, struct{ offset, page int }{offset, p.Number})
		offset += len([]rune(p.Content))
		if i < len(doc.Pages)-1 {
			offset += 2 // the "\n\n" joiner
		}
	}
	return out
}

func pagesInRange(pageAt []struct{ offset, page int }, start, end int) []int {
	var pages []int
	for i, entry := range pageAt {
		pageEnd := int(^uint(0) >> 1)
		if i < len(pageAt)-1 {
			pageEnd = pageAt[i+1].offset
		}
		if entry.offset < end && pageEnd > start {
			pages = append(pages, entry.page)
		}
	}
	return pages
}

func mergePages(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, p := range append(a, b...) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// annotateHeadings assigns each segment the nearest heading at or before
// its start offset.
func annotateHeadings(text string, segs []Segment) {
	locs := headingPattern.FindAllStringIndex(text, -1)
	type headingAt struct {
		offset  int
		heading string
	}
	headings := make([]headingAt, 0, len(locs))
	for _, loc := range locs {
		headings = append(headings, headingAt{
			offset:  len([]rune(text[:loc[0]])),
			heading: strings.TrimSpace(text[loc[0]:loc[1]]),
		})
	}
	for i := range segs {
		for _, h := range headings {
			if h.offset <= segs[i].Start {
				segs[i].Heading = h.heading
			} else {
				break
			}
		}
		// A segment beginning with a heading line claims that heading.
		if line, _, ok := strings.Cut(segs[i].Content, "\n"); ok || segs[i].Heading == "" {
			if headingPattern.MatchString(line) {
				segs[i].Heading = strings.TrimSpace(line)
			}
		}
	}
}

func firstHeading(text string) string {
	if loc := headingPattern.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[loc[0]:loc[1]])
	}
	return ""
}
