package enricher

import (
	"regexp"
	"strings"

	"github.com/dshills/docontext/pkg/types"
)

var (
	chapterPattern    = regexp.MustCompile(`(?i)^chapter\s+(\d+\.?\d*):?\s*(.+)`)
	sectionPattern    = regexp.MustCompile(`^(\d+)\.?\s+([A-Z][^.\n]+)`)
	subsectionPattern = regexp.MustCompile(`^(\d+\.\d+(?:\.\d+)?)\.?\s+(.+)`)
)

// headingLinesToScan bounds how deep into a chunk we look for structure
// markers; headings live near the top.
const headingLinesToScan = 5

// hierarchyTracker walks chunks in document order and maintains the current
// chapter/section/subsection. Entering a chapter clears section and
// subsection; entering a section clears subsection.
type hierarchyTracker struct {
	current types.HierarchicalContext
}

// observe scans one chunk's leading lines for structure markers, updates the
// tracker, and returns the context in force for that chunk.
func (t *hierarchyTracker) observe(content string) types.HierarchicalContext {
	lines := strings.Split(content, "\n")
	if len(lines) > headingLinesToScan {
		lines = lines[:headingLinesToScan]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "# ")
		if line == "" {
			continue
		}

		if m := chapterPattern.FindStringSubmatch(line); m != nil {
			t.current = types.HierarchicalContext{
				Chapter:       strings.TrimSpace(m[2]),
				ChapterNumber: m[1],
				DepthLevel:    1,
			}
			continue
		}
		if m := subsectionPattern.FindStringSubmatch(line); m != nil {
			t.current.Subsection = strings.TrimSpace(m[2])
			t.current.SubsectionNumber = m[1]
			t.current.DepthLevel = 3
			continue
		}
		if m := sectionPattern.FindStringSubmatch(line); m != nil {
			t.current.Section = strings.TrimSpace(m[2])
			t.current.SectionNumber = m[1]
			t.current.Subsection = ""
			t.current.SubsectionNumber = ""
			t.current.DepthLevel = 2
		}
	}
	return t.current
}
