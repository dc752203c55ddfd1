package extractor

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dshills/docontext/pkg/types"
)

// DetectMetadata fills a document's title, authors, dates, type, version,
// and language from its first pages. Everything here is heuristic; missing
// metadata is left zero rather than guessed badly.
func DetectMetadata(doc *types.Document) {
	head := headContent(doc, 3)

	doc.Title = detectTitle(head, doc.Path)
	doc.Authors = detectAuthors(head)
	doc.DocType = detectDocType(head)
	doc.Version = detectVersion(head)
	doc.Language = detectLanguage(head)
	doc.CreationDate = detectCreationDate(head)
}

// headContent joins the first n pages for metadata analysis.
func headContent(doc *types.Document, n int) string {
	var b strings.Builder
	for i := range doc.Pages {
		if i >= n {
			break
		}
		b.WriteString(doc.Pages[i].Content)
		b.WriteString("\n")
	}
	return b.String()
}

var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^title:\s*(.+)$`),
	regexp.MustCompile(`(?i)^([A-Z][A-Za-z\s]+(?:Guide|Manual|Documentation|Handbook|Reference))\s*$`),
}

func detectTitle(head, path string) string {
	lines := strings.Split(head, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, re := range titlePatterns {
		for _, line := range lines {
			if m := re.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				title := strings.TrimSpace(m[1])
				if len(title) >= 3 && len(title) <= 100 {
					return title
				}
			}
		}
	}
	// Fallback: first meaningful line.
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) > 10 && !strings.HasPrefix(line, "Page") {
			if len(line) > 100 {
				line = line[:100]
			}
			return line
		}
	}
	// Last resort: the file stem.
	stem := path
	if idx := strings.LastIndexByte(stem, '/'); idx >= 0 {
		stem = stem[idx+1:]
	}
	if idx := strings.LastIndexByte(stem, '.'); idx > 0 {
		stem = stem[:idx]
	}
	return stem
}

var authorPattern = regexp.MustCompile(`(?im)^(?:authors?|by|written by|created by):\s*(.+)$`)

func detectAuthors(head string) []string {
	seen := map[string]bool{}
	var authors []string
	for _, m := range authorPattern.FindAllStringSubmatch(head, -1) {
		for _, part := range regexp.MustCompile(`[,;&]|\sand\s`).Split(m[1], -1) {
			name := strings.TrimSpace(part)
			if len(name) < 3 || len(name) > 60 || seen[name] {
				continue
			}
			seen[name] = true
			authors = append(authors, name)
		}
	}
	sort.Strings(authors)
	return authors
}

// docTypeIndicators maps document types to the phrases that suggest them.
var docTypeIndicators = []struct {
	docType    string
	indicators []string
}{
	{"manual", []string{"manual", "handbook", "instructions"}},
	{"reference", []string{"reference", "api", "specification"}},
	{"tutorial", []string{"tutorial", "walkthrough", "getting started", "quick start"}},
	{"policy", []string{"policy", "procedure", "standard"}},
	{"report", []string{"report", "analysis", "findings"}},
	{"whitepaper", []string{"whitepaper", "white paper"}},
	{"faq", []string{"faq", "frequently asked"}},
	{"changelog", []string{"changelog", "release notes", "version history"}},
}

func detectDocType(head string) string {
	lower := strings.ToLower(head)
	for _, entry := range docTypeIndicators {
		for _, ind := range entry.indicators {
			if strings.Contains(lower, ind) {
				return entry.docType
			}
		}
	}
	return "unknown"
}

var versionPattern = regexp.MustCompile(`(?i)(?:version|release|rev\.?|v\.?)\s*[:=]?\s*([0-9]+\.[0-9]+(?:\.[0-9]+)?)`)

func detectVersion(head string) string {
	if m := versionPattern.FindStringSubmatch(head); m != nil {
		return m[1]
	}
	return ""
}

var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`(?i)(?:created|date|published):\s*(\d{4}-\d{2}-\d{2})`), "2006-01-02"},
	{regexp.MustCompile(`(\d{1,2} (?:January|February|March|April|May|June|July|August|September|October|November|December) \d{4})`), "2 January 2006"},
	{regexp.MustCompile(`((?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2}, \d{4})`), "January 2, 2006"},
}

func detectCreationDate(head string) *time.Time {
	for _, p := range datePatterns {
		if m := p.re.FindStringSubmatch(head); m != nil {
			if ts, err := time.Parse(p.layout, m[1]); err == nil {
				return &ts
			}
		}
	}
	return nil
}

var (
	englishWords = []string{" the ", " and ", " for ", " are ", " with ", " this ", " that "}
	germanWords  = []string{" der ", " die ", " das ", " und ", " für ", " mit ", " dass "}
)

func detectLanguage(head string) string {
	lower := " " + strings.ToLower(head) + " "
	en, de := 0, 0
	for _, w := range englishWords {
		en += strings.Count(lower, w)
	}
	for _, w := range germanWords {
		de += strings.Count(lower, w)
	}
	switch {
	case en > de:
		return "en"
	case de > en:
		return "de"
	default:
		return ""
	}
}
