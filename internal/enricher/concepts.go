package enricher

import (
	"regexp"
	"sort"
	"strings"
)

var (
	properNounPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	wordPattern       = regexp.MustCompile(`\b[a-z]+\b`)

	prereqPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)requires?\s+(.+)`),
		regexp.MustCompile(`(?i)prerequisites?:\s*(.+)`),
		regexp.MustCompile(`(?i)before\s+you\s+begin[,:]?\s*(.+)`),
		regexp.MustCompile(`(?i)you\s+need\s+(.+)`),
		regexp.MustCompile(`(?i)must\s+have\s+(.+)`),
	}

	refPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)see\s+(?:also\s+)?"([^"]+)"`),
		regexp.MustCompile(`(?i)refer\s+to\s+"([^"]+)"`),
		regexp.MustCompile(`(?i)described\s+in\s+"([^"]+)"`),
		regexp.MustCompile(`(?i)\(see\s+([^)]+)\)`),
		regexp.MustCompile(`(?i)documentation:\s*"([^"]+)"`),
	}
)

// stopWords are excluded from frequency-based concept extraction.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "have": true, "are": true, "was": true,
	"will": true, "can": true, "not": true, "you": true, "your": true,
	"all": true, "when": true, "which": true, "their": true, "more": true,
	"been": true, "than": true, "then": true, "there": true, "these": true,
	"also": true, "into": true, "each": true, "other": true, "some": true,
	"such": true, "should": true, "must": true, "may": true, "any": true,
}

// extractConcepts pulls up to max key concepts from the text: repeated
// non-stopword terms ranked by frequency, plus proper nouns. Output order
// is frequency-descending with ties broken alphabetically, so the result is
// deterministic for identical input.
func extractConcepts(content string, max int) []string {
	counts := map[string]int{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(content), -1) {
		if len(w) > 3 && !stopWords[w] {
			counts[w]++
		}
	}
	for _, w := range properNounPattern.FindAllString(content, -1) {
		lw := strings.ToLower(w)
		if len(lw) > 3 && !stopWords[lw] {
			counts[lw] += 2 // proper nouns rank above plain repeats
		}
	}

	type freq struct {
		word  string
		count int
	}
	ranked := make([]freq, 0, len(counts))
	for w, c := range counts {
		if c >= 2 {
			ranked = append(ranked, freq{w, c})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]string, len(ranked))
	for i, f := range ranked {
		out[i] = f.word
	}
	return out
}

// extractEntities returns the distinct capitalized terms, a cheap stand-in
// for named-entity recognition.
func extractEntities(content string, max int) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range properNounPattern.FindAllString(content, -1) {
		if stopWords[strings.ToLower(w)] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) >= max {
			break
		}
	}
	return out
}

// extractPrerequisites captures short "requires X" style statements, capped
// at five per chunk.
func extractPrerequisites(content string) []string {
	var out []string
	for _, re := range prereqPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			p := strings.TrimSpace(m[1])
			if p != "" && len(p) < 100 {
				out = append(out, p)
			}
			if len(out) >= 5 {
				return out
			}
		}
	}
	return out
}

// extractReferences captures quoted cross-document references.
func extractReferences(content string) []string {
	seen := map[string]bool{}
	var out []string
	for _, re := range refPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			ref := strings.TrimSpace(m[1])
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			out = append(out, ref)
		}
	}
	sort.Strings(out)
	return out
}

// summarize produces a short extractive summary: the sentence whose words
// score highest against the chunk's term frequencies, preferring earlier
// sentences on ties.
func summarize(content string, maxLen int) string {
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return ""
	}
	if len(sentences) == 1 {
		return clip(sentences[0], maxLen)
	}

	counts := map[string]int{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(content), -1) {
		if len(w) > 3 && !stopWords[w] {
			counts[w]++
		}
	}

	best, bestScore := sentences[0], -1.0
	for _, s := range sentences {
		words := wordPattern.FindAllString(strings.ToLower(s), -1)
		if len(words) < 4 {
			continue
		}
		score := 0.0
		for _, w := range words {
			score += float64(counts[w])
		}
		score /= float64(len(words))
		if score > bestScore {
			bestScore = score
			best = s
		}
	}
	return clip(best, maxLen)
}

func splitSentences(content string) []string {
	var out []string
	start := 0
	for i := 0; i < len(content); i++ {
		ch := content[i]
		if ch == '.' || ch == '!' || ch == '?' {
			if s := strings.TrimSpace(content[start : i+1]); len(s) > 10 {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(content[start:]); len(s) > 10 {
		out = append(out, s)
	}
	return out
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
