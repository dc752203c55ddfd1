// Package validator scores enriched chunks on seven quality dimensions and
// assigns each a pass/flag/reject verdict. Checks are heuristic and cheap;
// every score is clamped to [0,100] and the aggregate is a weighted mean
// over the enabled checks.
package validator

import (
	"regexp"
	"strings"

	"github.com/dshills/docontext/internal/config"
	"github.com/dshills/docontext/pkg/types"
)

// Validator applies the quality checks with configured weights.
type Validator struct {
	minScore     float64
	rejectLow    bool
	minLayers    int
	weights      map[string]float64
	weightTotal  float64
	minChunkSize int
	maxChunkSize int
}

// New builds a validator. Checks absent from the weight map default to
// weight 1; a zero weight disables a check and the remaining weights are
// renormalized so disabling never deflates the aggregate.
func New(q config.QualityConfig, chunking config.ChunkingConfig) *Validator {
	v := &Validator{
		minScore:     q.MinQualityScore,
		rejectLow:    q.RejectLowQuality,
		minLayers:    q.MinContextLayers,
		weights:      make(map[string]float64, len(types.AllChecks)),
		minChunkSize: chunking.MinChunkSize,
		maxChunkSize: chunking.MaxChunkSize,
	}
	for _, name := range types.AllChecks {
		w := 1.0
		if q.CheckWeights != nil {
			if cw, ok := q.CheckWeights[name]; ok {
				w = cw
			}
		}
		if w < 0 {
			w = 0
		}
		v.weights[name] = w
		v.weightTotal += w
	}
	return v
}

// Validate scores one chunk and attaches the report to it. The returned
// report is the same one stored on the chunk.
func (v *Validator) Validate(c *types.Chunk) *types.QualityReport {
	report := &types.QualityReport{ChunkID: c.ID}

	run := func(name string, fn func(*types.Chunk) types.CheckResult) {
		if v.weights[name] == 0 {
			return
		}
		res := fn(c)
		res.Name = name
		res.Score = clamp(res.Score)
		report.Checks = append(report.Checks, res)
	}

	run(types.CheckCompleteness, v.checkCompleteness)
	run(types.CheckCoherence, v.checkCoherence)
	run(types.CheckDensity, v.checkDensity)
	run(types.CheckContextRichness, v.checkContextRichness)
	run(types.CheckLanguageQuality, v.checkLanguageQuality)
	run(types.CheckTechnicalIntegrity, v.checkTechnicalIntegrity)
	run(types.CheckSemanticConsistency, v.checkSemanticConsistency)

	var weighted float64
	for _, res := range report.Checks {
		weighted += res.Score * v.weights[res.Name]
	}
	if v.weightTotal > 0 {
		report.Score = weighted / v.weightTotal
	}
	// A fragment below the completeness floor cannot pass no matter how rich
	// its context bundle is; the other six checks barely see the content.
	if len(strings.TrimSpace(c.Content)) < shortContentChars && report.Score > shortContentCap {
		report.Score = shortContentCap
	}

	switch {
	case report.Score >= v.minScore:
		report.Verdict = types.VerdictPass
	case v.rejectLow:
		report.Verdict = types.VerdictReject
	default:
		report.Verdict = types.VerdictFlag
	}

	c.Quality = report
	return report
}

// shortContentChars is the completeness check's lowest length tier;
// shortContentCap bounds the aggregate for content below it.
const (
	shortContentChars = 50
	shortContentCap   = 60.0
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	cutOffWord    = regexp.MustCompile(`\b[A-Za-z]{2,}-\s*$`)
	runWhitespace = regexp.MustCompile(`\s{5,}`)
	hasLetter     = regexp.MustCompile(`[a-zA-Z]`)
	listMarker    = regexp.MustCompile(`^\s*[\d\-\*•]\s+`)
)

// checkCompleteness scores content length, sentence completion, and cut-off
// endings. Also penalizes chunks outside the configured size bounds.
func (v *Validator) checkCompleteness(c *types.Chunk) types.CheckResult {
	res := types.CheckResult{}
	content := strings.TrimSpace(c.Content)

	switch {
	case len(content) < shortContentChars:
		res.Issues = append(res.Issues, "content too short")
		res.Score = 20
	case len(content) < 100:
		res.Issues = append(res.Issues, "content quite short")
		res.Score = 60
	default:
		res.Score = 100
	}

	sentences := sentenceSplit.Split(content, -1)
	complete := 0
	counted := 0
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		counted++
		if len(s) > 10 && s[0] >= 'A' && s[0] <= 'Z' {
			complete++
		}
	}
	if counted > 0 && float64(complete)/float64(counted) > 0.8 {
		res.Score += 20
	}

	if cutOffWord.MatchString(content) {
		res.Issues = append(res.Issues, "content appears cut off mid-word")
		res.Score -= 30
	}
	if len(content) > v.maxChunkSize {
		res.Issues = append(res.Issues, "chunk exceeds size bound")
		res.Score -= 20
	}
	return res
}

// checkCoherence starts at 80 and adjusts for repetition, connectives, and
// fragmentation.
func (v *Validator) checkCoherence(c *types.Chunk) types.CheckResult {
	res := types.CheckResult{Score: 80}
	content := c.Content
	lower := strings.ToLower(content)

	counts := map[string]int{}
	maxRepeat := 0
	for _, w := range strings.Fields(lower) {
		if len(w) > 3 {
			counts[w]++
			if counts[w] > maxRepeat {
				maxRepeat = counts[w]
			}
		}
	}
	if maxRepeat > 8 {
		res.Issues = append(res.Issues, "excessive word repetition")
		res.Score -= 20
	}

	for _, conn := range []string{"however", "therefore", "furthermore", "moreover", "consequently"} {
		if strings.Contains(lower, conn) {
			res.Score += 10
			break
		}
	}

	if strings.Count(content, "\n") > len(content)/50 {
		res.Issues = append(res.Issues, "content appears fragmented")
		res.Score -= 15
	}
	return res
}

var functionWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true,
}

// checkDensity starts at 70 and rewards a high ratio of content words and
// vocabulary variety.
func (v *Validator) checkDensity(c *types.Chunk) types.CheckResult {
	res := types.CheckResult{Score: 70}
	words := strings.Fields(strings.ToLower(c.Content))
	if len(words) == 0 {
		res.Issues = append(res.Issues, "no words")
		res.Score = 0
		return res
	}

	contentWords := 0
	unique := map[string]bool{}
	for _, w := range words {
		if !functionWords[w] && len(w) > 2 {
			contentWords++
		}
		if len(w) > 3 {
			unique[w] = true
		}
	}

	ratio := float64(contentWords) / float64(len(words))
	switch {
	case ratio > 0.6:
		res.Score += 20
	case ratio < 0.3:
		res.Issues = append(res.Issues, "low information density")
		res.Score -= 20
	}
	if float64(len(unique)) > float64(len(words))*0.15 {
		res.Score += 15
	}
	return res
}

// checkContextRichness scores how many of the four context layers carry
// data, against the configured minimum.
func (v *Validator) checkContextRichness(c *types.Chunk) types.CheckResult {
	res := types.CheckResult{}
	layers := c.Context.PopulatedLayers()
	res.Score = float64(layers) * 25
	if layers < v.minLayers {
		res.Issues = append(res.Issues, "insufficient context layers")
	}
	return res
}

// checkLanguageQuality starts at 80 and penalizes encoding damage,
// whitespace runs, symbol-only lines, and abnormal word lengths.
func (v *Validator) checkLanguageQuality(c *types.Chunk) types.CheckResult {
	res := types.CheckResult{Score: 80}
	content := c.Content

	if strings.Contains(content, "�") {
		res.Issues = append(res.Issues, "encoding problems detected")
		res.Score -= 30
	}
	if runWhitespace.MatchString(content) {
		res.Issues = append(res.Issues, "excessive whitespace")
		res.Score -= 10
	}

	lines := strings.Split(content, "\n")
	symbolLines := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" && !hasLetter.MatchString(line) {
			symbolLines++
		}
	}
	if float64(symbolLines) > float64(len(lines))*0.3 {
		res.Issues = append(res.Issues, "too many symbol-only lines")
		res.Score -= 20
	}

	words := strings.Fields(content)
	if len(words) > 0 {
		total := 0
		for _, w := range words {
			total += len(w)
		}
		avg := float64(total) / float64(len(words))
		if avg < 3 {
			res.Issues = append(res.Issues, "average word length too short")
			res.Score -= 15
		} else if avg > 8 {
			res.Issues = append(res.Issues, "average word length too long")
			res.Score -= 10
		}
	}
	return res
}

// checkTechnicalIntegrity starts at 90 and penalizes broken tables,
// interrupted lists, and unbalanced code fences.
func (v *Validator) checkTechnicalIntegrity(c *types.Chunk) types.CheckResult {
	res := types.CheckResult{Score: 90}
	content := c.Content

	if strings.Contains(content, "|") {
		var pipeCounts []int
		for _, line := range strings.Split(content, "\n") {
			if strings.Contains(line, "|") {
				pipeCounts = append(pipeCounts, strings.Count(line, "|"))
			}
		}
		if len(pipeCounts) > 1 {
			distinct := map[int]bool{}
			for _, n := range pipeCounts {
				distinct[n] = true
			}
			if len(distinct) > 2 {
				res.Issues = append(res.Issues, "inconsistent table structure")
				res.Score -= 15
			}
		}
	}

	var listLines []int
	for i, line := range strings.Split(content, "\n") {
		if listMarker.MatchString(line) {
			listLines = append(listLines, i)
		}
	}
	for i := 1; i < len(listLines); i++ {
		if listLines[i]-listLines[i-1] > 3 {
			res.Issues = append(res.Issues, "interrupted list structure")
			res.Score -= 10
			break
		}
	}

	if strings.Count(content, "```")%2 != 0 {
		res.Issues = append(res.Issues, "incomplete code block")
		res.Score -= 20
	}
	return res
}

// checkSemanticConsistency starts at 85 and penalizes chunks whose assigned
// type is not supported by the content, plus weak terminal chunks.
func (v *Validator) checkSemanticConsistency(c *types.Chunk) types.CheckResult {
	res := types.CheckResult{Score: 85}
	lower := strings.ToLower(c.Content)

	consistent := true
	switch c.Type {
	case types.ChunkExample:
		consistent = strings.Contains(lower, "example") || strings.Contains(lower, "e.g.")
	case types.ChunkWarning:
		consistent = containsAny(lower, "warning", "caution", "important")
	case types.ChunkProcedure:
		consistent = containsAny(lower, "step", "procedure", "how to")
	}
	if !consistent {
		res.Issues = append(res.Issues, "chunk type inconsistent with content")
		res.Score -= 15
	}

	// The final chunk of a document should read like an ending.
	nav := c.Context.Navigation
	if nav.PreviousChunkID != "" && nav.NextChunkID == "" {
		if !containsAny(lower, "conclusion", "summary") {
			res.Score -= 10
		}
	}
	return res
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
