package types

import "fmt"

// Quality check names. Each check scores a chunk in [0,100].
const (
	CheckCompleteness        = "completeness"
	CheckCoherence           = "coherence"
	CheckDensity             = "information_density"
	CheckContextRichness     = "context_richness"
	CheckLanguageQuality     = "language_quality"
	CheckTechnicalIntegrity  = "technical_accuracy"
	CheckSemanticConsistency = "semantic_consistency"
)

// AllChecks lists every quality check in reporting order.
var AllChecks = []string{
	CheckCompleteness,
	CheckCoherence,
	CheckDensity,
	CheckContextRichness,
	CheckLanguageQuality,
	CheckTechnicalIntegrity,
	CheckSemanticConsistency,
}

// Verdict is the validator's decision for a chunk.
type Verdict string

const (
	VerdictPass   Verdict = "pass"
	VerdictFlag   Verdict = "flag"   // kept, marked for review
	VerdictReject Verdict = "reject" // dropped from persistence
)

// CheckResult is one quality check's score and findings for a chunk.
type CheckResult struct {
	Name   string   `json:"name"`
	Score  float64  `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

// QualityReport is the per-chunk validation record: one score per check, the
// weighted aggregate, and the accept/flag/reject verdict.
type QualityReport struct {
	ChunkID string        `json:"chunk_id"`
	Checks  []CheckResult `json:"checks"`
	Score   float64       `json:"score"` // weighted aggregate in [0,100]
	Verdict Verdict       `json:"verdict"`
}

// Check returns the result for the named check, or nil if it did not run.
func (r *QualityReport) Check(name string) *CheckResult {
	for i := range r.Checks {
		if r.Checks[i].Name == name {
			return &r.Checks[i]
		}
	}
	return nil
}

// Validate checks the report's score bounds.
func (r *QualityReport) Validate() error {
	if r.Score < 0 || r.Score > 100 {
		return fmt.Errorf("aggregate score %f out of range [0,100]", r.Score)
	}
	for _, c := range r.Checks {
		if c.Score < 0 || c.Score > 100 {
			return fmt.Errorf("check %s score %f out of range [0,100]", c.Name, c.Score)
		}
	}
	return nil
}
