package enricher

import (
	"strings"

	"github.com/dshills/docontext/internal/config"
)

// Classifier assigns a tag to a piece of text. Implementations include the
// built-in rule matcher and a no-op used when classification is disabled.
type Classifier interface {
	Classify(content string) (tag string, confidence float64)
}

// RuleClassifier scores text against a weighted pattern table. Each rule's
// score is the sum of weights for its patterns that appear in the text; the
// highest-scoring rule wins when its score clears the confidence floor.
type RuleClassifier struct {
	rules    []config.Rule
	minScore float64
	fallback string
}

// NewRuleClassifier builds a classifier over a rule table. Tags scoring
// below minScore fall back to the given default tag.
func NewRuleClassifier(rules []config.Rule, minScore float64, fallback string) *RuleClassifier {
	return &RuleClassifier{rules: rules, minScore: minScore, fallback: fallback}
}

func (c *RuleClassifier) Classify(content string) (string, float64) {
	lower := strings.ToLower(content)

	bestTag := c.fallback
	bestScore := 0.0
	for _, rule := range c.rules {
		score := 0.0
		for _, pat := range rule.Patterns {
			if strings.Contains(lower, strings.ToLower(pat)) {
				score += rule.Weight
			}
		}
		if score > bestScore {
			bestScore = score
			bestTag = rule.Tag
		}
	}
	if bestScore < c.minScore {
		return c.fallback, bestScore
	}
	return bestTag, bestScore
}

// NoopClassifier always returns its fixed tag with zero confidence.
type NoopClassifier struct{ Tag string }

func (c NoopClassifier) Classify(string) (string, float64) { return c.Tag, 0 }
