// Package config loads the pipeline configuration from a YAML file and
// applies defaults for anything left unset. Rule tables for chunk-type and
// semantic-role detection are part of the configuration so deployments can
// tune them without code changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule is one weighted pattern record used by the enricher's classifier.
// Patterns are matched case-insensitively as substrings; the cumulative
// weight of all matching patterns is the rule's score for its tag.
type Rule struct {
	Tag      string   `yaml:"tag"`
	Patterns []string `yaml:"patterns"`
	Weight   float64  `yaml:"weight"`
}

// ProcessingConfig bounds the worker pool and per-file budgets.
type ProcessingConfig struct {
	MaxWorkers               int     `yaml:"max_workers"`
	TimeoutPerDocumentSecs   int     `yaml:"timeout_per_document_secs"`
	ContinueOnError          bool    `yaml:"continue_on_error"`
	ErrorThresholdPercentage float64 `yaml:"error_threshold_percentage"`
	ForceReprocess           bool    `yaml:"force_reprocess"`
}

// ChunkingConfig controls the segmenter's size bounds and overlap, all in
// characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	MinChunkSize int `yaml:"min_chunk_size"`
	MaxChunkSize int `yaml:"max_chunk_size"`
}

// QualityConfig controls the validator's thresholds and check weights.
// A weight of zero disables a check; remaining weights are renormalized.
type QualityConfig struct {
	MinQualityScore  float64            `yaml:"min_quality_score"`
	RejectLowQuality bool               `yaml:"reject_low_quality"`
	MinContextLayers int                `yaml:"min_context_layers"`
	CheckWeights     map[string]float64 `yaml:"check_weights,omitempty"`
}

// EnrichmentConfig holds the rule tables and related-chunk limits.
type EnrichmentConfig struct {
	ChunkTypeRules []Rule  `yaml:"chunk_type_rules,omitempty"`
	RoleRules      []Rule  `yaml:"role_rules,omitempty"`
	MinConfidence  float64 `yaml:"min_confidence"`
	MaxConcepts    int     `yaml:"max_concepts"`
	RelatedLimit   int     `yaml:"related_limit"`
}

// Config is the root configuration for a corpus run.
type Config struct {
	Processing ProcessingConfig `yaml:"processing"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Quality    QualityConfig    `yaml:"quality"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`

	DBPath    string `yaml:"db_path"`
	ReportDir string `yaml:"report_dir"`
}

// Load reads a config file. A missing file yields the defaults rather than
// an error so a bare invocation works out of the box.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	// Boolean default that cannot live in applyDefaults: an explicit false in
	// the config file must survive the overlay.
	cfg.Processing.ContinueOnError = true
	cfg.applyDefaults()
	return cfg
}

// Timeout returns the per-document processing budget.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Processing.TimeoutPerDocumentSecs) * time.Second
}

func (c *Config) applyDefaults() {
	if c.Processing.MaxWorkers <= 0 {
		c.Processing.MaxWorkers = 4
	}
	if c.Processing.TimeoutPerDocumentSecs <= 0 {
		c.Processing.TimeoutPerDocumentSecs = 300
	}
	if c.Processing.ErrorThresholdPercentage <= 0 {
		c.Processing.ErrorThresholdPercentage = 50
	}
	if c.Chunking.ChunkSize <= 0 {
		c.Chunking.ChunkSize = 1000
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		c.Chunking.ChunkOverlap = 200
	}
	if c.Chunking.MinChunkSize <= 0 {
		c.Chunking.MinChunkSize = 100
	}
	if c.Chunking.MaxChunkSize <= c.Chunking.ChunkSize {
		c.Chunking.MaxChunkSize = 2000
	}
	if c.Quality.MinQualityScore <= 0 {
		c.Quality.MinQualityScore = 70
	}
	if c.Quality.MinContextLayers <= 0 {
		c.Quality.MinContextLayers = 2
	}
	if c.Enrichment.MinConfidence <= 0 {
		c.Enrichment.MinConfidence = 1.0
	}
	if c.Enrichment.MaxConcepts <= 0 {
		c.Enrichment.MaxConcepts = 10
	}
	if c.Enrichment.RelatedLimit <= 0 {
		c.Enrichment.RelatedLimit = 5
	}
	if len(c.Enrichment.ChunkTypeRules) == 0 {
		c.Enrichment.ChunkTypeRules = DefaultChunkTypeRules()
	}
	if len(c.Enrichment.RoleRules) == 0 {
		c.Enrichment.RoleRules = DefaultRoleRules()
	}
	if c.DBPath == "" {
		c.DBPath = "./data/docontext.db"
	}
	if c.ReportDir == "" {
		c.ReportDir = "./data/reports"
	}
}

// DefaultChunkTypeRules is the built-in chunk-type rule table. Order matters
// only for deterministic tie reporting; selection is by cumulative weight.
func DefaultChunkTypeRules() []Rule {
	return []Rule{
		{Tag: "example", Patterns: []string{"example:", "for example", "e.g."}, Weight: 1.0},
		{Tag: "warning", Patterns: []string{"warning:", "caution:", "important:"}, Weight: 1.2},
		{Tag: "best_practice", Patterns: []string{"best practice", "recommended"}, Weight: 1.0},
		{Tag: "procedure", Patterns: []string{"step 1", "procedure:", "how to"}, Weight: 1.0},
		{Tag: "definition", Patterns: []string{"define", "definition", "what is"}, Weight: 1.0},
		{Tag: "summary", Patterns: []string{"summary", "conclusion", "in summary"}, Weight: 1.0},
		{Tag: "introduction", Patterns: []string{"introduction", "overview", "getting started"}, Weight: 1.0},
		{Tag: "reference", Patterns: []string{"see also", "refer to", "api reference"}, Weight: 0.8},
	}
}

// DefaultRoleRules is the built-in semantic-role rule table. A chunk that
// clears no rule falls back to main_content.
func DefaultRoleRules() []Rule {
	return []Rule{
		{Tag: "troubleshooting", Patterns: []string{"error", "issue", "problem", "troubleshoot"}, Weight: 1.0},
		{Tag: "prerequisite", Patterns: []string{"prerequisite", "before you begin", "required"}, Weight: 1.0},
		{Tag: "advanced", Patterns: []string{"advanced", "expert", "detailed configuration"}, Weight: 1.0},
		{Tag: "supporting", Patterns: []string{"additional", "optional", "see also"}, Weight: 0.8},
	}
}
