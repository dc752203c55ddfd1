package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docontext/internal/config"
	"github.com/dshills/docontext/pkg/types"
)

func testValidator() *Validator {
	cfg := config.Default()
	return New(cfg.Quality, cfg.Chunking)
}

func goodChunk() *types.Chunk {
	docID := types.DocumentID("good.txt")
	content := "The replication subsystem copies committed transactions to every follower node. " +
		"Therefore operators can fail over without losing any acknowledged writes. " +
		"Each follower applies the log in order and reports its position back to the leader. " +
		"However the leader waits for a quorum before acknowledging a commit."
	c := &types.Chunk{
		ID:         types.ChunkID(docID, 1),
		DocumentID: docID,
		Seq:        1,
		Content:    content,
		Type:       types.ChunkUnknown,
		Context: types.ContextBundle{
			Document:   types.DocumentContext{Title: "Replication Guide", DocType: "manual"},
			Hierarchy:  types.HierarchicalContext{Chapter: "Replication"},
			Navigation: types.NavigationalContext{PreviousChunkID: "p", NextChunkID: "n"},
			Content:    types.ContentContext{KeyConcepts: []string{"replication", "quorum"}},
		},
	}
	c.ComputeTokenCount()
	return c
}

func TestValidateGoodChunkPasses(t *testing.T) {
	v := testValidator()
	report := v.Validate(goodChunk())

	assert.Equal(t, types.VerdictPass, report.Verdict)
	assert.GreaterOrEqual(t, report.Score, 70.0)
	assert.Len(t, report.Checks, len(types.AllChecks))
	for _, check := range report.Checks {
		assert.GreaterOrEqual(t, check.Score, 0.0, check.Name)
		assert.LessOrEqual(t, check.Score, 100.0, check.Name)
	}
}

func TestValidateAttachesReport(t *testing.T) {
	c := goodChunk()
	report := testValidator().Validate(c)
	assert.Same(t, report, c.Quality)
	assert.Equal(t, c.ID, report.ChunkID)
}

func TestValidateShortGarbageFlagged(t *testing.T) {
	docID := types.DocumentID("bad.txt")
	c := &types.Chunk{
		ID:         types.ChunkID(docID, 0),
		DocumentID: docID,
		Content:    "!!! ### @@@",
	}
	c.ComputeTokenCount()

	report := testValidator().Validate(c)
	assert.Less(t, report.Score, 70.0)
	assert.Equal(t, types.VerdictFlag, report.Verdict)
}

func TestValidateShortContentCannotPass(t *testing.T) {
	v := testValidator()
	// Even with every context layer populated, a fragment below the
	// completeness floor must not reach the pass threshold.
	c := goodChunk()
	c.Content = "Short but complete sentence."
	c.ComputeTokenCount()

	report := v.Validate(c)
	assert.Less(t, report.Score, 70.0)
	assert.NotEqual(t, types.VerdictPass, report.Verdict)
}

func TestValidateRejectPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Quality.RejectLowQuality = true
	v := New(cfg.Quality, cfg.Chunking)

	docID := types.DocumentID("bad.txt")
	c := &types.Chunk{ID: types.ChunkID(docID, 0), DocumentID: docID, Content: "x y"}
	c.ComputeTokenCount()

	report := v.Validate(c)
	assert.Equal(t, types.VerdictReject, report.Verdict)
}

func TestValidateScoreBounds(t *testing.T) {
	inputs := []string{
		"",
		"a",
		strings.Repeat("word ", 2000),
		strings.Repeat("same same same same same same same same same ", 30),
		"```\nunclosed fence\n" + strings.Repeat("line\n", 40),
	}
	v := testValidator()
	for _, in := range inputs {
		docID := types.DocumentID("x.txt")
		c := &types.Chunk{ID: types.ChunkID(docID, 0), DocumentID: docID, Content: in}
		c.ComputeTokenCount()
		report := v.Validate(c)
		assert.GreaterOrEqual(t, report.Score, 0.0)
		assert.LessOrEqual(t, report.Score, 100.0)
	}
}

func TestDisabledCheckRenormalizes(t *testing.T) {
	cfg := config.Default()
	cfg.Quality.CheckWeights = map[string]float64{
		types.CheckContextRichness: 0,
	}
	v := New(cfg.Quality, cfg.Chunking)

	c := goodChunk()
	c.Context = types.ContextBundle{} // would tank context richness if enabled
	report := v.Validate(c)

	assert.Len(t, report.Checks, len(types.AllChecks)-1)
	assert.Nil(t, report.Check(types.CheckContextRichness))
	// Aggregate is a mean over enabled checks only, so it stays in a healthy
	// range despite the empty context bundle.
	assert.Greater(t, report.Score, 60.0)
}

func TestCheckWeightsSkewAggregate(t *testing.T) {
	cfg := config.Default()
	cfg.Quality.CheckWeights = map[string]float64{
		types.CheckCompleteness:        10,
		types.CheckCoherence:           0.1,
		types.CheckDensity:             0.1,
		types.CheckContextRichness:     0.1,
		types.CheckLanguageQuality:     0.1,
		types.CheckTechnicalIntegrity:  0.1,
		types.CheckSemanticConsistency: 0.1,
	}
	v := New(cfg.Quality, cfg.Chunking)

	c := goodChunk()
	report := v.Validate(c)
	completeness := report.Check(types.CheckCompleteness)
	require.NotNil(t, completeness)
	// Heavily weighted completeness dominates the aggregate.
	assert.InDelta(t, completeness.Score, report.Score, 6.0)
}

func TestCheckTechnicalIntegrityUnbalancedFence(t *testing.T) {
	v := testValidator()
	c := goodChunk()
	c.Content += "\n```\ncode that never closes"

	report := v.Validate(c)
	check := report.Check(types.CheckTechnicalIntegrity)
	require.NotNil(t, check)
	assert.LessOrEqual(t, check.Score, 70.0)
	assert.NotEmpty(t, check.Issues)
}

func TestCheckSemanticConsistencyMismatchedType(t *testing.T) {
	v := testValidator()
	c := goodChunk()
	c.Type = types.ChunkWarning // content has no warning language

	report := v.Validate(c)
	check := report.Check(types.CheckSemanticConsistency)
	require.NotNil(t, check)
	assert.NotEmpty(t, check.Issues)
	assert.LessOrEqual(t, check.Score, 70.0)
}

func TestCheckContextRichnessCountsLayers(t *testing.T) {
	v := testValidator()

	full := goodChunk()
	report := v.Validate(full)
	assert.InDelta(t, 100.0, report.Check(types.CheckContextRichness).Score, 1e-9)

	bare := goodChunk()
	bare.Context = types.ContextBundle{}
	report = v.Validate(bare)
	assert.InDelta(t, 0.0, report.Check(types.CheckContextRichness).Score, 1e-9)
	assert.NotEmpty(t, report.Check(types.CheckContextRichness).Issues)
}
