package types

import (
	"errors"
	"fmt"
)

// ChunkType classifies the rhetorical function of a chunk. The tag set is
// open: rule tables in the configuration may introduce new tags.
type ChunkType string

const (
	ChunkIntroduction ChunkType = "introduction"
	ChunkDefinition   ChunkType = "definition"
	ChunkExample      ChunkType = "example"
	ChunkProcedure    ChunkType = "procedure"
	ChunkWarning      ChunkType = "warning"
	ChunkBestPractice ChunkType = "best_practice"
	ChunkReference    ChunkType = "reference"
	ChunkSummary      ChunkType = "summary"
	ChunkUnknown      ChunkType = "unknown"
)

// SemanticRole describes how a chunk should be weighted during retrieval.
type SemanticRole string

const (
	RoleMainContent     SemanticRole = "main_content"
	RoleSupporting      SemanticRole = "supporting"
	RolePrerequisite    SemanticRole = "prerequisite"
	RoleAdvanced        SemanticRole = "advanced"
	RoleTroubleshooting SemanticRole = "troubleshooting"
)

// TokensPerChar is the heuristic for estimating token counts (chars/4).
const TokensPerChar = 4

// Chunk is a bounded span of a document's text. It is owned exclusively by
// its parent document and replaced wholesale when the document is reprocessed.
type Chunk struct {
	ID         string
	DocumentID string
	Seq        int // sequence index within the document, fixed at segmentation

	Content    string
	Heading    string // section heading the chunk belongs to, if any
	TokenCount int
	CharCount  int

	Pages    []int
	Position float64 // fractional position within the document, 0.0-1.0

	Type    ChunkType
	Context ContextBundle
	Quality *QualityReport // nil until validated
}

// ChunkID derives the deterministic chunk identifier from the parent
// document ID and the chunk's sequence index.
func ChunkID(docID string, seq int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, seq)
}

// ComputeTokenCount estimates and records the chunk's token count.
func (c *Chunk) ComputeTokenCount() int {
	c.TokenCount = len(c.Content) / TokensPerChar
	c.CharCount = len(c.Content)
	return c.TokenCount
}

// Validate checks the structural invariants every chunk must satisfy before
// it is handed to the validator or persisted.
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.DocumentID == "" {
		return errors.New("chunk requires a parent document ID")
	}
	if c.ID != ChunkID(c.DocumentID, c.Seq) {
		return fmt.Errorf("chunk ID %q does not match document %q seq %d", c.ID, c.DocumentID, c.Seq)
	}
	if c.Position < 0 || c.Position > 1 {
		return fmt.Errorf("position %f out of range [0,1]", c.Position)
	}
	return nil
}
