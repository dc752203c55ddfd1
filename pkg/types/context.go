package types

import "time"

// DocumentContext is computed once per document and shared read-only across
// all of its chunks.
type DocumentContext struct {
	DocumentID   string     `json:"document_id"`
	Title        string     `json:"title"`
	DocType      string     `json:"doc_type"`
	Version      string     `json:"version,omitempty"`
	TotalPages   int        `json:"total_pages"`
	TotalChunks  int        `json:"total_chunks"`
	Language     string     `json:"language,omitempty"`
	CreationDate *time.Time `json:"creation_date,omitempty"`
	Authors      []string   `json:"authors,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
}

// HierarchicalContext records the chunk's position in the document's
// chapter/section/subsection structure.
type HierarchicalContext struct {
	Chapter          string `json:"chapter,omitempty"`
	ChapterNumber    string `json:"chapter_number,omitempty"`
	Section          string `json:"section,omitempty"`
	SectionNumber    string `json:"section_number,omitempty"`
	Subsection       string `json:"subsection,omitempty"`
	SubsectionNumber string `json:"subsection_number,omitempty"`
	DepthLevel       int    `json:"depth_level"`
}

// NavigationalContext links a chunk to its neighbors. All links are id-based
// weak references; the previous/next links form a linear chain per document.
type NavigationalContext struct {
	PreviousChunkID string   `json:"previous_chunk_id,omitempty"`
	NextChunkID     string   `json:"next_chunk_id,omitempty"`
	RelatedChunkIDs []string `json:"related_chunk_ids,omitempty"`
	PageNumbers     []int    `json:"page_numbers,omitempty"`
}

// ContentContext carries the semantic classification of a chunk.
type ContentContext struct {
	ChunkType     ChunkType    `json:"chunk_type"`
	SemanticRole  SemanticRole `json:"semantic_role"`
	KeyConcepts   []string     `json:"key_concepts,omitempty"`
	Entities      []string     `json:"entities,omitempty"`
	Prerequisites []string     `json:"prerequisites,omitempty"`
	References    []string     `json:"references,omitempty"`
	Summary       string       `json:"summary,omitempty"`
}

// ContextBundle groups the four independently populated context layers
// attached to every chunk.
type ContextBundle struct {
	Document   DocumentContext     `json:"document"`
	Hierarchy  HierarchicalContext `json:"hierarchy"`
	Navigation NavigationalContext `json:"navigation"`
	Content    ContentContext      `json:"content"`
}

// PopulatedLayers counts how many of the four layers carry non-empty data.
// The validator's context-richness check penalizes bundles below a minimum.
func (b *ContextBundle) PopulatedLayers() int {
	n := 0
	if b.Document.Title != "" || b.Document.DocType != "" {
		n++
	}
	if b.Hierarchy.Chapter != "" || b.Hierarchy.Section != "" || b.Hierarchy.Subsection != "" {
		n++
	}
	if b.Navigation.PreviousChunkID != "" || b.Navigation.NextChunkID != "" || len(b.Navigation.RelatedChunkIDs) > 0 {
		n++
	}
	if len(b.Content.KeyConcepts) > 0 || len(b.Content.Entities) > 0 ||
		(b.Content.ChunkType != "" && b.Content.ChunkType != ChunkUnknown) {
		n++
	}
	return n
}
