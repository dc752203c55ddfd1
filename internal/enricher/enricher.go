// Package enricher attaches the four context layers to segmented chunks:
// document metadata, structural hierarchy, navigation links, and content
// semantics. Enrichment is best-effort; a layer that cannot be computed is
// left empty and costs the chunk quality score rather than failing the file.
package enricher

import (
	"sort"

	"github.com/dshills/docontext/internal/config"
	"github.com/dshills/docontext/internal/segmenter"
	"github.com/dshills/docontext/pkg/types"
)

// conceptOverlapThreshold is the minimum number of shared key concepts for
// two chunks to count as related.
const conceptOverlapThreshold = 3

// summaryMaxLen caps the extractive summary length in runes.
const summaryMaxLen = 200

// Enricher turns raw segments into fully contextualized chunks.
type Enricher struct {
	typeClassifier Classifier
	roleClassifier Classifier
	maxConcepts    int
	relatedLimit   int
}

// New builds an enricher from the enrichment configuration, using the
// built-in rule classifiers.
func New(cfg config.EnrichmentConfig) *Enricher {
	return &Enricher{
		typeClassifier: NewRuleClassifier(cfg.ChunkTypeRules, cfg.MinConfidence, string(types.ChunkUnknown)),
		roleClassifier: NewRuleClassifier(cfg.RoleRules, cfg.MinConfidence, string(types.RoleMainContent)),
		maxConcepts:    cfg.MaxConcepts,
		relatedLimit:   cfg.RelatedLimit,
	}
}

// NewWithClassifiers builds an enricher with caller-supplied classifiers,
// used by tests and by deployments that plug in an external model.
func NewWithClassifiers(cfg config.EnrichmentConfig, typeCls, roleCls Classifier) *Enricher {
	e := New(cfg)
	if typeCls != nil {
		e.typeClassifier = typeCls
	}
	if roleCls != nil {
		e.roleClassifier = roleCls
	}
	return e
}

// Enrich builds the document's chunks from its segments and populates every
// context layer. Chunk IDs, sequence numbers, and the previous/next chain
// are fixed here and never change afterward.
func (e *Enricher) Enrich(doc *types.Document, segs []segmenter.Segment) []types.Chunk {
	if len(segs) == 0 {
		return nil
	}

	docCtx := documentContext(doc, len(segs))
	tracker := &hierarchyTracker{}

	chunks := make([]types.Chunk, len(segs))
	concepts := make([][]string, len(segs))

	for i, seg := range segs {
		c := types.Chunk{
			ID:         types.ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Seq:        i,
			Content:    seg.Content,
			Heading:    seg.Heading,
			Pages:      seg.Pages,
			Position:   float64(i) / float64(len(segs)),
		}
		c.ComputeTokenCount()

		typeTag, _ := e.typeClassifier.Classify(seg.Content)
		roleTag, _ := e.roleClassifier.Classify(seg.Content)
		concepts[i] = extractConcepts(seg.Content, e.maxConcepts)

		c.Type = types.ChunkType(typeTag)
		c.Context = types.ContextBundle{
			Document:  docCtx,
			Hierarchy: tracker.observe(seg.Content),
			Content: types.ContentContext{
				ChunkType:     types.ChunkType(typeTag),
				SemanticRole:  types.SemanticRole(roleTag),
				KeyConcepts:   concepts[i],
				Entities:      extractEntities(seg.Content, e.maxConcepts),
				Prerequisites: extractPrerequisites(seg.Content),
				References:    extractReferences(seg.Content),
				Summary:       summarize(seg.Content, summaryMaxLen),
			},
		}
		chunks[i] = c
	}

	linkNavigation(chunks, concepts, e.relatedLimit)
	return chunks
}

func documentContext(doc *types.Document, totalChunks int) types.DocumentContext {
	return types.DocumentContext{
		DocumentID:   doc.ID,
		Title:        doc.Title,
		DocType:      doc.DocType,
		Version:      doc.Version,
		TotalPages:   doc.TotalPages,
		TotalChunks:  totalChunks,
		Language:     doc.Language,
		CreationDate: doc.CreationDate,
		Authors:      doc.Authors,
	}
}

// linkNavigation wires the previous/next chain and the concept-overlap
// related links.
func linkNavigation(chunks []types.Chunk, concepts [][]string, relatedLimit int) {
	sets := make([]map[string]bool, len(concepts))
	for i, cs := range concepts {
		sets[i] = make(map[string]bool, len(cs))
		for _, c := range cs {
			sets[i][c] = true
		}
	}

	for i := range chunks {
		nav := types.NavigationalContext{PageNumbers: chunks[i].Pages}
		if i > 0 {
			nav.PreviousChunkID = chunks[i-1].ID
		}
		if i < len(chunks)-1 {
			nav.NextChunkID = chunks[i+1].ID
		}

		type scored struct {
			id      string
			overlap int
		}
		var related []scored
		for j := range chunks {
			if i == j {
				continue
			}
			overlap := 0
			for c := range sets[j] {
				if sets[i][c] {
					overlap++
				}
			}
			if overlap >= conceptOverlapThreshold {
				related = append(related, scored{chunks[j].ID, overlap})
			}
		}
		sort.Slice(related, func(a, b int) bool {
			if related[a].overlap != related[b].overlap {
				return related[a].overlap > related[b].overlap
			}
			return related[a].id < related[b].id
		})
		if len(related) > relatedLimit {
			related = related[:relatedLimit]
		}
		for _, r := range related {
			nav.RelatedChunkIDs = append(nav.RelatedChunkIDs, r.id)
		}
		chunks[i].Context.Navigation = nav
	}
}
