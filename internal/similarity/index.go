// Package similarity provides an in-memory cosine index over chunk
// embeddings. It backs the related-content lookups; absence of an index is
// always tolerated by callers, costing link richness rather than failing
// the run.
package similarity

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// Match is one nearest-neighbor result.
type Match struct {
	ChunkID string
	Score   float64 // cosine similarity in [-1,1]
}

// Finder is the lookup side of the index.
type Finder interface {
	FindSimilar(vector []float32, limit int, excludeDocID string) []Match
}

// Index holds normalized vectors keyed by chunk ID. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	vectors map[string][]float32
	docOf   map[string]string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		vectors: make(map[string][]float32),
		docOf:   make(map[string]string),
	}
}

// Add stores or replaces a chunk's vector.
func (x *Index) Add(chunkID, docID string, vector []float32) {
	v := make([]float32, len(vector))
	copy(v, vector)
	x.mu.Lock()
	x.vectors[chunkID] = v
	x.docOf[chunkID] = docID
	x.mu.Unlock()
}

// RemoveDocument drops every vector belonging to a document, used when the
// document is reprocessed or orphaned.
func (x *Index) RemoveDocument(docID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, d := range x.docOf {
		if d == docID {
			delete(x.vectors, id)
			delete(x.docOf, id)
		}
	}
}

// Len reports how many vectors the index holds.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// FindSimilar returns the top matches by cosine similarity, optionally
// excluding a document (typically the query chunk's own).
func (x *Index) FindSimilar(vector []float32, limit int, excludeDocID string) []Match {
	if limit <= 0 || len(vector) == 0 {
		return nil
	}
	qn := norm(vector)
	if qn == 0 {
		return nil
	}

	x.mu.RLock()
	matches := make([]Match, 0, len(x.vectors))
	for id, v := range x.vectors {
		if excludeDocID != "" && x.docOf[id] == excludeDocID {
			continue
		}
		if len(v) != len(vector) {
			continue
		}
		vn := norm(v)
		if vn == 0 {
			continue
		}
		matches = append(matches, Match{ChunkID: id, Score: dot(vector, v) / (qn * vn)})
	}
	x.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return strings.Compare(matches[i].ChunkID, matches[j].ChunkID) < 0
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
