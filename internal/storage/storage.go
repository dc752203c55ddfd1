// Package storage persists documents, chunks, embeddings, and run reports
// in SQLite. Chunk replacement is transactional: a document's chunks and its
// fingerprint either both advance or neither does, so a crash mid-write
// leaves the file marked stale and it is simply reprocessed next run.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/docontext/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// DocumentRecord is the persisted state for one processed file.
type DocumentRecord struct {
	DocID       string
	Path        string // relative to the corpus root, slash-separated
	Fingerprint string // content hash recorded only after chunks committed
	Title       string
	DocType     string
	Version     string
	Language    string
	Authors     []string
	Backend     string
	SizeBytes   int64
	ModTime     time.Time
	TotalPages  int
	ChunkCount  int
	Status      string // success | failed
	ProcessedAt time.Time
}

// ChunkVector pairs a stored chunk ID with its embedding, used to rebuild
// the in-memory similarity index at startup.
type ChunkVector struct {
	ChunkID string
	DocID   string
	Vector  []float32
}

// Storage is the persistence boundary of the pipeline.
type Storage interface {
	// LoadState returns the full per-path processing state. A database that
	// fails integrity checks yields types.ErrStateCorrupt.
	LoadState(ctx context.Context) (map[string]DocumentRecord, error)

	// UpsertDocument writes a document's metadata. The stored fingerprint is
	// not touched here; CommitDocument advances it after chunks land.
	UpsertDocument(ctx context.Context, rec *DocumentRecord) error

	// ReplaceChunks atomically swaps a document's chunk set for the given
	// one, embeddings included.
	ReplaceChunks(ctx context.Context, docID string, chunks []types.Chunk, vectors map[string][]float32) error

	// CommitDocument records the fingerprint and status after a successful
	// chunk replacement, making the document current.
	CommitDocument(ctx context.Context, docID, fingerprint string, chunkCount int) error

	// MarkFailed records a failed processing attempt without disturbing any
	// previously committed chunks.
	MarkFailed(ctx context.Context, docID string) error

	// DeleteDocument removes a document and all of its chunks.
	DeleteDocument(ctx context.Context, docID string) error

	GetDocument(ctx context.Context, docID string) (*DocumentRecord, error)
	GetDocumentByPath(ctx context.Context, path string) (*DocumentRecord, error)
	ListDocuments(ctx context.Context) ([]*DocumentRecord, error)

	GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error)
	ListChunksByDocument(ctx context.Context, docID string) ([]types.Chunk, error)
	CountChunks(ctx context.Context) (int, error)

	// LoadEmbeddings streams every stored embedding for index rebuilds.
	LoadEmbeddings(ctx context.Context) ([]ChunkVector, error)

	SaveRun(ctx context.Context, report *types.RunReport) error
	LatestRun(ctx context.Context) (*types.RunReport, error)

	Close() error
}
