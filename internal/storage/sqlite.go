package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/docontext/pkg/types"
)

// SQLiteStorage implements Storage on a single SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens SQLite with WAL mode, foreign keys, and a single-writer
// connection pool.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// NewSQLiteStorage opens the database, verifies its integrity, and applies
// pending migrations. An unreadable or damaged database is fatal: silently
// reprocessing the whole corpus would hide state loss from the operator.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var check string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&check); err != nil || check != "ok" {
		_ = db.Close()
		if err == nil {
			err = fmt.Errorf("quick_check: %s", check)
		}
		return nil, fmt.Errorf("%w: %v", types.ErrStateCorrupt, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// LoadState returns per-path document records for change detection.
func (s *SQLiteStorage) LoadState(ctx context.Context) (map[string]DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, path, fingerprint, title, doc_type, version, language,
		       authors, backend, size_bytes, mod_time, total_pages, chunk_count,
		       status, processed_at
		FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStateCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	state := make(map[string]DocumentRecord)
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrStateCorrupt, err)
		}
		state[rec.Path] = *rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStateCorrupt, err)
	}
	return state, nil
}

func (s *SQLiteStorage) UpsertDocument(ctx context.Context, rec *DocumentRecord) error {
	authors, err := json.Marshal(rec.Authors)
	if err != nil {
		return fmt.Errorf("marshal authors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (doc_id, path, title, doc_type, version, language,
		                       authors, backend, size_bytes, mod_time, total_pages,
		                       status, processed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			path = excluded.path,
			title = excluded.title,
			doc_type = excluded.doc_type,
			version = excluded.version,
			language = excluded.language,
			authors = excluded.authors,
			backend = excluded.backend,
			size_bytes = excluded.size_bytes,
			mod_time = excluded.mod_time,
			total_pages = excluded.total_pages,
			status = excluded.status,
			processed_at = excluded.processed_at,
			updated_at = excluded.updated_at`,
		rec.DocID, rec.Path, rec.Title, rec.DocType, rec.Version, rec.Language,
		string(authors), rec.Backend, rec.SizeBytes, rec.ModTime, rec.TotalPages,
		rec.Status, rec.ProcessedAt, time.Now())
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", rec.DocID, err)
	}
	return nil
}

// ReplaceChunks swaps the document's chunk set in one transaction. Old
// chunks and embeddings for the document are removed first, so partial
// overlap between old and new chunk IDs cannot leave strays behind.
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, docID string, chunks []types.Chunk, vectors map[string][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	for i := range chunks {
		c := &chunks[i]
		ctxJSON, err := json.Marshal(c.Context)
		if err != nil {
			return fmt.Errorf("marshal context %s: %w", c.ID, err)
		}
		var qualityJSON []byte
		var score any
		var verdict any
		if c.Quality != nil {
			qualityJSON, err = json.Marshal(c.Quality)
			if err != nil {
				return fmt.Errorf("marshal quality %s: %w", c.ID, err)
			}
			score = c.Quality.Score
			verdict = string(c.Quality.Verdict)
		}
		pagesJSON, err := json.Marshal(c.Pages)
		if err != nil {
			return fmt.Errorf("marshal pages %s: %w", c.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (chunk_id, doc_id, seq, content, heading,
			                    token_count, char_count, position, chunk_type,
			                    semantic_role, quality_score, quality_verdict,
			                    context_json, quality_json, pages_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.DocumentID, c.Seq, c.Content, c.Heading,
			c.TokenCount, c.CharCount, c.Position, string(c.Type),
			string(c.Context.Content.SemanticRole), score, verdict,
			string(ctxJSON), nullableString(qualityJSON), string(pagesJSON)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}

		if vec, ok := vectors[c.ID]; ok && len(vec) > 0 {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO embeddings (chunk_id, doc_id, vector, dimension)
				VALUES (?, ?, ?, ?)`,
				c.ID, docID, encodeVector(vec), len(vec)); err != nil {
				return fmt.Errorf("insert embedding %s: %w", c.ID, err)
			}
		}
	}
	return tx.Commit()
}

// CommitDocument records the fingerprint after chunks landed, marking the
// document current for change detection.
func (s *SQLiteStorage) CommitDocument(ctx context.Context, docID, fingerprint string, chunkCount int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET fingerprint = ?, chunk_count = ?, status = 'success',
		    processed_at = ?, updated_at = ?
		WHERE doc_id = ?`,
		fingerprint, chunkCount, time.Now(), time.Now(), docID)
	if err != nil {
		return fmt.Errorf("commit document %s: %w", docID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("commit document %s: %w", docID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) MarkFailed(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = 'failed', updated_at = ? WHERE doc_id = ?`,
		time.Now(), docID)
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", docID, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Explicit child deletes; cascade depends on pragma state at write time.
	if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("delete embeddings %s: %w", docID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("delete chunks %s: %w", docID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return tx.Commit()
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, docID string) (*DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, path, fingerprint, title, doc_type, version, language,
		       authors, backend, size_bytes, mod_time, total_pages, chunk_count,
		       status, processed_at
		FROM documents WHERE doc_id = ?`, docID)
	return scanDocumentRow(row)
}

func (s *SQLiteStorage) GetDocumentByPath(ctx context.Context, path string) (*DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, path, fingerprint, title, doc_type, version, language,
		       authors, backend, size_bytes, mod_time, total_pages, chunk_count,
		       status, processed_at
		FROM documents WHERE path = ?`, path)
	return scanDocumentRow(row)
}

func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, path, fingerprint, title, doc_type, version, language,
		       authors, backend, size_bytes, mod_time, total_pages, chunk_count,
		       status, processed_at
		FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*DocumentRecord
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, rec)
	}
	return docs, rows.Err()
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chunk_id, doc_id, seq, content, heading, token_count, char_count,
		       position, chunk_type, context_json, quality_json, pages_json
		FROM chunks WHERE chunk_id = ?`, chunkID)
	c, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	return c, err
}

func (s *SQLiteStorage) ListChunksByDocument(ctx context.Context, docID string) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, doc_id, seq, content, heading, token_count, char_count,
		       position, chunk_type, context_json, quality_json, pages_json
		FROM chunks WHERE doc_id = ? ORDER BY seq`, docID)
	if err != nil {
		return nil, fmt.Errorf("list chunks %s: %w", docID, err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []types.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) CountChunks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *SQLiteStorage) LoadEmbeddings(ctx context.Context) ([]ChunkVector, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT chunk_id, doc_id, vector FROM embeddings")
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ChunkVector
	for rows.Next() {
		var cv ChunkVector
		var blob []byte
		if err := rows.Scan(&cv.ChunkID, &cv.DocID, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		cv.Vector = decodeVector(blob)
		out = append(out, cv)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) SaveRun(ctx context.Context, report *types.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, report_json) VALUES (?, ?, ?)`,
		report.RunID, report.StartedAt, string(data))
	if err != nil {
		return fmt.Errorf("save run %s: %w", report.RunID, err)
	}
	return nil
}

func (s *SQLiteStorage) LatestRun(ctx context.Context) (*types.RunReport, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT report_json FROM runs ORDER BY started_at DESC LIMIT 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	var report types.RunReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*DocumentRecord, error) {
	var rec DocumentRecord
	var authors sql.NullString
	var title, docType, version, language, backend sql.NullString
	var modTime, processedAt sql.NullTime
	if err := row.Scan(&rec.DocID, &rec.Path, &rec.Fingerprint, &title, &docType,
		&version, &language, &authors, &backend, &rec.SizeBytes, &modTime,
		&rec.TotalPages, &rec.ChunkCount, &rec.Status, &processedAt); err != nil {
		return nil, err
	}
	rec.Title = title.String
	rec.DocType = docType.String
	rec.Version = version.String
	rec.Language = language.String
	rec.Backend = backend.String
	rec.ModTime = modTime.Time
	rec.ProcessedAt = processedAt.Time
	if authors.Valid && authors.String != "" {
		if err := json.Unmarshal([]byte(authors.String), &rec.Authors); err != nil {
			return nil, fmt.Errorf("unmarshal authors: %w", err)
		}
	}
	return &rec, nil
}

func scanDocumentRow(row *sql.Row) (*DocumentRecord, error) {
	rec, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func scanChunk(row rowScanner) (*types.Chunk, error) {
	var c types.Chunk
	var heading, chunkType sql.NullString
	var ctxJSON string
	var qualityJSON, pagesJSON sql.NullString
	if err := row.Scan(&c.ID, &c.DocumentID, &c.Seq, &c.Content, &heading,
		&c.TokenCount, &c.CharCount, &c.Position, &chunkType,
		&ctxJSON, &qualityJSON, &pagesJSON); err != nil {
		return nil, err
	}
	c.Heading = heading.String
	c.Type = types.ChunkType(chunkType.String)
	if err := json.Unmarshal([]byte(ctxJSON), &c.Context); err != nil {
		return nil, fmt.Errorf("unmarshal context %s: %w", c.ID, err)
	}
	if qualityJSON.Valid && qualityJSON.String != "" {
		c.Quality = &types.QualityReport{}
		if err := json.Unmarshal([]byte(qualityJSON.String), c.Quality); err != nil {
			return nil, fmt.Errorf("unmarshal quality %s: %w", c.ID, err)
		}
	}
	if pagesJSON.Valid && pagesJSON.String != "" {
		if err := json.Unmarshal([]byte(pagesJSON.String), &c.Pages); err != nil {
			return nil, fmt.Errorf("unmarshal pages %s: %w", c.ID, err)
		}
	}
	return &c, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// encodeVector serializes float32s little-endian for BLOB storage.
func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
