// Package pipeline coordinates a corpus run: change detection, concurrent
// per-file processing, orphan cleanup, and report generation. One run holds
// the run lock for its whole duration; per-file state commits atomically so
// an interrupted run never leaves a file half-indexed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docontext/internal/config"
	"github.com/dshills/docontext/internal/detector"
	"github.com/dshills/docontext/internal/embedder"
	"github.com/dshills/docontext/internal/enricher"
	"github.com/dshills/docontext/internal/extractor"
	"github.com/dshills/docontext/internal/segmenter"
	"github.com/dshills/docontext/internal/similarity"
	"github.com/dshills/docontext/internal/storage"
	"github.com/dshills/docontext/internal/validator"
	"github.com/dshills/docontext/pkg/types"
)

// Coordinator owns the full processing pipeline for a corpus.
type Coordinator struct {
	cfg       *config.Config
	store     storage.Storage
	extract   *extractor.Chain
	segment   *segmenter.Segmenter
	enrich    *enricher.Enricher
	validate  *validator.Validator
	embed     embedder.Embedder // nil disables embeddings
	index     *similarity.Index
	lock      RunLock
	indexOnce sync.Once
}

// New wires the pipeline stages from configuration. The embedder may be nil;
// similarity links are then skipped.
func New(cfg *config.Config, store storage.Storage, embed embedder.Embedder) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		store:    store,
		extract:  extractor.DefaultChain(),
		segment:  segmenter.New(cfg.Chunking),
		enrich:   enricher.New(cfg.Enrichment),
		validate: validator.New(cfg.Quality, cfg.Chunking),
		embed:    embed,
		index:    similarity.NewIndex(),
	}
}

// Options are per-run overrides on top of the static configuration.
type Options struct {
	ForceReprocess bool
}

// ProcessCorpus runs the pipeline over every supported file under root and
// returns the run report. The report is also persisted and written to the
// report directory. Only state corruption or a concurrent run abort the call
// before any file work happens; per-file failures are reported, not raised.
func (co *Coordinator) ProcessCorpus(ctx context.Context, root string, opts Options) (*types.RunReport, error) {
	if !co.lock.TryAcquire() {
		return nil, types.ErrRunInProgress
	}
	defer co.lock.Release()

	report := &types.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	state, err := co.store.LoadState(ctx)
	if err != nil {
		if errors.Is(err, types.ErrStateCorrupt) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", types.ErrStateCorrupt, err)
	}
	co.warmIndex(ctx)

	detState := make(map[string]detector.FileState, len(state))
	for path, rec := range state {
		detState[path] = detector.FileState{
			DocumentID:  rec.DocID,
			Fingerprint: rec.Fingerprint,
			Status:      rec.Status,
			ChunkCount:  rec.ChunkCount,
			ProcessedAt: rec.ProcessedAt,
		}
	}

	force := opts.ForceReprocess || co.cfg.Processing.ForceReprocess
	plan, err := detector.Scan(root, detState, co.extract.Supports, force)
	if err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}

	report.TotalFiles = len(plan.ToProcess) + len(plan.Unchanged) + len(plan.Unreadable)
	report.SkippedFiles = len(plan.Unchanged)
	for _, u := range plan.Unreadable {
		report.Failures = append(report.Failures, types.FileFailure{
			Path:     u.Path,
			Category: types.CategoryUnreadable,
			Message:  u.Err.Error(),
		})
	}
	log.Printf("pipeline: run %s: %d to process, %d unchanged, %d orphaned, %d unreadable",
		report.RunID, len(plan.ToProcess), len(plan.Unchanged), len(plan.Orphaned), len(plan.Unreadable))

	var (
		succeeded atomic.Int64
		failed    atomic.Int64
		aborted   atomic.Bool
		mu        sync.Mutex // guards report.Failures and quality stats
		qstats    qualityStats
	)
	failed.Store(int64(len(plan.Unreadable)))

	attempted := len(plan.ToProcess) + len(plan.Unreadable)
	threshold := co.cfg.Processing.ErrorThresholdPercentage

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(co.cfg.Processing.MaxWorkers)

	for _, cand := range plan.ToProcess {
		g.Go(func() error {
			if aborted.Load() || gctx.Err() != nil {
				return nil
			}
			result, err := co.processFile(gctx, cand)
			if err != nil {
				failed.Add(1)
				mu.Lock()
				report.Failures = append(report.Failures, types.FileFailure{
					Path:     cand.Path,
					Category: categorize(err),
					Message:  err.Error(),
				})
				mu.Unlock()
				log.Printf("pipeline: %s failed: %v", cand.Path, err)

				if !co.cfg.Processing.ContinueOnError {
					if aborted.CompareAndSwap(false, true) {
						log.Printf("pipeline: continue_on_error disabled, stopping after %s", cand.Path)
					}
				}
				if attempted > 0 && float64(failed.Load())/float64(attempted)*100 > threshold {
					if aborted.CompareAndSwap(false, true) {
						log.Printf("pipeline: error threshold %.0f%% exceeded, aborting run", threshold)
					}
				}
				return nil
			}
			succeeded.Add(1)
			mu.Lock()
			qstats.absorb(result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Orphan cleanup runs only when the run was not aborted; an aborted run
	// must not destroy state the operator may still need to inspect.
	if !aborted.Load() {
		for _, path := range plan.Orphaned {
			rec, ok := state[path]
			if !ok {
				continue
			}
			if err := co.store.DeleteDocument(ctx, rec.DocID); err != nil {
				log.Printf("pipeline: orphan cleanup %s: %v", path, err)
				continue
			}
			co.index.RemoveDocument(rec.DocID)
			report.OrphansRemoved++
		}
	}

	report.SuccessfulFiles = int(succeeded.Load())
	report.FailedFiles = int(failed.Load())
	report.Aborted = aborted.Load()
	report.TotalChunks = qstats.chunks
	report.Quality = qstats.distribution()
	report.Duration = time.Since(report.StartedAt)

	if err := co.store.SaveRun(ctx, report); err != nil {
		log.Printf("pipeline: save run: %v", err)
	}
	if err := WriteReportFiles(co.cfg.ReportDir, report); err != nil {
		log.Printf("pipeline: write report files: %v", err)
	}
	return report, nil
}

// fileResult carries per-file quality data back to the run aggregate.
type fileResult struct {
	chunkScores []float64
	flagged     int
	rejected    int
}

// processFile runs one file through extract, enrich, validate, and persist
// under the per-document timeout.
func (co *Coordinator) processFile(ctx context.Context, cand detector.Candidate) (*fileResult, error) {
	fctx, cancel := context.WithTimeout(ctx, co.cfg.Timeout())
	defer cancel()

	res, err := co.runStages(fctx, cand)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && fctx.Err() != nil {
		err = fmt.Errorf("%w: %s", types.ErrTimeout, cand.Path)
	}
	if err != nil {
		if rec, gerr := co.store.GetDocumentByPath(ctx, cand.Path); gerr == nil {
			_ = co.store.MarkFailed(ctx, rec.DocID)
		}
		return nil, err
	}
	return res, nil
}

func (co *Coordinator) runStages(ctx context.Context, cand detector.Candidate) (*fileResult, error) {
	doc := &types.Document{
		ID:          types.DocumentID(cand.Path),
		Path:        cand.Path,
		Fingerprint: cand.Fingerprint,
		SizeBytes:   cand.SizeBytes,
		ModTime:     cand.ModTime,
	}

	pages, backend, err := co.extract.Extract(ctx, cand.AbsPath)
	if err != nil {
		return nil, err
	}
	doc.Pages = pages
	doc.TotalPages = len(pages)
	doc.Backend = backend
	extractor.DetectMetadata(doc)

	segs := co.segment.Split(doc)
	if len(segs) == 0 {
		return nil, types.ErrEmptyText
	}

	chunks := co.enrich.Enrich(doc, segs)

	res := &fileResult{}
	kept := chunks[:0]
	for i := range chunks {
		report := co.validate.Validate(&chunks[i])
		switch report.Verdict {
		case types.VerdictReject:
			res.rejected++
			continue
		case types.VerdictFlag:
			res.flagged++
		}
		res.chunkScores = append(res.chunkScores, report.Score)
		kept = append(kept, chunks[i])
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrNoChunksSurvived, cand.Path)
	}

	vectors := co.embedChunks(ctx, kept)
	co.linkRelated(kept, vectors, doc.ID)

	rec := &storage.DocumentRecord{
		DocID:       doc.ID,
		Path:        cand.Path,
		Title:       doc.Title,
		DocType:     doc.DocType,
		Version:     doc.Version,
		Language:    doc.Language,
		Authors:     doc.Authors,
		Backend:     backend,
		SizeBytes:   cand.SizeBytes,
		ModTime:     cand.ModTime,
		TotalPages:  doc.TotalPages,
		Status:      string(types.StatusFailed), // flips on commit
		ProcessedAt: time.Now(),
	}
	if err := co.store.UpsertDocument(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", errPersistence, err)
	}
	if err := co.store.ReplaceChunks(ctx, doc.ID, kept, vectors); err != nil {
		return nil, fmt.Errorf("%w: %v", errPersistence, err)
	}
	// Fingerprint last: a crash before this point leaves the file stale and
	// it is reprocessed on the next run.
	if err := co.store.CommitDocument(ctx, doc.ID, cand.Fingerprint, len(kept)); err != nil {
		return nil, fmt.Errorf("%w: %v", errPersistence, err)
	}

	co.index.RemoveDocument(doc.ID)
	for id, vec := range vectors {
		co.index.Add(id, doc.ID, vec)
	}
	return res, nil
}

// embedChunks generates vectors for the kept chunks. Failures disable
// similarity links for the file but never fail it.
func (co *Coordinator) embedChunks(ctx context.Context, chunks []types.Chunk) map[string][]float32 {
	if co.embed == nil || len(chunks) == 0 {
		return nil
	}
	vectors := make(map[string][]float32, len(chunks))
	for i := range chunks {
		v, err := co.embed.Embed(ctx, chunks[i].Content)
		if err != nil {
			log.Printf("pipeline: embed %s: %v", chunks[i].ID, err)
			return nil
		}
		vectors[chunks[i].ID] = v.Values
	}
	return vectors
}

// linkRelated augments navigation with cross-document similar chunks.
func (co *Coordinator) linkRelated(chunks []types.Chunk, vectors map[string][]float32, docID string) {
	if co.index == nil || len(vectors) == 0 {
		return
	}
	limit := co.cfg.Enrichment.RelatedLimit
	for i := range chunks {
		vec, ok := vectors[chunks[i].ID]
		if !ok {
			continue
		}
		for _, m := range co.index.FindSimilar(vec, limit, docID) {
			nav := &chunks[i].Context.Navigation
			if len(nav.RelatedChunkIDs) >= limit*2 {
				break
			}
			nav.RelatedChunkIDs = append(nav.RelatedChunkIDs, m.ChunkID)
		}
	}
}

// warmIndex loads stored embeddings into the similarity index once per
// coordinator lifetime.
func (co *Coordinator) warmIndex(ctx context.Context) {
	co.indexOnce.Do(func() {
		vecs, err := co.store.LoadEmbeddings(ctx)
		if err != nil {
			log.Printf("pipeline: warm similarity index: %v", err)
			return
		}
		for _, cv := range vecs {
			co.index.Add(cv.ChunkID, cv.DocID, cv.Vector)
		}
	})
}

// errPersistence tags storage failures for report categorization.
var errPersistence = errors.New("persistence failed")

func categorize(err error) types.ErrorCategory {
	if cat := types.Categorize(err); cat != types.CategoryUnknown {
		return cat
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.CategoryTimeout
	}
	if errors.Is(err, errPersistence) {
		return types.CategoryPersistence
	}
	return types.CategoryUnknown
}

// qualityStats accumulates chunk quality data across files.
type qualityStats struct {
	chunks   int
	flagged  int
	rejected int
	min      float64
	max      float64
	sum      float64
}

func (q *qualityStats) absorb(res *fileResult) {
	for _, s := range res.chunkScores {
		if q.chunks == 0 || s < q.min {
			q.min = s
		}
		if s > q.max {
			q.max = s
		}
		q.sum += s
		q.chunks++
	}
	q.flagged += res.flagged
	q.rejected += res.rejected
}

func (q *qualityStats) distribution() types.QualityDistribution {
	d := types.QualityDistribution{
		Min:      q.min,
		Max:      q.max,
		Flagged:  q.flagged,
		Rejected: q.rejected,
	}
	if q.chunks > 0 {
		d.Average = q.sum / float64(q.chunks)
	}
	return d
}
