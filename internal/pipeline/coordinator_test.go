package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docontext/internal/config"
	"github.com/dshills/docontext/internal/embedder"
	"github.com/dshills/docontext/internal/extractor"
	"github.com/dshills/docontext/internal/storage"
	"github.com/dshills/docontext/pkg/types"
)

func testCoordinator(t *testing.T) (*Coordinator, storage.Storage) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "state.db")
	cfg.ReportDir = filepath.Join(dir, "reports")
	cfg.Processing.MaxWorkers = 2

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return New(cfg, store, embedder.NewLocalProvider(nil)), store
}

// corpusText produces prose long enough to pass extraction and split into
// multiple chunks.
func corpusText(topic string, paragraphs int) string {
	var b strings.Builder
	b.WriteString("Chapter 1: " + topic + "\n\n")
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&b, "The %s subsystem handles request number %d in sequence. ", topic, i)
		b.WriteString("Operators configure the service before starting any workload. ")
		b.WriteString("Therefore the deployment proceeds without manual intervention. ")
		b.WriteString("Each component reports its status back to the controller.\n\n")
	}
	return b.String()
}

func writeCorpusFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestProcessCorpusFirstRun(t *testing.T) {
	co, store := testCoordinator(t)
	root := t.TempDir()
	writeCorpusFile(t, root, "alpha.txt", corpusText("billing", 12))
	writeCorpusFile(t, root, "sub/beta.txt", corpusText("network", 12))

	report, err := co.ProcessCorpus(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalFiles)
	assert.Equal(t, 2, report.SuccessfulFiles)
	assert.Zero(t, report.FailedFiles)
	assert.Zero(t, report.SkippedFiles)
	assert.False(t, report.Aborted)
	assert.Greater(t, report.TotalChunks, 0)
	assert.NotEmpty(t, report.RunID)

	docs, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, string(types.StatusSuccess), d.Status)
		assert.NotEmpty(t, d.Fingerprint)
		assert.Greater(t, d.ChunkCount, 0)
	}
}

func TestProcessCorpusSkipsUnchanged(t *testing.T) {
	co, _ := testCoordinator(t)
	root := t.TempDir()
	writeCorpusFile(t, root, "a.txt", corpusText("storage", 10))
	writeCorpusFile(t, root, "b.txt", corpusText("compute", 10))

	ctx := context.Background()
	_, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)

	second, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, second.SkippedFiles)
	assert.Zero(t, second.SuccessfulFiles)
	assert.Zero(t, second.FailedFiles)
}

func TestProcessCorpusReprocessesChangedFile(t *testing.T) {
	co, _ := testCoordinator(t)
	root := t.TempDir()
	writeCorpusFile(t, root, "a.txt", corpusText("storage", 10))
	writeCorpusFile(t, root, "b.txt", corpusText("compute", 10))

	ctx := context.Background()
	_, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)

	writeCorpusFile(t, root, "a.txt", corpusText("storage revised", 11))
	second, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.SuccessfulFiles)
	assert.Equal(t, 1, second.SkippedFiles)
}

func TestProcessCorpusForceReprocess(t *testing.T) {
	co, _ := testCoordinator(t)
	root := t.TempDir()
	writeCorpusFile(t, root, "a.txt", corpusText("storage", 10))

	ctx := context.Background()
	_, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)

	second, err := co.ProcessCorpus(ctx, root, Options{ForceReprocess: true})
	require.NoError(t, err)
	assert.Equal(t, 1, second.SuccessfulFiles)
	assert.Zero(t, second.SkippedFiles)
}

func TestProcessCorpusRemovesOrphans(t *testing.T) {
	co, store := testCoordinator(t)
	root := t.TempDir()
	writeCorpusFile(t, root, "keep.txt", corpusText("storage", 10))
	writeCorpusFile(t, root, "gone.txt", corpusText("compute", 10))

	ctx := context.Background()
	_, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "gone.txt")))
	second, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.OrphansRemoved)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "keep.txt", docs[0].Path)
}

func TestProcessCorpusFailureKeepsPriorChunks(t *testing.T) {
	co, store := testCoordinator(t)
	root := t.TempDir()
	writeCorpusFile(t, root, "doc.txt", corpusText("storage", 10))

	ctx := context.Background()
	_, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)

	rec, err := store.GetDocumentByPath(ctx, "doc.txt")
	require.NoError(t, err)
	priorChunks := rec.ChunkCount
	require.Greater(t, priorChunks, 0)

	// Content too short to extract: the reprocess attempt fails, but the
	// previously committed chunks must survive untouched.
	writeCorpusFile(t, root, "doc.txt", "tiny")
	second, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.FailedFiles)
	require.Len(t, second.Failures, 1)
	assert.Equal(t, types.CategoryExtraction, second.Failures[0].Category)

	chunks, err := store.ListChunksByDocument(ctx, rec.DocID)
	require.NoError(t, err)
	assert.Len(t, chunks, priorChunks)

	rec, err = store.GetDocumentByPath(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, string(types.StatusFailed), rec.Status)
}

func TestProcessCorpusAbortsOnErrorThreshold(t *testing.T) {
	co, _ := testCoordinator(t)
	co.cfg.Processing.ErrorThresholdPercentage = 50
	co.cfg.Processing.MaxWorkers = 1

	root := t.TempDir()
	for i := 0; i < 4; i++ {
		writeCorpusFile(t, root, fmt.Sprintf("bad%d.txt", i), "too short")
	}

	report, err := co.ProcessCorpus(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Greater(t, report.FailedFiles, 0)
	assert.Zero(t, report.SuccessfulFiles)
}

func TestProcessCorpusStopsWhenContinueOnErrorDisabled(t *testing.T) {
	co, _ := testCoordinator(t)
	co.cfg.Processing.ContinueOnError = false
	co.cfg.Processing.MaxWorkers = 1

	root := t.TempDir()
	// Sorted dispatch order: the failing file goes first, so with
	// continue_on_error off the healthy sibling must never be attempted.
	writeCorpusFile(t, root, "a_broken.txt", "tiny")
	writeCorpusFile(t, root, "b_healthy.txt", corpusText("storage", 10))

	report, err := co.ProcessCorpus(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Equal(t, 1, report.FailedFiles)
	assert.Zero(t, report.SuccessfulFiles)
}

func TestProcessCorpusContinuesPastFailureByDefault(t *testing.T) {
	co, _ := testCoordinator(t)
	require.True(t, co.cfg.Processing.ContinueOnError)
	co.cfg.Processing.MaxWorkers = 1

	root := t.TempDir()
	writeCorpusFile(t, root, "a_broken.txt", "tiny")
	writeCorpusFile(t, root, "b_healthy.txt", corpusText("storage", 10))

	report, err := co.ProcessCorpus(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.False(t, report.Aborted)
	assert.Equal(t, 1, report.FailedFiles)
	assert.Equal(t, 1, report.SuccessfulFiles)
}

// stalledExtractor blocks until the context dies, standing in for an
// extraction backend wedged on a pathological file.
type stalledExtractor struct{}

func (stalledExtractor) Name() string { return "stalled" }

func (stalledExtractor) Supports(path string) bool { return strings.HasSuffix(path, ".slow") }

func (stalledExtractor) Extract(ctx context.Context, path string) ([]types.Page, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestProcessCorpusPerDocumentTimeout(t *testing.T) {
	co, _ := testCoordinator(t)
	co.cfg.Processing.TimeoutPerDocumentSecs = 1
	co.extract = extractor.NewChain(stalledExtractor{}, extractor.NewPlainTextExtractor())

	root := t.TempDir()
	writeCorpusFile(t, root, "wedged.slow", "never extracted")
	writeCorpusFile(t, root, "healthy.txt", corpusText("storage", 10))

	report, err := co.ProcessCorpus(context.Background(), root, Options{})
	require.NoError(t, err)

	// The deadline kills only the wedged file; its sibling completes.
	assert.Equal(t, 1, report.FailedFiles)
	assert.Equal(t, 1, report.SuccessfulFiles)
	assert.False(t, report.Aborted)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "wedged.slow", report.Failures[0].Path)
	assert.Equal(t, types.CategoryTimeout, report.Failures[0].Category)
}

func TestProcessCorpusRunLock(t *testing.T) {
	co, _ := testCoordinator(t)
	require.True(t, co.lock.TryAcquire())
	defer co.lock.Release()

	_, err := co.ProcessCorpus(context.Background(), t.TempDir(), Options{})
	assert.ErrorIs(t, err, types.ErrRunInProgress)
}

func TestProcessCorpusEmptyRoot(t *testing.T) {
	co, _ := testCoordinator(t)
	report, err := co.ProcessCorpus(context.Background(), t.TempDir(), Options{})
	require.NoError(t, err)
	assert.Zero(t, report.TotalFiles)
	assert.False(t, report.Aborted)
}

func TestProcessCorpusPersistsRunReport(t *testing.T) {
	co, store := testCoordinator(t)
	root := t.TempDir()
	writeCorpusFile(t, root, "a.txt", corpusText("storage", 10))

	ctx := context.Background()
	report, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)

	saved, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, saved.RunID)
	assert.Equal(t, report.SuccessfulFiles, saved.SuccessfulFiles)

	latest := filepath.Join(co.cfg.ReportDir, "latest_report.json")
	_, err = os.Stat(latest)
	assert.NoError(t, err)
}

func TestProcessCorpusCrossDocumentLinks(t *testing.T) {
	co, store := testCoordinator(t)
	co.cfg.Processing.MaxWorkers = 1 // deterministic processing order
	root := t.TempDir()
	// Near-identical content in two documents gives the local embedder
	// matching vectors, so the second document links back to the first.
	writeCorpusFile(t, root, "one.txt", corpusText("replication", 10))
	writeCorpusFile(t, root, "two.txt", corpusText("replication", 10))

	ctx := context.Background()
	_, err := co.ProcessCorpus(ctx, root, Options{})
	require.NoError(t, err)

	rec, err := store.GetDocumentByPath(ctx, "two.txt")
	require.NoError(t, err)
	chunks, err := store.ListChunksByDocument(ctx, rec.DocID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var linked bool
	for _, c := range chunks {
		for _, id := range c.Context.Navigation.RelatedChunkIDs {
			if strings.HasPrefix(id, "doc_") && !strings.HasPrefix(id, rec.DocID) {
				linked = true
			}
		}
	}
	assert.True(t, linked, "expected at least one cross-document related link")
}

func TestRunLock(t *testing.T) {
	var l RunLock
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
	l.Release()
}
