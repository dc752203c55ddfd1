package types

import "errors"

// ErrorCategory labels a per-file failure in run reports.
type ErrorCategory string

const (
	CategoryExtraction   ErrorCategory = "extraction"
	CategorySegmentation ErrorCategory = "segmentation"
	CategoryValidation   ErrorCategory = "validation"
	CategoryTimeout      ErrorCategory = "timeout"
	CategoryPersistence  ErrorCategory = "persistence"
	CategoryUnreadable   ErrorCategory = "unreadable"
	CategoryUnknown      ErrorCategory = "unknown"
)

// Error taxonomy. Extraction, segmentation, validation, and timeout errors
// are terminal for a single file; state corruption is fatal to the whole run.
var (
	// ErrExtractionFailed means every extraction backend in the priority
	// chain failed for a file.
	ErrExtractionFailed = errors.New("all extraction backends failed")

	// ErrEmptyText means extraction produced no usable text to segment.
	ErrEmptyText = errors.New("no extractable text")

	// ErrNoChunksSurvived means every chunk of a document was rejected by
	// the quality validator under the strict policy.
	ErrNoChunksSurvived = errors.New("no chunks passed quality validation")

	// ErrTimeout means a file exceeded its per-document processing budget.
	ErrTimeout = errors.New("per-document timeout exceeded")

	// ErrStateCorrupt means the processing-state table is unreadable. This
	// is the one failure that aborts a run instead of a single file, since
	// continuing risks silent duplicate or missing processing.
	ErrStateCorrupt = errors.New("processing state corrupt")

	// ErrRunInProgress means another corpus run holds the run lock.
	ErrRunInProgress = errors.New("another run is already in progress")
)

// Categorize maps an error to its report category.
func Categorize(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExtractionFailed):
		return CategoryExtraction
	case errors.Is(err, ErrEmptyText):
		return CategorySegmentation
	case errors.Is(err, ErrNoChunksSurvived):
		return CategoryValidation
	case errors.Is(err, ErrTimeout):
		return CategoryTimeout
	default:
		return CategoryUnknown
	}
}
