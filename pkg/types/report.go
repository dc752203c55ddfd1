package types

import "time"

// FileStatus is a file's terminal state after a pipeline run.
type FileStatus string

const (
	StatusSuccess FileStatus = "success"
	StatusFailed  FileStatus = "failed"
	StatusSkipped FileStatus = "skipped"
)

// FileFailure records one failed file in a run report.
type FileFailure struct {
	Path     string        `json:"path"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
}

// QualityDistribution summarizes chunk quality scores across a run.
type QualityDistribution struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Average  float64 `json:"average"`
	Flagged  int     `json:"flagged"`
	Rejected int     `json:"rejected"`
}

// RunReport is the structured result of one ProcessCorpus invocation. It is
// the contract any reporting or monitoring layer builds on and is persisted
// as the "latest run" record.
type RunReport struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	TotalFiles      int `json:"total_files"`
	SuccessfulFiles int `json:"successful_files"`
	FailedFiles     int `json:"failed_files"`
	SkippedFiles    int `json:"skipped_files"`
	OrphansRemoved  int `json:"orphans_removed"`

	TotalChunks int                 `json:"total_chunks"`
	Quality     QualityDistribution `json:"quality"`

	Failures []FileFailure `json:"failures,omitempty"`
	Aborted  bool          `json:"aborted"` // error-rate threshold crossed
}

// FailureRate returns the fraction of completed files that failed.
func (r *RunReport) FailureRate() float64 {
	done := r.SuccessfulFiles + r.FailedFiles
	if done == 0 {
		return 0
	}
	return float64(r.FailedFiles) / float64(done)
}
