package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/docontext/pkg/types"
)

// WriteReportFiles writes the run report to the report directory: a
// timestamped file per run plus latest_report.json, overwritten each run.
func WriteReportFiles(dir string, report *types.RunReport) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	name := fmt.Sprintf("run_%s_%s.json",
		report.StartedAt.UTC().Format("20060102T150405Z"), report.RunID)
	stamped := filepath.Join(dir, name)
	if err := os.WriteFile(stamped, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", stamped, err)
	}
	latest := filepath.Join(dir, "latest_report.json")
	if err := os.WriteFile(latest, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", latest, err)
	}
	return nil
}
