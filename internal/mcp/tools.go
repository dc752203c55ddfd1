package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docontext/internal/pipeline"
	"github.com/dshills/docontext/internal/storage"
	"github.com/dshills/docontext/pkg/types"
)

// MCP error codes.
const (
	ErrorCodeInvalidParams = -32602
	ErrorCodeInternalError = -32603
	ErrorCodeRunInProgress = -32001
	ErrorCodeNoRuns        = -32002
)

// handleProcessCorpus handles the process_corpus tool invocation.
func (s *Server) handleProcessCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	force, _ := args["force_reprocess"].(bool)

	report, err := s.coord.ProcessCorpus(ctx, path, pipeline.Options{ForceReprocess: force})
	if err != nil {
		if errors.Is(err, types.ErrRunInProgress) {
			return nil, newMCPError(ErrorCodeRunInProgress, "another run is already in progress", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "corpus run failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"run_id":           report.RunID,
		"total_files":      report.TotalFiles,
		"successful_files": report.SuccessfulFiles,
		"failed_files":     report.FailedFiles,
		"skipped_files":    report.SkippedFiles,
		"orphans_removed":  report.OrphansRemoved,
		"total_chunks":     report.TotalChunks,
		"aborted":          report.Aborted,
		"duration_ms":      report.Duration.Milliseconds(),
	}
	if len(report.Failures) > 0 {
		limit := len(report.Failures)
		if limit > 5 {
			limit = 5
		}
		response["failures"] = report.Failures[:limit]
		response["failure_count"] = len(report.Failures)
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation.
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list documents", map[string]interface{}{
			"error": err.Error(),
		})
	}
	chunkCount, err := s.store.CountChunks(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count chunks", map[string]interface{}{
			"error": err.Error(),
		})
	}

	succeeded, failedDocs := 0, 0
	for _, d := range docs {
		if d.Status == string(types.StatusSuccess) {
			succeeded++
		} else {
			failedDocs++
		}
	}

	response := map[string]interface{}{
		"documents":        len(docs),
		"documents_ok":     succeeded,
		"documents_failed": failedDocs,
		"chunks":           chunkCount,
		"storage_mode":     storage.BuildMode,
	}
	if run, err := s.store.LatestRun(ctx); err == nil {
		response["last_run"] = map[string]interface{}{
			"run_id":     run.RunID,
			"started_at": run.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			"aborted":    run.Aborted,
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetReport handles the get_report tool invocation.
func (s *Server) handleGetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.store.LatestRun(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNoRuns, "no runs recorded yet", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to load latest run", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(run)), nil
}

// newMCPError creates a properly formatted MCP error.
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// MCPError represents an MCP protocol error.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return errors.New("path must be absolute")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path not accessible: %w", err)
	}
	if !info.IsDir() {
		return errors.New("path is not a directory")
	}
	return nil
}

func formatJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
