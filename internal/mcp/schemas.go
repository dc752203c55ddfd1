package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// processCorpusTool returns the tool definition for process_corpus.
func processCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "process_corpus",
		Description: "Process a document corpus into context-enriched, quality-scored chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the corpus root directory",
				},
				"force_reprocess": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, reprocess every file ignoring stored fingerprints",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status.
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query corpus statistics: tracked documents, chunk counts, last run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getReportTool returns the tool definition for get_report.
func getReportTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_report",
		Description: "Return the full report of the most recent corpus run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
