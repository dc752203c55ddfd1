package mcp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, validatePath(dir))

	err := validatePath("relative/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute")

	err = validatePath(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not accessible")

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	err = validatePath(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestMCPErrorFormat(t *testing.T) {
	err := newMCPError(ErrorCodeInvalidParams, "path parameter is required", nil)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	assert.Equal(t, "MCP error -32602: path parameter is required", err.Error())
}

func TestFormatJSON(t *testing.T) {
	out := formatJSON(map[string]interface{}{"chunks": 3, "aborted": false})
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"chunks": 3`)
	assert.Contains(t, out, `"aborted": false`)
}
