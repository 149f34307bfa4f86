package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPathHonoursXDGStateHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "codeweave", "codeweave.log"), p)
}

func TestInitWritesJSONRecords(t *testing.T) {
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	path := filepath.Join(t.TempDir(), "logs", "codeweave.log")
	closer, err := Init(Options{Path: path, Debug: true})
	require.NoError(t, err)

	Get().Debug("edit applied", "bytes", 12)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "edit applied", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
	assert.EqualValues(t, 12, rec["bytes"])
}

func TestInfoLevelDropsDebug(t *testing.T) {
	prev := Get()
	t.Cleanup(func() { Set(prev) })
	t.Setenv(DebugEnv, "")

	path := filepath.Join(t.TempDir(), "codeweave.log")
	closer, err := Init(Options{Path: path})
	require.NoError(t, err)
	Get().Debug("hidden")
	Get().Info("shown")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}
