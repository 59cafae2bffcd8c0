package buildlog

import (
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	_ = godotenv.Load()
	log, err := Connect(filepath.Join(t.TempDir(), "a7c.db"), false)
	require.NoError(t, err)
	return log
}

func TestRecordAndRecent(t *testing.T) {
	log := openTestLog(t)

	run := NewRun("main.a7", "compile", "zig", "ok", 0, 12,
		map[string]any{"tokenize": map[string]any{"ok": true}}, nil)
	run.OutputPath = "main.zig"
	run.OutputBytes = 128
	require.NoError(t, log.Record(run))

	runs, err := log.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "main.a7", runs[0].InputPath)
	assert.Equal(t, "ok", runs[0].Status)
	assert.Equal(t, 128, runs[0].OutputBytes)
	assert.NotEmpty(t, runs[0].ID)
}

func TestRecentForFiltersByInput(t *testing.T) {
	log := openTestLog(t)

	require.NoError(t, log.Record(NewRun("a.a7", "compile", "zig", "ok", 0, 1, nil, nil)))
	require.NoError(t, log.Record(NewRun("b.a7", "compile", "zig", "error", 6, 2, nil,
		[]map[string]any{{"type": "semantic", "message": "Undefined name"}})))

	runs, err := log.RecentFor("b.a7", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "error", runs[0].Status)
	assert.Equal(t, 6, runs[0].ExitCode)
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("libsql://db.example.io"))
	assert.True(t, isURL("wss://db.example.io"))
	assert.False(t, isURL("/tmp/a7c.db"))
	assert.False(t, isURL("a7c.db"))
}
