package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupTestLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitWithWriter(&buf)
	t.Cleanup(func() {
		SetMinLevel(LevelDebug)
		SetEnabled(true)
	})
	return &buf
}

// === Unit Tests: Level ===

func TestLevel_String(t *testing.T) {
	require.Equal(t, "DEBUG", LevelDebug.String())
	require.Equal(t, "INFO", LevelInfo.String())
	require.Equal(t, "WARN", LevelWarn.String())
	require.Equal(t, "ERROR", LevelError.String())
	require.Equal(t, "UNKNOWN", Level(99).String())
}

// === Unit Tests: Logging ===

func TestLog_Format(t *testing.T) {
	buf := setupTestLogger(t)

	Info(CatEngine, "scope opened", "name", "pkg.child", "cached", false)

	line := buf.String()
	require.Contains(t, line, "[INFO]")
	require.Contains(t, line, "[engine]")
	require.Contains(t, line, "scope opened")
	require.Contains(t, line, "name=pkg.child")
	require.Contains(t, line, "cached=false")
	require.True(t, strings.HasSuffix(line, "\n"))
}

func TestLog_OddFieldCount(t *testing.T) {
	buf := setupTestLogger(t)

	Warn(CatGuard, "odd fields", "orphan")

	require.Contains(t, buf.String(), "orphan=<missing>")
}

func TestLog_MinLevelFilters(t *testing.T) {
	buf := setupTestLogger(t)
	SetMinLevel(LevelWarn)

	Debug(CatCache, "too quiet")
	Info(CatCache, "still too quiet")
	Warn(CatCache, "loud enough")

	out := buf.String()
	require.NotContains(t, out, "too quiet")
	require.Contains(t, out, "loud enough")
}

func TestLog_DisabledWritesNothing(t *testing.T) {
	buf := setupTestLogger(t)
	SetEnabled(false)

	Error(CatDB, "should not appear")
	require.Empty(t, buf.String())
}

func TestErrorErr(t *testing.T) {
	buf := setupTestLogger(t)

	ErrorErr(CatScenario, "step failed", errTest, "name", "pkg")
	require.Contains(t, buf.String(), "error=test failure")
	require.Contains(t, buf.String(), "name=pkg")

	buf.Reset()
	ErrorErr(CatScenario, "nil error", nil)
	require.Contains(t, buf.String(), "error=<nil>")
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "test failure" }
