package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "json", "debug")
	require.NoError(t, err)
	l.Debug("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = New(&buf, "xml", "info")
	assert.Error(t, err)
	_, err = New(&buf, "text", "loud")
	assert.Error(t, err)
}

func TestSetLogger(t *testing.T) {
	prev := L()
	defer SetLogger(prev)

	var buf bytes.Buffer
	SetLogger(NewText(&buf, slog.LevelInfo))
	L().Info("scoped")
	assert.Contains(t, buf.String(), "scoped")

	SetLogger(nil)
	assert.False(t, L().Enabled(t.Context(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	lvl, err = ParseLevel("ERROR")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, lvl)
}
