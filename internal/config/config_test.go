package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1e-15, cfg.Decomp.Cutoff)
	assert.True(t, cfg.Decomp.Truncate)

	same, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, cfg, same)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  format: json
  level: debug
parallel:
  enabled: false
decomp:
  cutoff: 1.0e-8
  max_dim: 64
  relative_cutoff: true
bonds: 10
compress: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Parallel.Enabled)
	assert.Equal(t, 1e-8, cfg.Decomp.Cutoff)
	assert.Equal(t, 64, cfg.Decomp.MaxDim)
	assert.Equal(t, 1, cfg.Decomp.MinDim)
	assert.True(t, cfg.Decomp.RelativeCutoff)
	assert.True(t, cfg.Decomp.RefNorm.Equal(Default().Decomp.RefNorm))
	assert.Equal(t, 10, cfg.Bonds)
	assert.True(t, cfg.Compress)

	var buf bytes.Buffer
	l, err := cfg.Logger(&buf)
	require.NoError(t, err)
	l.Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestParseErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key": "decomp:\n  cutof: 1\n",
		"bad level":   "log:\n  level: loud\n",
		"bad format":  "log:\n  format: xml\n",
		"bad dims":    "decomp:\n  min_dim: 5\n  max_dim: 2\n",
		"bad bonds":   "bonds: -1\n",
		"not yaml":    "decomp: [",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Decomp.MaxDim = 17
	data, err := cfg.Marshal()
	require.NoError(t, err)
	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 17, got.Decomp.MaxDim)
	assert.Equal(t, cfg.Parallel, got.Parallel)
}
