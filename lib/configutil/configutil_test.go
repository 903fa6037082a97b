package configutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Retry   int    `json:"retry"`
	PauseMs int    `json:"pause_ms"`
	Output  string `json:"output"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gugu.json5"), []byte(`{
		// defaults
		retry: 3,
		pause_ms: 10,
		output: "table",
	}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gugu.local.json5"), []byte(`{output: "records"}`), 0600))

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "gugu.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{Retry: 3, PauseMs: 10, Output: "records"}, cfg)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gugu.local.json5"), []byte(`{retry: 5}`), 0600))

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "gugu.json5"))
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Retry)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "gugu.json5"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gugu.json5"), []byte(`{retry: `), 0600))

	_, err := ReadConfig[testConfig](filepath.Join(dir, "gugu.json5"))
	require.Error(t, err)
	require.False(t, errors.Is(err, os.ErrNotExist))
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "a/b/gugu.local.json5", localName("a/b/gugu.json5"))
	require.Equal(t, "telemetry.local", localName("telemetry"))
}
