package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInit(t *testing.T) {
	file := filepath.Join(t.TempDir(), "docscan.yaml")

	stdout, _, err := run(t, "config", "init", file)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration written to "+file)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "canny_low")
	assert.Contains(t, string(data), "orderer: sumdiff")

	_, _, err = run(t, "config", "init", file)
	require.Error(t, err, "an existing file must not be replaced without --force")
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = run(t, "config", "init", file, "--force")
	require.NoError(t, err)
}

func TestConfigInit_IgnoresBrokenConfig(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("log_level: loud\n"), 0o644))
	file := filepath.Join(t.TempDir(), "fresh.yaml")

	_, _, err := run(t, "--config", broken, "config", "init", file)
	require.NoError(t, err)
	assert.FileExists(t, file)
}

func TestConfigShow(t *testing.T) {
	file := filepath.Join(t.TempDir(), "docscan.yaml")
	_, _, err := run(t, "config", "init", file)
	require.NoError(t, err)

	stdout, _, err := run(t, "--config", file, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# loaded from "+file)
	assert.Contains(t, stdout, "log_level: info")
	assert.Contains(t, stdout, "base_dir: ScannedDocuments")
}

func TestConfigShow_Overrides(t *testing.T) {
	file := filepath.Join(t.TempDir(), "docscan.yaml")
	require.NoError(t, os.WriteFile(file, []byte("batch:\n  workers: 3\n"), 0o644))
	t.Setenv("DOCSCAN_STORAGE_BASE_DIR", "archive")

	stdout, _, err := run(t, "--config", file, "--log-level", "debug", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "log_level: debug")
	assert.Contains(t, stdout, "workers: 3")
	assert.Contains(t, stdout, "base_dir: archive")
}

func TestConfigPaths(t *testing.T) {
	stdout, _, err := run(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, stdout, "/etc/docscan")
}
