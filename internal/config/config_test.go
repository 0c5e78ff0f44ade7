package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "UniprotID", cfg.Input.Column)
	assert.Equal(t, 1, cfg.Fetch.Workers)
	assert.Equal(t, "type", cfg.Partition.Column)
	assert.True(t, cfg.Partition.ClearBeforeWrite)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Paths, cfg.Paths)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	yamlData := `
input:
  path: ids.csv
paths:
  json_dir: out/json
fetch:
  workers: 4
  timeout: 30s
partition:
  clear_before_write: false
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ids.csv", cfg.Input.Path)
	assert.Equal(t, "UniprotID", cfg.Input.Column, "unset keys keep defaults")
	assert.Equal(t, "out/json", cfg.Paths.JSONDir)
	assert.Equal(t, "data/Variations", cfg.Paths.CSVDir)
	assert.Equal(t, 4, cfg.Fetch.Workers)
	assert.False(t, cfg.Partition.ClearBeforeWrite)

	d, err := cfg.FetchTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VARIATION_INPUT", "env.xlsx")
	t.Setenv("VARIATION_SORT_DIR", "env/sort")
	t.Setenv("VARIATION_DB", "")
	t.Setenv("VARIATION_LOG_LEVEL", "DEBUG")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env.xlsx", cfg.Input.Path)
	assert.Equal(t, "env/sort", cfg.Paths.SortDir)
	assert.Equal(t, "", cfg.Store.Path, "an explicitly empty VARIATION_DB disables the store")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	t.Run("missing template placeholder", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Fetch.URLTemplate = "https://example.org/variation"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Fetch.URLTemplate")
	})

	t.Run("zero workers", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Fetch.Workers = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Fetch.Timeout = "soon"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown log level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Level = "loud"
		assert.Error(t, cfg.Validate())
	})
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pipeline.yaml")
	cfg := DefaultConfig()
	cfg.Fetch.Workers = 3

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Fetch.Workers)
	assert.Equal(t, cfg.Paths, loaded.Paths)
}
