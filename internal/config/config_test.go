package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
collection_path: ./coll
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./coll", cfg.CollectionPath)
	require.Equal(t, "./docs", cfg.OutputPath)
	require.Equal(t, 20, cfg.MaxDepth)
	require.Greater(t, cfg.Workers, 0)
	require.LessOrEqual(t, cfg.Workers, 4)
	require.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	require.Equal(t, "info", cfg.Logging.Level)
	require.False(t, cfg.Strict)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestLoad_MissingCollectionPath(t *testing.T) {
	path := writeConfig(t, `
output_path: ./docs
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "collection_path is required")
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("COLLDOCS_TEST_ROOT", "/srv/collections/acme")
	path := writeConfig(t, `
collection_path: ${COLLDOCS_TEST_ROOT}/widgets
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/collections/acme/widgets", cfg.CollectionPath)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
collection_path: ./coll
logging:
  level: loud
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), `invalid logging level "loud"`)
}

func TestLoad_IncludeExcludeMutuallyExclusive(t *testing.T) {
	path := writeConfig(t, `
collection_path: ./coll
include_types: [module]
exclude_types: [role]
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mutually exclusive")
}

func TestTypeIncluded(t *testing.T) {
	cfg := &Config{IncludeTypes: []string{"module", "filter"}}
	require.True(t, cfg.TypeIncluded("module"))
	require.False(t, cfg.TypeIncluded("role"))

	cfg = &Config{ExcludeTypes: []string{"callback"}}
	require.True(t, cfg.TypeIncluded("module"))
	require.False(t, cfg.TypeIncluded("callback"))

	cfg = &Config{}
	require.True(t, cfg.TypeIncluded("anything"))
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./my_collection", cfg.CollectionPath)
}
