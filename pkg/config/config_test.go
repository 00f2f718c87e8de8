package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAMLThenEnvThenDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
input: sales.csv
columns:
  customer: Client
  product: Item
clusters: 4
min_support: 0.1
start_month: "012024"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("MI_PRODUCT_COLUMN", "SKU")
	t.Setenv("MI_CLUSTERS", "5")

	cfg, loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded)
	assert.Equal(t, "sales.csv", cfg.Input)
	assert.Equal(t, "Client", cfg.Columns.Customer)
	assert.Equal(t, "SKU", cfg.Columns.Product)
	assert.Equal(t, 5, cfg.Clusters)
	assert.Equal(t, 0.1, cfg.MinSupport)
	assert.Equal(t, 0.6, cfg.MinConfidence)
	assert.Equal(t, 3, cfg.ForecastHorizon)
	assert.Equal(t, 6, cfg.MinHistoryMonths)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "012024", cfg.StartMonthInclusive)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	cfg, loaded, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.Equal(t, 0.05, cfg.MinSupport)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("MI_MIN_CONFIDENCE", "high")
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clusters: [oops"), 0o644))
	_, _, err := Load(path)
	assert.Error(t, err)
}
