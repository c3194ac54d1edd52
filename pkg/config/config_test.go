package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, []float64{0.5, 0.9, 0.99}, cfg.Quantiles)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
quantiles: [0.5, 0.95]
utilization_color_min_multiplier: 2.5
output_dir: /tmp/out
bundle_path: /tmp/out/bundle.db
enabled_analyses: [end-to-end]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, 0.95}, cfg.Quantiles)
	require.Equal(t, 2.5, cfg.UtilizationColorMinMultiplier)
	require.Equal(t, "/tmp/out", cfg.OutputDir)
	require.Equal(t, []string{"end-to-end"}, cfg.EnabledAnalyses)
}

func TestValidateRejectsBadQuantile(t *testing.T) {
	cfg := Default()
	cfg.Quantiles = []float64{1.5}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveMultiplier(t *testing.T) {
	cfg := Default()
	cfg.UtilizationColorMinMultiplier = 0
	require.Error(t, cfg.Validate())
}
