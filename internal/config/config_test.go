package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults tests the configuration defaults with a clean environment
func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "LOG_FORMAT", "PORTFOLIO_VALUE", "CHECK_TIMEOUT",
		"WEIGHTS_FILE", "DATABASE_PATH", "PROMETHEUS_PORT", "HEALTH_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100000.0, cfg.Gate.PortfolioValue)
	assert.Equal(t, 200*time.Millisecond, cfg.Gate.CheckTimeout)
	assert.Equal(t, "data/riskgate.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 8080, cfg.Monitoring.PrometheusPort)
}

// TestLoad_EnvironmentOverrides tests environment variable overrides
func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORTFOLIO_VALUE", "250000.5")
	t.Setenv("CHECK_TIMEOUT", "500ms")
	t.Setenv("DATABASE_PATH", "/tmp/other.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, 250000.5, cfg.Gate.PortfolioValue)
	assert.Equal(t, 500*time.Millisecond, cfg.Gate.CheckTimeout)
	assert.Equal(t, "/tmp/other.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

// TestLoad_IgnoresUnparseableValues tests fallback on malformed env values
func TestLoad_IgnoresUnparseableValues(t *testing.T) {
	t.Setenv("PORTFOLIO_VALUE", "not-a-number")
	t.Setenv("CHECK_TIMEOUT", "soon")
	t.Setenv("PROMETHEUS_PORT", "eighty")

	cfg := Load()
	assert.Equal(t, 100000.0, cfg.Gate.PortfolioValue)
	assert.Equal(t, 200*time.Millisecond, cfg.Gate.CheckTimeout)
	assert.Equal(t, 8080, cfg.Monitoring.PrometheusPort)
}

// TestLoadWeights_EmptyPathUsesDefaults tests the built-in weight table fallback
func TestLoadWeights_EmptyPathUsesDefaults(t *testing.T) {
	weights, err := LoadWeights("")
	require.NoError(t, err)
	assert.Equal(t, "v1", weights.Version)
	assert.Len(t, weights.ByCheck, 5)
}

// TestLoadWeights_FromFile tests loading a custom weight table
func TestLoadWeights_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	payload := `{
		"version": "v2-experiment",
		"by_check": {
			"incident_similarity": 0.30,
			"confidence_guard": 0.30,
			"regime_sizing": 0.20,
			"statistical_baseline": 0.10,
			"structural": 0.10
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	weights, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, "v2-experiment", weights.Version)
	assert.Equal(t, 0.30, weights.ByCheck["incident_similarity"])
}

// TestLoadWeights_MissingFile tests the error path for an absent file
func TestLoadWeights_MissingFile(t *testing.T) {
	_, err := LoadWeights(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

// TestLoadGateConfig_EmptyPathUsesDefaults tests the built-in gate config fallback
func TestLoadGateConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadGateConfig("")
	require.NoError(t, err)
	assert.Equal(t, 30.0, cfg.Thresholds.ApproveBelow)
	assert.Equal(t, 60.0, cfg.Thresholds.BlockAt)
	assert.Equal(t, 200*time.Millisecond, cfg.CheckTimeout)
}

// TestLoadGateConfig_FileOverridesDefaults tests layering a JSON file over defaults
func TestLoadGateConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.json")
	payload := `{
		"thresholds": {"approve_below": 25, "block_at": 70},
		"structural": {"max_portfolio_fraction": 0.25}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cfg, err := LoadGateConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25.0, cfg.Thresholds.ApproveBelow)
	assert.Equal(t, 70.0, cfg.Thresholds.BlockAt)
	assert.Equal(t, 0.25, cfg.Structural.MaxPortfolioFraction)
	// untouched sections keep their defaults
	assert.Equal(t, 0.70, cfg.Confidence.DefaultCeiling)
}

// TestLoadGateConfig_MissingFile tests the error path for an absent file
func TestLoadGateConfig_MissingFile(t *testing.T) {
	_, err := LoadGateConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

// TestLoadWeights_MalformedJSON tests the error path for corrupt content
func TestLoadWeights_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadWeights(path)
	assert.Error(t, err)
}
