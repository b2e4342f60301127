package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ducminhle1904/trade-risk-gate/internal/gate"
)

// LoadGateConfig reads gate tunables (thresholds, per-check configs) from a
// JSON file layered over the defaults, falling back to the defaults alone
// when path is empty. Thresholds and weights are validated by the gate at
// construction time.
func LoadGateConfig(path string) (gate.Config, error) {
	cfg := gate.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return gate.Config{}, fmt.Errorf("failed to read gate config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return gate.Config{}, fmt.Errorf("failed to parse gate config file %s: %w", path, err)
	}
	return cfg, nil
}
