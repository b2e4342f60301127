package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ducminhle1904/trade-risk-gate/internal/gate"
)

// LoadWeights reads a weight table from a JSON file, falling back to the
// built-in v1 table when path is empty. The table is validated by the gate
// at construction time.
func LoadWeights(path string) (gate.Weights, error) {
	if path == "" {
		return gate.DefaultWeights(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return gate.Weights{}, fmt.Errorf("failed to read weights file %s: %w", path, err)
	}

	var weights gate.Weights
	if err := json.Unmarshal(data, &weights); err != nil {
		return gate.Weights{}, fmt.Errorf("failed to parse weights file %s: %w", path, err)
	}
	return weights, nil
}
