package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads, parses, and validates a scenario file. The parser is chosen by
// file extension: .yaml/.yml or .json.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- scenario path is operator-provided configuration
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var scenario Scenario
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &scenario); err != nil {
			return nil, fmt.Errorf("parse yaml scenario %s: %w", filepath.Base(path), err)
		}
	case ".json":
		if err := json.Unmarshal(data, &scenario); err != nil {
			return nil, fmt.Errorf("parse json scenario %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("unsupported scenario extension %q (want .yaml, .yml, or .json)", ext)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", filepath.Base(path), err)
	}
	return &scenario, nil
}
