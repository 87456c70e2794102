package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadFile decodes the YAML document at path over cfg. Keys missing from the
// file keep their current values.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}
