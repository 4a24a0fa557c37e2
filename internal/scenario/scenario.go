// Package scenario loads dry-run inputs from YAML files: the automation
// document itself and the scenario describing the simulated world.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"automationsim/internal/ha"
	"automationsim/internal/simulate"
)

// Scenario describes the simulated world for one dry run: a full entity
// snapshot (used when no live instance provides one), state overrides, the
// simulated clock and the simulated firing trigger.
type Scenario struct {
	States    []ha.State             `yaml:"states"`
	Overrides map[string]string      `yaml:"overrides"`
	Time      string                 `yaml:"time"`
	TriggerID string                 `yaml:"trigger_id"`
	Trigger   map[string]interface{} `yaml:"trigger"`
}

// LoadScenario reads a scenario file. A missing path yields an empty
// scenario rather than an error.
func LoadScenario(path string) (*Scenario, error) {
	if path == "" {
		return &Scenario{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	return &sc, nil
}

// LoadDocument reads and parses an automation YAML file
func LoadDocument(path string) (*simulate.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read automation file: %w", err)
	}
	return ParseDocumentYAML(data)
}

// ParseDocumentYAML parses automation YAML into a Document
func ParseDocumentYAML(data []byte) (*simulate.Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse automation YAML: %w", err)
	}
	return simulate.ParseDocument(raw)
}
