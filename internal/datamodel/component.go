package datamodel

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ComponentConfig is the declarative description of an agent team: which
// provider implements it, how the component tree is configured, and a
// human-readable label. It is persisted as a JSON column, never as a typed
// wrapper.
type ComponentConfig struct {
	Provider      string         `json:"provider" yaml:"provider"`
	ComponentType string         `json:"component_type,omitempty" yaml:"component_type,omitempty"`
	Version       int            `json:"version,omitempty" yaml:"version,omitempty"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Label         string         `json:"label,omitempty" yaml:"label,omitempty"`
	Config        map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Validate checks the minimal shape a team configuration must have.
func (c *ComponentConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("component config is nil")
	}
	if c.Provider == "" {
		return fmt.Errorf("component config missing provider")
	}
	return nil
}

// Equal reports deep structural equality with another configuration.
// Both sides are reduced to canonical JSON (map keys sorted by the encoder)
// so that configs loaded from different sources compare by content.
func (c *ComponentConfig) Equal(other *ComponentConfig) bool {
	if c == nil || other == nil {
		return c == other
	}
	a, err := json.Marshal(c)
	if err != nil {
		return false
	}
	b, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// MarshalDB flattens the configuration to its serializable JSON form for
// storage in a TEXT column.
func (c *ComponentConfig) MarshalDB() ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize component config: %w", err)
	}
	return data, nil
}

// UnmarshalDB restores a configuration from its stored JSON form.
func UnmarshalDB(data []byte) (*ComponentConfig, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var c ComponentConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to deserialize component config: %w", err)
	}
	return &c, nil
}
