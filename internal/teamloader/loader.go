// Package teamloader resolves team configuration files (JSON or YAML) into
// component configurations for import. It is deliberately dumb: no schema
// validation beyond the minimal shape, no network, no database.
package teamloader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentdeck/agentdeck/internal/datamodel"
)

// FileResult is the per-file outcome of a directory scan. A malformed file
// carries its error here instead of failing the scan.
type FileResult struct {
	Path   string
	Config *datamodel.ComponentConfig
	Err    error
}

// LoadOne reads a single team configuration file. The extension picks the
// decoder: .json, .yaml or .yml.
func LoadOne(path string) (*datamodel.ComponentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading team config: %w", err)
	}

	var cfg datamodel.ComponentConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("unsupported team config extension %q", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid team config %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// LoadAllFromDirectory resolves every team configuration directly under dir,
// in stable filename order. Only the directory listing itself can fail;
// individual files report their outcome in the result list.
func LoadAllFromDirectory(dir string) ([]FileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading team config directory: %w", err)
	}

	var results []FileResult
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		path := filepath.Join(dir, entry.Name())
		cfg, err := LoadOne(path)
		results = append(results, FileResult{Path: path, Config: cfg, Err: err})
	}
	// os.ReadDir returns entries sorted by filename, so results are stable.
	return results, nil
}
