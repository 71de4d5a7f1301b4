// Package seed loads a corpus of annual filings into a running API
// instance from a YAML manifest. It is the bulk-ingestion counterpart
// to the interactive upload endpoint.
package seed

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest lists the filings to push through the ingestion endpoint.
type Manifest struct {
	Filings []Entry `yaml:"filings"`
}

// Entry describes one filing. File paths are resolved relative to the
// manifest's directory unless absolute.
type Entry struct {
	Entity    string `yaml:"entity"`
	Year      string `yaml:"year"`
	File      string `yaml:"file"`
	SourceURL string `yaml:"source_url"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(manifest.Filings) == 0 {
		return nil, errors.New("manifest lists no filings")
	}
	for i, entry := range manifest.Filings {
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i+1, err)
		}
	}
	return &manifest, nil
}

func (e Entry) validate() error {
	if strings.TrimSpace(e.Entity) == "" {
		return errors.New("entity is required")
	}
	if strings.TrimSpace(e.Year) == "" {
		return errors.New("year is required")
	}
	if strings.TrimSpace(e.File) == "" {
		return errors.New("file is required")
	}
	return nil
}
