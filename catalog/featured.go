// Package catalog assembles the gallery catalog from the featured cards and
// the uploaded projects.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rpupo63/projectdal-backend/gallery"
)

//go:embed featured.yaml
var defaultFeatured []byte

type featuredFile struct {
	Projects []gallery.ProjectRecord `yaml:"projects"`
}

// ParseFeatured decodes a featured catalog document. Records without an id or
// title are rejected; everything else is normalized.
func ParseFeatured(data []byte) ([]gallery.ProjectRecord, error) {
	var file featuredFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode featured catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Projects))
	records := make([]gallery.ProjectRecord, 0, len(file.Projects))
	for i, rec := range file.Projects {
		rec.ID = strings.TrimSpace(rec.ID)
		if rec.ID == "" || strings.TrimSpace(rec.Title) == "" {
			return nil, fmt.Errorf("featured project %d: id and title are required", i)
		}
		if seen[rec.ID] {
			return nil, fmt.Errorf("featured project %d: duplicate id %q", i, rec.ID)
		}
		seen[rec.ID] = true
		records = append(records, rec.Normalize())
	}
	return records, nil
}

// LoadFeatured reads the featured catalog from path, or the built-in one when
// path is empty.
func LoadFeatured(path string) ([]gallery.ProjectRecord, error) {
	if path == "" {
		return ParseFeatured(defaultFeatured)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read featured catalog: %w", err)
	}
	return ParseFeatured(data)
}
