package archive

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Meta is the archive manifest carried as the meta.toml entry.
type Meta struct {
	Dataset     Dataset     `toml:"dataset"`
	Changelog   Changelog   `toml:"changelog"`
	Attribution Attribution `toml:"attribution"`
	Collection  Collection  `toml:"collection"`
}

// Dataset identifies the provider dataset and the snapshot version this
// archive carries.
type Dataset struct {
	ID          string    `toml:"id"`
	Name        string    `toml:"name"`
	ShortName   string    `toml:"short_name"`
	Version     string    `toml:"version"`
	PublishedAt time.Time `toml:"published_at"`
	URL         string    `toml:"url"`
	Schema      string    `toml:"schema"`
}

// Changelog carries the provider's notes for this version.
type Changelog struct {
	Notes []string `toml:"notes"`
}

// Attribution carries dataset-level attribution.
type Attribution struct {
	Citation     string `toml:"citation"`
	SourceURL    string `toml:"source_url"`
	License      string `toml:"license"`
	RightsHolder string `toml:"rights_holder"`
}

// Collection carries the attribution of the collection the dataset
// belongs to.
type Collection struct {
	Name         string `toml:"name"`
	Author       string `toml:"author"`
	License      string `toml:"license"`
	AccessRights string `toml:"access_rights"`
	RightsHolder string `toml:"rights_holder"`
}

// ParseMeta parses a meta.toml document.
func ParseMeta(data []byte) (*Meta, error) {
	var meta Meta
	if err := toml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("archive: parse meta.toml: %w", err)
	}
	if meta.Dataset.ID == "" {
		return nil, fmt.Errorf("archive: meta.toml missing dataset.id")
	}
	if meta.Dataset.Version == "" {
		return nil, fmt.Errorf("archive: meta.toml missing dataset.version")
	}
	return &meta, nil
}
