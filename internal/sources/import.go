package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceEntry is one entry of a source list file.
type SourceEntry struct {
	Type   string `yaml:"type"`
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Active *bool  `yaml:"active,omitempty"`
}

// SourceList is the document read by Import:
//
//	sources:
//	  - type: rss
//	    name: Go Blog
//	    url: https://go.dev/blog/feed.atom
type SourceList struct {
	Sources []SourceEntry `yaml:"sources"`
}

// ParseSourceList decodes a YAML source list.
func ParseSourceList(r io.Reader) (*SourceList, error) {
	var list SourceList
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&list); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse source list: %w", err)
	}
	return &list, nil
}

// LoadSourceList reads a YAML source list from disk.
func LoadSourceList(path string) (*SourceList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSourceList(f)
}

// Import adds every source in the list. Invalid entries are skipped and
// reported; storage failures stop the import.
func (m *Manager) Import(ctx context.Context, list *SourceList) (int, []error, error) {
	var (
		added   int
		skipped []error
	)
	for i, entry := range list.Sources {
		source, err := m.AddSource(ctx, entry.Type, entry.Name, entry.URL)
		if err != nil {
			if errors.Is(err, ErrInvalidSource) {
				skipped = append(skipped, fmt.Errorf("entry %d: %w", i, err))
				continue
			}
			return added, skipped, err
		}
		added++

		if entry.Active != nil && !*entry.Active {
			if _, err := m.SetActive(ctx, source.ID, false); err != nil {
				return added, skipped, err
			}
		}
	}

	m.log.Info("Imported sources", "added", added, "skipped", len(skipped))
	return added, skipped, nil
}
