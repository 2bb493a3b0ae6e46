package feeds

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source describes one RSS feed in the catalog.
type Source struct {
	Name       string `yaml:"name"`
	URL        string `yaml:"url"`
	CategoryID int    `yaml:"category_id"`
	MaxPerRun  int    `yaml:"max_per_run"`
	Group      string `yaml:"group"` // "romania" or "externe"
}

// Mix sets the share of the run taken by each source group.
type Mix struct {
	Romania float64 `yaml:"romania"`
	Externe float64 `yaml:"externe"`
}

// Catalog is the full feed configuration.
type Catalog struct {
	Mix     Mix      `yaml:"mix"`
	Sources []Source `yaml:"sources"`
}

// Group filters sources by group name.
func (c *Catalog) Group(name string) []Source {
	var out []Source
	for _, source := range c.Sources {
		if source.Group == name {
			out = append(out, source)
		}
	}
	return out
}

// LoadCatalog reads a YAML feed catalog from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed catalog: %w", err)
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse feed catalog: %w", err)
	}
	if len(catalog.Sources) == 0 {
		return nil, fmt.Errorf("feed catalog %s lists no sources", path)
	}
	if catalog.Mix.Romania <= 0 && catalog.Mix.Externe <= 0 {
		catalog.Mix = DefaultCatalog().Mix
	}
	for i := range catalog.Sources {
		if catalog.Sources[i].MaxPerRun <= 0 {
			catalog.Sources[i].MaxPerRun = 2
		}
		if catalog.Sources[i].Group == "" {
			catalog.Sources[i].Group = "romania"
		}
	}
	return &catalog, nil
}

// DefaultCatalog returns the built-in source list, used when no
// catalog file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Mix: Mix{Romania: 0.8, Externe: 0.2},
		Sources: []Source{
			{
				Name:       "Google News România – Ultimele știri",
				URL:        "https://news.google.com/rss?hl=ro&gl=RO&ceid=RO:ro",
				CategoryID: 7,
				MaxPerRun:  3,
				Group:      "romania",
			},
			{
				Name:       "Google News România – Breaking",
				URL:        "https://news.google.com/rss/search?q=%22ultima%20ora%22%20OR%20breaking%20OR%20alerta%20Romania&hl=ro&gl=RO&ceid=RO:ro",
				CategoryID: 7,
				MaxPerRun:  3,
				Group:      "romania",
			},
			{
				Name:       "Google News România – Politică",
				URL:        "https://news.google.com/rss/search?q=politica+Romania&hl=ro&gl=RO&ceid=RO:ro",
				CategoryID: 4058,
				MaxPerRun:  2,
				Group:      "romania",
			},
			{
				Name:       "Google News România – Social",
				URL:        "https://news.google.com/rss/search?q=eveniment+Romania&hl=ro&gl=RO&ceid=RO:ro",
				CategoryID: 4063,
				MaxPerRun:  2,
				Group:      "romania",
			},
			{
				Name:       "Google News România – Economie",
				URL:        "https://news.google.com/rss/search?q=economie+Romania&hl=ro&gl=RO&ceid=RO:ro",
				CategoryID: 4064,
				MaxPerRun:  2,
				Group:      "romania",
			},
			{
				Name:       "Google News – Europa",
				URL:        "https://news.google.com/rss/search?q=Europa+stiri&hl=ro&gl=RO&ceid=RO:ro",
				CategoryID: 4060,
				MaxPerRun:  2,
				Group:      "externe",
			},
			{
				Name:       "Google News – Internațional",
				URL:        "https://news.google.com/rss/search?q=international+breaking&hl=ro&gl=RO&ceid=RO:ro",
				CategoryID: 4060,
				MaxPerRun:  2,
				Group:      "externe",
			},
		},
	}
}
