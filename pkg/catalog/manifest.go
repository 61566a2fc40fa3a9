package catalog

import (
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
)

// Query describes one logical query in a suite manifest: its id (the file
// stem), how many times the runner executes it, and which engines it is
// intentionally not runnable on (dialect-infeasible variants).
type Query struct {
	ID         string   `toml:"id"`
	Iterations int      `toml:"iterations"`
	Skip       []Engine `toml:"skip"`
}

// Skipped reports whether the query is excluded for the given engine.
func (q Query) Skipped(engine Engine) bool {
	for _, e := range q.Skip {
		if e == engine {
			return true
		}
	}
	return false
}

// Manifest is the suite.toml file at the root of each suite directory. It
// fixes query run order and iteration counts; the query files themselves are
// discovered from the directory layout.
type Manifest struct {
	Name    string  `toml:"name"`
	Queries []Query `toml:"query"`
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest name is required")
	}
	seen := make(map[string]bool, len(m.Queries))
	for _, q := range m.Queries {
		if q.ID == "" {
			return fmt.Errorf("manifest %s: query id is required", m.Name)
		}
		if q.Iterations <= 0 {
			return fmt.Errorf("manifest %s: query %s: iterations must be positive", m.Name, q.ID)
		}
		if seen[q.ID] {
			return fmt.Errorf("manifest %s: duplicate query id %s", m.Name, q.ID)
		}
		seen[q.ID] = true
		for _, e := range q.Skip {
			if _, err := ParseEngine(string(e)); err != nil {
				return fmt.Errorf("manifest %s: query %s: %w", m.Name, q.ID, err)
			}
		}
	}
	return nil
}

// query returns the manifest entry for the given id, or nil.
func (m *Manifest) query(id string) *Query {
	for i := range m.Queries {
		if m.Queries[i].ID == id {
			return &m.Queries[i]
		}
	}
	return nil
}

func loadManifest(fsys fs.FS, path string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}

	return &m, nil
}
