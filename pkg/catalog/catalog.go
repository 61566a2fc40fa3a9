// Package catalog maps (suite, query id, engine) triples to SQL text.
//
// The directory layout is the interface: each suite directory holds a
// suite.toml manifest, a queries/ tree with per-engine subdirectories plus
// default-dialect files at its root, and a schemas/ directory with one DDL
// file per engine:
//
//	<suite>/suite.toml
//	<suite>/queries/<id>_<name>.sql            default dialect
//	<suite>/queries/<engine>/<id>_<name>.sql   engine override
//	<suite>/schemas/<engine>.sql
//
// An engine-specific file shadows the default variant. Engines without a
// schema file do not support the suite at all.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when no SQL variant or schema exists for the
	// requested combination. Callers running a multi-engine benchmark should
	// skip the engine for that scenario rather than fail the whole run.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous is returned when more than one query file matches a query
	// id within one dialect directory.
	ErrAmbiguous = errors.New("ambiguous query match")
)

// Suite holds the loaded contents of one suite directory.
type Suite struct {
	Name     string
	Manifest *Manifest

	// defaults maps query file stem to SQL text for the suite-default dialect.
	defaults map[string]string
	// variants maps engine to query file stem to SQL text.
	variants map[Engine]map[string]string
	// schemas maps engine to DDL text.
	schemas map[Engine]string
}

// Catalog resolves SQL text for (suite, query id, engine) triples. All
// loading happens once in Load; lookups are pure and read-only.
type Catalog struct {
	suites map[string]*Suite
}

// Load reads every suite directory at the root of fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog root: %w", err)
	}

	c := &Catalog{suites: make(map[string]*Suite)}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		suite, err := loadSuite(fsys, entry.Name())
		if err != nil {
			return nil, err
		}
		c.suites[suite.Name] = suite
	}

	if len(c.suites) == 0 {
		return nil, fmt.Errorf("no suites found")
	}

	return c, nil
}

func loadSuite(fsys fs.FS, dir string) (*Suite, error) {
	manifest, err := loadManifest(fsys, path.Join(dir, "suite.toml"))
	if err != nil {
		return nil, err
	}
	if manifest.Name != dir {
		return nil, fmt.Errorf("suite %s: manifest name %q does not match directory", dir, manifest.Name)
	}

	s := &Suite{
		Name:     manifest.Name,
		Manifest: manifest,
		defaults: make(map[string]string),
		variants: make(map[Engine]map[string]string),
		schemas:  make(map[Engine]string),
	}

	queriesDir := path.Join(dir, "queries")
	queryEntries, err := fs.ReadDir(fsys, queriesDir)
	if err != nil {
		return nil, fmt.Errorf("suite %s: failed to read queries: %w", dir, err)
	}

	for _, entry := range queryEntries {
		name := entry.Name()
		if entry.IsDir() {
			engine, err := ParseEngine(name)
			if err != nil {
				return nil, fmt.Errorf("suite %s: query dir %q is not an engine: %w", dir, name, err)
			}
			variants, err := loadQueryFiles(fsys, path.Join(queriesDir, name))
			if err != nil {
				return nil, fmt.Errorf("suite %s: engine %s: %w", dir, engine, err)
			}
			s.variants[engine] = variants
			continue
		}
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		sql, err := fs.ReadFile(fsys, path.Join(queriesDir, name))
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", dir, err)
		}
		s.defaults[strings.TrimSuffix(name, ".sql")] = string(sql)
	}

	schemasDir := path.Join(dir, "schemas")
	schemaEntries, err := fs.ReadDir(fsys, schemasDir)
	if err != nil {
		return nil, fmt.Errorf("suite %s: failed to read schemas: %w", dir, err)
	}
	for _, entry := range schemaEntries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		engine, err := ParseEngine(strings.TrimSuffix(name, ".sql"))
		if err != nil {
			return nil, fmt.Errorf("suite %s: schema file %q: %w", dir, name, err)
		}
		ddl, err := fs.ReadFile(fsys, path.Join(schemasDir, name))
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", dir, err)
		}
		s.schemas[engine] = string(ddl)
	}

	return s, nil
}

func loadQueryFiles(fsys fs.FS, dir string) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		sql, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		files[strings.TrimSuffix(name, ".sql")] = string(sql)
	}
	return files, nil
}

// Suites returns the loaded suite names in sorted order.
func (c *Catalog) Suites() []string {
	names := make([]string, 0, len(c.suites))
	for name := range c.suites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suite returns the loaded suite, or ErrNotFound.
func (c *Catalog) Suite(name string) (*Suite, error) {
	s, ok := c.suites[name]
	if !ok {
		return nil, fmt.Errorf("suite %q: %w", name, ErrNotFound)
	}
	return s, nil
}

// Queries returns the manifest queries for the suite in run order.
func (c *Catalog) Queries(suite string) ([]Query, error) {
	s, err := c.Suite(suite)
	if err != nil {
		return nil, err
	}
	return s.Manifest.Queries, nil
}

// Resolve returns the SQL text for the given (suite, query id, engine)
// triple. The query id is either the full file stem
// ("0001_count_orders_from_terminal") or its bare numeric prefix ("0001").
// An engine-specific variant shadows the default-dialect file. Returns
// ErrNotFound when no variant exists or the manifest excludes the engine for
// this query, and ErrAmbiguous when a bare prefix matches more than one file
// in the same dialect directory.
func (c *Catalog) Resolve(suite, queryID string, engine Engine) (string, error) {
	s, err := c.Suite(suite)
	if err != nil {
		return "", err
	}

	stem, err := s.resolveStem(queryID, engine)
	if err != nil {
		return "", fmt.Errorf("suite %s: query %q: engine %s: %w", suite, queryID, engine, err)
	}

	if q := s.Manifest.query(stem); q != nil && q.Skipped(engine) {
		return "", fmt.Errorf("suite %s: query %s: engine %s is excluded: %w", suite, stem, engine, ErrNotFound)
	}

	if sql, ok := s.variants[engine][stem]; ok {
		return sql, nil
	}
	if sql, ok := s.defaults[stem]; ok {
		return sql, nil
	}
	return "", fmt.Errorf("suite %s: query %s: engine %s: %w", suite, stem, engine, ErrNotFound)
}

// resolveStem maps a query id to the unique file stem it refers to, checking
// the engine dialect directory and the defaults.
func (s *Suite) resolveStem(queryID string, engine Engine) (string, error) {
	// Exact stem match never consults prefixes.
	if _, ok := s.variants[engine][queryID]; ok {
		return queryID, nil
	}
	if _, ok := s.defaults[queryID]; ok {
		return queryID, nil
	}

	var matches []string
	seen := make(map[string]bool)
	prefix := queryID + "_"
	for _, stems := range []map[string]string{s.variants[engine], s.defaults} {
		for stem := range stems {
			if strings.HasPrefix(stem, prefix) && !seen[stem] {
				seen[stem] = true
				matches = append(matches, stem)
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", ErrNotFound
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("matches %s: %w", strings.Join(matches, ", "), ErrAmbiguous)
	}
}

// SchemaFor returns the DDL bundle to provision before running any query in
// the suite on the given engine. Returns ErrNotFound when the engine has no
// schema for the suite.
func (c *Catalog) SchemaFor(suite string, engine Engine) (string, error) {
	s, err := c.Suite(suite)
	if err != nil {
		return "", err
	}
	ddl, ok := s.schemas[engine]
	if !ok {
		return "", fmt.Errorf("suite %s: no schema for engine %s: %w", suite, engine, ErrNotFound)
	}
	return ddl, nil
}

// SuiteEngines returns the engines that have a schema for the suite, in
// stable order.
func (c *Catalog) SuiteEngines(suite string) ([]Engine, error) {
	s, err := c.Suite(suite)
	if err != nil {
		return nil, err
	}
	var engines []Engine
	for _, e := range Engines() {
		if _, ok := s.schemas[e]; ok {
			engines = append(engines, e)
		}
	}
	return engines, nil
}

// ListEngines enumerates the engines that have a runnable variant of the
// query: a schema for the suite, no manifest exclusion, and resolvable SQL
// text. Used to drive "run this benchmark only on supported engines".
func (c *Catalog) ListEngines(suite, queryID string) ([]Engine, error) {
	engines, err := c.SuiteEngines(suite)
	if err != nil {
		return nil, err
	}

	var runnable []Engine
	for _, e := range engines {
		_, err := c.Resolve(suite, queryID, e)
		switch {
		case err == nil:
			runnable = append(runnable, e)
		case errors.Is(err, ErrNotFound):
			continue
		default:
			return nil, err
		}
	}
	return runnable, nil
}
