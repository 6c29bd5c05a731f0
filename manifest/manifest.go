// Package manifest handles obli.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents an obli.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Source  Source  `toml:"source"`
	Build   Build   `toml:"build"`

	// Dir is the directory containing the obli.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Build configures transpilation output.
type Build struct {
	Out   string `toml:"out"`
	Cache string `toml:"cache"`
}

// Load parses an obli.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "obli.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Build.Out == "" {
		m.Build.Out = "gen"
	}
	if m.Build.Cache == "" {
		m.Build.Cache = filepath.Join(".obli", "cache.db")
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an obli.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "obli.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source
// directories.
func (m *Manifest) SourceDirPaths() []string {
	paths := make([]string, len(m.Source.Dirs))
	for i, d := range m.Source.Dirs {
		paths[i] = filepath.Join(m.Dir, d)
	}
	return paths
}

// OutPath returns the absolute output directory for emitted code.
func (m *Manifest) OutPath() string {
	return filepath.Join(m.Dir, m.Build.Out)
}

// CachePath returns the absolute path of the artifact cache database.
func (m *Manifest) CachePath() string {
	return filepath.Join(m.Dir, m.Build.Cache)
}
