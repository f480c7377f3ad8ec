// Package instance describes a local Teddy installation: the resources the
// upgrader manages and the checks that decide whether a directory tree is a
// usable installation.
package instance

import (
	"path/filepath"

	"github.com/teddyful/teddy-upgrader/internal/types"
)

// Manifest lists the resources, relative to an installation root, that an
// upgrade replaces. Everything else under the root is left untouched.
type Manifest struct {
	Directories []string `yaml:"directories" toml:"directories" json:"directories"`
	Files       []string `yaml:"files" toml:"files" json:"files"`
}

// Entry is a single manifest resource.
type Entry struct {
	Path string
	Kind types.ResourceKind
}

// CopyPair maps a resource in the extracted release to its location in the
// live installation.
type CopyPair struct {
	Source string
	Target string
	Kind   types.ResourceKind
}

// Entries returns directories then files, each in configuration order.
func (m Manifest) Entries() []Entry {
	entries := make([]Entry, 0, len(m.Directories)+len(m.Files))
	for _, d := range m.Directories {
		entries = append(entries, Entry{Path: d, Kind: types.ResourceKindDirectory})
	}
	for _, f := range m.Files {
		entries = append(entries, Entry{Path: f, Kind: types.ResourceKindFile})
	}
	return entries
}

// Len returns the number of manifest entries.
func (m Manifest) Len() int {
	return len(m.Directories) + len(m.Files)
}

// Pairs builds the ordered copy plan from releaseRoot into liveRoot.
func (m Manifest) Pairs(releaseRoot, liveRoot string) []CopyPair {
	entries := m.Entries()
	pairs := make([]CopyPair, 0, len(entries))
	for _, e := range entries {
		rel := filepath.FromSlash(e.Path)
		pairs = append(pairs, CopyPair{
			Source: filepath.Join(releaseRoot, rel),
			Target: filepath.Join(liveRoot, rel),
			Kind:   e.Kind,
		})
	}
	return pairs
}
