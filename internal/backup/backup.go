// Package backup handles snapshots of a Teddy installation taken before an
// upgrade replaces its resources.
package backup

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/teddyful/teddy-upgrader/internal/fsutil"
	"github.com/teddyful/teddy-upgrader/internal/instance"
)

// IDLayout formats snapshot IDs (and directory names) from the upgrade start time.
const IDLayout = "20060102150405"

// Snapshot describes a backup written by Create.
type Snapshot struct {
	ID        string    `json:"id" yaml:"id"`
	Path      string    `json:"path" yaml:"path"`
	Source    string    `json:"source" yaml:"source"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Files     int       `json:"files" yaml:"files"`
	Bytes     int64     `json:"bytes" yaml:"bytes"`
	Skipped   int       `json:"skipped" yaml:"skipped"`
}

// BackupInfo provides summary information about a backup for listing.
type BackupInfo struct {
	ID        string    `json:"id" yaml:"id"`
	Path      string    `json:"path" yaml:"path"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Version   string    `json:"version,omitempty" yaml:"version,omitempty"`
	Size      int64     `json:"size" yaml:"size"`
}

// Manager handles backup operations.
type Manager struct {
	backupDir string
	exclude   string
	skipPaths []string
	logger    *slog.Logger
}

// NewManager creates a backup manager rooted at backupDir. Any path with a
// component equal to exclude is left out of snapshots; empty means nothing
// is excluded by name.
func NewManager(backupDir, exclude string) *Manager {
	return &Manager{
		backupDir: backupDir,
		exclude:   exclude,
		logger:    slog.Default(),
	}
}

// WithLogger sets the logger.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithSkipPaths adds absolute paths that are never copied into a snapshot,
// such as working directories that live inside the installation.
func (m *Manager) WithSkipPaths(paths ...string) *Manager {
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			m.skipPaths = append(m.skipPaths, abs)
		}
	}
	return m
}

// BackupDir returns the backup directory path.
func (m *Manager) BackupDir() string {
	return m.backupDir
}

// PrepareDir creates the snapshot directory for an upgrade that started at
// startedAt and returns its path.
func (m *Manager) PrepareDir(startedAt time.Time) (string, error) {
	dir := filepath.Join(m.backupDir, startedAt.UTC().Format(IDLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	return dir, nil
}

// Snapshot copies src into dir, preserving modification times and skipping
// excluded paths.
func (m *Manager) Snapshot(src, dir string) (*Snapshot, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", src, err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	skip := append([]string{absDir}, m.skipPaths...)
	stats, err := fsutil.CopyTree(absSrc, absDir, fsutil.CopyOptions{
		PreserveTimes: true,
		Skip: func(rel string, d fs.DirEntry) bool {
			if m.excluded(rel) {
				return true
			}
			full := filepath.Join(absSrc, filepath.FromSlash(rel))
			for _, p := range skip {
				if full == p {
					return true
				}
			}
			return false
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to back up %s: %w", src, err)
	}

	id := filepath.Base(absDir)
	createdAt, _ := time.Parse(IDLayout, id)
	snap := &Snapshot{
		ID:        id,
		Path:      absDir,
		Source:    absSrc,
		CreatedAt: createdAt,
		Files:     stats.Files,
		Bytes:     stats.Bytes,
		Skipped:   stats.Skipped,
	}
	m.logger.Debug("Backup written",
		"path", absDir, "files", stats.Files, "size", humanize.Bytes(uint64(stats.Bytes)), "skipped", stats.Skipped)
	return snap, nil
}

// Create prepares the snapshot directory and copies src into it.
func (m *Manager) Create(src string, startedAt time.Time) (*Snapshot, error) {
	dir, err := m.PrepareDir(startedAt)
	if err != nil {
		return nil, err
	}
	return m.Snapshot(src, dir)
}

// excluded reports whether any component of rel equals the exclusion name.
func (m *Manager) excluded(rel string) bool {
	if m.exclude == "" {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if part == m.exclude {
			return true
		}
	}
	return false
}

// List returns all backups sorted by creation time (newest first).
func (m *Manager) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		createdAt, err := time.Parse(IDLayout, entry.Name())
		if err != nil {
			continue
		}

		path := filepath.Join(m.backupDir, entry.Name())
		info := BackupInfo{
			ID:        entry.Name(),
			Path:      path,
			CreatedAt: createdAt,
			Size:      dirSize(path),
		}
		if v, err := instance.ReadVersion(path, ""); err == nil {
			info.Version = v
		}
		backups = append(backups, info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get retrieves a backup by ID. Use "latest" to get the most recent backup.
func (m *Manager) Get(id string) (*BackupInfo, error) {
	backups, err := m.List()
	if err != nil {
		return nil, err
	}
	if id == "latest" {
		if len(backups) == 0 {
			return nil, fmt.Errorf("no backups found")
		}
		return &backups[0], nil
	}
	for i := range backups {
		if backups[i].ID == id {
			return &backups[i], nil
		}
	}
	return nil, fmt.Errorf("backup not found: %s", id)
}

// Delete removes a backup by ID.
func (m *Manager) Delete(id string) error {
	if _, err := time.Parse(IDLayout, id); err != nil {
		return fmt.Errorf("invalid backup id: %s", id)
	}

	path := filepath.Join(m.backupDir, id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("backup not found: %s", id)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}

	return nil
}

func dirSize(root string) int64 {
	var size int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
