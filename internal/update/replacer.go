package update

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/teddyful/teddy-upgrader/internal/fsutil"
	"github.com/teddyful/teddy-upgrader/internal/instance"
)

// ReplaceResult records what a replacement touched.
type ReplaceResult struct {
	Deleted []string
	Copied  []string
	Errors  []error
}

// Err joins every error encountered, or returns nil.
func (r *ReplaceResult) Err() error {
	return errors.Join(r.Errors...)
}

// Replacer swaps the managed resources of a live installation for those of
// an extracted release. Unmanaged paths are never touched.
type Replacer struct {
	manifest  instance.Manifest
	generated []string
	logger    *slog.Logger
}

// NewReplacer creates a replacer for the manifest. generated lists extra
// paths that are deleted but never copied back.
func NewReplacer(manifest instance.Manifest, generated []string, logger *slog.Logger) *Replacer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replacer{manifest: manifest, generated: generated, logger: logger}
}

// DeleteOld removes every manifest entry and generated path under live.
// Absent paths are skipped; failures are collected and do not stop the loop.
func (r *Replacer) DeleteOld(live string) *ReplaceResult {
	result := &ReplaceResult{}

	paths := make([]string, 0, r.manifest.Len()+len(r.generated))
	for _, e := range r.manifest.Entries() {
		paths = append(paths, e.Path)
	}
	paths = append(paths, r.generated...)

	for _, rel := range paths {
		target := filepath.Join(live, filepath.FromSlash(rel))
		if !fsutil.Exists(target) {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			r.logger.Error("Failed to delete resource", "path", target, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("delete %s: %w", rel, err))
			continue
		}
		r.logger.Debug("Deleted resource", "path", target)
		result.Deleted = append(result.Deleted, rel)
	}

	return result
}

// CopyNew copies every manifest entry from release into live, in manifest
// order. Directory timestamps are preserved. Failures are collected and do
// not stop the loop.
func (r *Replacer) CopyNew(release, live string) *ReplaceResult {
	result := &ReplaceResult{}

	for _, pair := range r.manifest.Pairs(release, live) {
		var err error
		if pair.Kind.IsDirectory() {
			_, err = fsutil.CopyTree(pair.Source, pair.Target, fsutil.CopyOptions{PreserveTimes: true})
		} else {
			_, err = fsutil.CopyFile(pair.Source, pair.Target, false)
		}

		rel, relErr := filepath.Rel(live, pair.Target)
		if relErr != nil {
			rel = pair.Target
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			r.logger.Error("Failed to copy resource", "from", pair.Source, "to", pair.Target, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("copy %s: %w", rel, err))
			continue
		}
		r.logger.Debug("Copied resource", "from", pair.Source, "to", pair.Target)
		result.Copied = append(result.Copied, rel)
	}

	return result
}

// Replace runs DeleteOld then CopyNew and merges their results.
func (r *Replacer) Replace(release, live string) *ReplaceResult {
	deleted := r.DeleteOld(live)
	copied := r.CopyNew(release, live)
	return &ReplaceResult{
		Deleted: deleted.Deleted,
		Copied:  copied.Copied,
		Errors:  append(deleted.Errors, copied.Errors...),
	}
}
