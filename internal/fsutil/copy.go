// Package fsutil provides filesystem helpers shared by the backup and
// replacement stages.
package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyOptions controls CopyTree behavior.
type CopyOptions struct {
	// Skip reports whether the entry at rel (slash-separated, relative to the
	// tree root) should be left out. Skipping a directory skips its subtree.
	Skip func(rel string, d fs.DirEntry) bool
	// PreserveTimes copies modification times onto the destination.
	PreserveTimes bool
}

// CopyStats summarizes a CopyTree run.
type CopyStats struct {
	Files   int
	Dirs    int
	Skipped int
	Bytes   int64
}

// CopyFile copies a regular file from src to dst, creating parent
// directories and keeping the source permission bits.
func CopyFile(src, dst string, preserveTimes bool) (n int64, err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = srcFile.Close() }()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat source file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}

	n, err = io.Copy(dstFile, srcFile)
	if closeErr := dstFile.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("failed to copy file contents: %w", err)
	}

	if preserveTimes {
		mtime := srcInfo.ModTime()
		if err := os.Chtimes(dst, mtime, mtime); err != nil {
			return n, fmt.Errorf("failed to set modification time: %w", err)
		}
	}

	return n, nil
}

// CopyTree recursively copies the directory src into dst. Symbolic links are
// recreated rather than followed.
func CopyTree(src, dst string, opts CopyOptions) (*CopyStats, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !srcInfo.IsDir() {
		return nil, fmt.Errorf("source is not a directory: %s", src)
	}

	stats := &CopyStats{}
	if err := copyDir(src, dst, "", srcInfo, opts, stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func copyDir(src, dst, rel string, info fs.FileInfo, opts CopyOptions, stats *CopyStats) error {
	if err := os.MkdirAll(dst, info.Mode().Perm()|0700); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	stats.Dirs++

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read source directory: %w", err)
	}

	for _, entry := range entries {
		entryRel := entry.Name()
		if rel != "" {
			entryRel = rel + "/" + entry.Name()
		}
		if opts.Skip != nil && opts.Skip(entryRel, entry) {
			stats.Skipped++
			continue
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(srcPath)
			if err != nil {
				return fmt.Errorf("failed to read link %s: %w", srcPath, err)
			}
			_ = os.Remove(dstPath)
			if err := os.Symlink(target, dstPath); err != nil {
				return fmt.Errorf("failed to create link %s: %w", dstPath, err)
			}
		case entry.IsDir():
			childInfo, err := entry.Info()
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", srcPath, err)
			}
			if err := copyDir(srcPath, dstPath, entryRel, childInfo, opts, stats); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			n, err := CopyFile(srcPath, dstPath, opts.PreserveTimes)
			if err != nil {
				return fmt.Errorf("%s: %w", srcPath, err)
			}
			stats.Files++
			stats.Bytes += n
		default:
			// Sockets, devices and pipes have no place in an installation tree.
			stats.Skipped++
		}
	}

	// Directory times change as children are written, so they are set last.
	if opts.PreserveTimes {
		mtime := info.ModTime()
		if err := os.Chtimes(dst, mtime, mtime); err != nil {
			return fmt.Errorf("failed to set modification time: %w", err)
		}
	}

	return nil
}

// Exists reports whether path exists. Errors other than "not exist" count as
// existing so callers surface them on the next operation.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !os.IsNotExist(err)
}
