package update

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/teddyful/teddy-upgrader/internal/types"
)

// maxEntryBytes is the upper bound on a single extracted file (1 GB).
const maxEntryBytes = 1 << 30

var (
	// ErrUnsafeArchivePath indicates an entry that would land outside the destination.
	ErrUnsafeArchivePath = errors.New("archive entry escapes destination")
	// ErrEntryTooLarge indicates an entry exceeding maxEntryBytes.
	ErrEntryTooLarge = errors.New("archive entry too large")
)

// Extract unpacks the archive at archivePath into dest, creating dest if
// needed. The format is inferred from the archive filename.
func Extract(ctx context.Context, archivePath, dest string) error {
	format, err := types.DetectArchiveFormat(archivePath)
	if err != nil {
		return err
	}
	return ExtractFormat(ctx, format, archivePath, dest)
}

// ExtractFormat unpacks an archive of a known format into dest.
func ExtractFormat(ctx context.Context, format types.ArchiveFormat, archivePath, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("creating extraction directory: %w", err)
	}

	switch format {
	case types.ArchiveFormatZip:
		return extractZip(ctx, archivePath, dest)
	case types.ArchiveFormatTarGz:
		return extractTarGz(ctx, archivePath, dest)
	default:
		return fmt.Errorf("unsupported archive format '%s'", format)
	}
}

// safeJoin resolves an archive entry name under dest.
func safeJoin(dest, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}
	return target, nil
}

func writeEntry(target string, r io.Reader, mode os.FileMode, mtime time.Time) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0200)
	if err != nil {
		return err
	}

	n, err := io.Copy(f, io.LimitReader(r, maxEntryBytes+1))
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if n > maxEntryBytes {
		return fmt.Errorf("%w: %s", ErrEntryTooLarge, target)
	}

	if !mtime.IsZero() {
		_ = os.Chtimes(target, mtime, mtime)
	}
	return nil
}

func extractZip(ctx context.Context, archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}

		info := f.FileInfo()
		if info.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			continue
		}
		if !info.Mode().IsRegular() {
			// Links and special files are not part of a release tree.
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening %s in archive: %w", f.Name, err)
		}
		err = writeEntry(target, rc, info.Mode(), f.Modified)
		rc.Close()
		if err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}

	return nil
}

func extractTarGz(ctx context.Context, archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar archive: %w", err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode(), hdr.ModTime); err != nil {
				return fmt.Errorf("extracting %s: %w", hdr.Name, err)
			}
		}
	}
}
