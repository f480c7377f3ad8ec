package update

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	// ErrChecksumMismatch indicates the computed SHA-256 digest differs from the published one.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrChecksumNotFound indicates no checksum line names the archive.
	ErrChecksumNotFound = errors.New("archive not found in checksums")
	// ErrChecksumAmbiguous indicates more than one checksum line names the archive.
	ErrChecksumAmbiguous = errors.New("archive listed more than once in checksums")
)

// ChecksumError provides details about a checksum verification failure.
type ChecksumError struct {
	Filename string
	Expected string
	Got      string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Filename, e.Expected, e.Got)
}

// Unwrap lets errors.Is match ErrChecksumMismatch.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

var lineSplit = regexp.MustCompile(`\r?\n`)

// FindChecksum returns the expected digest for filename from the contents of
// a checksum manifest. Lines are matched by substring; exactly one must
// match. The digest is the first whitespace-delimited token of that line.
func FindChecksum(manifest, filename string) (string, error) {
	var matches []string
	for _, line := range lineSplit.Split(manifest, -1) {
		if strings.Contains(line, filename) {
			matches = append(matches, line)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrChecksumNotFound, filename)
	case 1:
	default:
		return "", fmt.Errorf("%w: %s matched %d lines", ErrChecksumAmbiguous, filename, len(matches))
	}

	fields := strings.Fields(matches[0])
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: %s", ErrChecksumNotFound, filename)
	}
	return fields[0], nil
}

// ComputeFileHash returns the lowercase hex SHA-256 digest of a file.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyArchive checks the archive at archivePath against the entry for
// archiveFilename in the checksum manifest at checksumsPath. The comparison
// is exact and case-sensitive.
func VerifyArchive(archivePath, checksumsPath, archiveFilename string) error {
	got, err := ComputeFileHash(archivePath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(checksumsPath)
	if err != nil {
		return fmt.Errorf("reading checksums: %w", err)
	}

	expected, err := FindChecksum(string(data), archiveFilename)
	if err != nil {
		return err
	}

	if got != expected {
		return &ChecksumError{Filename: archiveFilename, Expected: expected, Got: got}
	}
	return nil
}
