// Package types provides type-safe constants for the upgrader configuration.
//
// This package centralizes the enumerated types used throughout the codebase,
// replacing magic strings with typed constants that provide validation methods.
//
// SYNC REQUIREMENT: These types must stay in sync with:
//   - internal/config/default.yaml (built-in defaults)
//   - internal/config/validate.go (runtime validation)
package types

import (
	"fmt"
	"strings"
)

// ArchiveFormat represents the packaging of a release artifact.
type ArchiveFormat string

const (
	// ArchiveFormatZip indicates a zip archive.
	ArchiveFormatZip ArchiveFormat = "zip"
	// ArchiveFormatTarGz indicates a gzip-compressed tarball.
	ArchiveFormatTarGz ArchiveFormat = "tar.gz"
)

// AllArchiveFormats returns all supported archive formats.
func AllArchiveFormats() []ArchiveFormat {
	return []ArchiveFormat{ArchiveFormatZip, ArchiveFormatTarGz}
}

// Validate checks if the ArchiveFormat is a valid value.
func (f ArchiveFormat) Validate() error {
	switch f {
	case ArchiveFormatZip, ArchiveFormatTarGz:
		return nil
	case "":
		return fmt.Errorf("archive format is required")
	default:
		return fmt.Errorf("invalid archive format '%s' (must be zip or tar.gz)", f)
	}
}

// String returns the string representation of the ArchiveFormat.
func (f ArchiveFormat) String() string {
	return string(f)
}

// ParseArchiveFormat parses a string into an ArchiveFormat.
// "tgz" is accepted as an alias for tar.gz.
func ParseArchiveFormat(s string) (ArchiveFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "tgz" {
		s = string(ArchiveFormatTarGz)
	}
	f := ArchiveFormat(s)
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// DetectArchiveFormat infers the archive format from a filename extension.
func DetectArchiveFormat(filename string) (ArchiveFormat, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return ArchiveFormatZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return ArchiveFormatTarGz, nil
	default:
		return "", fmt.Errorf("cannot detect archive format of '%s' (expected .zip, .tar.gz or .tgz)", filename)
	}
}

// ResourceKind distinguishes directory and file entries of the installation manifest.
type ResourceKind string

const (
	// ResourceKindDirectory indicates a managed directory subtree.
	ResourceKindDirectory ResourceKind = "directory"
	// ResourceKindFile indicates a single managed file.
	ResourceKindFile ResourceKind = "file"
)

// Validate checks if the ResourceKind is a valid value.
func (k ResourceKind) Validate() error {
	switch k {
	case ResourceKindDirectory, ResourceKindFile:
		return nil
	case "":
		return fmt.Errorf("resource kind is required")
	default:
		return fmt.Errorf("invalid resource kind '%s' (must be directory or file)", k)
	}
}

// String returns the string representation of the ResourceKind.
func (k ResourceKind) String() string {
	return string(k)
}

// IsDirectory returns true if the resource is a directory.
func (k ResourceKind) IsDirectory() bool {
	return k == ResourceKindDirectory
}

// IsFile returns true if the resource is a file.
func (k ResourceKind) IsFile() bool {
	return k == ResourceKindFile
}
