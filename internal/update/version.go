package update

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is returned when a string is not a full semantic version.
var ErrInvalidVersion = errors.New("invalid semantic version")

// Version represents a semantic version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string

	// canonical is the "v"-prefixed form understood by x/mod/semver,
	// without build metadata.
	canonical string
}

// ParseVersion parses and normalizes a version string. Surrounding
// whitespace and a single leading "=" or "v" are accepted; the remainder
// must be a complete MAJOR.MINOR.PATCH version with optional prerelease and
// build suffixes.
func ParseVersion(s string) (*Version, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "=")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimPrefix(cleaned, "v")
	cleaned = strings.TrimPrefix(cleaned, "V")

	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidVersion)
	}

	v := "v" + cleaned
	if !semver.IsValid(v) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	// x/mod/semver accepts shorthands like "v1.2"; require all three parts.
	build := semver.Build(v)
	if semver.Canonical(v) != strings.TrimSuffix(v, build) {
		return nil, fmt.Errorf("%w: %q is not a full MAJOR.MINOR.PATCH version", ErrInvalidVersion, s)
	}

	core := strings.TrimSuffix(strings.TrimSuffix(v, build), semver.Prerelease(v))
	parts := strings.SplitN(strings.TrimPrefix(core, "v"), ".", 3)
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		nums[i] = n
	}

	return &Version{
		Major:      nums[0],
		Minor:      nums[1],
		Patch:      nums[2],
		Prerelease: strings.TrimPrefix(semver.Prerelease(v), "-"),
		Build:      strings.TrimPrefix(build, "+"),
		canonical:  semver.Canonical(v),
	}, nil
}

// String returns the normalized version without a "v" prefix or build
// metadata, suitable for URL and path segments.
func (v *Version) String() string {
	return strings.TrimPrefix(v.canonical, "v")
}

// Tag returns the "v"-prefixed form of the version.
func (v *Version) Tag() string {
	return v.canonical
}

// Compare compares two versions by semantic version precedence.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
// Prerelease versions sort before their release; build metadata is ignored.
func (v *Version) Compare(other *Version) int {
	return semver.Compare(v.canonical, other.canonical)
}

// IsGreaterThan returns true if v is strictly greater than other.
func (v *Version) IsGreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// VersionResult is the outcome of resolving a version from some source.
// A result is either resolved (Version set) or unresolved (Err set).
type VersionResult struct {
	// Raw is the string as read from the source, if any was read.
	Raw     string
	Version *Version
	Err     error
}

// Resolved reports whether a usable version was obtained.
func (r VersionResult) Resolved() bool {
	return r.Version != nil
}

// String returns the normalized version or "unknown".
func (r VersionResult) String() string {
	if r.Version == nil {
		return "unknown"
	}
	return r.Version.String()
}

// Resolve builds a VersionResult from a raw string.
func Resolve(raw string) VersionResult {
	v, err := ParseVersion(raw)
	if err != nil {
		return VersionResult{Raw: raw, Err: err}
	}
	return VersionResult{Raw: raw, Version: v}
}

// Unresolved builds a VersionResult for a source that could not be read.
func Unresolved(err error) VersionResult {
	return VersionResult{Err: err}
}

// NewerAvailable reports whether latest is strictly newer than current.
// It is false when either side is unresolved.
func NewerAvailable(current, latest VersionResult) bool {
	if !current.Resolved() || !latest.Resolved() {
		return false
	}
	return latest.Version.IsGreaterThan(current.Version)
}
