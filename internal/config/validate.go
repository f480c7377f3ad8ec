// Package config handles upgrader configuration loading and location resolution.
//
// SYNC REQUIREMENT: Validation rules in this file must stay in sync with
// default.yaml. The embedded defaults must always pass Validate.
//
// Validation rules:
//   - Working directories: non-empty (validateDirs)
//   - Release URLs: absolute http(s) URLs (validateReleases)
//   - Archive template: a known archive extension (validateReleases)
//   - Manifest and generated paths: relative, non-empty, inside the root, unique (validateInstance)
//   - Backup exclusion: a single path component (validateInstance)
//   - Network durations: positive; retries and metadata_retries between 0 and maxRetries (validateNetwork)
package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/teddyful/teddy-upgrader/internal/types"
)

// maxRetries bounds network.retries.
const maxRetries = 10

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for required fields and valid values.
func Validate(c *Config) error {
	var errs []string
	collect := func(list []error) {
		for _, err := range list {
			errs = append(errs, err.Error())
		}
	}

	collect(validateDirs(c.Dirs))
	collect(validateReleases(c.Releases))
	collect(validateInstance(c.Instance))
	collect(validateDependencies(c.Dependencies))
	collect(validateNetwork(c.Network))

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func validateDirs(d Dirs) []error {
	var errs []error
	if strings.TrimSpace(d.Backup) == "" {
		errs = append(errs, ValidationError{Field: "dirs.backup", Message: "is required"})
	}
	if strings.TrimSpace(d.Download) == "" {
		errs = append(errs, ValidationError{Field: "dirs.download", Message: "is required"})
	}
	return errs
}

func validateReleases(r Releases) []error {
	var errs []error

	urls := []struct {
		field string
		value string
	}{
		{"releases.latest", r.Latest},
		{"releases.notes", r.Notes},
		{"releases.download.base_url", r.Download.BaseURL},
	}
	for _, u := range urls {
		if err := validateHTTPURL(u.field, u.value); err != nil {
			errs = append(errs, err)
		}
	}
	if r.Tag != "" {
		if err := validateHTTPURL("releases.tag", r.Tag); err != nil {
			errs = append(errs, err)
		}
	}

	if r.Download.Archive == "" {
		errs = append(errs, ValidationError{Field: "releases.download.archive", Message: "is required"})
	} else if _, err := types.DetectArchiveFormat(r.Download.Archive); err != nil {
		errs = append(errs, ValidationError{Field: "releases.download.archive", Message: err.Error()})
	}
	if r.Download.Checksums == "" {
		errs = append(errs, ValidationError{Field: "releases.download.checksums", Message: "is required"})
	}
	if r.Download.Archive != "" && r.Download.Archive == r.Download.Checksums {
		errs = append(errs, ValidationError{
			Field:   "releases.download.checksums",
			Message: "must differ from the archive filename",
		})
	}
	if r.Download.ExtractRoot == "" {
		errs = append(errs, ValidationError{Field: "releases.download.extract_root", Message: "is required"})
	} else if err := validateRelativePath("releases.download.extract_root", r.Download.ExtractRoot); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func validateHTTPURL(field, value string) error {
	if value == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	// The placeholder is not valid in a host but may appear in the path.
	u, err := url.Parse(ExpandVersion(value, "0.0.0"))
	if err != nil {
		return ValidationError{Field: field, Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: field, Message: "must be an http or https URL"}
	}
	if u.Host == "" {
		return ValidationError{Field: field, Message: "must include a host"}
	}
	return nil
}

func validateInstance(in Instance) []error {
	var errs []error

	if in.Resources.Len() == 0 {
		errs = append(errs, ValidationError{Field: "instance.resources", Message: "must list at least one directory or file"})
	}

	seen := make(map[string]string)
	check := func(field, p string) {
		if err := validateRelativePath(field, p); err != nil {
			errs = append(errs, err)
			return
		}
		key := path.Clean(p)
		if prev, ok := seen[key]; ok {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("'%s' duplicates %s", p, prev)})
			return
		}
		seen[key] = field
	}

	for i, d := range in.Resources.Directories {
		check(fmt.Sprintf("instance.resources.directories[%d]", i), d)
	}
	for i, f := range in.Resources.Files {
		check(fmt.Sprintf("instance.resources.files[%d]", i), f)
	}
	for i, g := range in.Generated {
		check(fmt.Sprintf("instance.generated[%d]", i), g)
	}

	if in.VersionFile != "" {
		if err := validateRelativePath("instance.version_file", in.VersionFile); err != nil {
			errs = append(errs, err)
		}
	}

	if strings.ContainsAny(in.ExcludeFromBackup, `/\`) {
		errs = append(errs, ValidationError{
			Field:   "instance.exclude_from_backup",
			Message: "must be a single path component",
		})
	}

	return errs
}

// validateRelativePath rejects empty, absolute and root-escaping paths.
func validateRelativePath(field, p string) error {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return ValidationError{Field: field, Message: "path must not be empty"}
	}
	if strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, `\`) || (len(trimmed) > 1 && trimmed[1] == ':') {
		return ValidationError{Field: field, Message: fmt.Sprintf("path '%s' must be relative", p)}
	}
	clean := path.Clean(strings.ReplaceAll(trimmed, `\`, "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return ValidationError{Field: field, Message: fmt.Sprintf("path '%s' must stay inside the installation root", p)}
	}
	return nil
}

func validateDependencies(d Dependencies) []error {
	if d.Skip {
		return nil
	}
	if len(d.Command) == 0 || strings.TrimSpace(d.Command[0]) == "" {
		return []error{ValidationError{Field: "dependencies.command", Message: "is required unless dependencies.skip is set"}}
	}
	return nil
}

func validateNetwork(n Network) []error {
	var errs []error

	durations := []struct {
		field string
		value string
	}{
		{"network.timeout", n.Timeout},
		{"network.download_timeout", n.DownloadTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, ValidationError{Field: d.field, Message: fmt.Sprintf("invalid duration '%s'", d.value)})
			continue
		}
		if parsed <= 0 {
			errs = append(errs, ValidationError{Field: d.field, Message: "must be positive"})
		}
	}

	if n.Retries < 0 || n.Retries > maxRetries {
		errs = append(errs, ValidationError{
			Field:   "network.retries",
			Message: fmt.Sprintf("must be between 0 and %d", maxRetries),
		})
	}
	if n.MetadataRetries < 0 || n.MetadataRetries > maxRetries {
		errs = append(errs, ValidationError{
			Field:   "network.metadata_retries",
			Message: fmt.Sprintf("must be between 0 and %d", maxRetries),
		})
	}

	return errs
}
