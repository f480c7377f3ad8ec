package update

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teddyful/teddy-upgrader/internal/config"
	"github.com/teddyful/teddy-upgrader/internal/types"
)

// Descriptor locates every artifact and working path of one release.
// It is derived once per run and not modified afterwards.
type Descriptor struct {
	Version           string              `json:"version" yaml:"version"`
	BaseURL           string              `json:"base_url" yaml:"base_url"`
	ArchiveFilename   string              `json:"archive_filename" yaml:"archive_filename"`
	ChecksumsFilename string              `json:"checksums_filename" yaml:"checksums_filename"`
	ArchiveURL        string              `json:"archive_url" yaml:"archive_url"`
	ChecksumsURL      string              `json:"checksums_url" yaml:"checksums_url"`
	ArchiveFormat     types.ArchiveFormat `json:"archive_format" yaml:"archive_format"`
	DownloadDir       string              `json:"download_dir" yaml:"download_dir"`
	ArchivePath       string              `json:"archive_path" yaml:"archive_path"`
	ChecksumsPath     string              `json:"checksums_path" yaml:"checksums_path"`
	ExtractDir        string              `json:"extract_dir" yaml:"extract_dir"`
	ReleaseURL        string              `json:"release_url" yaml:"release_url"`
}

// PrepareDownloadDir creates root/<version>, including parents. It is a
// no-op when the directory already exists.
func PrepareDownloadDir(root string, v *Version) (string, error) {
	dir := filepath.Join(root, v.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory %s: %w", dir, err)
	}
	return dir, nil
}

// NewDescriptor expands the release templates for version v. Artifacts land
// in downloadDir; the archive is unpacked below it.
func NewDescriptor(releases config.Releases, downloadDir string, v *Version) (*Descriptor, error) {
	version := v.String()
	expand := func(tmpl string) string { return config.ExpandVersion(tmpl, version) }

	d := &Descriptor{
		Version:           version,
		BaseURL:           strings.TrimSuffix(expand(releases.Download.BaseURL), "/"),
		ArchiveFilename:   expand(releases.Download.Archive),
		ChecksumsFilename: expand(releases.Download.Checksums),
		DownloadDir:       downloadDir,
		ReleaseURL:        expand(releases.Tag),
	}
	if d.ReleaseURL == "" {
		d.ReleaseURL = releases.Notes
	}

	format, err := types.DetectArchiveFormat(d.ArchiveFilename)
	if err != nil {
		return nil, err
	}
	d.ArchiveFormat = format

	d.ArchiveURL = d.BaseURL + "/" + d.ArchiveFilename
	d.ChecksumsURL = d.BaseURL + "/" + d.ChecksumsFilename
	d.ArchivePath = filepath.Join(downloadDir, d.ArchiveFilename)
	d.ChecksumsPath = filepath.Join(downloadDir, d.ChecksumsFilename)
	d.ExtractDir = filepath.Join(downloadDir, filepath.FromSlash(expand(releases.Download.ExtractRoot)))

	return d, nil
}
