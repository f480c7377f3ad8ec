// Package config handles upgrader configuration loading and location resolution.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teddyful/teddy-upgrader/internal/instance"
)

// VersionPlaceholder is substituted with the release version in URL and
// filename templates.
const VersionPlaceholder = "{version}"

//go:embed default.yaml
var defaultConfig []byte

// Config is the complete upgrader configuration.
type Config struct {
	Dirs         Dirs         `yaml:"dirs" toml:"dirs" json:"dirs"`
	Releases     Releases     `yaml:"releases" toml:"releases" json:"releases"`
	Instance     Instance     `yaml:"instance" toml:"instance" json:"instance"`
	Dependencies Dependencies `yaml:"dependencies" toml:"dependencies" json:"dependencies"`
	Network      Network      `yaml:"network" toml:"network" json:"network"`
}

// Dirs holds working directories, relative to the process working directory
// unless absolute.
type Dirs struct {
	Backup   string `yaml:"backup" toml:"backup" json:"backup"`
	Download string `yaml:"download" toml:"download" json:"download"`
	Logs     string `yaml:"logs" toml:"logs" json:"logs"`
}

// Releases locates release metadata and artifacts.
type Releases struct {
	Latest   string   `yaml:"latest" toml:"latest" json:"latest"`
	Notes    string   `yaml:"notes" toml:"notes" json:"notes"`
	Tag      string   `yaml:"tag" toml:"tag" json:"tag"`
	Download Download `yaml:"download" toml:"download" json:"download"`
}

// Download holds the artifact templates. Each may contain {version}.
type Download struct {
	BaseURL     string `yaml:"base_url" toml:"base_url" json:"base_url"`
	Archive     string `yaml:"archive" toml:"archive" json:"archive"`
	Checksums   string `yaml:"checksums" toml:"checksums" json:"checksums"`
	ExtractRoot string `yaml:"extract_root" toml:"extract_root" json:"extract_root"`
}

// Instance describes the installation being upgraded.
type Instance struct {
	VersionFile       string            `yaml:"version_file" toml:"version_file" json:"version_file"`
	Resources         instance.Manifest `yaml:"resources" toml:"resources" json:"resources"`
	Generated         []string          `yaml:"generated" toml:"generated" json:"generated"`
	ExcludeFromBackup string            `yaml:"exclude_from_backup" toml:"exclude_from_backup" json:"exclude_from_backup"`
}

// Dependencies configures the post-upgrade dependency installation.
type Dependencies struct {
	Command []string `yaml:"command" toml:"command" json:"command"`
	Skip    bool     `yaml:"skip,omitempty" toml:"skip,omitempty" json:"skip,omitempty"`
}

// Network configures HTTP behavior. Durations use time.ParseDuration syntax.
type Network struct {
	Timeout         string `yaml:"timeout" toml:"timeout" json:"timeout"`
	DownloadTimeout string `yaml:"download_timeout" toml:"download_timeout" json:"download_timeout"`
	Retries         int    `yaml:"retries" toml:"retries" json:"retries"`
	MetadataRetries int    `yaml:"metadata_retries" toml:"metadata_retries" json:"metadata_retries"`
	UserAgent       string `yaml:"user_agent" toml:"user_agent" json:"user_agent"`
}

const (
	defaultTimeout         = 30 * time.Second
	defaultDownloadTimeout = 10 * time.Minute
)

// TimeoutDuration returns the metadata request timeout.
func (n Network) TimeoutDuration() time.Duration {
	return parseDurationOr(n.Timeout, defaultTimeout)
}

// DownloadTimeoutDuration returns the per-artifact download timeout.
func (n Network) DownloadTimeoutDuration() time.Duration {
	return parseDurationOr(n.DownloadTimeout, defaultDownloadTimeout)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ExpandVersion substitutes version into a template.
func ExpandVersion(template, version string) string {
	return strings.ReplaceAll(template, VersionPlaceholder, version)
}

// Overrides carries values set on the command line or through the
// environment. Empty fields leave the configuration unchanged.
type Overrides struct {
	BackupDir   string
	DownloadDir string
	LogDir      string
	Timeout     string
	Retries     *int
}

// Apply layers the overrides onto c.
func (c *Config) Apply(o Overrides) {
	if o.BackupDir != "" {
		c.Dirs.Backup = o.BackupDir
	}
	if o.DownloadDir != "" {
		c.Dirs.Download = o.DownloadDir
	}
	if o.LogDir != "" {
		c.Dirs.Logs = o.LogDir
	}
	if o.Timeout != "" {
		c.Network.Timeout = o.Timeout
	}
	if o.Retries != nil {
		c.Network.Retries = *o.Retries
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	if err := parseInto(cfg, defaultConfig, FormatYAML); err != nil {
		// The embedded file is part of the binary; failing here is a build defect.
		panic(fmt.Sprintf("config: invalid embedded defaults: %v", err))
	}
	return cfg
}

// FindConfig resolves the configuration file to use. An empty result with a
// nil error means the built-in defaults apply.
func FindConfig(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv("TEDDY_UPGRADER_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	fileNames := []string{
		"teddy-upgrader.yaml",
		"teddy-upgrader.yml",
		"teddy-upgrader.toml",
		"teddy-upgrader.json",
		".teddy-upgrader.yaml",
		".teddy-upgrader.yml",
		".teddy-upgrader.toml",
		".teddy-upgrader.json",
	}
	for _, name := range fileNames {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	return "", nil
}

// Load reads a configuration file and layers it onto the built-in defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	if err := parseInto(cfg, content, format); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResolveDir makes a configured directory absolute against the working directory.
func ResolveDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return abs, nil
}
