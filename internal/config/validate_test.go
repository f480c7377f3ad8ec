package config

import (
	"strings"
	"testing"
)

func TestValidateRelativePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple", "config", false},
		{"nested", "sites/travelbook/site.json", false},
		{"trailing slash", "system/", false},
		{"dotfile", ".gitignore", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"absolute", "/etc/passwd", true},
		{"windows absolute", `C:\teddy`, true},
		{"escapes root", "../outside", true},
		{"escapes after clean", "config/../../outside", true},
		{"root itself", ".", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRelativePath("field", tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRelativePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing backup dir",
			mutate:  func(c *Config) { c.Dirs.Backup = "" },
			wantErr: "dirs.backup",
		},
		{
			name:    "non-http latest url",
			mutate:  func(c *Config) { c.Releases.Latest = "ftp://example.com/latest" },
			wantErr: "releases.latest",
		},
		{
			name:    "unknown archive extension",
			mutate:  func(c *Config) { c.Releases.Download.Archive = "teddy-{version}.rar" },
			wantErr: "releases.download.archive",
		},
		{
			name:    "checksums same as archive",
			mutate:  func(c *Config) { c.Releases.Download.Checksums = c.Releases.Download.Archive },
			wantErr: "must differ",
		},
		{
			name:    "empty manifest",
			mutate:  func(c *Config) { c.Instance.Resources.Directories = nil; c.Instance.Resources.Files = nil },
			wantErr: "at least one",
		},
		{
			name: "duplicate manifest entry",
			mutate: func(c *Config) {
				c.Instance.Resources.Directories = append(c.Instance.Resources.Directories, "config/")
			},
			wantErr: "duplicates",
		},
		{
			name:    "absolute generated path",
			mutate:  func(c *Config) { c.Instance.Generated = []string{"/tmp/build"} },
			wantErr: "instance.generated[0]",
		},
		{
			name:    "nested exclusion",
			mutate:  func(c *Config) { c.Instance.ExcludeFromBackup = "a/node_modules" },
			wantErr: "single path component",
		},
		{
			name:    "missing dependency command",
			mutate:  func(c *Config) { c.Dependencies.Command = nil },
			wantErr: "dependencies.command",
		},
		{
			name:   "skip dependencies without command",
			mutate: func(c *Config) { c.Dependencies.Command = nil; c.Dependencies.Skip = true },
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.Network.Timeout = "soon" },
			wantErr: "network.timeout",
		},
		{
			name:    "negative download timeout",
			mutate:  func(c *Config) { c.Network.DownloadTimeout = "-1s" },
			wantErr: "must be positive",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Network.Retries = -1 },
			wantErr: "network.retries",
		},
		{
			name:    "too many metadata retries",
			mutate:  func(c *Config) { c.Network.MetadataRetries = 11 },
			wantErr: "network.metadata_retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Dirs.Backup = ""
	cfg.Dirs.Download = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	if got := strings.Count(err.Error(), "\n  - "); got != 2 {
		t.Errorf("Validate() reported %d errors, want 2: %v", got, err)
	}
}
