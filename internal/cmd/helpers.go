package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/teddyful/teddy-upgrader/internal/config"
	"github.com/teddyful/teddy-upgrader/internal/logging"
)

var bannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("12")).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("8")).
	Padding(0, 2)

// loadConfig finds and loads the configuration, then layers command line
// and environment overrides on top.
func (a *app) loadConfig() (*config.Config, string, error) {
	path, err := config.FindConfig(expandHomePath(a.v.GetString("config")))
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}

	overrides := config.Overrides{
		BackupDir:   expandHomePath(a.v.GetString("backup-dir")),
		DownloadDir: expandHomePath(a.v.GetString("download-dir")),
		LogDir:      expandHomePath(a.v.GetString("log-dir")),
		Timeout:     a.v.GetString("timeout"),
	}
	if a.v.IsSet("retries") {
		retries := a.v.GetInt("retries")
		overrides.Retries = &retries
	}
	if a.v.GetBool("skip-dependencies") {
		cfg.Dependencies.Skip = true
	}
	cfg.Apply(overrides)

	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// newLogger builds the console and file logger for cfg.
func (a *app) newLogger(cfg *config.Config) (*logging.Logger, error) {
	level := slog.LevelInfo
	if a.v.GetBool("verbose") {
		level = slog.LevelDebug
	}

	logDir, err := config.ResolveDir(cfg.Dirs.Logs)
	if err != nil {
		return nil, err
	}

	return logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Console: a.stderr,
		Quiet:   a.v.GetBool("quiet"),
	})
}

// printBanner writes the styled program banner.
func printBanner(w io.Writer, version string) {
	_, _ = fmt.Fprintln(w, bannerStyle.Render("Teddy Upgrader "+version))
}

// expandHomePath expands a leading ~/ to the user's home directory.
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
