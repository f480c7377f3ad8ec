// Package cmd contains the CLI command implementations.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teddyful/teddy-upgrader/internal/output"
)

// EnvPrefix prefixes every environment variable the CLI reads, for example
// TEDDY_UPGRADER_PATH or TEDDY_UPGRADER_DELETE_BACKUP.
const EnvPrefix = "TEDDY_UPGRADER"

// ExitError carries a process exit status. A nil Err means the failure was
// already reported.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps an Execute error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// app holds what every command shares.
type app struct {
	v      *viper.Viper
	build  BuildInfo
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Execute runs the CLI. Errors other than *ExitError have not been printed.
func Execute(ctx context.Context, build BuildInfo) error {
	root := NewRootCmd(build, os.Stdin, os.Stdout, os.Stderr)
	return root.ExecuteContext(ctx)
}

// NewRootCmd builds the command tree with the given streams.
func NewRootCmd(build BuildInfo, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:      newViper(),
		build:  build,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	rootCmd := &cobra.Command{
		Use:   "teddy-upgrader",
		Short: "Upgrade a local Teddy installation to the latest release",
		Long: `teddy-upgrader upgrades a locally installed Teddy static site generator.

It checks for a newer release, downloads and verifies it, backs up the
installation, replaces the Teddy system resources and reinstalls the
dependencies. Your sites, pages and other files outside the managed
resources are left untouched.

Every flag can also be set through the environment with the TEDDY_UPGRADER_
prefix, for example TEDDY_UPGRADER_PATH=/srv/teddy.`,
		Example: `  teddy-upgrader --path ~/teddy
  teddy-upgrader --path ~/teddy --delete-backup
  teddy-upgrader --path ~/teddy --check
  teddy-upgrader --path ~/teddy --yes -o json`,
		Version:       build.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpgrade(cmd.Context())
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a configuration file (yaml, toml or json)")
	pf.StringP("output", "o", "text", "Output format: text, json, yaml")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.BoolP("quiet", "q", false, "Quiet mode (errors only)")
	pf.String("backup-dir", "", "Directory holding backups (overrides config)")
	pf.String("download-dir", "", "Directory for release downloads (overrides config)")
	pf.String("log-dir", "", "Directory for log files (overrides config)")

	// Upgrade flags
	f := rootCmd.Flags()
	f.StringP("path", "p", "", "Path to the Teddy installation to upgrade (required)")
	f.Bool("delete-backup", false, "Delete the backup after a successful upgrade")
	f.BoolP("yes", "y", false, "Upgrade without asking for confirmation")
	f.Bool("check", false, "Only report whether a newer version is available")
	f.Bool("skip-git-check", false, "Skip the uncommitted changes check")
	f.Bool("skip-dependencies", false, "Do not reinstall dependencies after upgrading")
	f.String("timeout", "", "Release metadata request timeout, e.g. 30s (overrides config)")
	f.Int("retries", 0, "Retries for failed network requests (overrides config)")

	_ = a.v.BindPFlags(pf)
	_ = a.v.BindPFlags(f)

	rootCmd.AddCommand(a.newBackupCmd())
	rootCmd.AddCommand(a.newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return output.AllFormats(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.MarkFlagDirname("path")

	return rootCmd
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func (a *app) outputWriter() (*output.Writer, error) {
	format, err := output.ParseFormat(a.v.GetString("output"))
	if err != nil {
		return nil, err
	}
	return output.NewWriter(a.stdout, format), nil
}
