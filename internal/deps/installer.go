// Package deps reinstalls a Teddy install's Node dependencies after its
// resources have been replaced.
package deps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrNoCommand is returned when the installer has nothing to run.
var ErrNoCommand = errors.New("no dependency install command configured")

// CommandRunner is an interface for running external commands.
// This allows for mocking in tests.
type CommandRunner interface {
	RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner uses os/exec to run commands.
type DefaultCommandRunner struct{}

// RunInDir executes a command in dir and returns its combined output.
func (r *DefaultCommandRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Result records a single install run.
type Result struct {
	Command  string        `json:"command" yaml:"command"`
	Dir      string        `json:"dir" yaml:"dir"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Output   string        `json:"output,omitempty" yaml:"output,omitempty"`
}

// Installer runs the configured package manager command in an install.
type Installer struct {
	command []string
	runner  CommandRunner
	logger  *slog.Logger
}

// NewInstaller creates an Installer running command (for example
// ["npm", "install"]) with the default runner.
func NewInstaller(command []string) *Installer {
	return NewInstallerWithRunner(command, &DefaultCommandRunner{})
}

// NewInstallerWithRunner creates an Installer with a custom runner (for testing).
func NewInstallerWithRunner(command []string, runner CommandRunner) *Installer {
	return &Installer{
		command: append([]string(nil), command...),
		runner:  runner,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger.
func (i *Installer) WithLogger(logger *slog.Logger) *Installer {
	if logger != nil {
		i.logger = logger
	}
	return i
}

// CommandString returns the command as it would be typed in a shell.
func (i *Installer) CommandString() string {
	return strings.Join(i.command, " ")
}

// Install runs the command in dir. The combined output is returned in the
// result and included in the error on failure.
func (i *Installer) Install(ctx context.Context, dir string) (*Result, error) {
	if len(i.command) == 0 || i.command[0] == "" {
		return nil, ErrNoCommand
	}

	result := &Result{Command: i.CommandString(), Dir: dir}
	i.logger.Info("Installing dependencies", "command", result.Command, "dir", dir)

	start := time.Now()
	output, err := i.runner.RunInDir(ctx, dir, i.command[0], i.command[1:]...)
	result.Duration = time.Since(start)
	result.Output = strings.TrimSpace(string(output))

	if err != nil {
		i.logger.Debug("Dependency install output", "output", result.Output)
		return result, fmt.Errorf("failed to run %s: %w\nOutput: %s", result.Command, err, result.Output)
	}

	i.logger.Debug("Dependencies installed", "duration", result.Duration.Round(time.Millisecond))
	return result, nil
}
