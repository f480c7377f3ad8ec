// Package git inspects the working tree of a Teddy install before it is
// upgraded in place.
package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Level represents the severity of a git status.
type Level string

const (
	LevelOK      Level = "ok"      // Clean working tree
	LevelInfo    Level = "info"    // Not a repository, or git unavailable
	LevelWarning Level = "warning" // Uncommitted changes
	LevelError   Level = "error"   // Git operation failed
)

// Status represents the git status of a Teddy install.
type Status struct {
	Path           string   `json:"path" yaml:"path"`
	IsGitRepo      bool     `json:"is_git_repo" yaml:"is_git_repo"`
	HasUncommitted bool     `json:"has_uncommitted" yaml:"has_uncommitted"`
	Changed        []string `json:"changed,omitempty" yaml:"changed,omitempty"`
	Branch         string   `json:"branch,omitempty" yaml:"branch,omitempty"`
	Level          Level    `json:"level" yaml:"level"`
	Message        string   `json:"message" yaml:"message"`
	Error          error    `json:"-" yaml:"-"`
}

// CommandRunner is an interface for running external commands.
// This allows for mocking in tests.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, error)
	RunInDir(dir, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner uses os/exec to run commands.
type DefaultCommandRunner struct{}

// Run executes a command in the current directory.
func (r *DefaultCommandRunner) Run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// RunInDir executes a command in the specified directory.
func (r *DefaultCommandRunner) RunInDir(dir, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Checker checks git status for a Teddy install.
type Checker struct {
	runner CommandRunner
}

// NewChecker creates a new Checker with the default command runner.
func NewChecker() *Checker {
	return &Checker{runner: &DefaultCommandRunner{}}
}

// NewCheckerWithRunner creates a Checker with a custom command runner (for testing).
func NewCheckerWithRunner(runner CommandRunner) *Checker {
	return &Checker{runner: runner}
}

// GitAvailable checks if git is available on the system.
func (c *Checker) GitAvailable() bool {
	_, err := c.runner.Run("git", "--version")
	return err == nil
}

// CheckRepository reports whether path is a git work tree and whether it
// carries uncommitted changes. It never modifies the repository.
func (c *Checker) CheckRepository(path string) Status {
	status := Status{Path: path}

	if !c.isGitRepo(path) {
		status.Level = LevelInfo
		status.Message = "not a git repository"
		return status
	}
	status.IsGitRepo = true

	branch, err := c.currentBranch(path)
	if err != nil {
		status.Level = LevelError
		status.Error = err
		status.Message = fmt.Sprintf("failed to get current branch: %v", err)
		return status
	}
	status.Branch = branch

	changed, err := c.changedPaths(path)
	if err != nil {
		status.Level = LevelError
		status.Error = err
		status.Message = fmt.Sprintf("failed to check working tree: %v", err)
		return status
	}
	status.Changed = changed
	status.HasUncommitted = len(changed) > 0

	if status.HasUncommitted {
		status.Level = LevelWarning
		status.Message = fmt.Sprintf("%d uncommitted changes on branch %s", len(changed), branch)
		return status
	}

	status.Level = LevelOK
	status.Message = "clean"
	return status
}

func (c *Checker) isGitRepo(path string) bool {
	output, err := c.runner.RunInDir(path, "git", "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(output)) == "true"
}

func (c *Checker) currentBranch(path string) (string, error) {
	output, err := c.runner.RunInDir(path, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// changedPaths returns the paths reported by `git status --porcelain`.
func (c *Checker) changedPaths(path string) ([]string, error) {
	output, err := c.runner.RunInDir(path, "git", "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git status failed: %w", err)
	}

	var changed []string
	for _, line := range strings.Split(string(output), "\n") {
		if len(line) < 4 {
			continue
		}
		changed = append(changed, strings.TrimSpace(line[3:]))
	}
	return changed, nil
}
