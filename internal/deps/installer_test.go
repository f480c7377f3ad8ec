package deps

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/teddyful/teddy-upgrader/internal/logging"
)

// MockCommandRunner records commands for testing.
type MockCommandRunner struct {
	Commands []string
	Dirs     []string
	Output   []byte
	Err      error
}

func (m *MockCommandRunner) RunInDir(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	m.Commands = append(m.Commands, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	m.Dirs = append(m.Dirs, dir)
	return m.Output, m.Err
}

func TestInstallerInstall(t *testing.T) {
	mock := &MockCommandRunner{Output: []byte("added 312 packages\n")}
	installer := NewInstallerWithRunner([]string{"npm", "install"}, mock).WithLogger(logging.Discard())

	result, err := installer.Install(context.Background(), "/srv/teddy")
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if len(mock.Commands) != 1 || mock.Commands[0] != "npm install" {
		t.Errorf("Commands = %v, want [npm install]", mock.Commands)
	}
	if mock.Dirs[0] != "/srv/teddy" {
		t.Errorf("Dir = %s, want /srv/teddy", mock.Dirs[0])
	}
	if result.Output != "added 312 packages" {
		t.Errorf("Output = %q", result.Output)
	}
	if result.Command != "npm install" {
		t.Errorf("Command = %q", result.Command)
	}
}

func TestInstallerInstallFailure(t *testing.T) {
	mock := &MockCommandRunner{Output: []byte("npm ERR! code ERESOLVE"), Err: errors.New("exit status 1")}
	installer := NewInstallerWithRunner([]string{"npm", "ci"}, mock).WithLogger(logging.Discard())

	result, err := installer.Install(context.Background(), "/srv/teddy")
	if err == nil {
		t.Fatal("Install() expected error")
	}
	if !strings.Contains(err.Error(), "ERESOLVE") {
		t.Errorf("error should include command output: %v", err)
	}
	if result == nil || result.Command != "npm ci" {
		t.Errorf("Install() result = %+v", result)
	}
}

func TestInstallerNoCommand(t *testing.T) {
	mock := &MockCommandRunner{}
	for _, command := range [][]string{nil, {""}} {
		_, err := NewInstallerWithRunner(command, mock).Install(context.Background(), "/srv/teddy")
		if !errors.Is(err, ErrNoCommand) {
			t.Errorf("Install(%v) error = %v, want ErrNoCommand", command, err)
		}
	}
	if len(mock.Commands) != 0 {
		t.Errorf("runner called for empty command: %v", mock.Commands)
	}
}

func TestInstallerCopiesCommand(t *testing.T) {
	command := []string{"npm", "install"}
	installer := NewInstallerWithRunner(command, &MockCommandRunner{})
	command[1] = "uninstall"
	if installer.CommandString() != "npm install" {
		t.Errorf("CommandString() = %q, want npm install", installer.CommandString())
	}
}
