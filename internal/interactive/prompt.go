// Package interactive provides interactive prompts for user confirmation.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	versionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// UpgradePrompt carries what the operator sees before confirming.
type UpgradePrompt struct {
	Current    string
	Latest     string
	ReleaseURL string
}

// Prompter handles interactive prompts for upgrade confirmation.
type Prompter struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
}

// NewPrompter creates a prompter with stdin/stdout.
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stdout)
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:      in,
		out:     out,
		scanner: bufio.NewScanner(in),
	}
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsTerminalReader reports whether r is a file attached to a terminal.
// Readers that are not files are treated as scripted input and answer true.
func IsTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}

// ConfirmUpgrade shows the pending upgrade and asks the operator to accept
// it. Only an explicit yes confirms; an empty line or end of input declines.
func (p *Prompter) ConfirmUpgrade(u UpgradePrompt) bool {
	_, _ = fmt.Fprintln(p.out)
	_, _ = fmt.Fprintln(p.out, headingStyle.Render("A new version of Teddy is available."))
	_, _ = fmt.Fprintf(p.out, "  Current version: %s\n", versionStyle.Render(u.Current))
	_, _ = fmt.Fprintf(p.out, "  Latest version:  %s\n", versionStyle.Render(u.Latest))
	if u.ReleaseURL != "" {
		_, _ = fmt.Fprintf(p.out, "  Release notes:   %s\n", faintStyle.Render(u.ReleaseURL))
	}
	_, _ = fmt.Fprintf(p.out, "\nWould you like to upgrade Teddy from v%s to v%s? [Y|n]: ", u.Current, u.Latest)

	if !p.scanner.Scan() {
		_, _ = fmt.Fprintln(p.out)
		return false
	}
	return isYes(p.scanner.Text())
}

// Confirm asks a yes/no question. Anything but an explicit yes declines.
func (p *Prompter) Confirm(question string) bool {
	_, _ = fmt.Fprintf(p.out, "%s [y/n] ", question)
	if !p.scanner.Scan() {
		return false
	}
	return isYes(p.scanner.Text())
}

func isYes(input string) bool {
	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}

// AutoConfirmer accepts or declines every upgrade without asking.
type AutoConfirmer struct {
	Accept bool
}

// ConfirmUpgrade returns the fixed answer.
func (a AutoConfirmer) ConfirmUpgrade(UpgradePrompt) bool {
	return a.Accept
}
