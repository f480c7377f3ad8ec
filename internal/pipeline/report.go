package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/teddyful/teddy-upgrader/internal/diff"
)

// Outcome summarizes how a run ended.
type Outcome string

const (
	OutcomeUpToDate  Outcome = "up-to-date"
	OutcomeAvailable Outcome = "available"
	OutcomeUpgraded  Outcome = "upgraded"
	OutcomeDeclined  Outcome = "declined"
	OutcomeFailed    Outcome = "failed"
)

// Report is the printable summary of a run.
type Report struct {
	Path                  string       `json:"path" yaml:"path"`
	Outcome               Outcome      `json:"outcome" yaml:"outcome"`
	ExitCode              int          `json:"exit_code" yaml:"exit_code"`
	Stage                 Stage        `json:"stage" yaml:"stage"`
	CurrentVersion        string       `json:"current_version" yaml:"current_version"`
	LatestVersion         string       `json:"latest_version" yaml:"latest_version"`
	NewVersionAvailable   bool         `json:"new_version_available" yaml:"new_version_available"`
	DependenciesInstalled bool         `json:"dependencies_installed" yaml:"dependencies_installed"`
	ReleaseURL            string       `json:"release_url,omitempty" yaml:"release_url,omitempty"`
	BackupDir             string       `json:"backup_dir,omitempty" yaml:"backup_dir,omitempty"`
	BackupDeleted         bool         `json:"backup_deleted,omitempty" yaml:"backup_deleted,omitempty"`
	Plan                  *diff.Result `json:"plan,omitempty" yaml:"plan,omitempty"`
	Warnings              []string     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error                 string       `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt             time.Time    `json:"started_at" yaml:"started_at"`
	Duration              string       `json:"duration" yaml:"duration"`
}

// NewReport builds the report for a finished run.
func NewReport(s *State, finishedAt time.Time) *Report {
	r := &Report{
		Path:                  s.Path,
		ExitCode:              s.StatusCode,
		Stage:                 s.Stage,
		CurrentVersion:        s.Current.String(),
		LatestVersion:         s.Latest.String(),
		NewVersionAvailable:   s.NewVersionAvailable,
		DependenciesInstalled: s.DependenciesInstalled,
		BackupDir:             s.BackupDir,
		BackupDeleted:         s.BackupDeleted,
		Plan:                  s.Plan,
		Warnings:              s.Warnings,
		StartedAt:             s.StartedAt,
		Duration:              finishedAt.Sub(s.StartedAt).Round(time.Millisecond).String(),
	}
	if s.Release != nil {
		r.ReleaseURL = s.Release.ReleaseURL
	}
	if s.Err != nil {
		r.Error = s.Err.Error()
	}

	switch {
	case s.Succeeded() && s.Upgraded():
		r.Outcome = OutcomeUpgraded
	case s.Succeeded() && s.NewVersionAvailable:
		r.Outcome = OutcomeAvailable
	case s.Succeeded():
		r.Outcome = OutcomeUpToDate
	case s.NewVersionAvailable && !s.UpgradeConfirmed && s.Stage == StageConfirm:
		r.Outcome = OutcomeDeclined
	default:
		r.Outcome = OutcomeFailed
	}
	return r
}

// String renders the report as text.
func (r *Report) String() string {
	var b strings.Builder

	switch r.Outcome {
	case OutcomeUpgraded:
		fmt.Fprintf(&b, "Upgraded Teddy from v%s to v%s\n", r.CurrentVersion, r.LatestVersion)
	case OutcomeAvailable:
		fmt.Fprintf(&b, "Teddy v%s is available (installed: v%s)\n", r.LatestVersion, r.CurrentVersion)
	case OutcomeUpToDate:
		fmt.Fprintf(&b, "Teddy is up to date (installed: %s, latest: %s)\n", r.CurrentVersion, r.LatestVersion)
	case OutcomeDeclined:
		fmt.Fprintf(&b, "Upgrade to v%s declined\n", r.LatestVersion)
	default:
		fmt.Fprintf(&b, "Upgrade failed at %s\n", r.Stage)
		if r.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", r.Error)
		}
	}

	fmt.Fprintf(&b, "  Location: %s\n", r.Path)
	if r.Plan != nil {
		add, upd, remove, unchanged := r.Plan.Summary()
		fmt.Fprintf(&b, "  Changes:  %d added, %d updated, %d removed, %d unchanged\n", add, upd, remove, unchanged)
	}
	if r.BackupDir != "" {
		if r.BackupDeleted {
			fmt.Fprintf(&b, "  Backup:   %s (deleted)\n", r.BackupDir)
		} else {
			fmt.Fprintf(&b, "  Backup:   %s\n", r.BackupDir)
		}
	}
	if r.ReleaseURL != "" {
		fmt.Fprintf(&b, "  Release:  %s\n", r.ReleaseURL)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "  Warning:  %s\n", w)
	}
	fmt.Fprintf(&b, "  Duration: %s", r.Duration)

	return b.String()
}
