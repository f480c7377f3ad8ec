package pipeline

import (
	"time"

	"github.com/teddyful/teddy-upgrader/internal/diff"
	"github.com/teddyful/teddy-upgrader/internal/update"
)

// Exit statuses.
const (
	StatusSuccess = 0
	StatusFailure = 1
)

// State is the mutable record of one upgrade run. Only the Pipeline writes
// to it; gate flags only ever move from false to true.
type State struct {
	Path      string
	StartedAt time.Time

	PathIsValid           bool
	NewVersionAvailable   bool
	UpgradeConfirmed      bool
	DownloadVerified      bool
	ExtractIsValid        bool
	UpgradeIsValid        bool
	DependenciesInstalled bool

	Current update.VersionResult
	Latest  update.VersionResult

	DownloadDir         string
	DownloadedFileCount int
	Release             *update.Descriptor
	BackupDir           string
	BackupDeleted       bool
	Plan                *diff.Result
	Warnings            []string

	// Stage is the last stage entered.
	Stage Stage
	// StatusCode starts at StatusFailure and is set to StatusSuccess only
	// on the two successful outcomes.
	StatusCode int
	// Err is the reason the run stopped short, if it did.
	Err error
}

// NewState creates the state for a run against path.
func NewState(path string, startedAt time.Time) *State {
	return &State{
		Path:       path,
		StartedAt:  startedAt,
		StatusCode: StatusFailure,
	}
}

// Succeeded reports whether the run ends with exit status 0.
func (s *State) Succeeded() bool {
	return s.StatusCode == StatusSuccess
}

// Upgraded reports whether resources were replaced and validated.
func (s *State) Upgraded() bool {
	return s.UpgradeIsValid
}

func (s *State) enter(stage Stage) {
	s.Stage = stage
}

func (s *State) fail(err error) {
	if s.Err == nil {
		s.Err = err
	}
	s.StatusCode = StatusFailure
}

func (s *State) succeed() {
	s.Err = nil
	s.StatusCode = StatusSuccess
}
