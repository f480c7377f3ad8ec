// Package pipeline runs the gated, seventeen-stage upgrade of a Teddy
// installation.
//
// Each stage either satisfies its gate and hands over to the next one or
// stops the run with exit status 1. Cleanup runs on every exit path,
// including after a recovered panic.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/teddyful/teddy-upgrader/internal/backup"
	"github.com/teddyful/teddy-upgrader/internal/config"
	"github.com/teddyful/teddy-upgrader/internal/deps"
	"github.com/teddyful/teddy-upgrader/internal/diff"
	"github.com/teddyful/teddy-upgrader/internal/fsutil"
	"github.com/teddyful/teddy-upgrader/internal/git"
	"github.com/teddyful/teddy-upgrader/internal/instance"
	"github.com/teddyful/teddy-upgrader/internal/interactive"
	"github.com/teddyful/teddy-upgrader/internal/update"
)

var (
	ErrUpgradeDeclined    = errors.New("upgrade declined")
	ErrDownloadIncomplete = errors.New("release download incomplete")
	ErrExtractionMissing  = errors.New("extraction directory not found")
	ErrUnexpected         = errors.New("unexpected error")
)

// Confirmer asks whether to proceed with an available upgrade.
type Confirmer interface {
	ConfirmUpgrade(interactive.UpgradePrompt) bool
}

// DependencyInstaller reinstalls dependencies in an upgraded install.
type DependencyInstaller interface {
	Install(ctx context.Context, dir string) (*deps.Result, error)
	CommandString() string
}

// Preflighter inspects the install before anything is changed.
type Preflighter interface {
	Preflight(root string) *git.PreflightResult
}

// Options configures a run.
type Options struct {
	// Path is the installation root.
	Path string
	// DeleteBackup removes the backup after a validated upgrade.
	DeleteBackup bool
	// CheckOnly stops after the version comparison.
	CheckOnly bool
	// SkipGitCheck disables the working tree preflight.
	SkipGitCheck bool
}

// Deps holds the collaborators a Pipeline talks to. Nil fields are filled
// with the production implementations built from the configuration.
type Deps struct {
	Resolver  update.LatestResolver
	Fetcher   update.Fetcher
	Confirmer Confirmer
	Installer DependencyInstaller
	Git       Preflighter
	Now       func() time.Time
}

// Pipeline orchestrates one upgrade.
type Pipeline struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	downloadRoot string
	validator    *instance.Validator
	backups      *backup.Manager
	replacer     *update.Replacer

	resolver  update.LatestResolver
	fetcher   update.Fetcher
	confirmer Confirmer
	installer DependencyInstaller
	git       Preflighter
	now       func() time.Time
}

// New creates a Pipeline for cfg. Working directories are resolved against
// the process working directory.
func New(cfg *config.Config, opts Options, d Deps, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", opts.Path, err)
	}
	opts.Path = path

	downloadRoot, err := config.ResolveDir(cfg.Dirs.Download)
	if err != nil {
		return nil, err
	}
	backupRoot, err := config.ResolveDir(cfg.Dirs.Backup)
	if err != nil {
		return nil, err
	}

	retry := update.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Network.Retries
	metadataRetry := update.DefaultRetryPolicy()
	metadataRetry.MaxRetries = cfg.Network.MetadataRetries

	if d.Resolver == nil {
		d.Resolver = update.NewResolver(cfg.Releases.Latest).
			WithTimeout(cfg.Network.TimeoutDuration()).
			WithRetryPolicy(metadataRetry).
			WithVersionFile(cfg.Instance.VersionFile).
			WithUserAgent(cfg.Network.UserAgent).
			WithLogger(logger)
	}
	if d.Fetcher == nil {
		d.Fetcher = update.NewHTTPDownloader().
			WithTimeout(cfg.Network.DownloadTimeoutDuration()).
			WithRetryPolicy(retry).
			WithUserAgent(cfg.Network.UserAgent).
			WithLogger(logger)
	}
	if d.Confirmer == nil {
		d.Confirmer = interactive.NewPrompter()
	}
	if d.Installer == nil && !cfg.Dependencies.Skip {
		d.Installer = deps.NewInstaller(cfg.Dependencies.Command).WithLogger(logger)
	}
	if d.Git == nil && !opts.SkipGitCheck {
		d.Git = git.NewChecker()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	return &Pipeline{
		cfg:          cfg,
		opts:         opts,
		logger:       logger,
		downloadRoot: downloadRoot,
		validator:    instance.NewValidator(cfg.Instance.Resources, logger),
		backups: backup.NewManager(backupRoot, cfg.Instance.ExcludeFromBackup).
			WithLogger(logger).
			WithSkipPaths(backupRoot, downloadRoot),
		replacer:  update.NewReplacer(cfg.Instance.Resources, cfg.Instance.Generated, logger),
		resolver:  d.Resolver,
		fetcher:   d.Fetcher,
		confirmer: d.Confirmer,
		installer: d.Installer,
		git:       d.Git,
		now:       d.Now,
	}, nil
}

// Run executes the upgrade and returns its final state. It never panics.
func (p *Pipeline) Run(ctx context.Context) (s *State) {
	s = NewState(p.opts.Path, p.now())
	p.logger.Info("Teddy path: " + s.Path)

	defer p.finish(s)
	p.run(ctx, s)
	return s
}

func (p *Pipeline) run(ctx context.Context, s *State) {
	if !p.enter(ctx, s, StageValidatePath) {
		return
	}
	if err := p.validator.Validate(s.Path); err != nil {
		p.logger.Error(fmt.Sprintf("The specified path '%s' does not point to a valid instance of Teddy", s.Path), "error", err)
		s.fail(err)
		return
	}
	s.PathIsValid = true
	p.preflight(s)

	if !p.enter(ctx, s, StageReadCurrentVersion) {
		return
	}
	s.Current = p.resolver.Current(s.Path)
	if s.Current.Resolved() {
		p.logger.Info("Current version: " + s.Current.String())
	} else {
		p.logger.Error("Unable to determine the current version", "error", s.Current.Err)
	}

	if !p.enter(ctx, s, StageResolveLatestVersion) {
		return
	}
	s.Latest = p.resolver.Latest(ctx)
	if s.Latest.Resolved() {
		p.logger.Info("Latest version: " + s.Latest.String())
	} else {
		p.logger.Error("An error was encountered whilst attempting to retrieve the latest release metadata",
			"url", p.cfg.Releases.Latest, "error", s.Latest.Err)
	}

	if !p.enter(ctx, s, StageCompareVersions) {
		return
	}
	s.NewVersionAvailable = update.NewerAvailable(s.Current, s.Latest)
	if !s.NewVersionAvailable {
		s.succeed()
		p.logger.Info("No updates found. The instance of Teddy is already using the latest available version.")
		p.logger.Info("Teddy location: " + s.Path)
		p.logger.Info("Current version: " + s.Current.String())
		return
	}
	if p.opts.CheckOnly {
		s.succeed()
		p.logger.Info(fmt.Sprintf("A new version of Teddy is available: v%s (current v%s)", s.Latest, s.Current))
		return
	}

	if !p.enter(ctx, s, StageConfirm) {
		return
	}
	s.UpgradeConfirmed = p.confirmer.ConfirmUpgrade(interactive.UpgradePrompt{
		Current:    s.Current.String(),
		Latest:     s.Latest.String(),
		ReleaseURL: p.releaseURL(s.Latest.Version),
	})
	if !s.UpgradeConfirmed {
		p.logger.Info("Upgrade declined.")
		s.fail(ErrUpgradeDeclined)
		return
	}
	p.logger.Info("Upgrade confirmed. Upgrading Teddy...")

	if !p.enter(ctx, s, StageCreateDownloadDir) {
		return
	}
	downloadDir, err := update.PrepareDownloadDir(p.downloadRoot, s.Latest.Version)
	if err != nil {
		p.stop(s, "Could not create the download directory", err)
		return
	}
	s.DownloadDir = downloadDir

	if !p.enter(ctx, s, StageComputeURLs) {
		return
	}
	release, err := update.NewDescriptor(p.cfg.Releases, downloadDir, s.Latest.Version)
	if err != nil {
		p.stop(s, "Could not generate the download URLs", err)
		return
	}
	s.Release = release
	p.logger.Debug("Release artifacts", "archive", release.ArchiveURL, "checksums", release.ChecksumsURL)

	if !p.enter(ctx, s, StageDownload) {
		return
	}
	p.download(ctx, s, release.ArchiveURL, release.ArchivePath)
	p.download(ctx, s, release.ChecksumsURL, release.ChecksumsPath)
	if s.DownloadedFileCount != 2 {
		p.stop(s, fmt.Sprintf("An error was encountered whilst attempting to download the latest release of Teddy from %s", release.BaseURL),
			fmt.Errorf("%w: %d of 2 files downloaded", ErrDownloadIncomplete, s.DownloadedFileCount))
		return
	}

	if !p.enter(ctx, s, StageVerifyChecksum) {
		return
	}
	if err := update.VerifyArchive(release.ArchivePath, release.ChecksumsPath, release.ArchiveFilename); err != nil {
		p.stop(s, "The downloaded archive file failed integrity verification", err)
		return
	}
	s.DownloadVerified = true

	if !p.enter(ctx, s, StageExtract) {
		return
	}
	if err := update.ExtractFormat(ctx, release.ArchiveFormat, release.ArchivePath, release.ExtractDir); err != nil {
		p.stop(s, "Could not extract the downloaded archive", err)
		return
	}

	if !p.enter(ctx, s, StageValidateExtraction) {
		return
	}
	if !fsutil.Exists(release.ExtractDir) {
		p.stop(s, "The extracted release was not found", fmt.Errorf("%w: %s", ErrExtractionMissing, release.ExtractDir))
		return
	}
	if err := p.validator.Validate(release.ExtractDir); err != nil {
		p.stop(s, "The extracted release is not a valid instance of Teddy", err)
		return
	}
	s.ExtractIsValid = true

	if !p.enter(ctx, s, StageCreateBackupDir) {
		return
	}
	backupDir, err := p.backups.PrepareDir(s.StartedAt)
	if err != nil {
		p.stop(s, "Could not create the backup directory", err)
		return
	}
	s.BackupDir = backupDir

	if !p.enter(ctx, s, StageBackup) {
		return
	}
	snap, err := p.backups.Snapshot(s.Path, backupDir)
	if err != nil {
		p.stop(s, "Could not back up the Teddy instance", err)
		return
	}
	p.logger.Info("Backup created",
		"path", snap.Path, "files", snap.Files, "size", humanize.Bytes(uint64(snap.Bytes)))

	// From here on the install is being rewritten; cancellation is no
	// longer honored until the files are back in place.
	p.enter(ctx, s, StageDeleteOldResources)
	p.plan(s, release.ExtractDir)
	deleted := p.replacer.DeleteOld(s.Path)
	p.logger.Debug("Deleted resources", "count", len(deleted.Deleted))

	p.enter(ctx, s, StageCopyNewResources)
	copied := p.replacer.CopyNew(release.ExtractDir, s.Path)
	p.logger.Debug("Copied resources", "count", len(copied.Copied))
	replaceErr := errors.Join(deleted.Err(), copied.Err())
	if replaceErr != nil {
		s.Warnings = append(s.Warnings, replaceErr.Error())
	}

	p.enter(ctx, s, StageValidateUpgrade)
	if err := p.validator.Validate(s.Path); err != nil {
		p.stop(s, "The upgraded instance of Teddy failed validation", errors.Join(err, replaceErr))
		return
	}
	s.UpgradeIsValid = true

	p.enter(ctx, s, StageInstallDependencies)
	p.installDependencies(ctx, s)

	s.succeed()
	p.logger.Info("Successfully finished upgrading Teddy!")
	p.logger.Info("Teddy location: " + s.Path)
	p.logger.Info("Old version: " + s.Current.String())
	p.logger.Info("New version: " + s.Latest.String())
}

// enter records and logs the stage. Before the destructive stages it also
// stops the run when ctx is done.
func (p *Pipeline) enter(ctx context.Context, s *State, stage Stage) bool {
	if stage < StageDeleteOldResources {
		if err := ctx.Err(); err != nil {
			p.stop(s, "The upgrade was interrupted", err)
			return false
		}
	}
	s.enter(stage)
	p.logger.Info(stage.String()+"...", "stage", int(stage))
	return true
}

func (p *Pipeline) stop(s *State, msg string, err error) {
	p.logger.Error(msg, "stage", int(s.Stage), "error", err)
	s.fail(err)
}

func (p *Pipeline) preflight(s *State) {
	if p.git == nil {
		return
	}
	result := p.git.Preflight(s.Path)
	for _, info := range result.Info {
		p.logger.Debug(info)
	}
	for _, w := range result.Warnings {
		p.logger.Warn(w)
		s.Warnings = append(s.Warnings, w)
	}
}

func (p *Pipeline) download(ctx context.Context, s *State, url, dst string) {
	n, err := p.fetcher.Download(ctx, url, dst)
	if err != nil {
		p.logger.Error("An error was encountered whilst attempting to download "+url, "error", err)
		return
	}
	s.DownloadedFileCount++
	p.logger.Info("Downloaded "+filepath.Base(dst), "size", humanize.Bytes(uint64(n)))
}

// plan logs what the replacement is about to change. Failure to compute it
// does not affect the upgrade.
func (p *Pipeline) plan(s *State, releaseDir string) {
	result, err := diff.Compute(p.cfg.Instance.Resources, s.Path, releaseDir, diff.Options{
		Generated: p.cfg.Instance.Generated,
		Exclude:   p.cfg.Instance.ExcludeFromBackup,
	})
	if err != nil {
		p.logger.Warn("Could not compute the upgrade plan", "error", err)
		return
	}
	s.Plan = result

	add, upd, remove, unchanged := result.Summary()
	p.logger.Info("Upgrade plan", "add", add, "update", upd, "remove", remove, "unchanged", unchanged)
	for _, change := range result.Changes() {
		p.logger.Debug(change.Describe())
	}
}

func (p *Pipeline) installDependencies(ctx context.Context, s *State) {
	if p.installer == nil {
		p.logger.Info("Skipping dependency installation")
		return
	}
	result, err := p.installer.Install(ctx, s.Path)
	if err != nil {
		p.logger.Error(fmt.Sprintf(
			"An error was encountered when attempting to automatically install the upgraded dependencies. "+
				"Please navigate to %s and run the command '%s' to install the upgraded dependencies manually.",
			s.Path, p.installer.CommandString()))
		p.logger.Debug("Dependency installation failed", "error", err)
		s.Warnings = append(s.Warnings, "dependency installation failed: run '"+p.installer.CommandString()+"' manually")
		return
	}
	s.DependenciesInstalled = true
	p.logger.Debug("Dependency installation output", "output", result.Output)
}

// finish recovers a panic, prints recovery hints on failure and cleans up.
func (p *Pipeline) finish(s *State) {
	if r := recover(); r != nil {
		s.fail(fmt.Errorf("%w: %v", ErrUnexpected, r))
		p.logger.Error("An error was encountered whilst running the upgrade pipeline. Please consult the logs for further details.",
			"stage", int(s.Stage), "panic", r)
		p.logger.Debug("Panic stack trace", "stack", string(debug.Stack()))
	}

	if !s.Succeeded() {
		p.logger.Error("If this error persists, please manually download and upgrade Teddy from " + p.cfg.Releases.Notes + ".")
		if s.BackupDir != "" {
			p.logger.Info(fmt.Sprintf("The backup of your original Teddy instance may be found in '%s'.", s.BackupDir))
		}
	}

	p.cleanup(s)
}

// cleanup removes the download directory, and the backup only after a
// validated upgrade the operator asked to discard it for.
func (p *Pipeline) cleanup(s *State) {
	if s.DownloadDir != "" && fsutil.Exists(s.DownloadDir) {
		p.logger.Info("Deleting the download directory...")
		if err := os.RemoveAll(s.DownloadDir); err != nil {
			p.logger.Error(fmt.Sprintf("Could not delete the download directory at '%s'", s.DownloadDir), "error", err)
		}
	}

	if p.opts.DeleteBackup && s.Succeeded() && s.Upgraded() && s.BackupDir != "" && fsutil.Exists(s.BackupDir) {
		p.logger.Info("Deleting the backup directory...")
		if err := os.RemoveAll(s.BackupDir); err != nil {
			p.logger.Error(fmt.Sprintf("Could not delete the backup directory at '%s'", s.BackupDir), "error", err)
			return
		}
		s.BackupDeleted = true
	}
}

func (p *Pipeline) releaseURL(v *update.Version) string {
	if v != nil && p.cfg.Releases.Tag != "" {
		return config.ExpandVersion(p.cfg.Releases.Tag, v.String())
	}
	return p.cfg.Releases.Notes
}
