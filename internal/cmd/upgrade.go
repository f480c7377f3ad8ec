package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/teddyful/teddy-upgrader/internal/interactive"
	"github.com/teddyful/teddy-upgrader/internal/pipeline"
)

var errPathRequired = errors.New("the path to the local Teddy installation is required (--path or TEDDY_UPGRADER_PATH)")

func (a *app) runUpgrade(ctx context.Context) error {
	path := expandHomePath(a.v.GetString("path"))
	if path == "" {
		return &ExitError{Code: pipeline.StatusFailure, Err: errPathRequired}
	}

	cfg, cfgPath, err := a.loadConfig()
	if err != nil {
		return &ExitError{Code: pipeline.StatusFailure, Err: err}
	}

	w, err := a.outputWriter()
	if err != nil {
		return &ExitError{Code: pipeline.StatusFailure, Err: err}
	}

	logger, err := a.newLogger(cfg)
	if err != nil {
		return &ExitError{Code: pipeline.StatusFailure, Err: err}
	}
	defer func() { _ = logger.Close() }()

	if cfgPath != "" {
		logger.Debug("Loaded configuration", "path", cfgPath)
	}
	if f := logger.FilePath(); f != "" {
		logger.Debug("Writing log file", "path", f)
	}

	var confirmer pipeline.Confirmer
	switch {
	case a.v.GetBool("yes"):
		confirmer = interactive.AutoConfirmer{Accept: true}
	case !interactive.IsTerminalReader(a.stdin):
		logger.Warn("Standard input is not a terminal and --yes was not given, so any available upgrade will be declined")
		confirmer = interactive.AutoConfirmer{Accept: false}
	default:
		confirmer = interactive.NewPrompterWithIO(a.stdin, a.stdout)
	}

	p, err := pipeline.New(cfg, pipeline.Options{
		Path:         path,
		DeleteBackup: a.v.GetBool("delete-backup"),
		CheckOnly:    a.v.GetBool("check"),
		SkipGitCheck: a.v.GetBool("skip-git-check"),
	}, pipeline.Deps{Confirmer: confirmer}, logger.Logger)
	if err != nil {
		return &ExitError{Code: pipeline.StatusFailure, Err: err}
	}

	if w.IsText() && !a.v.GetBool("quiet") {
		printBanner(a.stdout, a.build.Version)
	}

	s := p.Run(ctx)
	if err := w.Write(pipeline.NewReport(s, time.Now())); err != nil {
		return &ExitError{Code: pipeline.StatusFailure, Err: err}
	}

	if !s.Succeeded() {
		return &ExitError{Code: s.StatusCode}
	}
	return nil
}
