// Package schedule installs, removes and reports the recurring run of
// updatehauler: a crontab entry on Linux, a LaunchAgent plus a pmset wake
// schedule on macOS.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/franksplace/updatehauler/internal/executor"
	"github.com/franksplace/updatehauler/pkg/config"
	"github.com/franksplace/updatehauler/pkg/insights"
	"github.com/franksplace/updatehauler/pkg/output"
)

// Qualifiers accepted by the schedule command.
const (
	Enable  = "enable"
	Disable = "disable"
	Check   = "check"
)

// ErrMissingQualifier is returned when schedule is given no qualifier.
var ErrMissingQualifier = errors.New("schedule requires qualifier: enable, disable, or check")

// QualifierError reports an unknown schedule qualifier.
type QualifierError struct {
	Qualifier string
}

// Error implements the error interface.
func (e *QualifierError) Error() string {
	return "Invalid schedule qualifier: " + e.Qualifier
}

// Scheduler manages the recurring run for one configuration.
type Scheduler struct {
	cfg      *config.Config
	insights *insights.Insights
	runner   *executor.Runner
	logger   *output.Logger

	crontab         Crontab
	launchAgentsDir string
	uid             int
}

// New creates a scheduler. Commands run through runner and share its logger.
func New(cfg *config.Config, in *insights.Insights, runner *executor.Runner) *Scheduler {
	return &Scheduler{
		cfg:             cfg,
		insights:        in,
		runner:          runner,
		logger:          runner.Logger(),
		crontab:         SystemCrontab{},
		launchAgentsDir: filepath.Join(cfg.Home, "Library", "LaunchAgents"),
		uid:             os.Geteuid(),
	}
}

// WithCrontab replaces the crontab backend.
func (s *Scheduler) WithCrontab(c Crontab) *Scheduler {
	s.crontab = c
	return s
}

// Execute runs the operation named by qualifier.
func (s *Scheduler) Execute(ctx context.Context, qualifier string) error {
	switch qualifier {
	case "":
		return ErrMissingQualifier
	case Enable:
		return s.Enable(ctx)
	case Disable:
		return s.Disable(ctx)
	case Check:
		return s.Check(ctx)
	default:
		return &QualifierError{Qualifier: qualifier}
	}
}

// Enable installs the recurring run.
func (s *Scheduler) Enable(ctx context.Context) error {
	if s.insights.IsDarwin {
		return s.launchdEnable(ctx)
	}
	return s.cronEnable(ctx)
}

// Disable removes the recurring run.
func (s *Scheduler) Disable(ctx context.Context) error {
	if s.insights.IsDarwin {
		return s.launchdDisable(ctx)
	}
	return s.cronDisable(ctx)
}

// Check logs the current schedule state.
func (s *Scheduler) Check(ctx context.Context) error {
	if s.insights.IsDarwin {
		return s.launchdCheck(ctx)
	}
	return s.cronCheck(ctx)
}

func (s *Scheduler) appPath() string {
	if s.insights.AppAbsPath != "" {
		return s.insights.AppAbsPath
	}
	return s.cfg.AppPath()
}

// logf logs a progress line, marked as simulated in dry-run mode.
func (s *Scheduler) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if s.runner.DryRun() {
		msg += " " + executor.DryRunMarker
	}
	s.logger.Info(msg)
}
