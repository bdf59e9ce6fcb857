package schedule

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Crontab reads and replaces the current user's crontab.
type Crontab interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, content string) error
}

// SystemCrontab drives the crontab program.
type SystemCrontab struct{}

// Read returns the crontab. A user without one, or a host without the
// crontab program, reads as empty.
func (SystemCrontab) Read(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "crontab", "-l").Output()
	if err != nil {
		return "", nil
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// Write installs content as the crontab.
func (SystemCrontab) Write(ctx context.Context, content string) error {
	cmd := exec.CommandContext(ctx, "crontab", "-")
	cmd.Stdin = strings.NewReader(content + "\n")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to update crontab: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (s *Scheduler) cronEnable(ctx context.Context) error {
	current, err := s.crontab.Read(ctx)
	if err != nil {
		return err
	}

	app := s.appPath()
	if strings.Contains(current, app) {
		s.logf("Cron entry already enabled")
		return nil
	}

	entry := s.cfg.CrontabEntry(app)
	next := entry
	if current != "" {
		next = current + "\n" + entry
	}

	if s.runner.DryRun() {
		s.logf("Would add crontab entry: %s", entry)
		return nil
	}
	if err := s.crontab.Write(ctx, next); err != nil {
		return err
	}
	s.logger.Info("Crontab successfully updated")
	return nil
}

func (s *Scheduler) cronDisable(ctx context.Context) error {
	current, err := s.crontab.Read(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		s.logf("No crontab what so ever")
		return nil
	}

	app := s.appPath()
	if !strings.Contains(current, app) {
		s.logf("cron entry not found")
		return nil
	}

	var kept []string
	for _, line := range strings.Split(current, "\n") {
		if !strings.Contains(line, app) {
			kept = append(kept, line)
		}
	}

	if s.runner.DryRun() {
		s.logf("Would remove %s from crontab", app)
		return nil
	}
	if err := s.crontab.Write(ctx, strings.Join(kept, "\n")); err != nil {
		return err
	}
	s.logger.Infof("Successfully disabled %s in cron", s.cfg.AppName)
	return nil
}

func (s *Scheduler) cronCheck(ctx context.Context) error {
	current, err := s.crontab.Read(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		return fmt.Errorf("no crontab at all enabled")
	}
	for _, line := range strings.Split(current, "\n") {
		s.logf("%s", line)
	}
	return nil
}
