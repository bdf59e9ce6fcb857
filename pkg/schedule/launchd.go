package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"howett.net/plist"

	"github.com/franksplace/updatehauler/internal/executor"
	"github.com/franksplace/updatehauler/pkg/config"
)

// LaunchdLabel identifies the LaunchAgent.
const LaunchdLabel = "net.franksplace.wake-update-hauler"

// ErrCalendarField is returned when a schedule field cannot be expressed as
// a launchd StartCalendarInterval entry.
var ErrCalendarField = errors.New("launchd schedule fields must be a single integer or *")

// launchAgent is the property list written to ~/Library/LaunchAgents.
type launchAgent struct {
	Label                 string         `plist:"Label"`
	ProgramArguments      []string       `plist:"ProgramArguments"`
	StartCalendarInterval map[string]int `plist:"StartCalendarInterval"`
}

type calendarField struct {
	key      string
	value    string
	min, max int
}

// calendarInterval maps the cron fields onto StartCalendarInterval keys;
// wildcards are left out. Steps, lists and ranges have no launchd
// equivalent and are rejected.
func calendarInterval(s config.Schedule) (map[string]int, error) {
	interval := make(map[string]int)
	for _, f := range []calendarField{
		{key: "Minute", value: s.Minute, min: 0, max: 59},
		{key: "Hour", value: s.Hour, min: 0, max: 23},
		{key: "Day", value: s.DayOfMonth, min: 1, max: 31},
		{key: "Month", value: s.Month, min: 1, max: 12},
		{key: "Weekday", value: s.DayOfWeek, min: 0, max: 7},
	} {
		if f.value == "*" {
			continue
		}
		n, err := strconv.Atoi(f.value)
		if err != nil || n < f.min || n > f.max {
			return nil, fmt.Errorf("%w: %s %q", ErrCalendarField, f.key, f.value)
		}
		interval[f.key] = n
	}
	return interval, nil
}

// ValidateCalendar reports whether s can be scheduled through launchd.
func ValidateCalendar(s config.Schedule) error {
	_, err := calendarInterval(s)
	return err
}

// RenderPlist returns the LaunchAgent property list running program on
// schedule.
func RenderPlist(program string, s config.Schedule) (string, error) {
	interval, err := calendarInterval(s)
	if err != nil {
		return "", err
	}

	data, err := plist.MarshalIndent(launchAgent{
		Label:                 LaunchdLabel,
		ProgramArguments:      []string{program, "--logfile-only"},
		StartCalendarInterval: interval,
	}, plist.XMLFormat, "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render plist: %w", err)
	}
	return string(data) + "\n", nil
}

// WakeTime is the pmset repeat time for s. Wildcards fall back to 02:00.
func WakeTime(s config.Schedule) string {
	hour, minute := s.Hour, s.Minute
	if hour == "*" {
		hour = "2"
	}
	if minute == "*" {
		minute = "0"
	}
	return fmt.Sprintf("%s:%s:00", hour, minute)
}

// PlistPath is where the LaunchAgent is written.
func (s *Scheduler) PlistPath() string {
	return filepath.Join(s.launchAgentsDir, LaunchdLabel+".plist")
}

func (s *Scheduler) domain() string {
	return fmt.Sprintf("gui/%d", s.uid)
}

func (s *Scheduler) service() string {
	return s.domain() + "/" + LaunchdLabel
}

func (s *Scheduler) launchdEnable(ctx context.Context) error {
	plist, err := RenderPlist(s.appPath(), s.cfg.Schedule)
	if err != nil {
		return err
	}

	path := s.PlistPath()
	if s.runner.DryRun() {
		s.logf("Would write LaunchAgent plist %s", path)
	} else {
		if err := os.MkdirAll(s.launchAgentsDir, 0755); err != nil {
			return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(plist), 0644); err != nil {
			return fmt.Errorf("failed to write plist: %w", err)
		}
	}

	wake := WakeTime(s.cfg.Schedule)
	s.runner.Exec(ctx, executor.Diagnostic("sudo", "pmset", "repeat", "wakeorpoweron", "MTWRFSU", wake))
	s.runner.Exec(ctx, executor.Diagnostic("launchctl", "bootout", s.service()))

	if _, err := s.runner.Run(ctx, executor.Cmd("launchctl", "bootstrap", s.domain(), path)); err != nil {
		return err
	}
	if _, err := s.runner.Run(ctx, executor.Cmd("launchctl", "kickstart", "-k", s.service())); err != nil {
		return err
	}

	s.logf("schedule for Darwin enabled %s with StartCalendarInterval and pmset %s", LaunchdLabel, wake)
	return nil
}

func (s *Scheduler) launchdDisable(ctx context.Context) error {
	s.runner.Exec(ctx, executor.Diagnostic("sudo", "pmset", "repeat", "cancel"))
	s.runner.Exec(ctx, executor.Diagnostic("launchctl", "bootout", s.service()))

	path := s.PlistPath()
	if s.runner.DryRun() {
		s.logf("Would remove LaunchAgent plist %s", path)
	} else if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist: %w", err)
	}

	s.logf("schedule for Darwin disabled %s and cleared pmset repeat schedule", LaunchdLabel)
	return nil
}

func (s *Scheduler) launchdCheck(ctx context.Context) error {
	path := s.PlistPath()
	s.logf("LaunchAgent plist: %s", path)
	if _, err := os.Stat(path); err == nil {
		s.logf("  - plist exists")
	} else {
		s.logf("  - plist missing")
	}

	s.logf("launchctl status:")
	if result := s.runner.Exec(ctx, executor.Diagnostic("launchctl", "print", s.service())); !result.Success() {
		s.logf("  - service not loaded (launchctl print failed)")
	}

	s.logf("Power Management Schedule:")
	s.runner.Exec(ctx, executor.Diagnostic("pmset", "-g", "sched"))
	return nil
}
