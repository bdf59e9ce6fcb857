package main

import (
	"strings"
	"testing"
)

func TestSplitRun(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantRest    []string
		wantCommand []string
		wantFound   bool
	}{
		{
			name:     "no run",
			args:     []string{"--dry-run", "brew"},
			wantRest: []string{"--dry-run", "brew"},
		},
		{
			name:        "single token",
			args:        []string{"--no-header", "--run", "echo hello"},
			wantRest:    []string{"--no-header"},
			wantCommand: []string{"echo hello"},
			wantFound:   true,
		},
		{
			name:        "command flags are kept",
			args:        []string{"--run", "ls", "-la", "--color"},
			wantCommand: []string{"ls", "-la", "--color"},
			wantFound:   true,
		},
		{
			name:        "equals form",
			args:        []string{"--run=uname", "-a"},
			wantCommand: []string{"uname", "-a"},
			wantFound:   true,
		},
		{
			name:      "bare",
			args:      []string{"--run"},
			wantFound: true,
		},
		{
			name:     "after terminator",
			args:     []string{"--", "--run", "x"},
			wantRest: []string{"--", "--run", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, command, found := splitRun(tt.args)
			if found != tt.wantFound {
				t.Errorf("found = %v, want %v", found, tt.wantFound)
			}
			if strings.Join(rest, " ") != strings.Join(tt.wantRest, " ") {
				t.Errorf("rest = %q, want %q", rest, tt.wantRest)
			}
			if strings.Join(command, " ") != strings.Join(tt.wantCommand, " ") {
				t.Errorf("command = %q, want %q", command, tt.wantCommand)
			}
		})
	}
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd(nil, false)

	for _, name := range []string{"debug", "no-debug", "datetime", "no-datetime", "header", "no-header",
		"color", "no-color", "logfile-only", "dry-run", "logfile", "max-log-lines", "installdir",
		"brew-save-file", "cargo-save-file", "sched-minute", "sched-hour", "sched-day-of-month",
		"sched-month", "sched-day-of-week", "config-file", "run"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}
}

func TestExitError(t *testing.T) {
	if got := (&exitError{code: 3}).Error(); got != "exit status 3" {
		t.Errorf("Error() = %q", got)
	}
}
