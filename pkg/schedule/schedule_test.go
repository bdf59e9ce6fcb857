package schedule

import (
	"bytes"
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"howett.net/plist"

	"github.com/franksplace/updatehauler/internal/executor"
	"github.com/franksplace/updatehauler/pkg/config"
	"github.com/franksplace/updatehauler/pkg/insights"
	"github.com/franksplace/updatehauler/pkg/output"
)

const testApp = "/home/user/.local/bin/updatehauler"

type fakeCrontab struct {
	content string
	writes  int
	readErr error
}

func (f *fakeCrontab) Read(context.Context) (string, error) {
	return f.content, f.readErr
}

func (f *fakeCrontab) Write(_ context.Context, content string) error {
	f.writes++
	f.content = content
	return nil
}

func newScheduler(t *testing.T, dryRun bool, in *insights.Insights, tab *fakeCrontab) (*Scheduler, *bytes.Buffer) {
	t.Helper()

	cfg := config.Default(t.TempDir())
	var stdout, stderr bytes.Buffer
	logger := output.NewLogger(output.Options{}).WithWriters(&stdout, &stderr)
	runner := executor.NewRunner(logger, executor.Options{DryRun: dryRun})

	in.AppAbsPath = testApp
	return New(cfg, in, runner).WithCrontab(tab), &stdout
}

func linux() *insights.Insights {
	return &insights.Insights{OS: "linux", IsLinux: true}
}

func TestExecute_Qualifiers(t *testing.T) {
	s, _ := newScheduler(t, true, linux(), &fakeCrontab{})
	ctx := context.Background()

	if err := s.Execute(ctx, ""); !errors.Is(err, ErrMissingQualifier) {
		t.Errorf("Execute(\"\") error = %v, want ErrMissingQualifier", err)
	}
	if got := ErrMissingQualifier.Error(); got != "schedule requires qualifier: enable, disable, or check" {
		t.Errorf("ErrMissingQualifier = %q", got)
	}

	err := s.Execute(ctx, "restart")
	var qualErr *QualifierError
	if !errors.As(err, &qualErr) {
		t.Fatalf("Execute(restart) error = %v, want *QualifierError", err)
	}
	if err.Error() != "Invalid schedule qualifier: restart" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestCronEnable(t *testing.T) {
	tab := &fakeCrontab{content: "0 1 * * * /usr/bin/backup"}
	s, stdout := newScheduler(t, false, linux(), tab)

	if err := s.Execute(context.Background(), Enable); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	lines := strings.Split(tab.content, "\n")
	if len(lines) != 2 || lines[0] != "0 1 * * * /usr/bin/backup" {
		t.Fatalf("crontab = %q", tab.content)
	}
	if !strings.Contains(lines[1], `0 2 * * * "`+testApp+`" --logfile-only 2>&1`) {
		t.Errorf("entry = %q", lines[1])
	}
	if !strings.HasPrefix(lines[1], "PATH=") {
		t.Errorf("entry should set PATH: %q", lines[1])
	}
	if !strings.Contains(stdout.String(), "Crontab successfully updated") {
		t.Errorf("output = %q", stdout.String())
	}

	// A second enable finds the entry and leaves the crontab alone.
	if err := s.Enable(context.Background()); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if tab.writes != 1 {
		t.Errorf("writes = %d, want 1", tab.writes)
	}
	if !strings.Contains(stdout.String(), "Cron entry already enabled") {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestCronEnable_EmptyCrontab(t *testing.T) {
	tab := &fakeCrontab{}
	s, _ := newScheduler(t, false, linux(), tab)

	if err := s.Enable(context.Background()); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if strings.Contains(tab.content, "\n") || !strings.Contains(tab.content, testApp) {
		t.Errorf("crontab = %q", tab.content)
	}
}

func TestCronDisable(t *testing.T) {
	tab := &fakeCrontab{content: "0 1 * * * /usr/bin/backup\nPATH=/bin; 0 2 * * * \"" + testApp + "\" --logfile-only 2>&1"}
	s, stdout := newScheduler(t, false, linux(), tab)

	if err := s.Disable(context.Background()); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if tab.content != "0 1 * * * /usr/bin/backup" {
		t.Errorf("crontab = %q", tab.content)
	}
	if !strings.Contains(stdout.String(), "Successfully disabled updatehauler in cron") {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestCronDisable_NothingToDo(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "", want: "No crontab what so ever"},
		{name: "no entry", content: "0 1 * * * /usr/bin/backup", want: "cron entry not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab := &fakeCrontab{content: tt.content}
			s, stdout := newScheduler(t, false, linux(), tab)

			if err := s.Disable(context.Background()); err != nil {
				t.Fatalf("Disable() error = %v", err)
			}
			if tab.writes != 0 {
				t.Errorf("writes = %d, want 0", tab.writes)
			}
			if !strings.Contains(stdout.String(), tt.want) {
				t.Errorf("output = %q, want %q", stdout.String(), tt.want)
			}
		})
	}
}

func TestCron_DryRunChangesNothing(t *testing.T) {
	tab := &fakeCrontab{content: "0 1 * * * /usr/bin/backup"}
	s, stdout := newScheduler(t, true, linux(), tab)
	ctx := context.Background()

	if err := s.Enable(ctx); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	tab.content += "\n0 2 * * * " + testApp
	if err := s.Disable(ctx); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}

	if tab.writes != 0 {
		t.Errorf("writes = %d, want 0", tab.writes)
	}
	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		if !strings.HasSuffix(line, executor.DryRunMarker) {
			t.Errorf("line %q is not marked", line)
		}
	}
}

func TestCronCheck(t *testing.T) {
	s, stdout := newScheduler(t, false, linux(), &fakeCrontab{content: "a\nb"})
	if err := s.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if stdout.String() != "a\nb\n" {
		t.Errorf("output = %q", stdout.String())
	}

	empty, _ := newScheduler(t, false, linux(), &fakeCrontab{})
	if err := empty.Check(context.Background()); err == nil {
		t.Error("Check() on an empty crontab should fail")
	}
}

func TestCron_ReadError(t *testing.T) {
	readErr := errors.New("boom")
	s, _ := newScheduler(t, false, linux(), &fakeCrontab{readErr: readErr})

	for _, q := range []string{Enable, Disable, Check} {
		if err := s.Execute(context.Background(), q); !errors.Is(err, readErr) {
			t.Errorf("Execute(%s) error = %v, want %v", q, err, readErr)
		}
	}
}

func TestRenderPlist(t *testing.T) {
	tests := []struct {
		name     string
		program  string
		schedule config.Schedule
		want     map[string]int
	}{
		{
			name:     "fixed fields",
			program:  testApp,
			schedule: config.Schedule{Minute: "30", Hour: "4", DayOfMonth: "*", Month: "*", DayOfWeek: "1"},
			want:     map[string]int{"Minute": 30, "Hour": 4, "Weekday": 1},
		},
		{
			name:     "zero minute is kept",
			program:  testApp,
			schedule: config.Schedule{Minute: "0", Hour: "2", DayOfMonth: "*", Month: "*", DayOfWeek: "*"},
			want:     map[string]int{"Minute": 0, "Hour": 2},
		},
		{
			name:     "markup in program path",
			program:  "/Users/tom&jerry/<bin>/updatehauler",
			schedule: config.Schedule{Minute: "5", Hour: "*", DayOfMonth: "1", Month: "12", DayOfWeek: "*"},
			want:     map[string]int{"Minute": 5, "Day": 1, "Month": 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered, err := RenderPlist(tt.program, tt.schedule)
			if err != nil {
				t.Fatalf("RenderPlist() error = %v", err)
			}

			var agent launchAgent
			if _, err := plist.Unmarshal([]byte(rendered), &agent); err != nil {
				t.Fatalf("plist.Unmarshal() error = %v\n%s", err, rendered)
			}
			if agent.Label != LaunchdLabel {
				t.Errorf("Label = %q, want %q", agent.Label, LaunchdLabel)
			}
			if len(agent.ProgramArguments) != 2 || agent.ProgramArguments[0] != tt.program || agent.ProgramArguments[1] != "--logfile-only" {
				t.Errorf("ProgramArguments = %q", agent.ProgramArguments)
			}
			if !reflect.DeepEqual(agent.StartCalendarInterval, tt.want) {
				t.Errorf("StartCalendarInterval = %v, want %v", agent.StartCalendarInterval, tt.want)
			}
		})
	}
}

func TestRenderPlist_RejectsCronSyntax(t *testing.T) {
	base := config.Schedule{Minute: "0", Hour: "2", DayOfMonth: "*", Month: "*", DayOfWeek: "*"}
	tests := []struct {
		name   string
		modify func(*config.Schedule)
	}{
		{name: "step", modify: func(s *config.Schedule) { s.Minute = "*/15" }},
		{name: "list", modify: func(s *config.Schedule) { s.Minute = "0,30" }},
		{name: "range", modify: func(s *config.Schedule) { s.DayOfWeek = "1-5" }},
		{name: "out of range", modify: func(s *config.Schedule) { s.Hour = "24" }},
		{name: "day zero", modify: func(s *config.Schedule) { s.DayOfMonth = "0" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.modify(&s)
			if _, err := RenderPlist(testApp, s); !errors.Is(err, ErrCalendarField) {
				t.Errorf("RenderPlist() error = %v, want ErrCalendarField", err)
			}
			if err := ValidateCalendar(s); !errors.Is(err, ErrCalendarField) {
				t.Errorf("ValidateCalendar() error = %v, want ErrCalendarField", err)
			}
		})
	}
}

func TestLaunchd_EnableRejectsCronSyntax(t *testing.T) {
	darwin := &insights.Insights{OS: "macos", IsDarwin: true}
	s, stdout := newScheduler(t, true, darwin, &fakeCrontab{})
	s.cfg.Schedule.Minute = "*/15"

	if err := s.Execute(context.Background(), Enable); !errors.Is(err, ErrCalendarField) {
		t.Fatalf("Execute(enable) error = %v, want ErrCalendarField", err)
	}
	if strings.Contains(stdout.String(), "pmset") {
		t.Errorf("commands ran for an invalid schedule:\n%s", stdout.String())
	}
}

func TestWakeTime(t *testing.T) {
	tests := []struct {
		schedule config.Schedule
		want     string
	}{
		{schedule: config.Schedule{Minute: "0", Hour: "2"}, want: "2:0:00"},
		{schedule: config.Schedule{Minute: "15", Hour: "23"}, want: "23:15:00"},
		{schedule: config.Schedule{Minute: "*", Hour: "*"}, want: "2:0:00"},
	}

	for _, tt := range tests {
		if got := WakeTime(tt.schedule); got != tt.want {
			t.Errorf("WakeTime(%+v) = %q, want %q", tt.schedule, got, tt.want)
		}
	}
}

func TestLaunchd_DryRun(t *testing.T) {
	darwin := &insights.Insights{OS: "macos", IsDarwin: true}
	s, stdout := newScheduler(t, true, darwin, &fakeCrontab{})
	ctx := context.Background()

	for _, q := range []string{Enable, Disable, Check} {
		if err := s.Execute(ctx, q); err != nil {
			t.Fatalf("Execute(%s) error = %v", q, err)
		}
	}

	if _, err := os.Stat(s.PlistPath()); !os.IsNotExist(err) {
		t.Errorf("dry-run wrote %s", s.PlistPath())
	}

	out := stdout.String()
	for _, want := range []string{
		"Would execute: sudo pmset repeat wakeorpoweron MTWRFSU 2:0:00 (DRY-RUN)",
		"Would execute: launchctl bootstrap gui/",
		"Would execute: sudo pmset repeat cancel (DRY-RUN)",
		"Would write LaunchAgent plist",
		"Would remove LaunchAgent plist",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.Contains(line, executor.DryRunMarker) {
			t.Errorf("line %q is not marked", line)
		}
	}
}
