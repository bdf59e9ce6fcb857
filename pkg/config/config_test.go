package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	cfg := Default("/home/test")

	if cfg.AppName != "updatehauler" {
		t.Errorf("AppName = %q", cfg.AppName)
	}
	if cfg.MaxLogLines != 10000 {
		t.Errorf("MaxLogLines = %d, want 10000", cfg.MaxLogLines)
	}
	if cfg.Debug || cfg.UseLog || cfg.DryRun {
		t.Error("debug, use_log and dry_run should default to off")
	}
	if !cfg.Datetime || !cfg.ShowHeader || !cfg.Color {
		t.Error("datetime, show_header and color should default to on")
	}

	paths := map[string]string{
		"InstallDir":   cfg.InstallDir,
		"BrewSaveDir":  cfg.BrewSaveDir,
		"CargoSaveDir": cfg.CargoSaveDir,
		"LogFile":      cfg.LogFile,
	}
	want := map[string]string{
		"InstallDir":   "/home/test/.local/bin",
		"BrewSaveDir":  "/home/test/.config/brew",
		"CargoSaveDir": "/home/test/.config/cargo",
		"LogFile":      "/home/test/.local/updates.log",
	}
	for name, got := range paths {
		if got != want[name] {
			t.Errorf("%s = %q, want %q", name, got, want[name])
		}
	}

	if !cfg.Plugins.Brew || !cfg.Plugins.Cargo || cfg.Plugins.Nvim || !cfg.Plugins.OS {
		t.Errorf("Plugins = %+v", cfg.Plugins)
	}
}

func TestPlugins_Enabled(t *testing.T) {
	p := Plugins{Brew: true, Nvim: false}
	tests := []struct {
		name string
		want bool
	}{
		{"brew", true},
		{"nvim", false},
		{"cargo", false},
		{"something-else", true},
	}
	for _, tt := range tests {
		if got := p.Enabled(tt.name); got != tt.want {
			t.Errorf("Enabled(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCrontab(t *testing.T) {
	cfg := Default("/home/test")

	if got := cfg.CrontabTiming(); got != "0 2 * * *" {
		t.Errorf("CrontabTiming() = %q", got)
	}

	entry := cfg.CrontabEntry("/usr/local/bin/updatehauler")
	for _, want := range []string{"PATH=", "0 2 * * *", `"/usr/local/bin/updatehauler"`, "--logfile-only 2>&1"} {
		if !strings.Contains(entry, want) {
			t.Errorf("CrontabEntry() = %q, missing %q", entry, want)
		}
	}
}

func TestSchedulerPath(t *testing.T) {
	cfg := Default("/home/test")

	got := cfg.SchedulerPath("/usr/bin:/custom/bin::/opt/homebrew/bin:/custom/bin")
	parts := strings.Split(got, ":")

	if parts[0] != "/usr/local/bin" {
		t.Errorf("first entry = %q", parts[0])
	}
	if !strings.Contains(got, "/home/test/.cargo/bin") {
		t.Errorf("missing cargo bin in %q", got)
	}
	if parts[len(parts)-1] != "/custom/bin" {
		t.Errorf("last entry = %q, want /custom/bin", parts[len(parts)-1])
	}
	if strings.Count(got, "/custom/bin") != 1 || strings.Count(got, "/usr/bin:") != 1 {
		t.Errorf("duplicates in %q", got)
	}
}

func TestResolveSaveFiles(t *testing.T) {
	cfg := Default("/home/test")
	cfg.ResolveSaveFiles("macos", "aarch64")

	if cfg.BrewFile != "/home/test/.config/brew/macos-Brewfile" {
		t.Errorf("BrewFile = %q", cfg.BrewFile)
	}
	if cfg.CargoFile != "/home/test/.config/cargo/macos-aarch64-cargo-backup.json" {
		t.Errorf("CargoFile = %q", cfg.CargoFile)
	}

	cfg = Default("/home/test")
	cfg.BrewFile = "/custom/Brewfile"
	cfg.ResolveSaveFiles("linux", "x86_64")
	if cfg.BrewFile != "/custom/Brewfile" {
		t.Errorf("explicit BrewFile overwritten: %q", cfg.BrewFile)
	}
}

func TestLoad_MissingHome(t *testing.T) {
	t.Setenv("HOME", "")

	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "none.yaml")})
	if err == nil || !strings.Contains(err.Error(), "HOME") {
		t.Errorf("Load() error = %v, want HOME error", err)
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	home := t.TempDir()
	cfg, err := Load(LoadOptions{Home: home, ConfigFile: filepath.Join(home, "absent.yaml")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want empty", cfg.ConfigFile)
	}
	if !cfg.Datetime || cfg.Debug {
		t.Error("defaults should be kept")
	}
}

func TestLoad_File(t *testing.T) {
	home := t.TempDir()
	path, _ := filepath.Abs("testdata/full.yaml")

	cfg, err := Load(LoadOptions{Home: home, ConfigFile: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Debug || cfg.Datetime || cfg.ShowHeader || cfg.Color || !cfg.UseLog || !cfg.DryRun {
		t.Errorf("boolean overlay not applied: %+v", cfg)
	}
	if cfg.MaxLogLines != 5000 {
		t.Errorf("MaxLogLines = %d", cfg.MaxLogLines)
	}
	if cfg.LogFile != filepath.Join(home, "logs", "hauler.log") {
		t.Errorf("LogFile = %q, ~ not expanded", cfg.LogFile)
	}
	if cfg.InstallDir != "/opt/bin" || cfg.BrewFile != "/srv/Brewfile" {
		t.Errorf("paths = %q, %q", cfg.InstallDir, cfg.BrewFile)
	}
	if cfg.CrontabTiming() != "30 4 * * 1-5" {
		t.Errorf("CrontabTiming() = %q", cfg.CrontabTiming())
	}
	if !cfg.Plugins.Nvim || cfg.Plugins.Cargo || !cfg.Plugins.Brew {
		t.Errorf("Plugins = %+v", cfg.Plugins)
	}
	if len(cfg.DefaultActionRules()) != 3 || cfg.DefaultActionRules()[1].When != "has_brew && is_darwin" {
		t.Errorf("DefaultActions = %+v", cfg.DefaultActions)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "syntax", content: "debug: [unterminated\n"},
		{name: "unknown key", content: "debugg: true\n"},
		{name: "wrong type", content: "max_log_lines: lots\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			path := filepath.Join(home, "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(LoadOptions{Home: home, ConfigFile: path}); err == nil {
				t.Error("Load() should fail for a malformed file")
			}
		})
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(LoadOptions{Home: home, ConfigFile: path}); err != nil {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(path, []byte("dry_run: false\nmax_log_lines: 10\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("UPDATEHAULER_DRY_RUN", "true")
	t.Setenv("UPDATEHAULER_MAX_LOG_LINES", "250")
	t.Setenv("UPDATEHAULER_SCHEDULE_HOUR", "5")
	t.Setenv("UPDATEHAULER_PLUGINS_NVIM", "yes")
	t.Setenv("UPDATEHAULER_LOGFILE", "~/env.log")

	cfg, err := Load(LoadOptions{Home: home, ConfigFile: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.DryRun {
		t.Error("environment should override the file")
	}
	if cfg.MaxLogLines != 250 {
		t.Errorf("MaxLogLines = %d, want 250", cfg.MaxLogLines)
	}
	if cfg.Schedule.Hour != "5" {
		t.Errorf("Schedule.Hour = %q", cfg.Schedule.Hour)
	}
	if !cfg.Plugins.Nvim {
		t.Error("Plugins.Nvim should be enabled")
	}
	if cfg.LogFile != filepath.Join(home, "env.log") {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
}

func TestLoad_EnvironmentInvalid(t *testing.T) {
	t.Setenv("UPDATEHAULER_DEBUG", "maybe")

	home := t.TempDir()
	_, err := Load(LoadOptions{Home: home, ConfigFile: filepath.Join(home, "absent.yaml")})
	if err == nil || !strings.Contains(err.Error(), "UPDATEHAULER_DEBUG") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_ConfigFileFromEnvironment(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "elsewhere.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("UPDATEHAULER_CONFIG_FILE", path)

	cfg, err := Load(LoadOptions{Home: home})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Debug || cfg.ConfigFile != path {
		t.Errorf("Debug = %v, ConfigFile = %q", cfg.Debug, cfg.ConfigFile)
	}
}

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return fs
}

func TestApplyFlags(t *testing.T) {
	cfg := Default("/home/test")
	cfg.DryRun = false
	cfg.Schedule.Hour = "7"

	fs := newFlagSet(t,
		"--debug",
		"--no-datetime",
		"--header", "--no-header",
		"--logfile-only",
		"--dry-run",
		"--max-log-lines", "42",
		"--logfile", "~/x.log",
		"--sched-minute", "15",
		"--cargo-save-file", "/tmp/cargo.json",
	)
	if err := cfg.ApplyFlags(fs); err != nil {
		t.Fatalf("ApplyFlags() error = %v", err)
	}

	if !cfg.Debug || cfg.Datetime || cfg.ShowHeader || !cfg.UseLog || !cfg.DryRun {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if !cfg.Color {
		t.Error("color should keep its default")
	}
	if cfg.MaxLogLines != 42 || cfg.LogFile != "/home/test/x.log" || cfg.CargoFile != "/tmp/cargo.json" {
		t.Errorf("value flags not applied: %d %q %q", cfg.MaxLogLines, cfg.LogFile, cfg.CargoFile)
	}
	if cfg.Schedule.Minute != "15" || cfg.Schedule.Hour != "7" {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
}

func TestApplyFlags_UnchangedKeepsLowerLayers(t *testing.T) {
	cfg := Default("/home/test")
	cfg.Datetime = false
	cfg.MaxLogLines = 7

	if err := cfg.ApplyFlags(newFlagSet(t)); err != nil {
		t.Fatalf("ApplyFlags() error = %v", err)
	}
	if cfg.Datetime || cfg.MaxLogLines != 7 {
		t.Error("defaults of unset flags must not override lower layers")
	}
}

func TestColorFlagGiven(t *testing.T) {
	if ColorFlagGiven(newFlagSet(t)) {
		t.Error("ColorFlagGiven() = true with no flags")
	}
	if !ColorFlagGiven(newFlagSet(t, "--no-color")) {
		t.Error("ColorFlagGiven() = false with --no-color")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "negative lines", modify: func(c *Config) { c.MaxLogLines = -1 }, field: "max_log_lines"},
		{name: "empty hour", modify: func(c *Config) { c.Schedule.Hour = "" }, field: "schedule.hour"},
		{name: "hour with space", modify: func(c *Config) { c.Schedule.Hour = "2 3" }, field: "schedule.hour"},
		{
			name:   "bad condition",
			modify: func(c *Config) { c.DefaultActions = []DefaultAction{{Action: "brew", When: "has_brew &&"}} },
			field:  "default_actions[0].when",
		},
		{
			name:   "non-bool condition",
			modify: func(c *Config) { c.DefaultActions = []DefaultAction{{Action: "brew", When: "os"}} },
			field:  "default_actions[0].when",
		},
		{
			name:   "unknown variable",
			modify: func(c *Config) { c.DefaultActions = []DefaultAction{{Action: "brew", When: "has_rust"}} },
			field:  "default_actions[0].when",
		},
		{
			name:   "empty action",
			modify: func(c *Config) { c.DefaultActions = []DefaultAction{{Action: " "}} },
			field:  "default_actions[0].action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("/home/test")
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestBuiltinDefaultActions(t *testing.T) {
	var names []string
	for _, rule := range Default("/home/test").DefaultActionRules() {
		names = append(names, rule.Action)
	}
	want := "os brew brew-save cargo cargo-save trim-logfile"
	if strings.Join(names, " ") != want {
		t.Errorf("default actions = %v, want %s", names, want)
	}
}
