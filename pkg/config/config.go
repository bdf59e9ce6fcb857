// Package config builds the read-only configuration snapshot for a run.
//
// Values are layered, lowest priority first: built-in defaults, the YAML
// config file, UPDATEHAULER_* environment variables, then command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/franksplace/updatehauler/pkg/output"
)

// AppName is the binary and config directory name.
const AppName = "updatehauler"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "UPDATEHAULER"

// Schedule holds the five crontab timing fields.
type Schedule struct {
	Minute     string `yaml:"minute"`
	Hour       string `yaml:"hour"`
	DayOfMonth string `yaml:"day_of_month"`
	Month      string `yaml:"month"`
	DayOfWeek  string `yaml:"day_of_week"`
}

// Plugins toggles which plugins get registered.
type Plugins struct {
	Brew  bool `yaml:"brew"`
	Cargo bool `yaml:"cargo"`
	Nvim  bool `yaml:"nvim"`
	OS    bool `yaml:"os"`
}

// Enabled reports whether the named plugin is switched on. Unknown names are
// enabled.
func (p Plugins) Enabled(name string) bool {
	switch name {
	case "brew":
		return p.Brew
	case "cargo":
		return p.Cargo
	case "nvim":
		return p.Nvim
	case "os":
		return p.OS
	default:
		return true
	}
}

// DefaultAction is one entry of the action list used when none are given on
// the command line. An empty When always applies.
type DefaultAction struct {
	Action string `yaml:"action"`
	When   string `yaml:"when,omitempty"`
}

// Config is the configuration snapshot. It is built once at startup and only
// read afterwards.
type Config struct {
	AppName string
	Home    string

	InstallDir   string
	BrewSaveDir  string
	CargoSaveDir string
	LogSaveDir   string

	LogFile     string
	MaxLogLines int

	BrewFile  string
	CargoFile string

	Schedule Schedule

	Debug      bool
	Datetime   bool
	ShowHeader bool
	Color      bool
	UseLog     bool
	DryRun     bool

	Plugins        Plugins
	DefaultActions []DefaultAction

	// ConfigFile is the file that was loaded, empty when none existed.
	ConfigFile string
}

// Default returns the built-in configuration for the given home directory.
func Default(home string) *Config {
	return &Config{
		AppName:      AppName,
		Home:         home,
		InstallDir:   filepath.Join(home, ".local", "bin"),
		BrewSaveDir:  filepath.Join(home, ".config", "brew"),
		CargoSaveDir: filepath.Join(home, ".config", "cargo"),
		LogSaveDir:   filepath.Join(home, ".local"),
		LogFile:      filepath.Join(home, ".local", "updates.log"),
		MaxLogLines:  10000,
		Schedule: Schedule{
			Minute:     "0",
			Hour:       "2",
			DayOfMonth: "*",
			Month:      "*",
			DayOfWeek:  "*",
		},
		Datetime:   true,
		ShowHeader: true,
		Color:      true,
		Plugins: Plugins{
			Brew:  true,
			Cargo: true,
			Nvim:  false,
			OS:    true,
		},
	}
}

// LoadOptions controls where Load looks for its inputs.
type LoadOptions struct {
	// Home overrides $HOME.
	Home string

	// ConfigFile is an explicit config file path. An explicit path that does
	// not exist is not an error.
	ConfigFile string
}

// Load builds a configuration from defaults, the config file and the
// environment. Flags are applied separately with ApplyFlags.
func Load(opts LoadOptions) (*Config, error) {
	home := opts.Home
	if home == "" {
		home = os.Getenv("HOME")
	}
	if home == "" {
		return nil, fmt.Errorf("HOME environment variable not set")
	}

	cfg := Default(home)
	env := newEnvOverlay()

	path := opts.ConfigFile
	if path == "" {
		path = env.configFile()
	}
	if path == "" {
		path = cfg.findConfigFile()
	}

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.apply(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return cfg, nil
}

// ConfigPaths returns the locations searched for config.yaml, in order.
func ConfigPaths(home string) []string {
	paths := []string{filepath.Join(xdg.ConfigHome, AppName, "config.yaml")}
	legacy := filepath.Join(home, ".config", AppName, "config.yaml")
	if legacy != paths[0] {
		paths = append(paths, legacy)
	}
	return paths
}

func (c *Config) findConfigFile() string {
	for _, path := range ConfigPaths(c.Home) {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ResolveSaveFiles fills in the default brew and cargo save files for the
// detected platform. Paths already set are kept.
func (c *Config) ResolveSaveFiles(osName, arch string) {
	if c.BrewFile == "" {
		c.BrewFile = filepath.Join(c.BrewSaveDir, osName+"-Brewfile")
	}
	if c.CargoFile == "" {
		c.CargoFile = filepath.Join(c.CargoSaveDir, fmt.Sprintf("%s-%s-cargo-backup.json", osName, arch))
	}
}

// LoggerOptions returns the logger settings for this configuration.
func (c *Config) LoggerOptions() output.Options {
	return output.Options{
		Datetime: c.Datetime,
		Color:    c.Color,
		Debug:    c.Debug,
		UseLog:   c.UseLog,
		LogFile:  c.LogFile,
	}
}

// AppPath is where the installed binary lives.
func (c *Config) AppPath() string {
	return filepath.Join(c.InstallDir, c.AppName)
}

// CrontabTiming returns the five schedule fields in crontab order.
func (c *Config) CrontabTiming() string {
	s := c.Schedule
	return strings.Join([]string{s.Minute, s.Hour, s.DayOfMonth, s.Month, s.DayOfWeek}, " ")
}

// CrontabEntry returns the crontab line that runs appPath on schedule.
func (c *Config) CrontabEntry(appPath string) string {
	return fmt.Sprintf("PATH=%s; %s %q --logfile-only 2>&1", c.SchedulerPath(os.Getenv("PATH")), c.CrontabTiming(), appPath)
}

var schedulerBasePath = []string{
	"/usr/local/bin",
	"/usr/local/sbin",
	"/opt/homebrew/bin",
	"/opt/homebrew/sbin",
	"/usr/bin",
	"/usr/sbin",
	"/bin",
	"/sbin",
}

// SchedulerPath returns the PATH scheduled runs use: the common system and
// Homebrew locations, ~/.cargo/bin, then any extra entries of current.
func (c *Config) SchedulerPath(current string) string {
	parts := append([]string{}, schedulerBasePath...)
	if c.Home != "" {
		parts = append(parts, filepath.Join(c.Home, ".cargo", "bin"))
	}

	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		seen[p] = true
	}
	for _, p := range strings.Split(current, string(os.PathListSeparator)) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		parts = append(parts, p)
	}

	return strings.Join(parts, string(os.PathListSeparator))
}

// DefaultActionRules returns the configured default actions, or the built-in
// list when the config file sets none.
func (c *Config) DefaultActionRules() []DefaultAction {
	if len(c.DefaultActions) > 0 {
		return c.DefaultActions
	}
	return BuiltinDefaultActions()
}

// BuiltinDefaultActions is the action list used when nothing is configured.
func BuiltinDefaultActions() []DefaultAction {
	return []DefaultAction{
		{Action: "os"},
		{Action: "brew", When: "has_brew"},
		{Action: "brew-save", When: "has_brew"},
		{Action: "cargo", When: "has_cargo"},
		{Action: "cargo-save", When: "has_cargo"},
		{Action: "trim-logfile"},
	}
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
