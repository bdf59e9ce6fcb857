package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// File is the on-disk config.yaml layout. Absent keys leave the lower layer
// untouched.
type File struct {
	Debug          *bool           `yaml:"debug,omitempty"`
	Datetime       *bool           `yaml:"datetime,omitempty"`
	ShowHeader     *bool           `yaml:"show_header,omitempty"`
	Color          *bool           `yaml:"color,omitempty"`
	UseLog         *bool           `yaml:"use_log,omitempty"`
	DryRun         *bool           `yaml:"dry_run,omitempty"`
	MaxLogLines    *int            `yaml:"max_log_lines,omitempty"`
	LogFile        *string         `yaml:"logfile,omitempty"`
	InstallDir     *string         `yaml:"installdir,omitempty"`
	BrewSaveFile   *string         `yaml:"brew_save_file,omitempty"`
	CargoSaveFile  *string         `yaml:"cargo_save_file,omitempty"`
	Schedule       *FileSchedule   `yaml:"schedule,omitempty"`
	Plugins        *FilePlugins    `yaml:"plugins,omitempty"`
	DefaultActions []DefaultAction `yaml:"default_actions,omitempty"`
}

// FileSchedule is the schedule section of config.yaml.
type FileSchedule struct {
	Minute     *string `yaml:"minute,omitempty"`
	Hour       *string `yaml:"hour,omitempty"`
	DayOfMonth *string `yaml:"day_of_month,omitempty"`
	Month      *string `yaml:"month,omitempty"`
	DayOfWeek  *string `yaml:"day_of_week,omitempty"`
}

// FilePlugins is the plugins section of config.yaml.
type FilePlugins struct {
	Brew  *bool `yaml:"brew,omitempty"`
	Cargo *bool `yaml:"cargo,omitempty"`
	Nvim  *bool `yaml:"nvim,omitempty"`
	OS    *bool `yaml:"os,omitempty"`
}

// ParseFile decodes config.yaml content. Unknown keys are rejected.
func ParseFile(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		// An empty file decodes to io.EOF.
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, err
	}
	return &f, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	f, err := ParseFile(data)
	if err != nil {
		return fmt.Errorf("failed to parse YAML configuration %s: %w", path, err)
	}

	c.Merge(f)
	c.ConfigFile = path
	return nil
}

// Merge overlays the values set in f.
func (c *Config) Merge(f *File) {
	setBool(&c.Debug, f.Debug)
	setBool(&c.Datetime, f.Datetime)
	setBool(&c.ShowHeader, f.ShowHeader)
	setBool(&c.Color, f.Color)
	setBool(&c.UseLog, f.UseLog)
	setBool(&c.DryRun, f.DryRun)
	if f.MaxLogLines != nil {
		c.MaxLogLines = *f.MaxLogLines
	}
	c.setPath(&c.LogFile, f.LogFile)
	c.setPath(&c.InstallDir, f.InstallDir)
	c.setPath(&c.BrewFile, f.BrewSaveFile)
	c.setPath(&c.CargoFile, f.CargoSaveFile)

	if s := f.Schedule; s != nil {
		setString(&c.Schedule.Minute, s.Minute)
		setString(&c.Schedule.Hour, s.Hour)
		setString(&c.Schedule.DayOfMonth, s.DayOfMonth)
		setString(&c.Schedule.Month, s.Month)
		setString(&c.Schedule.DayOfWeek, s.DayOfWeek)
	}

	if p := f.Plugins; p != nil {
		setBool(&c.Plugins.Brew, p.Brew)
		setBool(&c.Plugins.Cargo, p.Cargo)
		setBool(&c.Plugins.Nvim, p.Nvim)
		setBool(&c.Plugins.OS, p.OS)
	}

	if len(f.DefaultActions) > 0 {
		c.DefaultActions = append([]DefaultAction(nil), f.DefaultActions...)
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func (c *Config) setPath(dst *string, src *string) {
	if src != nil {
		*dst = expandHome(*src, c.Home)
	}
}

// envKeys maps viper keys to the config fields they override. The environment
// variable is UPDATEHAULER_ followed by the upper-cased key with dots replaced
// by underscores, e.g. UPDATEHAULER_SCHEDULE_HOUR.
var envKeys = []string{
	"config_file",
	"debug",
	"datetime",
	"show_header",
	"color",
	"use_log",
	"dry_run",
	"max_log_lines",
	"logfile",
	"installdir",
	"brew_save_file",
	"cargo_save_file",
	"schedule.minute",
	"schedule.hour",
	"schedule.day_of_month",
	"schedule.month",
	"schedule.day_of_week",
	"plugins.brew",
	"plugins.cargo",
	"plugins.nvim",
	"plugins.os",
}

type envOverlay struct {
	v *viper.Viper
}

func newEnvOverlay() *envOverlay {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return &envOverlay{v: v}
}

func (e *envOverlay) configFile() string {
	return e.v.GetString("config_file")
}

func (e *envOverlay) apply(c *Config) error {
	v := e.v

	bools := map[string]*bool{
		"debug":         &c.Debug,
		"datetime":      &c.Datetime,
		"show_header":   &c.ShowHeader,
		"color":         &c.Color,
		"use_log":       &c.UseLog,
		"dry_run":       &c.DryRun,
		"plugins.brew":  &c.Plugins.Brew,
		"plugins.cargo": &c.Plugins.Cargo,
		"plugins.nvim":  &c.Plugins.Nvim,
		"plugins.os":    &c.Plugins.OS,
	}
	for key, dst := range bools {
		if !v.IsSet(key) {
			continue
		}
		parsed, err := parseBool(v.GetString(key))
		if err != nil {
			return fmt.Errorf("%s: %w", envName(key), err)
		}
		*dst = parsed
	}

	if v.IsSet("max_log_lines") {
		n, err := parseCount(v.GetString("max_log_lines"))
		if err != nil {
			return fmt.Errorf("%s: %w", envName("max_log_lines"), err)
		}
		c.MaxLogLines = n
	}

	paths := map[string]*string{
		"logfile":         &c.LogFile,
		"installdir":      &c.InstallDir,
		"brew_save_file":  &c.BrewFile,
		"cargo_save_file": &c.CargoFile,
	}
	for key, dst := range paths {
		if v.IsSet(key) {
			*dst = expandHome(v.GetString(key), c.Home)
		}
	}

	strs := map[string]*string{
		"schedule.minute":       &c.Schedule.Minute,
		"schedule.hour":         &c.Schedule.Hour,
		"schedule.day_of_month": &c.Schedule.DayOfMonth,
		"schedule.month":        &c.Schedule.Month,
		"schedule.day_of_week":  &c.Schedule.DayOfWeek,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	return nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}
