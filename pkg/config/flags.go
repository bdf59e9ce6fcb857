package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flag names shared by RegisterFlags and ApplyFlags.
const (
	FlagDebug           = "debug"
	FlagDatetime        = "datetime"
	FlagHeader          = "header"
	FlagColor           = "color"
	FlagLogfileOnly     = "logfile-only"
	FlagDryRun          = "dry-run"
	FlagLogfile         = "logfile"
	FlagMaxLogLines     = "max-log-lines"
	FlagInstallDir      = "installdir"
	FlagBrewSaveFile    = "brew-save-file"
	FlagCargoSaveFile   = "cargo-save-file"
	FlagSchedMinute     = "sched-minute"
	FlagSchedHour       = "sched-hour"
	FlagSchedDayOfMonth = "sched-day-of-month"
	FlagSchedMonth      = "sched-month"
	FlagSchedDayOfWeek  = "sched-day-of-week"
	FlagConfigFile      = "config-file"
)

// pairedFlags get a --no-<name> twin; the negative form wins when both are given.
var pairedFlags = []struct {
	name     string
	enable   string
	disable  string
	defValue bool
}{
	{name: FlagDebug, enable: "Enable debug output", disable: "Disable debug output (default)"},
	{name: FlagDatetime, enable: "Enable ISO8601 with microseconds (default)", disable: "Disable ISO8601 with microseconds", defValue: true},
	{name: FlagHeader, enable: "Enable header output (default)", disable: "Disable header output", defValue: true},
	{name: FlagColor, enable: "Enable color output (default)", disable: "Disable color output", defValue: true},
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, p := range pairedFlags {
		fs.Bool(p.name, p.defValue, p.enable)
		fs.Bool("no-"+p.name, false, p.disable)
	}

	fs.Bool(FlagLogfileOnly, false, "Enable output to only logfile")
	fs.Bool(FlagDryRun, false, "Dry-run mode - show what would be done without making changes")
	fs.String(FlagLogfile, "", "Logfile to use (default: ~/.local/updates.log)")
	fs.Int(FlagMaxLogLines, 0, "Max lines for logfile (default: 10000)")
	fs.String(FlagInstallDir, "", "Location to install this binary (default: ~/.local/bin)")
	fs.String(FlagBrewSaveFile, "", "Brew save file location (default: ~/.config/brew/{os}-Brewfile)")
	fs.String(FlagCargoSaveFile, "", "Cargo save file location (default: ~/.config/cargo/{os}-{arch}-cargo-backup.json)")
	fs.String(FlagSchedMinute, "", "Schedule minute (default: 0)")
	fs.String(FlagSchedHour, "", "Schedule hour (default: 2)")
	fs.String(FlagSchedDayOfMonth, "", "Schedule day of month (default: *)")
	fs.String(FlagSchedMonth, "", "Schedule month (default: *)")
	fs.String(FlagSchedDayOfWeek, "", "Schedule day of week (default: *)")
	fs.String(FlagConfigFile, "", "Config file (default: $XDG_CONFIG_HOME/updatehauler/config.yaml)")
}

// ApplyFlags overlays the flags the user actually passed.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	for _, p := range pairedFlags {
		dst := c.pairedField(p.name)
		if fs.Changed(p.name) {
			v, err := fs.GetBool(p.name)
			if err != nil {
				return err
			}
			*dst = v
		}
		if fs.Changed("no-" + p.name) {
			v, err := fs.GetBool("no-" + p.name)
			if err != nil {
				return err
			}
			if v {
				*dst = false
			}
		}
	}

	if fs.Changed(FlagLogfileOnly) {
		v, err := fs.GetBool(FlagLogfileOnly)
		if err != nil {
			return err
		}
		c.UseLog = v
	}
	if fs.Changed(FlagDryRun) {
		v, err := fs.GetBool(FlagDryRun)
		if err != nil {
			return err
		}
		c.DryRun = v
	}
	if fs.Changed(FlagMaxLogLines) {
		v, err := fs.GetInt(FlagMaxLogLines)
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("--%s must not be negative", FlagMaxLogLines)
		}
		c.MaxLogLines = v
	}

	paths := []struct {
		flag string
		dst  *string
	}{
		{FlagLogfile, &c.LogFile},
		{FlagInstallDir, &c.InstallDir},
		{FlagBrewSaveFile, &c.BrewFile},
		{FlagCargoSaveFile, &c.CargoFile},
	}
	for _, p := range paths {
		if !fs.Changed(p.flag) {
			continue
		}
		v, err := fs.GetString(p.flag)
		if err != nil {
			return err
		}
		*p.dst = expandHome(v, c.Home)
	}

	sched := []struct {
		flag string
		dst  *string
	}{
		{FlagSchedMinute, &c.Schedule.Minute},
		{FlagSchedHour, &c.Schedule.Hour},
		{FlagSchedDayOfMonth, &c.Schedule.DayOfMonth},
		{FlagSchedMonth, &c.Schedule.Month},
		{FlagSchedDayOfWeek, &c.Schedule.DayOfWeek},
	}
	for _, s := range sched {
		if !fs.Changed(s.flag) {
			continue
		}
		v, err := fs.GetString(s.flag)
		if err != nil {
			return err
		}
		*s.dst = v
	}

	return nil
}

// ColorFlagGiven reports whether the user chose color explicitly.
func ColorFlagGiven(fs *pflag.FlagSet) bool {
	return fs.Changed(FlagColor) || fs.Changed("no-"+FlagColor)
}

func (c *Config) pairedField(name string) *bool {
	switch name {
	case FlagDebug:
		return &c.Debug
	case FlagDatetime:
		return &c.Datetime
	case FlagHeader:
		return &c.ShowHeader
	default:
		return &c.Color
	}
}
