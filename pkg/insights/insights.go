// Package insights detects the host facts updatehauler decides its work on:
// operating system, architecture, privilege, the native package manager and
// which optional tools are installed.
package insights

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Insights is an immutable snapshot of the host, detected once per process.
type Insights struct {
	// IsRoot is true when running with effective uid 0.
	IsRoot bool

	// Arch is the kernel machine name (x86_64, aarch64, armv7l).
	Arch string

	// Plat is the Go architecture the binary was built for.
	Plat string

	// OS is "linux" or "macos"; other systems keep the Go name.
	OS string

	IsLinux  bool
	IsDarwin bool

	// SArch is the short architecture used in release artifact names
	// (amd64, arm64, armv7).
	SArch string

	// LinuxFullID holds the ID and ID_LIKE values from /etc/*-release,
	// space separated.
	LinuxFullID string

	// PkgMgr is the native package manager, empty when unknown.
	PkgMgr string

	HasBrew  bool
	HasCargo bool
	HasMas   bool
	HasNvim  bool

	// AppAbsPath is the resolved path of the running executable.
	AppAbsPath string
}

// Probe supplies the host lookups Detect depends on.
type Probe struct {
	// GOOS overrides runtime.GOOS.
	GOOS string

	// Machine returns the kernel machine name.
	Machine func() (string, error)

	// EUID returns the effective user id.
	EUID func() int

	// LookPath reports where a program is installed.
	LookPath func(string) (string, error)

	// ReleaseGlob matches the os-release style files.
	ReleaseGlob string

	// Executable returns the path of the running binary.
	Executable func() (string, error)
}

// DefaultProbe returns a probe backed by the real host.
func DefaultProbe() Probe {
	return Probe{
		GOOS:        runtime.GOOS,
		Machine:     kernelMachine,
		EUID:        effectiveUID,
		LookPath:    exec.LookPath,
		ReleaseGlob: "/etc/*-release",
		Executable:  os.Executable,
	}
}

// Detect inspects the running host.
func Detect() (*Insights, error) {
	return DetectWith(DefaultProbe())
}

// DetectWith inspects the host through the given probe.
func DetectWith(p Probe) (*Insights, error) {
	in := &Insights{
		Plat: runtime.GOARCH,
		OS:   OSName(p.GOOS),
	}
	in.IsLinux = in.OS == "linux"
	in.IsDarwin = in.OS == "macos"
	in.IsRoot = p.EUID() == 0

	machine, err := p.Machine()
	if err != nil || machine == "" {
		machine = MachineFromGOARCH(runtime.GOARCH)
	}
	in.Arch = NormalizeMachine(machine)
	in.SArch = ShortArch(in.Arch)

	if in.IsLinux {
		ids, err := readReleaseIDs(p.ReleaseGlob)
		if err != nil {
			return nil, fmt.Errorf("failed to read release files: %w", err)
		}
		in.LinuxFullID = strings.Join(ids, " ")
		in.PkgMgr = PackageManagerFor(ids)
	}

	has := func(name string) bool {
		_, err := p.LookPath(name)
		return err == nil
	}
	in.HasBrew = has("brew")
	in.HasCargo = has("cargo")
	in.HasMas = has("mas")
	in.HasNvim = has("nvim")

	exe, err := p.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	in.AppAbsPath = exe

	return in, nil
}

// OSName maps a Go GOOS value to the name used in save file names.
func OSName(goos string) string {
	if goos == "darwin" {
		return "macos"
	}
	return goos
}

// NormalizeMachine folds the aliases kernels report for the same hardware.
func NormalizeMachine(machine string) string {
	switch machine {
	case "arm64":
		return "aarch64"
	case "amd64":
		return "x86_64"
	case "arm", "armv7":
		return "armv7l"
	default:
		return machine
	}
}

// MachineFromGOARCH guesses the kernel machine name from a Go architecture.
func MachineFromGOARCH(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "arm":
		return "armv7l"
	default:
		return goarch
	}
}

// ShortArch returns the artifact architecture for a machine name.
func ShortArch(machine string) string {
	switch machine {
	case "aarch64":
		return "arm64"
	case "armv7l":
		return "armv7"
	default:
		return "amd64"
	}
}

var pkgMgrByID = []struct {
	ids    []string
	pkgMgr string
}{
	{ids: []string{"debian", "ubuntu"}, pkgMgr: "apt-get"},
	{ids: []string{"centos", "redhat", "rhel", "rocky", "fedora", "ol"}, pkgMgr: "dnf"},
	{ids: []string{"alpine"}, pkgMgr: "apk"},
	{ids: []string{"nixos"}, pkgMgr: "nix-env"},
	{ids: []string{"arch"}, pkgMgr: "pacman"},
}

// PackageManagerFor maps release ids to a package manager. Ids are matched as
// whole tokens, in table order, so "ubuntu debian" resolves to apt-get.
func PackageManagerFor(ids []string) string {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[strings.ToLower(id)] = true
	}
	for _, entry := range pkgMgrByID {
		for _, id := range entry.ids {
			if seen[id] {
				return entry.pkgMgr
			}
		}
	}
	return ""
}

func readReleaseIDs(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, nil
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		ids = append(ids, parseReleaseIDs(f)...)
		f.Close()
	}
	return ids, nil
}

// parseReleaseIDs extracts the values of ID= and ID_LIKE= lines. ID_LIKE may
// carry several space separated ids.
func parseReleaseIDs(r io.Reader) []string {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok || (key != "ID" && key != "ID_LIKE") {
			continue
		}
		value = strings.Trim(value, `"'`)
		ids = append(ids, strings.Fields(value)...)
	}
	return ids
}

// ExprEnv exposes the snapshot to default-action conditions.
func (in *Insights) ExprEnv() map[string]any {
	return map[string]any{
		"os":        in.OS,
		"arch":      in.Arch,
		"s_arch":    in.SArch,
		"pkg_mgr":   in.PkgMgr,
		"is_root":   in.IsRoot,
		"is_linux":  in.IsLinux,
		"is_darwin": in.IsDarwin,
		"has_brew":  in.HasBrew,
		"has_cargo": in.HasCargo,
		"has_mas":   in.HasMas,
		"has_nvim":  in.HasNvim,
	}
}
