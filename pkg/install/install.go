// Package install copies the running updatehauler binary into the install
// directory, removes it again, and writes shell completion scripts.
package install

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/franksplace/updatehauler/pkg/config"
)

// Installer manages the installed copy of the binary.
type Installer struct {
	installDir string
	appName    string
	source     string
	dryRun     bool
	out        io.Writer
}

// NewInstaller creates an installer that copies source into the configured
// install directory.
func NewInstaller(cfg *config.Config, source string) *Installer {
	return &Installer{
		installDir: cfg.InstallDir,
		appName:    cfg.AppName,
		source:     source,
		dryRun:     cfg.DryRun,
		out:        os.Stdout,
	}
}

// WithOutput redirects status messages.
func (i *Installer) WithOutput(w io.Writer) *Installer {
	i.out = w
	return i
}

// Target is the installed binary path.
func (i *Installer) Target() string {
	return filepath.Join(i.installDir, i.appName)
}

// Install copies the binary unless an identical copy is already installed.
func (i *Installer) Install() error {
	return i.copyBinary("Installing", "installed")
}

// Update is Install with update wording.
func (i *Installer) Update() error {
	return i.copyBinary("Updating", "updated")
}

// Remove deletes the installed binary if present.
func (i *Installer) Remove() error {
	target := i.Target()
	if _, err := os.Stat(target); os.IsNotExist(err) {
		i.info("%s is not installed", target)
		return nil
	}

	i.info("Removing %s", target)
	if i.dryRun {
		return nil
	}
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("failed to remove %s: %w", target, err)
	}
	i.success("Successfully removed %s", i.appName)
	return nil
}

func (i *Installer) copyBinary(verb, done string) error {
	target := i.Target()

	same, err := sameContent(i.source, target)
	if err != nil {
		return err
	}
	if same {
		i.info("%s is already installed and up to date", target)
		return nil
	}

	i.info("%s %s", verb, target)
	if i.dryRun {
		return nil
	}

	if err := os.MkdirAll(i.installDir, 0755); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}
	if err := replaceFile(i.source, target); err != nil {
		return err
	}
	i.success("Successfully %s %s", done, i.appName)
	return nil
}

// replaceFile copies src next to dst and renames it into place.
func replaceFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	tmp := dst + ".new"
	if err := os.WriteFile(tmp, data, 0755); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	// WriteFile keeps the mode of an existing leftover file.
	if err := os.Chmod(tmp, 0755); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

// sameContent reports whether dst exists with exactly the bytes of src.
func sameContent(src, dst string) (bool, error) {
	installed, err := os.ReadFile(dst)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", dst, err)
	}

	current, err := os.ReadFile(src)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", src, err)
	}
	return bytes.Equal(current, installed), nil
}

func (i *Installer) info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if i.dryRun {
		msg += " (DRY-RUN)"
	}
	pterm.Info.WithWriter(i.out).Println(msg)
}

func (i *Installer) success(format string, args ...any) {
	pterm.Success.WithWriter(i.out).Printfln(format, args...)
}

// Shells lists the shells completions can be generated for.
var Shells = []string{"bash", "zsh", "fish"}

// CompletionPath is where the completion script for shell is written.
func (i *Installer) CompletionPath(shell string) string {
	return filepath.Join(i.installDir, "completions", shell, i.appName+"."+shell)
}

// InstallCompletions writes the completion scripts of root for each shell.
// No shells means all of them.
func (i *Installer) InstallCompletions(root *cobra.Command, shells []string) error {
	if len(shells) == 0 {
		shells = Shells
	}

	for _, shell := range shells {
		var buf bytes.Buffer
		var err error
		switch shell {
		case "bash":
			err = root.GenBashCompletionV2(&buf, true)
		case "zsh":
			err = root.GenZshCompletion(&buf)
		case "fish":
			err = root.GenFishCompletion(&buf, true)
		default:
			pterm.Warning.WithWriter(i.out).Printfln("Unsupported shell: %s. Supported: bash, zsh, fish", shell)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to generate %s completion: %w", shell, err)
		}

		path := i.CompletionPath(shell)
		i.info("Installing %s completions to %s", shell, path)
		if i.dryRun {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create completion directory: %w", err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write %s completion: %w", shell, err)
		}
		i.success("Installed %s completions to %s", shell, path)
		i.info("%s", sourceHint(shell, path))
	}
	return nil
}

func sourceHint(shell, path string) string {
	switch shell {
	case "bash":
		return "Add to ~/.bashrc: source " + path
	case "zsh":
		return "Add to ~/.zshrc: fpath=(" + filepath.Dir(path) + " $fpath)"
	default:
		return "Copy to ~/.config/fish/completions/ or source " + path
	}
}
