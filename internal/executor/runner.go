// Package executor runs external commands and streams their output into the
// logger line by line.
//
// A Runner spawns one child process at a time. Both output streams are
// captured and drained concurrently, one reader per stream, into a single
// channel consumed by the caller's goroutine, which is the only writer to the
// logger. Lines keep their order within a stream; interleaving between stdout
// and stderr follows whatever order the readers observe.
//
// In dry-run mode nothing is spawned: the runner logs what it would execute,
// annotated with "(DRY-RUN)", and reports success.
package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/franksplace/updatehauler/pkg/output"
)

// DryRunMarker annotates every line produced without executing anything.
const DryRunMarker = "(DRY-RUN)"

// maxLineSize bounds a single forwarded line. Longer lines are forwarded in
// maxLineSize pieces.
const maxLineSize = 1024 * 1024

// Command is one external invocation.
type Command struct {
	// Name is the program to execute.
	Name string

	// Args are the program arguments.
	Args []string

	// Significant marks a non-zero exit as an error. Diagnostic commands
	// that routinely exit non-zero leave it false.
	Significant bool
}

// Cmd builds a significant command.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args, Significant: true}
}

// Diagnostic builds a command whose non-zero exit is not an error.
func Diagnostic(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// String returns the command line as logged.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Tag returns the short name used to prefix output lines. Elevated commands
// are tagged with the inner program rather than the elevation wrapper.
func (c Command) Tag() string {
	if c.Name != "sudo" || len(c.Args) == 0 {
		return c.Name
	}

	args := c.Args
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		args = args[1:]
	}
	if len(args) == 0 {
		return c.Name
	}

	if len(args) >= 3 && isShell(args[0]) && args[1] == "-c" {
		if fields := strings.Fields(args[2]); len(fields) > 0 {
			return fields[0]
		}
	}

	return args[0]
}

func isShell(name string) bool {
	switch name {
	case "sh", "bash", "zsh", "/bin/sh", "/bin/bash", "/bin/zsh":
		return true
	}
	return false
}

// Result is the outcome of one invocation.
type Result struct {
	// ExitCode is the child's exit status; -1 when it was killed by a signal
	// or never started.
	ExitCode int

	// DryRun is true when nothing was executed.
	DryRun bool
}

// Success returns true if the command exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// SpawnError reports a command that could not be started.
type SpawnError struct {
	Command string
	Cause   error
}

// Error implements the error interface.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Cause)
}

// Unwrap returns the underlying error.
func (e *SpawnError) Unwrap() error {
	return e.Cause
}

// Options configures a Runner.
type Options struct {
	// DryRun logs commands instead of executing them.
	DryRun bool

	// ShowHeader adds start/return-code lines and prefixes output with the
	// command tag.
	ShowHeader bool
}

// Runner executes commands and forwards their output to a logger.
type Runner struct {
	logger *output.Logger
	opts   Options
	lookup func(string) (string, error)
}

// NewRunner creates a new runner.
func NewRunner(logger *output.Logger, opts Options) *Runner {
	return &Runner{
		logger: logger,
		opts:   opts,
		lookup: exec.LookPath,
	}
}

// DryRun reports whether the runner is in dry-run mode.
func (r *Runner) DryRun() bool {
	return r.opts.DryRun
}

// Logger returns the logger the runner writes to.
func (r *Runner) Logger() *output.Logger {
	return r.logger
}

// Run executes cmd and streams its output. A command that cannot be started
// is returned as a *SpawnError after nothing but the start line was logged.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	line := cmd.String()

	if r.opts.DryRun {
		if r.opts.ShowHeader {
			r.logger.Infof("%s → Start %s", line, DryRunMarker)
		}
		r.logger.Infof("Would execute: %s %s", line, DryRunMarker)
		if r.opts.ShowHeader {
			r.logger.Infof("%s → Return code 0 %s", line, DryRunMarker)
		}
		return &Result{ExitCode: 0, DryRun: true}, nil
	}

	if r.opts.ShowHeader {
		r.logger.Infof("%s → Start", line)
	}

	child := exec.CommandContext(ctx, cmd.Name, cmd.Args...)

	stdout, err := child.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Command: line, Cause: err}
	}
	stderr, err := child.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Command: line, Cause: err}
	}

	if err := child.Start(); err != nil {
		return nil, &SpawnError{Command: line, Cause: err}
	}

	lines := make(chan string)
	var group errgroup.Group
	group.Go(func() error { return pump(stdout, lines) })
	group.Go(func() error { return pump(stderr, lines) })

	var readErr error
	go func() {
		readErr = group.Wait()
		close(lines)
	}()

	tag := cmd.Tag()
	for received := range lines {
		if received == "" {
			continue
		}
		if r.opts.ShowHeader {
			received = tag + " → " + received
		}
		r.logger.Info(received)
	}

	// lines is closed only after group.Wait returned, so readErr is settled.
	if readErr != nil {
		r.logger.Errorf("%s → output read error: %v", line, readErr)
	}

	exitCode := 0
	if err := child.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed waiting for %s: %w", line, err)
		}
		exitCode = exitErr.ExitCode()
	}

	status := fmt.Sprintf("%s → Return code %d", line, exitCode)
	switch {
	case cmd.Significant && exitCode != 0:
		r.logger.Error(status)
	case r.opts.ShowHeader:
		r.logger.Info(status)
	}

	return &Result{ExitCode: exitCode}, nil
}

// Exec runs cmd and converts a spawn failure into a logged error, so callers
// can carry on with their next step. The returned result is never nil.
func (r *Runner) Exec(ctx context.Context, cmd Command) *Result {
	result, err := r.Run(ctx, cmd)
	if err != nil {
		if cmd.Significant {
			r.logger.Errorf("%s → Error: %v", cmd.String(), unwrapSpawn(err))
		} else {
			r.logger.Infof("%s → Error: %v", cmd.String(), unwrapSpawn(err))
		}
		return &Result{ExitCode: -1}
	}
	return result
}

// Probe silently checks whether cmd runs successfully, discarding its output.
// In dry-run mode the probe only checks that the program is on PATH.
func (r *Runner) Probe(ctx context.Context, cmd Command) bool {
	if _, err := r.lookup(cmd.Name); err != nil {
		return false
	}
	if r.opts.DryRun {
		return true
	}
	probe := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	probe.Stdout = io.Discard
	probe.Stderr = io.Discard
	return probe.Run() == nil
}

// pump forwards each line read from src until EOF. Invalid UTF-8 is replaced
// rather than dropped.
func pump(src io.Reader, dst chan<- string) error {
	reader := bufio.NewReaderSize(src, 64*1024)
	var line []byte
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			if len(line) > 0 {
				dst <- cleanLine(line)
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			// Keep draining so the child never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, reader)
			return err
		}
		line = append(line, chunk...)
		if isPrefix && len(line) < maxLineSize {
			continue
		}
		dst <- cleanLine(line)
		line = line[:0]
	}
}

func cleanLine(b []byte) string {
	return strings.ToValidUTF8(strings.TrimRight(string(b), "\r"), "�")
}

func unwrapSpawn(err error) error {
	var spawnErr *SpawnError
	if errors.As(err, &spawnErr) {
		return spawnErr.Cause
	}
	return err
}
