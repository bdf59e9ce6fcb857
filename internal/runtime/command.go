package runtime

import (
	"context"
	"strings"

	"github.com/franksplace/updatehauler/internal/executor"
)

// RunCommand runs an arbitrary command through the runner and returns its
// exit code. A single argument is split on whitespace; otherwise the first
// argument is the program.
func (rt *Runtime) RunCommand(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 1 {
		argv = strings.Fields(argv[0])
	}
	if len(argv) == 0 {
		return 0, nil
	}

	result, err := rt.runner.Run(ctx, executor.Diagnostic(argv[0], argv[1:]...))
	if err != nil {
		return 1, err
	}
	return result.ExitCode, nil
}
