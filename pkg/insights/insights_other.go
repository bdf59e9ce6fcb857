//go:build !linux && !darwin

package insights

import (
	"os"
	"runtime"
)

func kernelMachine() (string, error) {
	return MachineFromGOARCH(runtime.GOARCH), nil
}

func effectiveUID() int {
	return os.Geteuid()
}
