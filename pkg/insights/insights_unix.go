//go:build linux || darwin

package insights

import "golang.org/x/sys/unix"

func kernelMachine() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}

func effectiveUID() int {
	return unix.Geteuid()
}
