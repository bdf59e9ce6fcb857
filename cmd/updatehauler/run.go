package main

import (
	"strconv"
	"strings"
)

const flagRun = "run"

// splitRun separates --run and everything after it from the rest of args.
// The command keeps its own flags, so it cannot go through flag parsing.
func splitRun(args []string) (rest, command []string, found bool) {
	for i, arg := range args {
		if arg == "--" {
			return args, nil, false
		}
		if arg == "--"+flagRun {
			return args[:i:i], args[i+1:], true
		}
		if value, ok := strings.CutPrefix(arg, "--"+flagRun+"="); ok {
			command = append([]string{value}, args[i+1:]...)
			return args[:i:i], command, true
		}
	}
	return args, nil, false
}

// exitError ends the process with code after the message, if any, was
// already printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return "exit status " + strconv.Itoa(e.code)
}
