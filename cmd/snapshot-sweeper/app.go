package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"snapshot-sweeper/internal/cleanup"
	"snapshot-sweeper/internal/config"
	"snapshot-sweeper/internal/exitcodes"
	"snapshot-sweeper/internal/safety"
	"snapshot-sweeper/internal/zfs"
)

// app carries the process streams and the seams tests replace.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	newClient func() zfs.Client
	now       func() time.Time
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		newClient: func() zfs.Client { return zfs.NewCommandClient() },
		now:       time.Now,
	}
}

// execute runs the command line and returns the process exit code.
func (a *app) execute(args []string) int {
	root := a.newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return exitcodes.Success
	}
	var violation *safety.Violation
	switch {
	case errors.Is(err, config.ErrConfiguration):
		return exitcodes.InvalidConfig
	case errors.As(err, &violation):
		return exitcodes.SafetyViolation
	case cleanup.IsDeletionFailure(err):
		return exitcodes.DeletionFailed
	default:
		return exitcodes.RuntimeError
	}
}
