package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes for httpspy CLI
const (
	// ExitSuccess indicates all expectations held
	ExitSuccess = 0

	// ExitVerifyFailure indicates one or more expectations failed
	ExitVerifyFailure = 1

	// ExitParseError indicates recordings or expectations could not be read
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// errVerifyFailed is returned when verification ran but expectations failed.
// The report has already been printed.
var errVerifyFailed = errors.New("verification failed")

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitVerifyFailure
}

func usageError(format string, args ...any) error {
	return withExitCode(ExitUsageError, fmt.Errorf(format, args...))
}

// usageArgs reports positional argument errors with ExitUsageError.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return withExitCode(ExitUsageError, validate(cmd, args))
	}
}
