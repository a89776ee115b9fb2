package cli

import (
	"errors"
	"fmt"
)

// Process exit statuses.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitFailure = 2
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error in %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// CheckFailedError reports that a command ran but the thing it checked did
// not pass, such as a broken audit chain.
type CheckFailedError struct {
	What string
}

func (e *CheckFailedError) Error() string {
	return e.What + " check failed"
}

// NewConfigError creates a new ConfigError.
func NewConfigError(path string, err error) *ConfigError {
	return &ConfigError{Path: path, Err: err}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode returns the process exit status for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var failed *CheckFailedError
	if errors.As(err, &failed) {
		return ExitFailure
	}
	return ExitError
}
