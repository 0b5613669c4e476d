package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (state could not be persisted, watcher died)
	ExitCommandError = 2 // Command error (bad arguments, bad config, unreachable backend)
)

// ExitError carries the process exit code for a command failure.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// storeExitError maps store sentinels onto exit codes.
func storeExitError(message string, err error) *ExitError {
	if errors.Is(err, workspacestate.ErrInvalidInput) || errors.Is(err, workspacestate.ErrNotFound) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope for --format json.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

type CLIError struct {
	Message string `json:"message"`
}

// Message prints a one-line acknowledgement.
func (f *OutputFormatter) Message(msg string) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: map[string]string{"message": msg}})
	}
	_, err := fmt.Fprintln(f.Writer, msg)
	return err
}

// Document prints a JSON value, indented in text mode and wrapped in the
// response envelope in json mode.
func (f *OutputFormatter) Document(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.Writer, string(out))
	return err
}

// Error prints a failure. Text mode leaves error reporting to main.
func (f *OutputFormatter) Error(err error) error {
	if f.Format != "json" {
		return nil
	}
	return f.encode(CLIResponse{Status: "error", Error: &CLIError{Message: err.Error()}})
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}
