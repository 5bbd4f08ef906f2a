// Package errors defines the user-facing error types shared across envault.
//
// Construction-time problems are ConfigError values and fail fast; runtime
// problems that a user can act on are UserError values carrying a suggestion.
// Domain-specific failures (missing paths, missing keys, rejected credentials)
// live next to the code that raises them, in internal/vault and pkg/store.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/envault/envault/pkg/store"
)

// UserError represents an error that should be shown to the user with helpful context.
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context.
//
// Raised at construction or config-load time, never deferred to first use.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CommandError represents a command execution error.
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// StoreError enhances a secret-store failure with actionable context.
func StoreError(operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("Secret store error during %s", operation),
		Suggestion: storeSuggestion(err),
		Err:        err,
	}
}

// storeSuggestion returns a helpful suggestion based on the store failure.
func storeSuggestion(err error) string {
	switch {
	case store.IsForbidden(err):
		return "Your token may be expired or lack permissions for this path. Re-authenticate with 'envault login'"
	case store.IsNotFound(err):
		return "Verify the secret path and prefix. Use 'envault doctor' to check your configuration"
	case store.IsTransient(err):
		return "The store was unreachable. Check your network and VAULT_ADDR, then try again"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "no such host"):
		return "Unable to connect. Check that the store is running and VAULT_ADDR is correct"
	case strings.Contains(errStr, "tls"):
		return "Check the TLS configuration of your store address"
	case strings.Contains(errStr, "timeout"):
		return "The operation timed out. Check your network connection and try again"
	}
	return ""
}

// WrapCommandNotFound wraps command-not-found errors with helpful suggestions.
func WrapCommandNotFound(command string, err error) error {
	suggestions := map[string]string{
		"npm":    "Install Node.js from https://nodejs.org/",
		"python": "Install Python from https://python.org/",
		"go":     "Install Go from https://golang.org/",
		"docker": "Install Docker from https://docker.com/",
		"make":   "Install Make (usually comes with build tools)",
	}

	suggestion := suggestions[command]
	if suggestion == "" {
		suggestion = fmt.Sprintf("Make sure '%s' is installed and in your PATH", command)
	}

	return CommandError{
		Command:    command,
		Message:    "command not found",
		Suggestion: suggestion,
	}
}

// IsRetryable reports whether err may be retried per the transport policy.
//
// Only transport-level transient failures qualify; every per-lookup error
// (missing path, missing key, rejected credentials, disabled access) is final.
func IsRetryable(err error) bool {
	return store.IsTransient(err)
}

// Simplify turns low-level parse failures into friendlier errors for the CLI.
func Simplify(err error) error {
	if err == nil {
		return nil
	}

	var userErr UserError
	var configErr ConfigError
	var cmdErr CommandError
	if errors.As(err, &userErr) || errors.As(err, &configErr) || errors.As(err, &cmdErr) {
		return err
	}

	errStr := err.Error()
	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}
	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	return err
}
