// Package execenv runs child processes with resolved variables injected
// into an ephemeral environment, so secrets never touch disk.
package execenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	enverrors "github.com/envault/envault/internal/errors"
	"github.com/envault/envault/internal/logging"
)

// Executor handles running commands with ephemeral environment variables
type Executor struct {
	logger *logging.Logger
}

// New creates a new executor
func New(logger *logging.Logger) *Executor {
	return &Executor{logger: logger}
}

// ExecOptions configures command execution
type ExecOptions struct {
	Command     []string          // Command and arguments to run
	Environment map[string]string // Resolved variables to inject
	DotenvPath  string            // Optional .env file merged below resolved variables
	KeepParent  bool              // Let parent environment values win over resolved ones
	PrintVars   bool              // Print resolved variables with values masked
	WorkingDir  string            // Working directory for the command
	Timeout     int               // Timeout in seconds (0 for no timeout)
}

// Exec runs a command with the provided environment variables
func (e *Executor) Exec(ctx context.Context, options ExecOptions) error {
	if len(options.Command) == 0 {
		return enverrors.UserError{
			Message:    "No command specified",
			Suggestion: "Provide a command after -- (e.g., envault exec production -- npm start)",
		}
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(options.Timeout)*time.Second)
		defer cancel()
	}

	cmdName := options.Command[0]
	if _, err := exec.LookPath(cmdName); err != nil {
		return enverrors.WrapCommandNotFound(cmdName, err)
	}

	env, err := e.buildEnvironment(options)
	if err != nil {
		return err
	}

	if options.PrintVars {
		e.printEnvironment(options.Environment)
	}

	cmd := exec.CommandContext(ctx, cmdName, options.Command[1:]...)
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if options.WorkingDir != "" {
		cmd.Dir = options.WorkingDir
	}

	e.logger.Debug("Executing command: %s", strings.Join(options.Command, " "))
	e.logger.Debug("Environment variables injected: %d", len(options.Environment))

	if err := cmd.Run(); err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			// Preserve the exit code from the child process
			if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
				os.Exit(status.ExitStatus())
			}
			os.Exit(1)
		}
		return enverrors.CommandError{
			Command:    strings.Join(options.Command, " "),
			Message:    err.Error(),
			Suggestion: "Check the command output above for details",
		}
	}

	return nil
}

// buildEnvironment creates the environment slice for the child process.
// Precedence, lowest to highest: parent process, .env seed file, resolved
// variables. KeepParent flips the parent above the resolved variables.
func (e *Executor) buildEnvironment(options ExecOptions) ([]string, error) {
	envMap := make(map[string]string)
	for _, entry := range os.Environ() {
		if parts := strings.SplitN(entry, "=", 2); len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	if options.DotenvPath != "" {
		seed, err := godotenv.Read(options.DotenvPath)
		if err != nil {
			return nil, enverrors.UserError{
				Message:    fmt.Sprintf("Failed to read dotenv file %s", options.DotenvPath),
				Details:    err.Error(),
				Suggestion: "Check that the file exists and uses KEY=value lines",
				Err:        err,
			}
		}
		for key, value := range seed {
			envMap[key] = value
		}
	}

	for key, value := range options.Environment {
		if options.KeepParent {
			if _, exists := os.LookupEnv(key); exists {
				continue
			}
		}
		envMap[key] = value
	}

	result := make([]string, 0, len(envMap))
	for key, value := range envMap {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}

	// Sort for consistent ordering (helps with debugging)
	sort.Strings(result)
	return result, nil
}

// printEnvironment displays the resolved variables (values masked for security)
func (e *Executor) printEnvironment(environment map[string]string) {
	if len(environment) == 0 {
		fmt.Println("No environment variables resolved")
		return
	}

	fmt.Printf("Resolved %d environment variables:\n", len(environment))

	keys := make([]string, 0, len(environment))
	for key := range environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Printf("  %s=%s\n", key, maskValue(environment[key]))
	}
	fmt.Println()
}

// maskValue masks a secret value for display
func maskValue(value string) string {
	if len(value) == 0 {
		return "(empty)"
	}
	if len(value) <= 3 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
	}
	return value[:3] + strings.Repeat("*", 8) + value[len(value)-2:]
}
