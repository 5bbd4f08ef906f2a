package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/envault/envault/internal/config"
	enverrors "github.com/envault/envault/internal/errors"
	"github.com/envault/envault/internal/execenv"
)

func NewExecCommand(cfg *config.Config) *cobra.Command {
	var (
		envName    string
		printVars  bool
		keepParent bool
		dotenvPath string
		workingDir string
		timeout    int
	)

	cmd := &cobra.Command{
		Use:   "exec --env <name> -- <command> [args...]",
		Short: "Execute command with ephemeral environment variables",
		Long: `Execute a command with environment variables resolved from the secret
store. Secrets are injected into the child process environment and never
written to disk.

The command must be separated from envault arguments with '--'.

Examples:
  envault exec --env development -- npm start
  envault exec --env production -- docker compose up
  envault exec --env staging --dotenv .env.defaults -- python app.py`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return enverrors.UserError{
					Message:    "No command specified",
					Suggestion: "Use: envault exec --env <name> -- <command> [args...]",
				}
			}

			resolver, err := newResolver(cfg)
			if err != nil {
				return err
			}

			env, err := cfg.GetEnvironment(envName)
			if err != nil {
				return err
			}

			ctx := context.Background()
			environment, err := resolver.ResolveEnvironment(ctx, env)
			if err != nil {
				return err
			}

			executor := execenv.New(cfg.Logger)
			return executor.Exec(ctx, execenv.ExecOptions{
				Command:     args,
				Environment: environment,
				DotenvPath:  dotenvPath,
				KeepParent:  keepParent,
				PrintVars:   printVars,
				WorkingDir:  workingDir,
				Timeout:     timeout,
			})
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().BoolVar(&printVars, "print", false, "Print resolved variables with values masked")
	cmd.Flags().BoolVar(&keepParent, "keep-parent", false, "Let existing environment values win over resolved ones")
	cmd.Flags().StringVar(&dotenvPath, "dotenv", "", "Seed .env file merged below resolved variables")
	cmd.Flags().StringVar(&workingDir, "dir", "", "Working directory for the command")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Timeout in seconds (0 for no timeout)")

	_ = cmd.MarkFlagRequired("env")

	return cmd
}
