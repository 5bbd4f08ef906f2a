package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/envault/envault/internal/config"
	enverrors "github.com/envault/envault/internal/errors"
)

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		envName    string
		varName    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a single resolved value",
		Long: `Retrieve and display a single variable's resolved value.

By default, only the raw value is printed, making it suitable for scripting.

Examples:
  # Get a single value
  envault get --env production --var DATABASE_URL

  # Get value with metadata in JSON format
  envault get --env production --var API_KEY --json

  # Use in scripts
  export DB_URL=$(envault get --env production --var DATABASE_URL)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envName == "" {
				return enverrors.UserError{
					Message:    "Environment name is required",
					Suggestion: "Use --env <environment-name> to specify an environment",
				}
			}
			if varName == "" {
				return enverrors.UserError{
					Message:    "Variable name is required",
					Suggestion: "Use --var <variable-name> to specify which variable to get",
				}
			}

			resolver, err := newResolver(cfg)
			if err != nil {
				return err
			}

			resolved, err := resolver.Lookup(context.Background(), envName, varName)
			if err != nil {
				return err
			}
			if resolved.Error != nil {
				return resolved.Error
			}

			if jsonOutput {
				output := map[string]any{
					"variable":    varName,
					"value":       resolved.Text,
					"source":      resolved.Source,
					"environment": envName,
				}
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(output); err != nil {
					return fmt.Errorf("failed to encode JSON: %w", err)
				}
				return nil
			}

			fmt.Print(resolved.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().StringVar(&varName, "var", "", "Variable name to get (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format with metadata")

	_ = cmd.MarkFlagRequired("env")
	_ = cmd.MarkFlagRequired("var")

	return cmd
}
