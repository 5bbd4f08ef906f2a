package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/envault/envault/internal/config"
)

func NewRenderCommand(cfg *config.Config) *cobra.Command {
	var (
		envName     string
		outputPath  string
		format      string
		permissions string
	)

	cmd := &cobra.Command{
		Use:   "render --env <name> --out <file>",
		Short: "Render an environment file from resolved variables",
		Long: `Generate .env, JSON, or YAML files from resolved variables.

The output format is auto-detected from the file extension, or can be
specified explicitly with --format.

Supported formats:
  dotenv   - .env file format (default)
  json     - JSON object with variables
  yaml     - YAML object with variables

Examples:
  envault render --env development --out .env.development
  envault render --env production --out config.json --format json
  envault render --env staging --out app.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputPath == "" {
				return fmt.Errorf("--out flag is required for security (explicit opt-in to write files)")
			}

			perms, err := parsePermissions(permissions)
			if err != nil {
				return err
			}

			resolver, err := newResolver(cfg)
			if err != nil {
				return err
			}

			env, err := cfg.GetEnvironment(envName)
			if err != nil {
				return err
			}

			variables, err := resolver.ResolveEnvironment(context.Background(), env)
			if err != nil {
				return err
			}

			content, err := renderContent(detectFormat(format, outputPath), variables)
			if err != nil {
				return err
			}

			if err := os.WriteFile(outputPath, []byte(content), perms); err != nil {
				return fmt.Errorf("failed to write %s: %w", outputPath, err)
			}

			cfg.Logger.Info("Wrote %d variables to %s", len(variables), outputPath)
			cfg.Logger.Warn("File contains secrets - ensure it's added to .gitignore")
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name to render (required)")
	cmd.Flags().StringVar(&outputPath, "out", "", "Output file path (required for security)")
	cmd.Flags().StringVar(&format, "format", "", "Output format (dotenv|json|yaml, auto-detected from extension)")
	cmd.Flags().StringVar(&permissions, "permissions", "0600", "File permissions in octal")

	_ = cmd.MarkFlagRequired("env")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func parsePermissions(value string) (os.FileMode, error) {
	parsed, err := strconv.ParseUint(value, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid permissions format, use octal like '0644'")
	}
	return os.FileMode(parsed), nil
}

func detectFormat(format, outputPath string) string {
	if format != "" {
		return format
	}
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "dotenv"
	}
}

func renderContent(format string, variables map[string]string) (string, error) {
	switch format {
	case "dotenv":
		content, err := godotenv.Marshal(variables)
		if err != nil {
			return "", fmt.Errorf("failed to render dotenv: %w", err)
		}
		return content + "\n", nil
	case "json":
		encoded, err := json.MarshalIndent(variables, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to render JSON: %w", err)
		}
		return string(encoded) + "\n", nil
	case "yaml":
		encoded, err := yaml.Marshal(variables)
		if err != nil {
			return "", fmt.Errorf("failed to render YAML: %w", err)
		}
		return string(encoded), nil
	default:
		return "", fmt.Errorf("unknown format %q (expected dotenv, json, or yaml)", format)
	}
}
