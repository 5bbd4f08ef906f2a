package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/envault/envault/internal/config"
)

const exampleConfig = `version: 0

# Secret store connection. Credentials always come from the environment
# (VAULT_TOKEN, or VAULT_USERNAME/VAULT_PASSWORD, or 'envault login').
vault:
  # address: https://vault.example.com:8200   # or set VAULT_ADDR
  prefix: secret/myteam
  cache_ttl: 600        # seconds; 0 disables caching
  timeout_ms: 30000
  retry_attempts: 3

# Environment definitions
envs:
  development:
    # Secret-backed variables
    DATABASE_PASSWORD:
      secret: databases/main
      key: PASSWORD

    API_TOKEN:
      secret: services/api
      keys: [credentials, TOKEN]
      transform: [trim]

    # Plain environment passthrough with a default
    DATABASE_HOST:
      env: DB_HOST
      default: localhost

    # Typed values
    WORKER_COUNT:
      literal: "4"
      cast: int

    DEBUG_MODE:
      literal: "true"
      cast: bool

    # Base64-encoded file content
    # TLS_CERT:
    #   secret: certs/web
    #   key: CERT
    #   file: true

  # production:
  #   DATABASE_PASSWORD:
  #     secret: prod/databases/main
  #     key: PASSWORD
`

func NewInitCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new envault configuration",
		Long:  "Create an envault.yaml file with example configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfg.Path); err == nil {
				return fmt.Errorf("%s already exists. Remove it first if you want to reinitialize", cfg.Path)
			}

			if err := os.WriteFile(cfg.Path, []byte(exampleConfig), 0o644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			cfg.Logger.Info("Created %s with an example store block and environments", cfg.Path)
			cfg.Logger.Info("Next steps:")
			cfg.Logger.Info("  1. Edit %s to declare your variables", cfg.Path)
			cfg.Logger.Info("  2. Run 'envault doctor' to verify store connectivity")
			cfg.Logger.Info("  3. Run 'envault plan --env development' to preview your configuration")
			cfg.Logger.Info("  4. Run 'envault exec --env development -- <your-command>' to run with secrets")

			return nil
		},
	}

	return cmd
}
