package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/envault/envault/internal/config"
	"github.com/envault/envault/internal/resolve"
	"github.com/envault/envault/internal/vault"
)

var errDoctorFailed = errors.New("doctor found problems; see output above")

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var (
		envName string
		probe   string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and store connectivity",
		Long: `Verify that the configuration is valid and the secret store is reachable.

This command checks:
- Configuration file validity and schema
- Credential availability (VAULT_TOKEN, keyring, or VAULT_USERNAME/PASSWORD)
- Store connectivity, when --probe names a secret path to read

Use --env to also list what a specific environment would resolve.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cfg.Logger
			failed := false

			logger.Info("Checking envault configuration...")
			if err := cfg.Load(); err != nil {
				logger.Error("Configuration error: %v", err)
				return err
			}
			logger.Info("Configuration loaded successfully")

			if violations := config.ValidateSchema(cfg.Path); len(violations) > 0 {
				failed = true
				logger.Error("Configuration schema violations:")
				for _, violation := range violations {
					logger.Error("  %v", violation)
				}
			} else {
				logger.Info("Configuration matches schema")
			}

			opts := cfg.BackendOptions()
			switch {
			case opts.DisableSecrets:
				logger.Warn("Secret access is disabled (ENVAULT_DISABLE_SECRETS is set)")
			case opts.Address == "":
				failed = true
				logger.Error("No store address configured: set VAULT_ADDR or vault.address in envault.yaml")
			default:
				logger.Info("Store address: %s", opts.Address)
			}

			switch {
			case opts.Token != "":
				logger.Info("Credentials: static token (VAULT_TOKEN)")
			case hasKeyringToken():
				logger.Info("Credentials: token from OS keyring (envault login)")
			case opts.Username != "" && opts.Password != "":
				logger.Info("Credentials: userpass (VAULT_USERNAME/VAULT_PASSWORD)")
			default:
				failed = true
				logger.Error("No credentials available: set VAULT_TOKEN, run 'envault login', or set VAULT_USERNAME and VAULT_PASSWORD")
			}

			backend, err := vault.NewBackend(opts)
			if err != nil {
				return err
			}

			if probe != "" {
				if _, err := backend.GetSecret(context.Background(), probe); err != nil {
					failed = true
					logger.Error("Probe read of %s failed: %v", backend.FullPath(probe), err)
				} else {
					logger.Info("Probe read of %s succeeded", backend.FullPath(probe))
				}
			}

			if envName != "" {
				planned, err := resolve.New(cfg, backend).Plan(envName)
				if err != nil {
					return err
				}
				logger.Info("Environment %s declares %d variables:", envName, len(planned))
				for _, p := range planned {
					logger.Info("  %s <- %s", p.Name, p.Source)
				}
			}

			if failed {
				logger.Error("Some checks failed")
				return errDoctorFailed
			}
			logger.Info("All checks passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Also list what this environment would resolve")
	cmd.Flags().StringVar(&probe, "probe", "", "Secret path to read as a connectivity check")

	return cmd
}

func hasKeyringToken() bool {
	token, err := vault.LookupKeyringToken()
	return err == nil && token != ""
}
