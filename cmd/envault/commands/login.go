package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/envault/envault/internal/config"
	enverrors "github.com/envault/envault/internal/errors"
	"github.com/envault/envault/internal/vault"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var (
		token string
		clear bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a store token in the OS keyring",
		Long: `Authenticate against the secret store and save the resulting token in
the OS keyring, so later envault runs need no VAULT_TOKEN in the
environment.

With --token the given token is saved directly. Otherwise VAULT_USERNAME
and VAULT_PASSWORD are exchanged for a token first.

Examples:
  envault login --token s.xxxxxxxx
  VAULT_USERNAME=me VAULT_PASSWORD=... envault login
  envault login --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				if err := vault.ClearKeyringToken(); err != nil {
					return fmt.Errorf("failed to clear keyring token: %w", err)
				}
				cfg.Logger.Info("Removed saved token from the OS keyring")
				return nil
			}

			if token == "" {
				username := os.Getenv("VAULT_USERNAME")
				password := os.Getenv("VAULT_PASSWORD")
				if username == "" || password == "" {
					return enverrors.UserError{
						Message:    "Nothing to save",
						Suggestion: "Pass --token, or set VAULT_USERNAME and VAULT_PASSWORD to exchange for one",
					}
				}

				opts := vault.OptionsFromEnv()
				if err := cfg.Load(); err == nil {
					opts = cfg.BackendOptions()
				}
				if opts.Address == "" {
					return enverrors.UserError{
						Message:    "No store address configured",
						Suggestion: "Set VAULT_ADDR or vault.address in envault.yaml",
					}
				}

				client := vault.NewHTTPClient(opts.Address, opts.Namespace, opts.Timeout, cfg.Logger)
				exchanged, err := client.Authenticate(context.Background(), username, password)
				if err != nil {
					return err
				}
				token = exchanged
				cfg.Logger.Info("Exchanged userpass credentials for a token")
			}

			if err := vault.StoreKeyringToken(token); err != nil {
				return fmt.Errorf("failed to save token in keyring: %w", err)
			}
			cfg.Logger.Info("Saved token in the OS keyring")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Token to save directly (skips the userpass exchange)")
	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the saved token from the OS keyring")

	return cmd
}
