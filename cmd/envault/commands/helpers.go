package commands

import (
	"github.com/envault/envault/internal/config"
	"github.com/envault/envault/internal/resolve"
	"github.com/envault/envault/internal/vault"
)

// newResolver loads the configuration and builds a resolver over a backend
// configured from envault.yaml plus the VAULT_* environment.
func newResolver(cfg *config.Config) (*resolve.Resolver, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}

	backend, err := vault.NewBackend(cfg.BackendOptions())
	if err != nil {
		return nil, err
	}

	return resolve.New(cfg, backend), nil
}
