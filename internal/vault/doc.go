// Package vault implements the secret-resolution core: token authentication
// against the remote store, prefix-joined path reads with retry of transient
// transport failures, TTL caching of fetched mappings, nested-key extraction,
// and JSON environment-variable overrides.
//
// A Backend is scoped to one store. Construct it once from Options (or
// OptionsFromEnv) and share it; all internal state is safe for concurrent use.
package vault
