package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/envault/envault/internal/casting"
	enverrors "github.com/envault/envault/internal/errors"
	"github.com/envault/envault/internal/logging"
	"github.com/envault/envault/internal/vault"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "envault.yaml"

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the envault.yaml structure
type Definition struct {
	Version int                    `yaml:"version"`
	Vault   VaultConfig            `yaml:"vault"`
	Envs    map[string]Environment `yaml:"envs"`
}

// VaultConfig holds the secret store connection block. Every field is
// optional; unset fields fall back to the VAULT_* environment variables.
type VaultConfig struct {
	Address       string `yaml:"address,omitempty"`
	Namespace     string `yaml:"namespace,omitempty"`
	Prefix        string `yaml:"prefix,omitempty"`
	CacheTTL      int    `yaml:"cache_ttl,omitempty"`
	TimeoutMs     int    `yaml:"timeout_ms,omitempty"`
	RetryAttempts int    `yaml:"retry_attempts,omitempty"`
}

// Timeout returns the per-request timeout, defaulting to 30 seconds.
func (v VaultConfig) Timeout() time.Duration {
	if v.TimeoutMs <= 0 {
		return vault.DefaultTimeout
	}
	return time.Duration(v.TimeoutMs) * time.Millisecond
}

// Environment represents a named environment configuration
type Environment map[string]Variable

// Variable represents a single environment variable declaration.
//
// Exactly one source may be set: Literal, Env, or Secret. A variable with no
// source reads the process environment variable of its own name.
type Variable struct {
	// Literal is a fixed value.
	Literal *string `yaml:"literal,omitempty"`

	// Env names a process environment variable to read.
	Env string `yaml:"env,omitempty"`

	// Secret is a mount-relative secret path; Key/Keys narrow the fetched
	// mapping to a nested value.
	Secret string   `yaml:"secret,omitempty"`
	Key    string   `yaml:"key,omitempty"`
	Keys   []string `yaml:"keys,omitempty"`

	// Default is used when the source yields nothing. Inert while defaults
	// are globally disabled.
	Default *string `yaml:"default,omitempty"`

	// Cast converts the resolved string: bool, int, float, decimal, list,
	// tuple, set, date, datetime.
	Cast string `yaml:"cast,omitempty"`

	// Transform is an ordered chain applied after resolution: trim,
	// base64_decode, base64_encode.
	Transform []string `yaml:"transform,omitempty"`

	// File marks a secret value as base64-encoded file content.
	File bool `yaml:"file,omitempty"`

	// Optional suppresses the error when the source yields nothing.
	Optional bool `yaml:"optional,omitempty"`
}

// Kind names the variable's value source.
type Kind int

const (
	KindEnv Kind = iota
	KindLiteral
	KindSecret
)

// Kind returns the declared source of the variable.
func (v Variable) Kind() Kind {
	switch {
	case v.Literal != nil:
		return KindLiteral
	case v.Secret != "":
		return KindSecret
	default:
		return KindEnv
	}
}

// EnvName returns the process environment variable this declaration reads,
// for env-sourced variables. name is the declaration's own key.
func (v Variable) EnvName(name string) string {
	if v.Env != "" {
		return v.Env
	}
	return name
}

// VaultVariable builds the lookup handle for a secret-sourced variable.
func (v Variable) VaultVariable() vault.Variable {
	out := vault.NewVariable(v.Secret)
	if v.Key != "" {
		out = out.Key(v.Key)
	}
	for _, key := range v.Keys {
		out = out.Key(key)
	}
	return out
}

// Validate rejects contradictory declarations. name is the declaration's own
// key, used in error messages.
func (v Variable) Validate(name string) error {
	sources := 0
	if v.Literal != nil {
		sources++
	}
	if v.Env != "" {
		sources++
	}
	if v.Secret != "" {
		sources++
	}
	if sources > 1 {
		return enverrors.ConfigError{
			Field:      name,
			Message:    "variable declares more than one of literal, env, secret",
			Suggestion: "Pick a single source for the variable",
		}
	}

	if v.Secret == "" {
		if v.Key != "" || len(v.Keys) > 0 {
			return enverrors.ConfigError{
				Field:      name,
				Message:    "key/keys are only valid on secret-sourced variables",
				Suggestion: "Add 'secret: <path>' or remove the key selector",
			}
		}
		if v.File {
			return enverrors.ConfigError{
				Field:      name,
				Message:    "file is only valid on secret-sourced variables",
				Suggestion: "Add 'secret: <path>' or remove 'file: true'",
			}
		}
	}

	if v.Key != "" && len(v.Keys) > 0 {
		return enverrors.ConfigError{
			Field:      name,
			Message:    "key and keys are mutually exclusive",
			Suggestion: "Use 'key' for a single lookup or 'keys' for a nested chain, not both",
		}
	}

	if v.Cast != "" && !casting.ValidCast(v.Cast) {
		return enverrors.ConfigError{
			Field:      name,
			Value:      v.Cast,
			Message:    "unknown cast",
			Suggestion: fmt.Sprintf("Valid casts: %s", strings.Join(casting.CastNames(), ", ")),
		}
	}

	for _, transform := range v.Transform {
		if !casting.ValidTransform(transform) {
			return enverrors.ConfigError{
				Field:      name,
				Value:      transform,
				Message:    "unknown transform",
				Suggestion: fmt.Sprintf("Valid transforms: %s", strings.Join(casting.TransformNames(), ", ")),
			}
		}
	}

	return nil
}

// Load reads and parses the envault.yaml file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return enverrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Run 'envault init' to create a new configuration file",
			}
		}
		return enverrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return enverrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return enverrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your envault.yaml file",
		}
	}

	for envName, env := range def.Envs {
		for varName, variable := range env {
			if err := variable.Validate(varName); err != nil {
				return fmt.Errorf("env %q: %w", envName, err)
			}
		}
	}

	c.Definition = &def
	return nil
}

// GetEnvironment returns the configuration for a specific environment
func (c *Config) GetEnvironment(name string) (Environment, error) {
	if c.Definition == nil {
		return nil, enverrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	env, ok := c.Definition.Envs[name]
	if !ok {
		var available []string
		for envName := range c.Definition.Envs {
			available = append(available, envName)
		}
		sort.Strings(available)

		suggestion := "Check your envault.yaml for available environments"
		if len(available) > 0 {
			suggestion = fmt.Sprintf("Available environments: %s", strings.Join(available, ", "))
		}

		return nil, enverrors.ConfigError{
			Field:      "environment",
			Value:      name,
			Message:    "environment not found",
			Suggestion: suggestion,
		}
	}

	return env, nil
}

// BackendOptions merges the vault block over env-derived options. Values set
// in envault.yaml win; credentials only ever come from the environment.
func (c *Config) BackendOptions() vault.Options {
	opts := vault.OptionsFromEnv()
	opts.Logger = c.Logger

	if c.Definition == nil {
		return opts
	}

	vc := c.Definition.Vault
	if vc.Address != "" {
		opts.Address = vc.Address
	}
	if vc.Namespace != "" {
		opts.Namespace = vc.Namespace
	}
	if vc.Prefix != "" {
		opts.Prefix = vc.Prefix
	}
	opts.CacheTTL = vc.CacheTTL
	opts.Timeout = vc.Timeout()
	if vc.RetryAttempts > 0 {
		opts.Retry = &vault.RetryPolicy{MaxAttempts: vc.RetryAttempts}
	}

	return opts
}
