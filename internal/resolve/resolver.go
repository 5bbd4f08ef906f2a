package resolve

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/envault/envault/internal/casting"
	"github.com/envault/envault/internal/config"
	enverrors "github.com/envault/envault/internal/errors"
	"github.com/envault/envault/internal/logging"
	"github.com/envault/envault/internal/vault"
	"github.com/envault/envault/pkg/store"
)

// Resolver turns variable declarations into concrete values, fetching
// secret-sourced variables through a single backend.
type Resolver struct {
	config  *config.Config
	backend *vault.Backend
	logger  *logging.Logger
}

// New creates a new resolver instance
func New(cfg *config.Config, backend *vault.Backend) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(false, false)
	}
	return &Resolver{
		config:  cfg,
		backend: backend,
		logger:  logger,
	}
}

// ResolvedVariable represents a resolved environment variable
type ResolvedVariable struct {
	Name string

	// Value is the typed result after casting.
	Value any

	// Text is the string form used for env output and .env rendering.
	Text string

	// Source describes where the value came from: literal, env:<NAME>, or
	// secret:<full path>.
	Source string

	Transformed bool
	Error       error
}

// PlannedVariable describes a variable's source without fetching its value.
type PlannedVariable struct {
	Name     string
	Source   string
	Cast     string
	Optional bool
}

// Plan lists what the named environment would resolve, without contacting
// the store.
func (r *Resolver) Plan(envName string) ([]PlannedVariable, error) {
	env, err := r.config.GetEnvironment(envName)
	if err != nil {
		return nil, err
	}

	planned := make([]PlannedVariable, 0, len(env))
	for varName, variable := range env {
		p := PlannedVariable{
			Name:     varName,
			Cast:     variable.Cast,
			Optional: variable.Optional,
		}
		switch variable.Kind() {
		case config.KindLiteral:
			p.Source = "literal"
		case config.KindEnv:
			p.Source = "env:" + variable.EnvName(varName)
		case config.KindSecret:
			p.Source = "secret:" + r.backend.FullPath(variable.Secret)
		}
		planned = append(planned, p)
	}

	sort.Slice(planned, func(i, j int) bool { return planned[i].Name < planned[j].Name })
	return planned, nil
}

// Lookup resolves a single variable from the named environment.
func (r *Resolver) Lookup(ctx context.Context, envName, varName string) (ResolvedVariable, error) {
	env, err := r.config.GetEnvironment(envName)
	if err != nil {
		return ResolvedVariable{}, err
	}

	variable, ok := env[varName]
	if !ok {
		var available []string
		for name := range env {
			available = append(available, name)
		}
		sort.Strings(available)
		return ResolvedVariable{}, enverrors.ConfigError{
			Field:      "variable",
			Value:      varName,
			Message:    "variable not declared in environment",
			Suggestion: fmt.Sprintf("Declared variables: %s", joinOrNone(available)),
		}
	}

	resolved := r.resolveVariable(ctx, varName, variable)
	if resolved.Error != nil && !variable.Optional {
		return resolved, resolved.Error
	}
	return resolved, nil
}

// Resolve fetches and processes all variables for a named environment.
func (r *Resolver) Resolve(ctx context.Context, envName string) (map[string]ResolvedVariable, error) {
	env, err := r.config.GetEnvironment(envName)
	if err != nil {
		return nil, err
	}
	return r.resolveConcurrently(ctx, env)
}

// ResolveEnvironment resolves every variable in env to its string form.
// Optional variables that fail to resolve are omitted.
func (r *Resolver) ResolveEnvironment(ctx context.Context, env config.Environment) (map[string]string, error) {
	resolved, err := r.resolveConcurrently(ctx, env)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(resolved))
	for name, rv := range resolved {
		if rv.Error == nil {
			result[name] = rv.Text
		}
	}
	return result, nil
}

// maxConcurrentFetches bounds simultaneous store calls so a large env does
// not open one connection per variable.
const maxConcurrentFetches = 10

func (r *Resolver) resolveConcurrently(ctx context.Context, env config.Environment) (map[string]ResolvedVariable, error) {
	result := make(map[string]ResolvedVariable, len(env))
	var resultMu sync.Mutex

	var wg sync.WaitGroup
	errorChan := make(chan error, len(env))
	semaphore := make(chan struct{}, maxConcurrentFetches)

	for varName, variable := range env {
		wg.Add(1)
		go func(name string, varDef config.Variable) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			resolved := r.resolveVariable(ctx, name, varDef)

			resultMu.Lock()
			result[name] = resolved
			resultMu.Unlock()

			if resolved.Error != nil && !varDef.Optional {
				errorChan <- enverrors.UserError{
					Message:    fmt.Sprintf("Failed to resolve variable '%s'", name),
					Details:    resolved.Error.Error(),
					Suggestion: "Check that the secret exists and your credentials are valid. Use 'envault doctor' to check connectivity",
					Err:        resolved.Error,
				}
			}
		}(varName, variable)
	}

	wg.Wait()
	close(errorChan)

	var failures []error
	for err := range errorChan {
		failures = append(failures, err)
	}

	if len(failures) > 0 {
		if len(failures) == 1 {
			return result, failures[0]
		}
		return result, enverrors.UserError{
			Message:    fmt.Sprintf("Failed to resolve %d variables", len(failures)),
			Details:    fmt.Sprintf("%v", failures),
			Suggestion: "Fix the errors above and try again. Use 'envault doctor' to check connectivity",
		}
	}

	return result, nil
}

// resolveVariable resolves a single variable (can be called concurrently)
func (r *Resolver) resolveVariable(ctx context.Context, varName string, variable config.Variable) ResolvedVariable {
	resolved := ResolvedVariable{Name: varName}

	var raw any
	switch variable.Kind() {
	case config.KindLiteral:
		raw = *variable.Literal
		resolved.Source = "literal"

	case config.KindEnv:
		envName := variable.EnvName(varName)
		resolved.Source = "env:" + envName
		value, ok := os.LookupEnv(envName)
		if !ok {
			fallback, used := r.defaultFor(variable)
			if !used {
				resolved.Error = enverrors.ConfigError{
					Field:      varName,
					Message:    fmt.Sprintf("environment variable %s is not set", envName),
					Suggestion: fmt.Sprintf("Set %s, add a 'default', or mark the variable optional", envName),
				}
				return resolved
			}
			value = fallback
			resolved.Source = "default"
		}
		raw = value

	case config.KindSecret:
		fullPath := r.backend.FullPath(variable.Secret)
		resolved.Source = "secret:" + fullPath
		value, err := r.backend.ResolveVariable(ctx, variable.VaultVariable())
		if err != nil {
			if fallback, used := r.defaultForSecretError(variable, err); used {
				value = fallback
				resolved.Source = "default"
			} else {
				if store.IsForbidden(err) || store.IsTransient(err) {
					err = enverrors.StoreError("resolve", err)
				}
				resolved.Error = err
				return resolved
			}
		}
		raw = value
	}

	if variable.File {
		decoded, err := base64.StdEncoding.DecodeString(fmt.Sprintf("%v", raw))
		if err != nil {
			resolved.Error = enverrors.UserError{
				Message:    fmt.Sprintf("Variable '%s' is declared as a file but its value is not valid base64", varName),
				Details:    err.Error(),
				Suggestion: "Store file content base64-encoded, or remove 'file: true'",
				Err:        err,
			}
			return resolved
		}
		raw = decoded
	}

	if len(variable.Transform) > 0 {
		text, err := asText(raw)
		if err == nil {
			text, err = casting.Transform(variable.Transform, text)
		}
		if err != nil {
			resolved.Error = enverrors.UserError{
				Message:    fmt.Sprintf("Transform failed for variable '%s'", varName),
				Details:    err.Error(),
				Suggestion: "Check the transform chain. Available transforms: trim, base64_decode, base64_encode",
				Err:        err,
			}
			return resolved
		}
		raw = text
		resolved.Transformed = true
	}

	if variable.Cast != "" {
		value, err := casting.Cast(variable.Cast, raw, func(msg string) {
			r.logger.Warn("%s: %s", varName, msg)
		})
		if err != nil {
			resolved.Error = enverrors.UserError{
				Message:    fmt.Sprintf("Cast failed for variable '%s'", varName),
				Details:    err.Error(),
				Suggestion: fmt.Sprintf("Check that the value is a valid %s", variable.Cast),
				Err:        err,
			}
			return resolved
		}
		raw = value
	}

	resolved.Value = raw
	resolved.Text = formatValue(raw)
	return resolved
}

// defaultFor returns the variable's default when defaults are enabled.
func (r *Resolver) defaultFor(variable config.Variable) (string, bool) {
	if variable.Default == nil || r.backend.DefaultsDisabled() {
		return "", false
	}
	return *variable.Default, true
}

// defaultForSecretError applies the default only to absence, never to
// failures like bad credentials or transport errors.
func (r *Resolver) defaultForSecretError(variable config.Variable, err error) (string, bool) {
	var pathMissing vault.PathMissingError
	var keyMissing vault.KeyMissingError
	if !errors.As(err, &pathMissing) && !errors.As(err, &keyMissing) {
		return "", false
	}
	return r.defaultFor(variable)
}

// formatValue renders a typed value for env output.
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case decimal.Decimal:
		return v.String()
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(casting.DateLayout)
		}
		return v.Format(casting.DateTimeLayout)
	case []any:
		out := ""
		for i, elem := range v {
			if i > 0 {
				out += ","
			}
			out += formatValue(elem)
		}
		return out
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("cannot transform %T value; transforms apply to strings", value)
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	out := names[0]
	for _, name := range names[1:] {
		out += ", " + name
	}
	return out
}
