package vault

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/envault/envault/internal/logging"
	"github.com/envault/envault/internal/secure"
	"github.com/envault/envault/pkg/store"
)

// Keyring coordinates for tokens saved by `envault login`.
const (
	KeyringService = "envault"
	KeyringUser    = "vault-token"
)

// Options configures a Backend. The zero value is usable for tests with an
// injected Client; production callers start from OptionsFromEnv.
type Options struct {
	// Address is the store's base URL. Required for network access.
	Address string
	// Namespace is the optional store namespace header.
	Namespace string

	// Token is a static access token. When set, no exchange is performed.
	Token string
	// Username and Password drive the userpass exchange when no token is
	// available. The exchange happens at most once per backend instance.
	Username string
	Password string

	// Prefix is the mount prefix joined in front of every requested path.
	Prefix string

	// CacheTTL is the secret cache time-to-live in seconds. Zero disables
	// caching. Must lie in [0, MaxCacheTTL].
	CacheTTL int

	// Timeout bounds each individual store request.
	Timeout time.Duration

	// Retry overrides the default policy (3 attempts, transient errors only).
	Retry *RetryPolicy

	// DisableSecrets blocks all secret access with AccessDisabledError.
	DisableSecrets bool
	// DisableDefaults makes variable defaults inert so missing keys surface.
	DisableDefaults bool

	// Logger defaults to a quiet stderr logger.
	Logger *logging.Logger

	// Client overrides the HTTP client. Tests inject fakes here.
	Client store.Client

	// KeyringToken overrides the OS keyring lookup. Tests inject stubs here.
	KeyringToken func() (string, error)
}

// OptionsFromEnv builds Options from the process environment. The
// environment is read once, here; the backend itself never consults these
// variables again.
func OptionsFromEnv() Options {
	return Options{
		Address:         os.Getenv("VAULT_ADDR"),
		Namespace:       os.Getenv("VAULT_NAMESPACE"),
		Token:           os.Getenv("VAULT_TOKEN"),
		Username:        os.Getenv("VAULT_USERNAME"),
		Password:        os.Getenv("VAULT_PASSWORD"),
		Prefix:          os.Getenv("VAULT_PREFIX"),
		DisableSecrets:  flagSet(os.Getenv("ENVAULT_DISABLE_SECRETS")),
		DisableDefaults: flagSet(os.Getenv("ENVAULT_DISABLE_DEFAULTS")),
	}
}

func flagSet(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Backend resolves secrets from one remote store, caching fetched mappings
// for the configured TTL and memoizing the access token for its lifetime.
type Backend struct {
	opts   Options
	client store.Client
	cache  *TTLCache
	retry  *RetryPolicy
	logger *logging.Logger

	tokenMu sync.Mutex
	token   *secure.Buffer // nil until first successful acquisition

	keyringToken func() (string, error)
}

// NewBackend constructs a backend from opts. Invalid options (out-of-range
// TTL) fail here, never at first use.
func NewBackend(opts Options) (*Backend, error) {
	cache, err := NewTTLCache(opts.CacheTTL)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(false, false)
	}

	client := opts.Client
	if client == nil {
		client = NewHTTPClient(opts.Address, opts.Namespace, opts.Timeout, logger)
	}

	retry := DefaultRetryPolicy()
	if opts.Retry != nil {
		// Copy so a policy shared between backends is never rewritten.
		copied := *opts.Retry
		retry = &copied
	}
	retry.normalize()

	lookup := opts.KeyringToken
	if lookup == nil {
		lookup = LookupKeyringToken
	}

	return &Backend{
		opts:         opts,
		client:       client,
		cache:        cache,
		retry:        retry,
		logger:       logger,
		keyringToken: lookup,
	}, nil
}

// FullPath joins the configured mount prefix with a requested path.
func (b *Backend) FullPath(path string) string {
	return JoinPath(b.opts.Prefix, path)
}

// Cache exposes the secret cache for diagnostics.
func (b *Backend) Cache() *TTLCache {
	return b.cache
}

// DefaultsDisabled reports whether variable defaults are globally disabled.
func (b *Backend) DefaultsDisabled() bool {
	return b.opts.DisableDefaults
}

// GetSecret fetches the mapping stored at the prefix-joined path.
//
// The kill-switch is checked before any cache or network interaction. Cache
// hits bypass the store entirely; misses acquire a token, read through the
// retry policy, and cache the result keyed by the full path.
func (b *Backend) GetSecret(ctx context.Context, path string) (store.Secret, error) {
	if b.opts.DisableSecrets {
		return nil, AccessDisabledError{}
	}

	fullPath := b.FullPath(path)

	if value, ok := b.cache.Get(fullPath); ok {
		countCacheHit()
		b.logger.Debug("cache hit for %s", fullPath)
		return value, nil
	}
	countCacheMiss()

	token, err := b.getToken(ctx, fullPath)
	if err != nil {
		return nil, err
	}

	var secret store.Secret
	err = b.call(ctx, func(ctx context.Context) error {
		countStoreRead()
		var readErr error
		secret, readErr = b.client.Read(ctx, fullPath, token)
		return readErr
	})
	if err != nil {
		if store.IsNotFound(err) {
			return nil, PathMissingError{Path: fullPath}
		}
		return nil, err
	}

	b.cache.Set(fullPath, secret)
	return secret, nil
}

// ResolveVariable resolves a declared variable: the environment override is
// consulted first; absent that, the secret is fetched and the variable's
// nested keys are extracted.
func (b *Backend) ResolveVariable(ctx context.Context, v Variable) (any, error) {
	if b.opts.DisableSecrets {
		return nil, AccessDisabledError{}
	}

	fullPath := b.FullPath(v.Path())

	if mapping, ok, err := lookupOverride(v); ok {
		if err != nil {
			return nil, err
		}
		b.logger.Debug("using %s override for %s", v.OverrideName(), fullPath)
		return v.Extract(fullPath, mapping)
	}

	mapping, err := b.GetSecret(ctx, v.Path())
	if err != nil {
		return nil, err
	}
	return v.Extract(fullPath, mapping)
}

// getToken returns the backend's access token, acquiring and memoizing it on
// first use. Sources are tried in order: static token, OS keyring, userpass
// exchange. A store rejection propagates verbatim. fullPath only feeds error
// context.
func (b *Backend) getToken(ctx context.Context, fullPath string) (string, error) {
	b.tokenMu.Lock()
	defer b.tokenMu.Unlock()

	if b.token != nil {
		return b.token.String()
	}

	// Without a store address no credential path can succeed over the
	// network; fail with the same actionable error as missing credentials.
	if b.opts.Client == nil && b.opts.Address == "" {
		return "", MissingCredentialsError{
			Path:    fullPath,
			Missing: []string{"VAULT_ADDR"},
		}
	}

	if b.opts.Token != "" {
		b.token = secure.NewBufferFromString(b.opts.Token)
		return b.opts.Token, nil
	}

	if token, err := b.keyringToken(); err == nil && token != "" {
		b.logger.Debug("using token from OS keyring")
		b.token = secure.NewBufferFromString(token)
		return token, nil
	}

	if b.opts.Username != "" && b.opts.Password != "" {
		var token string
		err := b.call(ctx, func(ctx context.Context) error {
			countAuth()
			var authErr error
			token, authErr = b.client.Authenticate(ctx, b.opts.Username, b.opts.Password)
			return authErr
		})
		if err != nil {
			return "", err
		}
		b.token = secure.NewBufferFromString(token)
		return token, nil
	}

	return "", MissingCredentialsError{
		Path:    fullPath,
		Missing: []string{"VAULT_TOKEN", "VAULT_USERNAME and VAULT_PASSWORD"},
	}
}

// call runs op through the retry policy, counting retries.
func (b *Backend) call(ctx context.Context, op func(context.Context) error) error {
	policy := *b.retry
	userOnRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error) {
		countRetry()
		b.logger.Debug("retrying store call (attempt %d): %v", attempt, err)
		if userOnRetry != nil {
			userOnRetry(attempt, err)
		}
	}
	return policy.call(ctx, op)
}

// StoreKeyringToken saves a token in the OS keyring for later sessions.
func StoreKeyringToken(token string) error {
	return keyring.Set(KeyringService, KeyringUser, token)
}

// LookupKeyringToken reads the token saved by `envault login`, if any.
func LookupKeyringToken() (string, error) {
	return keyring.Get(KeyringService, KeyringUser)
}

// ClearKeyringToken removes the saved token from the OS keyring.
func ClearKeyringToken() error {
	return keyring.Delete(KeyringService, KeyringUser)
}
