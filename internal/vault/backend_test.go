package vault

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envault/envault/pkg/store"
)

// fakeClient implements store.Client for testing.
type fakeClient struct {
	ReadFunc         func(ctx context.Context, path, token string) (store.Secret, error)
	AuthenticateFunc func(ctx context.Context, username, password string) (string, error)

	mu    sync.Mutex
	reads int
	auths int
}

func (f *fakeClient) Read(ctx context.Context, path, token string) (store.Secret, error) {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	if f.ReadFunc != nil {
		return f.ReadFunc(ctx, path, token)
	}
	return store.Secret{"SECRET": "value", "IS_SECRET": true, "DECIMAL": "1.3"}, nil
}

func (f *fakeClient) Authenticate(ctx context.Context, username, password string) (string, error) {
	f.mu.Lock()
	f.auths++
	f.mu.Unlock()
	if f.AuthenticateFunc != nil {
		return f.AuthenticateFunc(ctx, username, password)
	}
	return "s.exchanged-token", nil
}

func (f *fakeClient) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func noKeyring() (string, error) {
	return "", errors.New("keyring unavailable")
}

func newTestBackend(t *testing.T, client *fakeClient, mutate func(*Options)) *Backend {
	t.Helper()

	opts := Options{
		Token:        "s.static-token",
		Prefix:       "secret/team",
		CacheTTL:     0,
		Client:       client,
		KeyringToken: noKeyring,
	}
	if mutate != nil {
		mutate(&opts)
	}

	backend, err := NewBackend(opts)
	require.NoError(t, err)
	return backend
}

func TestGetSecretFetchesAndExtracts(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	backend := newTestBackend(t, client, nil)

	secret, err := backend.GetSecret(context.Background(), "/path/to/")
	require.NoError(t, err)
	assert.Equal(t, store.Secret{"SECRET": "value", "IS_SECRET": true, "DECIMAL": "1.3"}, secret)
	assert.Equal(t, 1, client.reads)
}

func TestGetSecretPathNormalization(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		ReadFunc: func(_ context.Context, path, _ string) (store.Secret, error) {
			assert.Equal(t, "secret/team/path/to", path)
			return store.Secret{"SECRET": "value"}, nil
		},
	}
	backend := newTestBackend(t, client, nil)

	for _, p := range []string{"/path/to/", "/path/to", "path/to/", "path/to"} {
		_, err := backend.GetSecret(context.Background(), p)
		require.NoError(t, err)
	}
}

func TestGetSecretCacheIdempotence(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	backend := newTestBackend(t, client, func(o *Options) { o.CacheTTL = 1 })
	clock := newFakeClock()
	backend.cache.setClock(clock.now)

	ctx := context.Background()

	// Cold cache: one network read, then the entry is stored.
	_, err := backend.GetSecret(ctx, "path/to")
	require.NoError(t, err)
	assert.Equal(t, 1, client.reads)
	assert.Contains(t, backend.Cache().Data(), "secret/team/path/to")

	// Warm cache within the TTL window: no further reads.
	clock.tick(500 * time.Millisecond)
	_, err = backend.GetSecret(ctx, "path/to")
	require.NoError(t, err)
	assert.Equal(t, 1, client.reads)

	// Past expiry: exactly one more read.
	clock.tick(600 * time.Millisecond)
	_, err = backend.GetSecret(ctx, "path/to")
	require.NoError(t, err)
	assert.Equal(t, 2, client.reads)
}

func TestGetSecretTTLZeroBypassesStorage(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	backend := newTestBackend(t, client, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := backend.GetSecret(ctx, "path/to")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, client.reads)
}

func TestGetSecretMissingPath(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		ReadFunc: func(_ context.Context, path, _ string) (store.Secret, error) {
			return nil, store.NotFoundError{Path: path}
		},
	}
	backend := newTestBackend(t, client, nil)

	_, err := backend.GetSecret(context.Background(), "something/missing")
	var missingErr PathMissingError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "secret/team/something/missing", missingErr.Path)
	assert.Equal(t, 1, client.reads, "not-found is never retried")
}

func TestGetSecretForbiddenPropagatesVerbatim(t *testing.T) {
	t.Parallel()

	rejection := store.ForbiddenError{Message: "permission denied"}
	client := &fakeClient{
		ReadFunc: func(context.Context, string, string) (store.Secret, error) {
			return nil, rejection
		},
	}
	backend := newTestBackend(t, client, nil)

	_, err := backend.GetSecret(context.Background(), "path/to")
	assert.Equal(t, error(rejection), err)
	assert.Equal(t, 1, client.reads)
}

func TestGetSecretRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	client.ReadFunc = func(context.Context, string, string) (store.Secret, error) {
		if client.readCount() < 3 {
			return nil, store.TransientError{Err: errors.New("connection reset")}
		}
		return store.Secret{"SECRET": "value"}, nil
	}
	backend := newTestBackend(t, client, nil)

	secret, err := backend.GetSecret(context.Background(), "path/to")
	require.NoError(t, err)
	assert.Equal(t, "value", secret["SECRET"])
	assert.Equal(t, 3, client.reads)
}

func TestGetSecretRetryExhaustion(t *testing.T) {
	t.Parallel()

	down := store.TransientError{Err: errors.New("store down")}
	client := &fakeClient{
		ReadFunc: func(context.Context, string, string) (store.Secret, error) {
			return nil, down
		},
	}
	backend := newTestBackend(t, client, func(o *Options) {
		o.Retry = &RetryPolicy{MaxAttempts: 2}
	})

	_, err := backend.GetSecret(context.Background(), "path/to")
	assert.Equal(t, error(down), err)
	assert.Equal(t, 2, client.reads)
}

func TestNewBackendDoesNotMutateCallerRetryPolicy(t *testing.T) {
	t.Parallel()

	shared := &RetryPolicy{}
	client := &fakeClient{
		ReadFunc: func(context.Context, string, string) (store.Secret, error) {
			return nil, store.TransientError{Err: errors.New("store down")}
		},
	}
	backend := newTestBackend(t, client, func(o *Options) {
		o.Retry = shared
	})

	_, err := backend.GetSecret(context.Background(), "path/to")
	require.Error(t, err)

	// The backend normalizes its own copy; the caller's policy stays zero.
	assert.Zero(t, shared.MaxAttempts)
	assert.Nil(t, shared.RetryIf)
	assert.Equal(t, 3, client.readCount())
}

func TestTokenStaticBypassesExchange(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		ReadFunc: func(_ context.Context, _ string, token string) (store.Secret, error) {
			assert.Equal(t, "s.static-token", token)
			return store.Secret{"SECRET": "value"}, nil
		},
	}
	backend := newTestBackend(t, client, nil)

	_, err := backend.GetSecret(context.Background(), "path/to")
	require.NoError(t, err)
	assert.Zero(t, client.auths)
}

func TestTokenUserpassExchangedOnce(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		ReadFunc: func(_ context.Context, _ string, token string) (store.Secret, error) {
			assert.Equal(t, "s.exchanged-token", token)
			return store.Secret{"SECRET": "value"}, nil
		},
	}
	backend := newTestBackend(t, client, func(o *Options) {
		o.Token = ""
		o.Username = "test_user"
		o.Password = "test_password"
	})

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := backend.GetSecret(ctx, "path/to")
		require.NoError(t, err)
	}

	// The exchange happens at most once per backend instance, even without
	// caching of the secret data itself.
	assert.Equal(t, 1, client.auths)
	assert.Equal(t, 4, client.reads)
}

func TestTokenKeyringConsultedBeforeUserpass(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		ReadFunc: func(_ context.Context, _ string, token string) (store.Secret, error) {
			assert.Equal(t, "s.keyring-token", token)
			return store.Secret{"SECRET": "value"}, nil
		},
	}
	backend := newTestBackend(t, client, func(o *Options) {
		o.Token = ""
		o.Username = "test_user"
		o.Password = "test_password"
		o.KeyringToken = func() (string, error) { return "s.keyring-token", nil }
	})

	_, err := backend.GetSecret(context.Background(), "path/to")
	require.NoError(t, err)
	assert.Zero(t, client.auths)
}

func TestTokenExchangeRejectionPropagates(t *testing.T) {
	t.Parallel()

	rejection := store.ForbiddenError{Message: "invalid username or password"}
	client := &fakeClient{
		AuthenticateFunc: func(context.Context, string, string) (string, error) {
			return "", rejection
		},
	}
	backend := newTestBackend(t, client, func(o *Options) {
		o.Token = ""
		o.Username = "test_user"
		o.Password = "wrong"
	})

	_, err := backend.GetSecret(context.Background(), "path/to")
	assert.Equal(t, error(rejection), err)
	assert.Equal(t, 1, client.auths)
	assert.Zero(t, client.reads)
}

func TestMissingCredentials(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	backend := newTestBackend(t, client, func(o *Options) {
		o.Token = ""
	})

	_, err := backend.GetSecret(context.Background(), "/path/to")
	var credErr MissingCredentialsError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, "secret/team/path/to", credErr.Path)
	assert.Contains(t, err.Error(), "VAULT_TOKEN")
	assert.Contains(t, err.Error(), "VAULT_USERNAME and VAULT_PASSWORD")
	assert.Zero(t, client.reads)
}

func TestMissingAddress(t *testing.T) {
	t.Parallel()

	backend, err := NewBackend(Options{
		Token:        "s.token",
		KeyringToken: noKeyring,
	})
	require.NoError(t, err)

	_, err = backend.GetSecret(context.Background(), "path/to")
	var credErr MissingCredentialsError
	require.ErrorAs(t, err, &credErr)
	assert.Contains(t, err.Error(), "VAULT_ADDR")
}

func TestDisabledAccessBlocksEverything(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	backend := newTestBackend(t, client, func(o *Options) {
		o.DisableSecrets = true
		o.CacheTTL = 600
	})

	_, err := backend.GetSecret(context.Background(), "path/to")
	var disabledErr AccessDisabledError
	require.ErrorAs(t, err, &disabledErr)
	assert.Contains(t, err.Error(), "ENVAULT_DISABLE_SECRETS")

	_, err = backend.ResolveVariable(context.Background(), NewVariable("path/to"))
	require.ErrorAs(t, err, &disabledErr)

	// The kill-switch applies before any cache or network interaction.
	assert.Zero(t, client.reads)
	assert.Zero(t, client.auths)
	assert.Empty(t, backend.Cache().Data())
}

func TestResolveVariableNestedExtraction(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	backend := newTestBackend(t, client, nil)

	got, err := backend.ResolveVariable(context.Background(), NewVariable("path/to").Key("SECRET"))
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	_, err = backend.ResolveVariable(context.Background(), NewVariable("path/to").Key("ANOTHER_SECRET"))
	var keyErr KeyMissingError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "secret/team/path/to", keyErr.Path)
	assert.Equal(t, "ANOTHER_SECRET", keyErr.Key)
}

func TestResolveVariableOverridePrecedence(t *testing.T) {
	t.Setenv("PATH__TO", `{"SECRET": "bar"}`)

	client := &fakeClient{}
	backend := newTestBackend(t, client, func(o *Options) { o.CacheTTL = 600 })

	whole, err := backend.ResolveVariable(context.Background(), NewVariable("path/to"))
	require.NoError(t, err)
	assert.Equal(t, any(store.Secret{"SECRET": "bar"}), whole)

	narrowed, err := backend.ResolveVariable(context.Background(), NewVariable("path/to").Key("SECRET"))
	require.NoError(t, err)
	assert.Equal(t, "bar", narrowed)

	// The store is never contacted while the override is set.
	assert.Zero(t, client.reads)
	assert.Zero(t, client.auths)
}

func TestResolveVariableOverrideInvalid(t *testing.T) {
	for _, raw := range []string{`[1, 2]`, `[invalid]`} {
		t.Setenv("PATH__TO", raw)

		client := &fakeClient{}
		backend := newTestBackend(t, client, nil)

		_, err := backend.ResolveVariable(context.Background(), NewVariable("path/to").Key("SECRET"))
		var overrideErr OverrideError
		require.ErrorAs(t, err, &overrideErr)
		assert.Equal(t, "PATH__TO", overrideErr.Variable)
		assert.Zero(t, client.reads)
	}
}

func TestNewBackendRejectsInvalidTTL(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(Options{CacheTTL: MaxCacheTTL + 1})
	require.Error(t, err)
}

func TestConcurrentFetchesDoNotCorruptCache(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		ReadFunc: func(_ context.Context, path, _ string) (store.Secret, error) {
			return store.Secret{"PATH": path}, nil
		},
	}
	backend := newTestBackend(t, client, func(o *Options) { o.CacheTTL = 600 })

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := backend.GetSecret(context.Background(), "path/to")
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}

	cached, ok := backend.Cache().Get("secret/team/path/to")
	require.True(t, ok)
	assert.Equal(t, "secret/team/path/to", cached["PATH"])
}
