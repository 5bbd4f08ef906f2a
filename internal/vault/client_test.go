package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envault/envault/pkg/store"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClientRead(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/secret/team/path/to", r.URL.Path)
		assert.Equal(t, "s.test-token", r.Header.Get("X-Vault-Token"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"SECRET": "value", "IS_SECRET": true},
		})
	})

	client := NewHTTPClient(server.URL, "", time.Second, nil)
	secret, err := client.Read(context.Background(), "secret/team/path/to", "s.test-token")
	require.NoError(t, err)
	assert.Equal(t, store.Secret{"SECRET": "value", "IS_SECRET": true}, secret)
}

func TestHTTPClientReadNamespaceHeader(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "team-a", r.Header.Get("X-Vault-Namespace"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	})

	client := NewHTTPClient(server.URL, "team-a", time.Second, nil)
	_, err := client.Read(context.Background(), "path/to", "s.token")
	require.NoError(t, err)
}

func TestHTTPClientReadNotFound(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[]}`, http.StatusNotFound)
	})

	client := NewHTTPClient(server.URL, "", time.Second, nil)
	_, err := client.Read(context.Background(), "something/missing", "s.token")
	var notFound store.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "something/missing", notFound.Path)
}

func TestHTTPClientReadNullData(t *testing.T) {
	t.Parallel()

	// A 200 with "data": null carries no secret; treat it as absent.
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": null}`))
	})

	client := NewHTTPClient(server.URL, "", time.Second, nil)
	_, err := client.Read(context.Background(), "path/to", "s.token")
	assert.True(t, store.IsNotFound(err))
}

func TestHTTPClientReadForbidden(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":["permission denied"]}`, http.StatusForbidden)
	})

	client := NewHTTPClient(server.URL, "", time.Second, nil)
	_, err := client.Read(context.Background(), "path/to", "s.token")
	var forbidden store.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Contains(t, forbidden.Message, "permission denied")
}

func TestHTTPClientReadServerError(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	client := NewHTTPClient(server.URL, "", time.Second, nil)
	_, err := client.Read(context.Background(), "path/to", "s.token")
	assert.True(t, store.IsTransient(err))
}

func TestHTTPClientReadConnectionRefused(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := NewHTTPClient(server.URL, "", time.Second, nil)
	_, err := client.Read(context.Background(), "path/to", "s.token")
	assert.True(t, store.IsTransient(err))
}

func TestHTTPClientAuthenticate(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/auth/userpass/login/test_user", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "test_password", payload["password"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"auth": map[string]any{"client_token": "s.exchanged-token"},
		})
	})

	client := NewHTTPClient(server.URL, "", time.Second, nil)
	token, err := client.Authenticate(context.Background(), "test_user", "test_password")
	require.NoError(t, err)
	assert.Equal(t, "s.exchanged-token", token)
}

func TestHTTPClientAuthenticateBadCredentials(t *testing.T) {
	t.Parallel()

	// Vault reports bad userpass credentials as 400, not only 403.
	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden} {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"errors":["invalid username or password"]}`, status)
		})

		client := NewHTTPClient(server.URL, "", time.Second, nil)
		_, err := client.Authenticate(context.Background(), "test_user", "wrong")
		var forbidden store.ForbiddenError
		require.ErrorAs(t, err, &forbidden)
		assert.Contains(t, forbidden.Message, "invalid username or password")
	}
}

func TestHTTPClientAuthenticateServerError(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sealed", http.StatusServiceUnavailable)
	})

	client := NewHTTPClient(server.URL, "", time.Second, nil)
	_, err := client.Authenticate(context.Background(), "test_user", "test_password")
	assert.True(t, store.IsTransient(err))
}

func TestHTTPClientAuthenticateEmptyToken(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"auth": {}}`))
	})

	client := NewHTTPClient(server.URL, "", time.Second, nil)
	_, err := client.Authenticate(context.Background(), "test_user", "test_password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token received")
}

func TestBackendAgainstFakeServer(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/userpass/login/test_user":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"auth": map[string]any{"client_token": "s.exchanged-token"},
			})
		case "/v1/secret/team/path/to":
			assert.Equal(t, "s.exchanged-token", r.Header.Get("X-Vault-Token"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"SECRET": "value"},
			})
		default:
			http.NotFound(w, r)
		}
	})

	backend, err := NewBackend(Options{
		Address:      server.URL,
		Username:     "test_user",
		Password:     "test_password",
		Prefix:       "secret/team",
		KeyringToken: noKeyring,
	})
	require.NoError(t, err)

	got, err := backend.ResolveVariable(context.Background(), NewVariable("path/to").Key("SECRET"))
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	_, err = backend.GetSecret(context.Background(), "absent")
	var missing PathMissingError
	require.ErrorAs(t, err, &missing)
}
