package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/envault/envault/internal/logging"
	"github.com/envault/envault/pkg/store"
)

// DefaultTimeout bounds each individual store request.
const DefaultTimeout = 30 * time.Second

// HTTPClient talks to a HashiCorp Vault-compatible HTTP API.
//
// It implements store.Client: reads go to /v1/<path> with the token in the
// X-Vault-Token header; userpass authentication posts to
// /v1/auth/userpass/login/<username>.
type HTTPClient struct {
	address    string
	namespace  string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewHTTPClient creates a client for the store at address.
func NewHTTPClient(address, namespace string, timeout time.Duration, logger *logging.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.New(false, false)
	}
	return &HTTPClient{
		address:    strings.TrimSuffix(address, "/"),
		namespace:  namespace,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Read fetches the secret mapping stored at path.
func (c *HTTPClient) Read(ctx context.Context, path, token string) (store.Secret, error) {
	url := c.address + "/v1/" + strings.TrimPrefix(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Vault-Token", token)
	if c.namespace != "" {
		req.Header.Set("X-Vault-Namespace", c.namespace)
	}

	c.logger.Debug("reading secret path %s", logging.Secret(path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, store.TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, store.NotFoundError{Path: path}
	case resp.StatusCode == http.StatusForbidden:
		return nil, store.ForbiddenError{Message: readErrorBody(resp.Body)}
	case resp.StatusCode >= 500:
		return nil, store.TransientError{
			Err: fmt.Errorf("store returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body)),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("store returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var response struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Data == nil {
		return nil, store.NotFoundError{Path: path}
	}

	return store.Secret(response.Data), nil
}

// Authenticate exchanges a username/password pair for a client token.
func (c *HTTPClient) Authenticate(ctx context.Context, username, password string) (string, error) {
	url := c.address + "/v1/auth/userpass/login/" + username

	body, err := json.Marshal(map[string]any{"password": password})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.namespace != "" {
		req.Header.Set("X-Vault-Namespace", c.namespace)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", store.TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest:
		// Vault reports bad userpass credentials as 400 as well as 403.
		return "", store.ForbiddenError{Message: readErrorBody(resp.Body)}
	case resp.StatusCode >= 500:
		return "", store.TransientError{
			Err: fmt.Errorf("auth endpoint returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body)),
		}
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("auth endpoint returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var authResp struct {
		Auth struct {
			ClientToken string `json:"client_token"`
		} `json:"auth"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	if authResp.Auth.ClientToken == "" {
		return "", fmt.Errorf("no token received from auth endpoint")
	}

	return authResp.Auth.ClientToken, nil
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(body))
}

var _ store.Client = (*HTTPClient)(nil)
