// Package store defines the boundary between envault and the remote secret store.
//
// The Client interface abstracts the store's network API behind two operations:
// an authenticated read of a secret path and a username/password token exchange.
// envault's resolution core (internal/vault) is written against this interface,
// which keeps the HTTP transport swappable and lets tests substitute in-memory
// fakes.
//
// # Error Handling
//
// Implementations must use the typed errors defined here for the failure modes
// the core handles explicitly:
//   - NotFoundError when the path does not exist
//   - ForbiddenError when the store rejects the supplied credentials
//   - TransientError for network-level failures worth retrying
//
// Any other error propagates to the caller unmodified.
//
// # Security Considerations
//
// Implementations must never log secret values or tokens (use the
// logging.Secret wrapper when a path or token must appear in debug output)
// and must support context cancellation on every network call.
package store

import "context"

// Secret is the key-value mapping stored at a single secret path.
type Secret map[string]any

// Client performs reads against one remote secret store.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Read fetches the secret mapping stored at path using token for
	// authentication. Returns NotFoundError if the path does not exist and
	// ForbiddenError if the token is rejected.
	Read(ctx context.Context, path, token string) (Secret, error)

	// Authenticate exchanges a username/password pair for an access token.
	// Returns ForbiddenError if the store rejects the credentials.
	Authenticate(ctx context.Context, username, password string) (string, error)
}

// NotFoundError indicates that a requested path does not exist in the store.
//
// This is distinct from authentication failures: the request was accepted,
// but nothing is stored at the path.
type NotFoundError struct {
	// Path is the full secret path that could not be found.
	Path string
}

func (e NotFoundError) Error() string {
	return "secret path not found: " + e.Path
}

// ForbiddenError indicates that the store rejected the supplied credentials.
//
// The core propagates this error verbatim so callers see exactly what the
// store reported.
type ForbiddenError struct {
	// Message carries the store's own description of the rejection.
	Message string
}

func (e ForbiddenError) Error() string {
	if e.Message == "" {
		return "store rejected the supplied credentials"
	}
	return "store rejected the supplied credentials: " + e.Message
}

// TransientError wraps a network-level failure that is worth retrying, such
// as a connection reset, a timeout, or a 5xx response from the store.
type TransientError struct {
	Err error
}

func (e TransientError) Error() string {
	return "transient store error: " + e.Err.Error()
}

func (e TransientError) Unwrap() error {
	return e.Err
}
