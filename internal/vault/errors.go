package vault

import (
	"fmt"
	"strings"
)

// AccessDisabledError indicates the global kill-switch blocked secret access.
//
// Checked before any cache lookup or network call.
type AccessDisabledError struct{}

func (AccessDisabledError) Error() string {
	return "access to the secret store is disabled; unset ENVAULT_DISABLE_SECRETS to enable it"
}

// MissingCredentialsError indicates that no credential path could satisfy a
// fetch: no static token, no keyring entry, and no username/password pair.
type MissingCredentialsError struct {
	// Path is the full secret path whose fetch was attempted.
	Path string
	// Missing lists the environment inputs that would have to be set.
	Missing []string
}

func (e MissingCredentialsError) Error() string {
	return fmt.Sprintf(
		"can't access secret `%s` due to missing credentials: set %s",
		e.Path, strings.Join(e.Missing, " or "),
	)
}

// PathMissingError indicates the full path does not exist in the store.
type PathMissingError struct {
	Path string
}

func (e PathMissingError) Error() string {
	return fmt.Sprintf("option `%s` is not present in the secret store", e.Path)
}

// KeyMissingError indicates the path exists but a requested nested key within
// the fetched mapping does not.
type KeyMissingError struct {
	Path string
	Key  string
}

func (e KeyMissingError) Error() string {
	return fmt.Sprintf("path `%s` exists in the secret store but does not contain given key path - `%s`", e.Path, e.Key)
}

// OverrideError indicates an override environment variable was set but did
// not contain a JSON-encoded object.
type OverrideError struct {
	// Variable is the override environment variable name.
	Variable string
	// Reason describes what was wrong with the content.
	Reason string
}

func (e OverrideError) Error() string {
	msg := fmt.Sprintf("`%s` variable should be a JSON-encoded object", e.Variable)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
