// Package testutil provides shared helpers for envault tests.
package testutil

import (
	"os"
	"testing"
)

// SetupTestEnv sets environment variables for the duration of a test and
// restores the previous values via t.Cleanup. Unlike t.Setenv it takes a
// whole map, which keeps VAULT_* fixtures in one place.
//
// Example usage:
//
//	SetupTestEnv(t, map[string]string{
//	    "VAULT_ADDR":  server.URL,
//	    "VAULT_TOKEN": "s.test-token",
//	})
func SetupTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()

	original := make(map[string]string)
	var unset []string

	for key, value := range vars {
		if orig, ok := os.LookupEnv(key); ok {
			original[key] = orig
		} else {
			unset = append(unset, key)
		}

		if err := os.Setenv(key, value); err != nil {
			t.Fatalf("Failed to set environment variable %s: %v", key, err)
		}
	}

	t.Cleanup(func() {
		for key, value := range original {
			if err := os.Setenv(key, value); err != nil {
				t.Errorf("Failed to restore environment variable %s: %v", key, err)
			}
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Errorf("Failed to unset environment variable %s: %v", key, err)
			}
		}
	})
}

// UnsetTestEnv guarantees the named variables are absent during the test
// and restored afterwards. Useful for credential-missing scenarios where
// ambient VAULT_* variables would change behavior.
func UnsetTestEnv(t *testing.T, names ...string) {
	t.Helper()

	original := make(map[string]string)
	for _, name := range names {
		if orig, ok := os.LookupEnv(name); ok {
			original[name] = orig
		}
		if err := os.Unsetenv(name); err != nil {
			t.Fatalf("Failed to unset environment variable %s: %v", name, err)
		}
	}

	t.Cleanup(func() {
		for name, value := range original {
			_ = os.Setenv(name, value)
		}
	})
}
