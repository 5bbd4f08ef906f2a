package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertSecretRedacted verifies that a secret value does not appear in a
// string and that the [REDACTED] marker is present instead.
//
// Example usage:
//
//	output := captureLogs(...)
//	AssertSecretRedacted(t, output, "s.vault-token")
func AssertSecretRedacted(t *testing.T, output, secretValue string) {
	t.Helper()

	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in output", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker when secret is used")
}

// AssertNoSecretLeak verifies that none of the given secret values appear
// in output. Unlike AssertSecretRedacted it does not require a [REDACTED]
// marker, so it also covers output that should not mention secrets at all.
func AssertNoSecretLeak(t *testing.T, output string, secrets []string) {
	t.Helper()

	for _, secret := range secrets {
		assert.NotContains(t, output, secret,
			"Secret %q should not appear in output", secret)
	}
}

// AssertFileContainsAll verifies that a file contains all given substrings.
//
// Example usage:
//
//	AssertFileContainsAll(t, ".env", []string{"DATABASE_URL=", "API_KEY="})
func AssertFileContainsAll(t *testing.T, path string, substrings []string) {
	t.Helper()

	assert.FileExists(t, path, "File should exist: %s", path)

	data, err := os.ReadFile(path)
	assert.NoError(t, err, "Failed to read file %s", path)

	for _, substr := range substrings {
		assert.Contains(t, string(data), substr,
			"File %s should contain %q", path, substr)
	}
}
