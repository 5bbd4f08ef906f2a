package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferRoundTrip(t *testing.T) {
	buf := NewBufferFromString("s.token-value")

	got, err := buf.String()
	require.NoError(t, err)
	assert.Equal(t, "s.token-value", got)

	// Repeated opens return the same contents.
	got, err = buf.String()
	require.NoError(t, err)
	assert.Equal(t, "s.token-value", got)
}

func TestBufferStringOutlivesProtectedMemory(t *testing.T) {
	buf := NewBufferFromString("s.memoized-token")

	got, err := buf.String()
	require.NoError(t, err)

	// The returned string must be an independent copy, not a view into the
	// locked region, so it stays readable after the buffer is torn down.
	buf.Destroy()
	assert.Equal(t, "s.memoized-token", got)
}

func TestBufferDestroy(t *testing.T) {
	buf := NewBufferFromString("short-lived")
	buf.Destroy()
	buf.Destroy() // idempotent

	got, err := buf.String()
	require.NoError(t, err)
	assert.Empty(t, got)
}
