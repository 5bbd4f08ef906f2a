// Package secure wraps memguard to keep credentials encrypted while they are
// held in process memory. The memoized store token lives in one of these
// buffers for the lifetime of a backend instance.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer holds sensitive bytes encrypted at rest in memory, protected from
// swapping via mlock where the platform allows it.
type Buffer struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewBuffer creates a protected buffer from secret bytes. The input is copied
// into the protected region; the caller should zero its own copy.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// NewBufferFromString creates a protected buffer from a secret string.
func NewBufferFromString(s string) *Buffer {
	return NewBuffer([]byte(s))
}

// Open decrypts the buffer and returns a locked plaintext view. The caller
// must call Destroy() on the returned LockedBuffer when done.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return b.enclave.Open()
}

// String decrypts the buffer and returns its contents as a string.
//
// The returned string is ordinary Go memory; use it only where the value must
// leave the enclave anyway, such as an outgoing request header.
func (b *Buffer) String() (string, error) {
	locked, err := b.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	// LockedBuffer.String is a view into the protected region, which Destroy
	// wipes; the []byte->string conversion copies out first.
	return string(locked.Bytes()), nil
}

// Destroy marks the buffer as destroyed and prevents further use. Idempotent.
// For full cleanup of all memguard data at exit, call memguard.Purge() in main.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
