package store

import (
	"sync"

	"github.com/google/uuid"
)

// keyPool provides reusable byte slices for building database keys.
// This reduces allocations on the hot path of database operations.
var keyPool = sync.Pool{
	New: func() any {
		// Pre-allocate 64 bytes which covers every key shape:
		// prefix (8 bytes) + UUID string (36 bytes).
		return make([]byte, 0, 64)
	},
}

// buildKey constructs a database key from prefix and id using a pooled buffer.
// The returned slice is valid until releaseKey is called.
// Callers MUST call releaseKey when done with the key.
//
// Usage:
//
//	key := buildKey(windowPrefix, windowID)
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(prefix string, id uuid.UUID) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0] // Reset length, keep capacity
	buf = append(buf, prefix...)
	buf = append(buf, id.String()...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	// Only pool buffers that have reasonable capacity
	// Avoids keeping oversized buffers in the pool
	if cap(key) <= 128 {
		keyPool.Put(key[:0])
	}
}
