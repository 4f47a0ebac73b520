package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores extracted document text keyed by content hash.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key for a document from its raw bytes. Content
// addressing means a renamed copy of an invoice still hits and any change to
// the file misses.
func Key(content []byte) string {
	hash := sha256.Sum256(content)
	return "gridbill:v1:" + hex.EncodeToString(hash[:])
}
