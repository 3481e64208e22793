package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for the fetched-document cache
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from a document URL
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "delver:v1:" + hex.EncodeToString(hash[:])
}
