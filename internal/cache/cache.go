package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// keyPrefix is bumped whenever the cached batch format changes
const keyPrefix = "zettelgen:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives a stable key from its parts (provider, model, text, ...).
// Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func CacheKey(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return keyPrefix + hex.EncodeToString(hash[:])
}
