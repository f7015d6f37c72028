package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Cache stores opaque values under string keys
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key, e.g. Key("search", "brave", query).
// Parts are hashed so arbitrary queries and URLs are safe file names.
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "factcheck-v1-" + namespace + "-" + hex.EncodeToString(hash[:])
}

// GetJSON decodes a cached JSON value into dst
func GetJSON(c Cache, key string, dst any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// SetJSON stores v as JSON
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, data, ttl)
}
