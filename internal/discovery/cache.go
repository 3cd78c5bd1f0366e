// Package discovery — cache.go
//
// SchemaCache stores discovered PII schemas keyed by a fingerprint of the
// header list, so re-running discovery over same-shaped files skips the
// model call. Two implementations are provided:
//   - memoryCache — in-memory only, used in tests and when no path is configured.
//   - bboltCache  — embedded key-value store (bbolt), used in production.
package discovery

import (
	"fmt"
	"log"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// SchemaCache persists discovered schemas across runs.
// All implementations must be safe for concurrent use.
type SchemaCache interface {
	// Get returns the cached schema JSON for the given fingerprint, if present.
	Get(fingerprint string) (data []byte, ok bool)

	// Set stores fingerprint → schema JSON. Overwrites silently.
	Set(fingerprint string, data []byte)

	// Close releases any resources held by the cache (e.g. file handles).
	Close() error
}

// NewCache returns a bbolt-backed cache when path is non-empty, otherwise an
// in-memory cache.
func NewCache(path string) (SchemaCache, error) {
	if path == "" {
		return newMemoryCache(), nil
	}
	return newBboltCache(path)
}

// --- memoryCache ---------------------------------------------------------

type memoryCache struct {
	mu    sync.RWMutex
	store map[string][]byte
}

func newMemoryCache() SchemaCache {
	return &memoryCache{store: make(map[string][]byte)}
}

func (c *memoryCache) Get(fingerprint string) ([]byte, bool) {
	c.mu.RLock()
	v, ok := c.store[fingerprint]
	c.mu.RUnlock()
	return v, ok
}

func (c *memoryCache) Set(fingerprint string, data []byte) {
	c.mu.Lock()
	c.store[fingerprint] = data
	c.mu.Unlock()
}

func (c *memoryCache) Close() error { return nil }

// --- bboltCache ----------------------------------------------------------

const bboltBucket = "schema_cache"

// bboltCache is a SchemaCache backed by an embedded bbolt database. Entries
// survive process restarts. The database file is created at the given path
// if it does not exist.
type bboltCache struct {
	db *bolt.DB
}

func newBboltCache(path string) (SchemaCache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open schema cache %q: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bboltBucket))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("create schema bucket: %w", err)
	}

	return &bboltCache{db: db}, nil
}

func (c *bboltCache) Get(fingerprint string) ([]byte, bool) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bboltBucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(fingerprint)); v != nil {
			data = append([]byte(nil), v...) // copy: v is only valid inside the tx
		}
		return nil
	})
	if err != nil {
		log.Printf("[DISCOVERY] schema cache Get error: %v", err)
		return nil, false
	}
	return data, data != nil
}

func (c *bboltCache) Set(fingerprint string, data []byte) {
	if err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bboltBucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", bboltBucket)
		}
		return b.Put([]byte(fingerprint), data)
	}); err != nil {
		log.Printf("[DISCOVERY] schema cache Set error: %v", err)
	}
}

func (c *bboltCache) Close() error {
	return c.db.Close()
}
