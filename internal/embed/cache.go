package embed

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultCacheTTL bounds how long a cached vector is served.
const DefaultCacheTTL = 7 * 24 * time.Hour

// #region cache
// Cache wraps an Embedder with a BadgerDB-backed vector cache keyed by
// sha256(model + text). Cache failures never fail an embedding call.
type Cache struct {
	next   Embedder
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// OpenCache opens (or creates) a badger store at dir.
func OpenCache(dir string, next Embedder, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open embedding cache %s: %w", dir, err)
	}
	return NewCache(db, next, ttl, logger), nil
}

// NewCache wraps an already-open badger database.
func NewCache(db *badger.DB, next Embedder, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{next: next, db: db, ttl: ttl, logger: logger.With("component", "embed_cache")}
}

// Model returns the wrapped embedder's model.
func (c *Cache) Model() string { return c.next.Model() }

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// Embed serves from the cache, falling through to the wrapped embedder on a miss.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.next.Model(), text)

	if vec, err := c.load(key); err == nil {
		return vec, nil
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		c.logger.Warn("embedding cache load failed", slog.String("error", err.Error()))
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.save(key, vec); err != nil {
		c.logger.Warn("embedding cache save failed", slog.String("error", err.Error()))
	}
	return vec, nil
}

func (c *Cache) load(key []byte) ([]float32, error) {
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&vec)
		})
	})
	return vec, err
}

func (c *Cache) save(key []byte, vec []float32) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(vec); err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, buf.Bytes()).WithTTL(c.ttl))
	})
}

func cacheKey(model, text string) []byte {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return []byte("embed/v1/" + hex.EncodeToString(sum[:]))
}

// #endregion cache
