package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region ollama-tests
func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mini", req.Model)
		assert.Equal(t, "chest pain", req.Input)
		_ = json.NewEncoder(w).Encode(ollamaEmbedResp{Embeddings: [][]float32{{0.1, 0.2, 0.3}}})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "mini", time.Second)
	vec, err := o.Embed(context.Background(), "chest pain")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOllamaErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}},
		{"bad-json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{"))
		}},
		{"empty", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[]}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewOllama(srv.URL, "", time.Second).Embed(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestOllamaDefaults(t *testing.T) {
	o := NewOllama("", "", 0)
	assert.Equal(t, DefaultOllamaModel, o.Model())
	assert.Equal(t, DefaultOllamaURL, o.url)
}

// #endregion ollama-tests

// #region cache-tests
type countingEmbedder struct {
	calls atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) Model() string { return "counting" }

func memCache(t *testing.T, next Embedder) *Cache {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	c := NewCache(db, next, time.Hour, nil)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheHit(t *testing.T) {
	inner := &countingEmbedder{}
	c := memCache(t, inner)

	first, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	second, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, "counting", c.Model())

	_, err = c.Embed(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	c := memCache(t, inner)

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
	_, err = c.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCacheKeyIncludesModel(t *testing.T) {
	assert.NotEqual(t, cacheKey("a", "text"), cacheKey("b", "text"))
	assert.Equal(t, cacheKey("a", "text"), cacheKey("a", "text"))
}

// #endregion cache-tests

// #region factory-tests
func TestNewBackends(t *testing.T) {
	h, err := New(Config{Backend: BackendNone}, nil)
	require.NoError(t, err)
	_, err = h.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NoError(t, h.Close())

	h, err = New(Config{Backend: BackendOllama, URL: "http://127.0.0.1:1/api/embed", Model: "m"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "m", h.Model())

	h, err = New(Config{Backend: BackendOllama, Model: "m", CacheDir: t.TempDir()}, nil)
	require.NoError(t, err)
	_, isCache := h.Embedder.(*Cache)
	assert.True(t, isCache)
	assert.NoError(t, h.Close())

	_, err = New(Config{Backend: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}

// #endregion factory-tests
