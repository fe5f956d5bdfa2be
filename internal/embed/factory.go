package embed

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ofeng1/datathon/internal/codec"
)

// Backend names.
const (
	BackendOllama = "ollama"
	BackendGRPC   = "grpc"
	BackendNone   = "none"
)

// #region config
// Config selects and tunes the embedding backend.
type Config struct {
	Backend  string        `yaml:"backend"`
	URL      string        `yaml:"url"`
	Model    string        `yaml:"model"`
	GRPCAddr string        `yaml:"grpc_addr"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheDir string        `yaml:"cache_dir"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// DefaultConfig uses a local Ollama with no persistent cache.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendOllama,
		URL:      DefaultOllamaURL,
		Model:    DefaultOllamaModel,
		Timeout:  30 * time.Second,
		CacheTTL: DefaultCacheTTL,
	}
}

// #endregion config

// #region factory
// Handle is an embedder plus the resources it owns.
type Handle struct {
	Embedder
	closers []func() error
}

// Close releases the cache and any gRPC connection.
func (h *Handle) Close() error {
	var first error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// New builds the configured embedder, wrapping it in a badger cache when
// CacheDir is set.
func New(cfg Config, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handle{}

	switch cfg.Backend {
	case BackendOllama, "":
		h.Embedder = NewOllama(cfg.URL, cfg.Model, cfg.Timeout)
	case BackendGRPC:
		client, err := codec.NewClient(cfg.GRPCAddr, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		h.Embedder = client
		h.closers = append(h.closers, client.Close)
	case BackendNone:
		h.Embedder = Nop{}
		return h, nil
	default:
		return nil, fmt.Errorf("embedder: unknown backend %q", cfg.Backend)
	}

	if cfg.CacheDir != "" {
		c, err := OpenCache(cfg.CacheDir, h.Embedder, cfg.CacheTTL, logger)
		if err != nil {
			_ = h.Close()
			return nil, err
		}
		h.Embedder = c
		h.closers = append(h.closers, c.Close)
	}

	logger.Info("embedder ready", "component", "embed", "backend", cfg.Backend, "model", h.Model(), "cache", cfg.CacheDir != "")
	return h, nil
}

// #endregion factory
