package retrieval

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ofeng1/datathon/internal/embed"
)

// Open probes the configured index locations once: the dense directory is
// preferred, then the lexical file, then the empty strategy. An index that
// exists but cannot be read is an error.
func Open(cfg Config, e embed.Embedder, logger *slog.Logger) (Strategy, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if isDir(cfg.DenseDir) {
		idx, err := LoadDense(cfg.DenseDir, e, logger)
		if err != nil {
			return nil, fmt.Errorf("open dense index: %w", err)
		}
		logger.Info("knowledge index loaded", "component", "retrieval", "backend", BackendDense, "chunks", len(idx.Chunks))
		return idx, nil
	}
	if isFile(cfg.LexicalFile) {
		idx, err := LoadLexical(cfg.LexicalFile)
		if err != nil {
			return nil, fmt.Errorf("open lexical index: %w", err)
		}
		logger.Info("knowledge index loaded", "component", "retrieval", "backend", BackendLexical, "docs", len(idx.Docs))
		return idx, nil
	}
	logger.Warn("no knowledge index found", "component", "retrieval", "dense_dir", cfg.DenseDir, "lexical_file", cfg.LexicalFile)
	return none{}, nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// LoadDocuments reads every .md file directly under dir, sorted by name.
func LoadDocuments(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read kb dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", n, err)
		}
		docs = append(docs, Document{Source: n, Text: string(data)})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no .md documents in %s", dir)
	}
	return docs, nil
}
