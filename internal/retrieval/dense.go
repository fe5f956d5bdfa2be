package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ofeng1/datathon/internal/embed"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/errgroup"
)

// DenseIndexFile is the file name inside a dense index directory.
const DenseIndexFile = "index.json"

// #region index
type denseChunk struct {
	Source string    `json:"source"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// DenseIndex is an exhaustive nearest-neighbour index over embedded chunks.
type DenseIndex struct {
	Model     string       `json:"model"`
	Dimension int          `json:"dimension"`
	Chunks    []denseChunk `json:"chunks"`

	embedder embed.Embedder
	logger   *slog.Logger
}

// DenseOptions controls chunking and embedding concurrency.
type DenseOptions struct {
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int
}

// DefaultDenseOptions returns 256-character chunks with 32 characters of overlap.
func DefaultDenseOptions() DenseOptions {
	return DenseOptions{ChunkSize: 256, ChunkOverlap: 32, Concurrency: 8}
}

// #endregion index

// #region build
// BuildDense splits docs into chunks and embeds them concurrently.
func BuildDense(ctx context.Context, docs []Document, e embed.Embedder, opts DenseOptions) (*DenseIndex, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("build dense index: no documents")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.ChunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)

	var chunks []denseChunk
	for _, d := range docs {
		parts, err := splitter.SplitText(d.Text)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", d.Source, err)
		}
		for _, p := range parts {
			if strings.TrimSpace(p) == "" {
				continue
			}
			chunks = append(chunks, denseChunk{Source: d.Source, Text: p})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range chunks {
		g.Go(func() error {
			vec, err := e.Embed(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("embed chunk %d of %s: %w", i, chunks[i].Source, err)
			}
			chunks[i].Vector = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &DenseIndex{Model: e.Model(), Chunks: chunks, embedder: e, logger: slog.Default()}
	if len(chunks) > 0 {
		idx.Dimension = len(chunks[0].Vector)
	}
	for i, c := range chunks {
		if len(c.Vector) != idx.Dimension {
			return nil, fmt.Errorf("chunk %d: dimension %d, want %d", i, len(c.Vector), idx.Dimension)
		}
	}
	return idx, nil
}

// #endregion build

// #region persist
// SaveDense writes the index into dir, creating it if needed.
func (idx *DenseIndex) SaveDense(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dense index dir: %w", err)
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal dense index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, DenseIndexFile), data, 0o644); err != nil {
		return fmt.Errorf("write dense index: %w", err)
	}
	return nil
}

// LoadDense reads the index in dir and binds the query embedder.
func LoadDense(dir string, e embed.Embedder, logger *slog.Logger) (*DenseIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(filepath.Join(dir, DenseIndexFile))
	if err != nil {
		return nil, fmt.Errorf("read dense index: %w", err)
	}
	var idx DenseIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode dense index %s: %w", dir, err)
	}
	if err := idx.validate(); err != nil {
		return nil, fmt.Errorf("dense index %s: %w", dir, err)
	}
	if e != nil && e.Model() != "" && idx.Model != "" && e.Model() != idx.Model {
		logger.Warn("dense index built with a different embedding model",
			"component", "retrieval", "index_model", idx.Model, "embedder_model", e.Model())
	}
	idx.embedder = e
	idx.logger = logger
	return &idx, nil
}

// validate rejects chunk vectors that disagree with the recorded dimension.
func (idx *DenseIndex) validate() error {
	if idx.Dimension <= 0 && len(idx.Chunks) > 0 {
		return fmt.Errorf("invalid dimension %d", idx.Dimension)
	}
	for i, c := range idx.Chunks {
		if len(c.Vector) != idx.Dimension {
			return fmt.Errorf("chunk %d: dimension %d, want %d", i, len(c.Vector), idx.Dimension)
		}
	}
	return nil
}

// #endregion persist

// #region search
// Backend implements Strategy.
func (idx *DenseIndex) Backend() string { return BackendDense }

// Search embeds query and returns the k nearest chunks by squared L2
// distance, scored 1/(1+d). An embedding failure yields no hits.
func (idx *DenseIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if idx.embedder == nil {
		return []Hit{}, nil
	}
	q, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		idx.logger.Warn("query embedding failed", "component", "retrieval", "error", err)
		return []Hit{}, nil
	}
	if len(q) != idx.Dimension {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(q), idx.Dimension)
	}

	type scored struct {
		chunk int
		dist  float64
	}
	all := make([]scored, len(idx.Chunks))
	for i, c := range idx.Chunks {
		var d float64
		for j := range q {
			diff := float64(q[j]) - float64(c.Vector[j])
			d += diff * diff
		}
		all[i] = scored{i, d}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })

	hits := []Hit{}
	for _, s := range all {
		if len(hits) >= k {
			break
		}
		c := idx.Chunks[s.chunk]
		hits = append(hits, Hit{Score: 1.0 / (1.0 + s.dist), Source: baseSource(c.Source), Excerpt: c.Text})
	}
	return hits, nil
}

// baseSource strips any directory prefix from a source identifier.
func baseSource(src string) string {
	if i := strings.LastIndexAny(src, `/\`); i >= 0 {
		return src[i+1:]
	}
	return src
}

// #endregion search
