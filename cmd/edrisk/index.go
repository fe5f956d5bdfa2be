package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ofeng1/datathon/internal/embed"
	"github.com/ofeng1/datathon/internal/retrieval"
)

func indexCmd() *cobra.Command {
	var (
		kbDir       string
		maxFeatures int
		chunkSize   int
		overlap     int
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "index [lexical|dense]",
		Short: "Build the knowledge-base index from markdown files",
		Long: `Reads every .md file in --kb and writes either the TF-IDF index
(lexical) or the embedded chunk index (dense) to the locations the engine
loads them from.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{retrieval.BackendLexical, retrieval.BackendDense},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			docs, err := retrieval.LoadDocuments(kbDir)
			if err != nil {
				return err
			}

			switch args[0] {
			case retrieval.BackendLexical:
				idx, err := retrieval.BuildLexical(docs, maxFeatures)
				if err != nil {
					return err
				}
				path := cfg.Engine.Path(cfg.Engine.Retrieval.LexicalFile)
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return fmt.Errorf("create artifact dir: %w", err)
				}
				if err := idx.Save(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents (%d terms) into %s\n", len(idx.Docs), len(idx.Vocabulary), path)

			case retrieval.BackendDense:
				h, err := embed.New(cfg.Embed, logger)
				if err != nil {
					return fmt.Errorf("failed to create embedder: %w", err)
				}
				defer h.Close()
				opts := retrieval.DenseOptions{ChunkSize: chunkSize, ChunkOverlap: overlap, Concurrency: workers}
				idx, err := retrieval.BuildDense(cmd.Context(), docs, h, opts)
				if err != nil {
					return err
				}
				dir := cfg.Engine.Path(cfg.Engine.Retrieval.DenseDir)
				if err := idx.SaveDense(dir); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "embedded %d chunks from %d documents into %s\n", len(idx.Chunks), len(docs), dir)

			default:
				return fmt.Errorf("unknown index kind %q (want lexical or dense)", args[0])
			}
			return nil
		},
	}

	defaults := retrieval.DefaultDenseOptions()
	cmd.Flags().StringVar(&kbDir, "kb", "knowledge_base", "directory of markdown documents")
	cmd.Flags().IntVar(&maxFeatures, "max-features", 0, "lexical vocabulary cap (0 keeps every term)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", defaults.ChunkSize, "dense chunk size in characters")
	cmd.Flags().IntVar(&overlap, "chunk-overlap", defaults.ChunkOverlap, "dense chunk overlap in characters")
	cmd.Flags().IntVar(&workers, "workers", defaults.Concurrency, "concurrent embedding requests")
	return cmd
}
