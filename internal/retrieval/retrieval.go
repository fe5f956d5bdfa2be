package retrieval

import (
	"context"
	"fmt"
	"log/slog"
)

// #region fusion
// Fusion runs gated retrieval over the strategy chosen at construction.
type Fusion struct {
	strategy Strategy
	config   Config
	logger   *slog.Logger
}

// NewFusion wraps strategy. A nil strategy behaves as "no index".
func NewFusion(strategy Strategy, config Config, logger *slog.Logger) *Fusion {
	if strategy == nil {
		strategy = none{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fusion{strategy: strategy, config: config, logger: logger.With("component", "retrieval")}
}

// Available reports whether a knowledge index was found.
func (f *Fusion) Available() bool {
	return f.strategy.Backend() != BackendNone
}

// Backend returns the active strategy's name.
func (f *Fusion) Backend() string {
	return f.strategy.Backend()
}

// Config returns the thresholds and excerpt limits in use.
func (f *Fusion) Config() Config {
	return f.config
}

// #endregion fusion

// #region retrieve
// Retrieve runs the 3-gate retrieval pipeline:
//  1. Gate 1: availability. No index means no search.
//  2. Gate 2: relevance. Keep hits scoring strictly above threshold.
//  3. Gate 3: consistency. Clean excerpts, drop empty ones and duplicates.
func (f *Fusion) Retrieve(ctx context.Context, query string, threshold float64, maxChars int) (GateResult, error) {
	result := GateResult{}

	if !f.Available() {
		result.Reason = "gate1: knowledge base unavailable"
		return result, nil
	}
	result.Gate1Passed = true

	hits, err := f.strategy.Search(ctx, query, f.config.TopK)
	if err != nil {
		return result, fmt.Errorf("retrieval search: %w", err)
	}

	var relevant []Hit
	for _, h := range hits {
		if h.Score > threshold {
			relevant = append(relevant, h)
		}
	}
	result.Gate2Count = len(relevant)
	if result.Gate2Count == 0 {
		result.Reason = fmt.Sprintf("gate2: no results above threshold %.2f", threshold)
		return result, nil
	}

	result.Retrieved = f.consistencyCheck(relevant, maxChars)
	result.Gate3Count = len(result.Retrieved)
	if result.Gate3Count == 0 {
		result.Reason = "gate3: all results failed consistency check"
	} else {
		result.Reason = fmt.Sprintf("retrieved %d evidence items (gate2=%d, gate3=%d)",
			result.Gate3Count, result.Gate2Count, result.Gate3Count)
	}
	f.logger.Debug("retrieve", "backend", f.Backend(), "reason", result.Reason)
	return result, nil
}

// #endregion retrieve

// #region consistency-check
// consistencyCheck cleans each excerpt and drops empty or repeated ones.
func (f *Fusion) consistencyCheck(hits []Hit, maxChars int) []Hit {
	seen := make(map[string]bool)
	var valid []Hit
	for _, h := range hits {
		h.Excerpt = CleanExcerpt(h.Excerpt, maxChars)
		if h.Excerpt == "" || h.Excerpt == "\n..." {
			continue
		}
		key := h.Source + "\x00" + h.Excerpt
		if seen[key] {
			continue
		}
		seen[key] = true
		valid = append(valid, h)
	}
	return valid
}

// #endregion consistency-check
