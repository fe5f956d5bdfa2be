package embed

import (
	"context"
	"errors"
	"math"
)

// ErrDisabled is returned by the no-op embedder.
var ErrDisabled = errors.New("embedder disabled")

// #region embedder
// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Nop is the embedder used when no embedding backend is configured.
type Nop struct{}

// Embed always fails with ErrDisabled.
func (Nop) Embed(context.Context, string) ([]float32, error) { return nil, ErrDisabled }

// Model returns the empty string.
func (Nop) Model() string { return "" }

// #endregion embedder

// L2Norm computes the Euclidean norm of v.
func L2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
