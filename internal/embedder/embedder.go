// Package embedder turns recall queries into vectors for the semantic
// index. The affective core never embeds stored memories, only queries:
// writing memories belongs to the memory pipeline, not to this daemon.
package embedder

import "context"

// Embedder generates a vector embedding for a piece of text.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int
}
