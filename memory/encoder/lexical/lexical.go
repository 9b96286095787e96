// Package lexical provides the embedding fallback used when no semantic
// model is available: tokens are hashed into a fixed number of frequency
// buckets, producing sparse vectors that work under the same cosine
// contract as real embeddings.
package lexical

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/konuslabs/recall/memory"
)

// DefaultDimensions keeps hash collisions rare for conversational text
// while staying cheap to compare.
const DefaultDimensions = 512

// Encoder is the lexical token-frequency encoder.
type Encoder struct {
	dimensions int
}

// New creates a lexical encoder. dimensions <= 0 selects the default.
func New(dimensions int) *Encoder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Encoder{dimensions: dimensions}
}

// Encode hashes each token into a bucket and returns the L2-normalized
// bucket counts. Text with no tokens yields a zero vector, which scores 0
// against everything.
func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	for _, tok := range memory.Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dimensions]++
	}
	return normalize(vec), nil
}

// Dimensions returns the bucket count.
func (e *Encoder) Dimensions() int {
	return e.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
