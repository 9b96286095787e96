// Package mock provides a deterministic encoder for tests, generating
// unit vectors from a hash of the input text.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// Encoder generates hash-seeded pseudo-random embeddings. The same text
// always yields the same vector; different texts are nearly orthogonal.
type Encoder struct {
	dimensions int

	// Fixed, when set, is returned for every input. Tests use it to
	// force specific similarity relationships.
	Fixed map[string][]float32

	// Err, when set, is returned by every Encode call.
	Err error
}

// New creates a mock encoder with the given vector size.
func New(dimensions int) *Encoder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Encoder{dimensions: dimensions}
}

// Encode returns a deterministic unit vector derived from text.
func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	if vec, ok := e.Fixed[text]; ok {
		return vec, nil
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dimensions)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(vec), nil
}

// Dimensions returns the vector size.
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
