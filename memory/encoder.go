package memory

import (
	"context"
	"math"
	"strings"
)

// Encoder turns text into a fixed-length vector for similarity search.
// One strategy is selected at process start and fixed for the process
// lifetime: a semantic encoder (encoder/onnx) or the lexical fallback
// (encoder/lexical). Both feed the same cosine contract so the retriever
// is strategy-agnostic.
//
// Encode returns ErrUnavailable when no model could be loaded at all,
// which is distinct from the lexical strategy being selected. Callers
// must branch to text-overlap comparison in that case.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Cosine returns the cosine similarity of two vectors, clamped to [0,1].
// Mismatched or empty vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// LexicalOverlap scores two texts by token overlap, normalized to [0,1].
// Used when either side has no embedding.
func LexicalOverlap(a, b string) float64 {
	wordsA := tokenSet(a)
	wordsB := tokenSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	shared := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			shared++
		}
	}
	smaller := len(wordsA)
	if len(wordsB) < smaller {
		smaller = len(wordsB)
	}
	return float64(shared) / float64(smaller)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// Tokenize lowercases and splits on non-letter/digit runes. CJK text has
// no word boundaries, so each CJK rune becomes its own token.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r >= 0x4E00 && r <= 0x9FFF:
			flush()
			tokens = append(tokens, string(r))
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
