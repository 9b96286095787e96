package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/konuslabs/recall/core"
)

const (
	// DefaultTopK is how many records a retrieval returns.
	DefaultTopK = 5

	// candidateLimit oversamples the scope before reranking, so that a
	// high-importance record with middling similarity can still win.
	candidateLimit = 50

	similarityWeight = 0.7
	importanceWeight = 0.3
)

// Retriever ranks a scope's memories against a query by a blended score:
// 0.7 * similarity + 0.3 * importance/10. Similarity is cosine over
// encoded vectors where both sides have one, and lexical token overlap
// otherwise. Deleted records are excluded unconditionally.
type Retriever struct {
	store   Store
	encoder Encoder // nil when no encoder is configured
}

// NewRetriever builds a retriever. encoder may be nil, in which case every
// comparison takes the lexical path.
func NewRetriever(store Store, encoder Encoder) *Retriever {
	return &Retriever{store: store, encoder: encoder}
}

// Retrieve returns up to topK records for the scope, highest score first.
// Equal scores rank the more recently created record first. A scope with
// no visible records yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, scope core.Scope, query string, topK int) ([]*Record, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	qvec := r.encodeQuery(ctx, query)

	candidates, err := r.gatherCandidates(ctx, scope, qvec)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	type scored struct {
		rec   *Record
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, rec := range candidates {
		var sim float64
		if qvec != nil && len(rec.Embedding) > 0 {
			sim = Cosine(qvec, rec.Embedding)
		} else {
			sim = LexicalOverlap(query, rec.Summary)
		}
		score := similarityWeight*sim + importanceWeight*float64(rec.Importance)/10
		ranked = append(ranked, scored{rec: rec, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].rec.CreatedAt.After(ranked[j].rec.CreatedAt)
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out := make([]*Record, len(ranked))
	for i, s := range ranked {
		out[i] = s.rec
	}

	log.Printf("[MEMORY] Retrieved %d/%d memories for scope %s/%s", len(out), len(candidates), scope.UserID, scope.ScopeID)
	return out, nil
}

// encodeQuery returns the query vector, or nil when encoding is not
// possible. ErrUnavailable and transient encoder failures both degrade to
// the lexical path; they never surface to the caller.
func (r *Retriever) encodeQuery(ctx context.Context, query string) []float32 {
	if r.encoder == nil {
		return nil
	}
	vec, err := r.encoder.Encode(ctx, query)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			log.Printf("[MEMORY] Query encoding failed, using lexical fallback: %v", err)
		}
		return nil
	}
	return vec
}

// gatherCandidates assembles the rerank pool: vector-search hits when a
// query vector exists, plus any records that have no embedding (they can
// only be reached by the lexical path).
func (r *Retriever) gatherCandidates(ctx context.Context, scope core.Scope, qvec []float32) ([]*Record, error) {
	listed, err := r.store.List(ctx, scope.UserID, scope.ScopeID, ListOptions{Descending: true, Limit: candidateLimit})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	if qvec == nil {
		return listed, nil
	}

	hits, err := r.store.Search(ctx, scope.UserID, scope.ScopeID, qvec, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	seen := make(map[string]struct{}, len(hits))
	for _, rec := range hits {
		seen[rec.ID] = struct{}{}
	}
	for _, rec := range listed {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		if len(rec.Embedding) == 0 {
			hits = append(hits, rec)
		}
	}
	return hits, nil
}
