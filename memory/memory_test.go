package memory_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/konuslabs/recall/core"
	"github.com/konuslabs/recall/memory"
)

// fakeStore is an in-memory Store shared by the package tests.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*memory.Record
	claims  map[string]bool

	createErr error
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string]*memory.Record),
		claims:  make(map[string]bool),
	}
}

func (s *fakeStore) Create(ctx context.Context, rec *memory.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*memory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) List(ctx context.Context, userID, scopeID string, opts memory.ListOptions) ([]*memory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*memory.Record
	for _, rec := range s.records {
		if rec.UserID != userID {
			continue
		}
		if scopeID != "" && rec.ScopeID != scopeID {
			continue
		}
		if rec.Deleted && !opts.IncludeDeleted {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if opts.Descending {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *fakeStore) Search(ctx context.Context, userID, scopeID string, embedding []float32, limit int) ([]*memory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type scored struct {
		rec *memory.Record
		sim float64
	}
	var hits []scored
	for _, rec := range s.records {
		if rec.UserID != userID || rec.ScopeID != scopeID || rec.Deleted || len(rec.Embedding) == 0 {
			continue
		}
		cp := *rec
		hits = append(hits, scored{&cp, memory.Cosine(embedding, rec.Embedding)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].sim > hits[j].sim })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*memory.Record, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out, nil
}

func (s *fakeStore) SoftDelete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.UserID != userID || rec.Deleted {
		return memory.ErrNotFound
	}
	now := time.Now().UTC()
	rec.Deleted = true
	rec.DeletedAt = &now
	return nil
}

func (s *fakeStore) SoftDeleteOlderThan(ctx context.Context, userID, scopeID string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := time.Now().UTC()
	for _, rec := range s.records {
		if rec.UserID != userID || rec.Deleted {
			continue
		}
		if scopeID != "" && rec.ScopeID != scopeID {
			continue
		}
		if rec.CreatedAt.Before(cutoff) {
			rec.Deleted = true
			rec.DeletedAt = &now
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) ClaimRound(ctx context.Context, userID, scopeID string, round int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s/%s/%d", userID, scopeID, round)
	if s.claims[key] {
		return false, nil
	}
	s.claims[key] = true
	return true, nil
}

func (s *fakeStore) Scopes(ctx context.Context) ([]core.Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[core.Scope]struct{})
	for _, rec := range s.records {
		seen[core.Scope{UserID: rec.UserID, ScopeID: rec.ScopeID}] = struct{}{}
	}
	var out []core.Scope
	for sc := range seen {
		out = append(out, sc)
	}
	return out, nil
}

func (s *fakeStore) Close() error { return nil }

// fakeCompleter scripts completion responses for summarizer and worker
// tests.
type fakeCompleter struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	lastReq   *core.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req *core.CompletionRequest) (*core.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	text := ""
	if len(f.responses) > 0 {
		text = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	return &core.CompletionResponse{Text: text}, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func mustCreate(s *fakeStore, rec *memory.Record) {
	if err := s.Create(context.Background(), rec); err != nil {
		panic(err)
	}
}

func testRecord(id, userID, scopeID, summary string, importance int, createdAt time.Time) *memory.Record {
	return &memory.Record{
		ID:         id,
		UserID:     userID,
		ScopeID:    scopeID,
		Kind:       memory.KindActive,
		Summary:    summary,
		Round:      50,
		Importance: importance,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}
