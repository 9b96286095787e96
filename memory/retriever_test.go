package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/konuslabs/recall/core"
	"github.com/konuslabs/recall/memory"
	"github.com/konuslabs/recall/memory/encoder/mock"
)

func TestRetriever_BlendedScoring(t *testing.T) {
	store := newFakeStore()
	enc := mock.New(3)
	enc.Fixed = map[string][]float32{
		"what are my hobbies": {1, 0, 0},
	}

	base := time.Now().UTC().Add(-time.Hour)

	// Similar but unimportant: 0.7*1.0 + 0.3*0.1 = 0.73.
	similar := testRecord("r1", "u1", "s1", "User enjoys hiking", 1, base)
	similar.Embedding = []float32{1, 0, 0}
	mustCreate(store, similar)

	// Dissimilar but maximally important: 0.7*0 + 0.3*1.0 = 0.30.
	important := testRecord("r2", "u1", "s1", "Quarterly report due", 10, base)
	important.Embedding = []float32{0, 1, 0}
	mustCreate(store, important)

	r := memory.NewRetriever(store, enc)
	got, err := r.Retrieve(context.Background(), core.Scope{UserID: "u1", ScopeID: "s1"}, "what are my hobbies", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].ID != "r1" || got[1].ID != "r2" {
		t.Errorf("order = %s, %s; want r1, r2", got[0].ID, got[1].ID)
	}
}

func TestRetriever_TopKAndTieBreak(t *testing.T) {
	store := newFakeStore()
	base := time.Now().UTC().Add(-time.Hour)

	// Seven identical-scoring records differing only in creation time.
	for i := 0; i < 7; i++ {
		rec := testRecord(
			string(rune('a'+i)), "u1", "s1",
			"identical summary text", 5,
			base.Add(time.Duration(i)*time.Minute),
		)
		mustCreate(store, rec)
	}

	r := memory.NewRetriever(store, nil)
	got, err := r.Retrieve(context.Background(), core.Scope{UserID: "u1", ScopeID: "s1"}, "identical summary text", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d records, want topK=5", len(got))
	}
	// Newest first on equal scores.
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Errorf("tie-break violated at %d: %v after %v", i, got[i].CreatedAt, got[i-1].CreatedAt)
		}
	}
}

func TestRetriever_ExcludesDeleted(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()

	kept := testRecord("keep", "u1", "s1", "user likes tea", 5, now)
	mustCreate(store, kept)
	gone := testRecord("gone", "u1", "s1", "user likes tea", 9, now)
	mustCreate(store, gone)
	if err := store.SoftDelete(context.Background(), "u1", "gone"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	r := memory.NewRetriever(store, nil)
	got, err := r.Retrieve(context.Background(), core.Scope{UserID: "u1", ScopeID: "s1"}, "tea", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for _, rec := range got {
		if rec.ID == "gone" {
			t.Fatal("deleted record surfaced in retrieval")
		}
	}
	if len(got) != 1 {
		t.Errorf("got %d records, want 1", len(got))
	}
}

func TestRetriever_EncoderUnavailableFallsBackToLexical(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()
	rec := testRecord("r1", "u1", "s1", "用户喜欢编程和打篮球", 7, now)
	mustCreate(store, rec)

	enc := mock.New(3)
	enc.Err = memory.ErrUnavailable

	r := memory.NewRetriever(store, enc)
	got, err := r.Retrieve(context.Background(), core.Scope{UserID: "u1", ScopeID: "s1"}, "我的爱好是打篮球吗", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("lexical fallback missed the record: %+v", got)
	}
}

func TestRetriever_EmptyScope(t *testing.T) {
	r := memory.NewRetriever(newFakeStore(), nil)
	got, err := r.Retrieve(context.Background(), core.Scope{UserID: "u1", ScopeID: "s1"}, "anything", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records, want 0", len(got))
	}
}

func TestRetriever_ScopeIsolation(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()
	mustCreate(store, testRecord("other-scope", "u1", "s2", "user likes tea", 9, now))
	mustCreate(store, testRecord("other-user", "u2", "s1", "user likes tea", 9, now))

	r := memory.NewRetriever(store, nil)
	got, err := r.Retrieve(context.Background(), core.Scope{UserID: "u1", ScopeID: "s1"}, "tea", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("cross-scope leak: %+v", got)
	}
}

func TestRetriever_StoreError(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("disk on fire")

	r := memory.NewRetriever(store, nil)
	_, err := r.Retrieve(context.Background(), core.Scope{UserID: "u1", ScopeID: "s1"}, "q", 5)
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
}
