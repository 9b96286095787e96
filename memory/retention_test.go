package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/konuslabs/recall/memory"
)

func TestRetentionJob_SweepScope(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()

	// A month is 30 days; 3 months is 90.
	old := testRecord("old", "u1", "s1", "stale fact", 5, now.Add(-91*24*time.Hour))
	fresh := testRecord("fresh", "u1", "s1", "recent fact", 5, now.Add(-89*24*time.Hour))
	mustCreate(store, old)
	mustCreate(store, fresh)

	job := memory.NewRetentionJob(store, 3, 0)
	n, err := job.SweepScope(context.Background(), "u1", "s1", 0)
	if err != nil {
		t.Fatalf("SweepScope: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d, want 1", n)
	}

	gotOld, _ := store.Get(context.Background(), "old")
	if !gotOld.Deleted || gotOld.DeletedAt == nil {
		t.Error("old record should be soft-deleted with a timestamp")
	}
	gotFresh, _ := store.Get(context.Background(), "fresh")
	if gotFresh.Deleted {
		t.Error("fresh record must survive the sweep")
	}
}

func TestRetentionJob_SweepScope_ExplicitMonths(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()
	mustCreate(store, testRecord("r1", "u1", "s1", "fact", 5, now.Add(-40*24*time.Hour)))

	job := memory.NewRetentionJob(store, 3, 0)

	// One month cutoff catches the 40-day-old record the default would keep.
	n, err := job.SweepScope(context.Background(), "u1", "s1", 1)
	if err != nil {
		t.Fatalf("SweepScope: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
}

func TestRetentionJob_SweepAllScopes(t *testing.T) {
	store := newFakeStore()
	stale := time.Now().UTC().Add(-100 * 24 * time.Hour)
	mustCreate(store, testRecord("a", "u1", "s1", "fact", 5, stale))
	mustCreate(store, testRecord("b", "u1", "s2", "fact", 5, stale))
	mustCreate(store, testRecord("c", "u2", "s1", "fact", 5, stale))

	job := memory.NewRetentionJob(store, 3, 0)
	n, err := job.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d, want 3", n)
	}
}

func TestRetentionJob_SweepIsIdempotent(t *testing.T) {
	store := newFakeStore()
	stale := time.Now().UTC().Add(-100 * 24 * time.Hour)
	mustCreate(store, testRecord("a", "u1", "s1", "fact", 5, stale))

	job := memory.NewRetentionJob(store, 3, 0)
	if n, _ := job.Sweep(context.Background()); n != 1 {
		t.Fatalf("first sweep deleted %d, want 1", n)
	}
	if n, _ := job.Sweep(context.Background()); n != 0 {
		t.Errorf("second sweep deleted %d, want 0 (already deleted records are not re-counted)", n)
	}
}
