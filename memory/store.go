package memory

import (
	"context"
	"errors"
	"time"

	"github.com/konuslabs/recall/core"
)

var (
	// ErrNotFound is returned when an operation targets a record that
	// does not exist or is no longer visible (already soft-deleted).
	ErrNotFound = errors.New("memory: record not found")

	// ErrInvalidRecord is returned when a candidate fails validation at
	// the record construction boundary.
	ErrInvalidRecord = errors.New("memory: invalid record")

	// ErrUnavailable is returned by an Encoder when no embedding model
	// could be loaded. Callers must branch to the lexical comparison
	// path; it is never treated as a zero vector.
	ErrUnavailable = errors.New("memory: encoder unavailable")
)

// ListOptions controls Store.List. The zero value lists non-deleted
// records in created_at ascending order, unbounded.
type ListOptions struct {
	IncludeDeleted bool
	Descending     bool
	Limit          int
}

// Store owns the memory records. Implementations provide per-row
// atomicity for create and soft-delete; no cross-record transactions are
// required. Soft deletion is the only mutation.
type Store interface {
	// Create persists a new record.
	Create(ctx context.Context, rec *Record) error

	// Get returns a record by ID regardless of its deleted flag, or
	// ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns the records for a scope. An empty scopeID matches
	// every scope of the user. Deleted records are excluded unless
	// opts.IncludeDeleted is set.
	List(ctx context.Context, userID, scopeID string, opts ListOptions) ([]*Record, error)

	// Search returns up to limit non-deleted records of the scope with
	// embeddings, most similar to the query vector first. Scopes with no
	// embedded records yield an empty slice.
	Search(ctx context.Context, userID, scopeID string, embedding []float32, limit int) ([]*Record, error)

	// SoftDelete marks a visible record of the user as deleted. Deleting
	// a missing or already-deleted record fails with ErrNotFound.
	SoftDelete(ctx context.Context, userID, id string) error

	// SoftDeleteOlderThan marks every visible record of the scope created
	// before cutoff as deleted and reports how many were newly marked.
	// An empty scopeID matches every scope of the user.
	SoftDeleteOlderThan(ctx context.Context, userID, scopeID string, cutoff time.Time) (int, error)

	// ClaimRound records that a summarization round is being processed
	// for the scope. It returns false when the (user, scope, round)
	// claim already exists, deduplicating racing triggers.
	ClaimRound(ctx context.Context, userID, scopeID string, round int) (bool, error)

	// Scopes returns the distinct (user, scope) pairs that have records,
	// deleted or not. Used by the retention sweep.
	Scopes(ctx context.Context) ([]core.Scope, error)

	// Close releases resources.
	Close() error
}
