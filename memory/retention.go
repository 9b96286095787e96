package memory

import (
	"context"
	"fmt"
	"log"
	"time"
)

// retentionMonth follows the original cleanup scripts: a month is 30 days.
const retentionMonth = 30 * 24 * time.Hour

// RetentionJob soft-deletes memories older than a configurable age. It
// runs off the request path, either on a timer (Start) or on demand
// (Sweep / SweepScope for the explicit clear-old management call).
type RetentionJob struct {
	store    Store
	months   int
	interval time.Duration
}

// NewRetentionJob builds a job that deletes records older than months
// (default 3) on every interval tick (default 24h).
func NewRetentionJob(store Store, months int, interval time.Duration) *RetentionJob {
	if months <= 0 {
		months = 3
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionJob{store: store, months: months, interval: interval}
}

// Start runs periodic sweeps until ctx is cancelled. It blocks; run it in
// its own goroutine.
func (j *RetentionJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	log.Printf("[RETENTION] Sweeping every %s, age threshold %d months", j.interval, j.months)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				log.Printf("[RETENTION] Sweep failed: %v", err)
			}
		}
	}
}

// Sweep soft-deletes over-age records in every known scope and returns
// the total newly deleted.
func (j *RetentionJob) Sweep(ctx context.Context) (int, error) {
	scopes, err := j.store.Scopes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scopes: %w", err)
	}
	total := 0
	for _, scope := range scopes {
		n, err := j.SweepScope(ctx, scope.UserID, scope.ScopeID, j.months)
		if err != nil {
			log.Printf("[RETENTION] Scope %s/%s sweep failed: %v", scope.UserID, scope.ScopeID, err)
			continue
		}
		total += n
	}
	if total > 0 {
		log.Printf("[RETENTION] Soft-deleted %d records across %d scopes", total, len(scopes))
	}
	return total, nil
}

// SweepScope soft-deletes the scope's records older than the given number
// of months and returns how many were newly marked. An empty scopeID
// sweeps all scopes of the user.
func (j *RetentionJob) SweepScope(ctx context.Context, userID, scopeID string, months int) (int, error) {
	if months <= 0 {
		months = j.months
	}
	cutoff := time.Now().UTC().Add(-time.Duration(months) * retentionMonth)
	return j.store.SoftDeleteOlderThan(ctx, userID, scopeID, cutoff)
}
