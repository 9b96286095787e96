// Package sqlite implements memory.Store on SQLite, with an in-process
// chromem-go vector index over the non-deleted embedded records. SQLite is
// authoritative; the index is rebuilt from it at open and kept in step on
// create and soft-delete.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	_ "modernc.org/sqlite"

	"github.com/konuslabs/recall/core"
	"github.com/konuslabs/recall/memory"
)

// Store implements memory.Store.
type Store struct {
	db  *sql.DB
	dsn string

	vectors     *chromem.DB
	mu          sync.RWMutex
	collections map[string]*chromem.Collection // keyed by userID+"\x00"+scopeID
}

// New opens (or creates) the database at dsn, applies the schema, and
// rebuilds the vector index from the persisted embeddings.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// SQLite allows one writer at a time; a single connection serialises
	// writes while WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	s := &Store{
		db:          db,
		dsn:         dsn,
		vectors:     chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
	if err := s.rebuildIndex(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: rebuild vector index: %w", err)
	}
	return s, nil
}

// Create persists a record and indexes its embedding, if any.
func (s *Store) Create(ctx context.Context, rec *memory.Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: missing id", memory.ErrInvalidRecord)
	}

	var embeddingJSON sql.NullString
	if len(rec.Embedding) > 0 {
		raw, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("sqlite: marshal embedding: %w", err)
		}
		embeddingJSON = sql.NullString{String: string(raw), Valid: true}
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (
			id, user_id, scope_id, kind, source_text, summary, key_points,
			embedding, round, importance, deleted, deleted_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		rec.ID, rec.UserID, rec.ScopeID, string(rec.Kind), rec.SourceText,
		rec.Summary, rec.KeyPoints, embeddingJSON, rec.Round, rec.Importance,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert memory: %w", err)
	}

	if len(rec.Embedding) > 0 {
		if err := s.indexRecord(ctx, rec); err != nil {
			// The row is authoritative; an index miss only costs recall
			// until the next rebuild.
			log.Printf("[SQLITE] Failed to index record %s: %v", rec.ID, err)
		}
	}
	return nil
}

// Get returns a record by ID, deleted or not.
func (s *Store) Get(ctx context.Context, id string) (*memory.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM memories WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get memory: %w", err)
	}
	return rec, nil
}

// List returns the scope's records, non-deleted unless overridden,
// ordered by created_at ascending by default.
func (s *Store) List(ctx context.Context, userID, scopeID string, opts memory.ListOptions) ([]*memory.Record, error) {
	query := selectColumns + ` FROM memories WHERE user_id = ?`
	args := []any{userID}
	if scopeID != "" {
		query += ` AND scope_id = ?`
		args = append(args, scopeID)
	}
	if !opts.IncludeDeleted {
		query += ` AND deleted = 0`
	}
	if opts.Descending {
		query += ` ORDER BY created_at DESC`
	} else {
		query += ` ORDER BY created_at ASC`
	}
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list memories: %w", err)
	}
	defer rows.Close()

	var out []*memory.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan memory: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Search queries the vector index and resolves hits against the
// authoritative rows, dropping anything deleted since indexing.
func (s *Store) Search(ctx context.Context, userID, scopeID string, embedding []float32, limit int) ([]*memory.Record, error) {
	s.mu.RLock()
	col := s.collections[collectionKey(userID, scopeID)]
	s.mu.RUnlock()
	if col == nil || limit <= 0 {
		return nil, nil
	}

	results, err := queryEmbedding(ctx, col, embedding, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*memory.Record, 0, len(results))
	for _, res := range results {
		rec, err := s.Get(ctx, res.ID)
		if err == memory.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec.Deleted {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// queryEmbedding works around chromem's requirement that nResults not
// exceed the collection size by shrinking the limit until it fits.
func queryEmbedding(ctx context.Context, col *chromem.Collection, embedding []float32, limit int) ([]chromem.Result, error) {
	if n := col.Count(); n < limit {
		limit = n
	}
	for ; limit >= 1; limit-- {
		results, err := col.QueryEmbedding(ctx, embedding, limit, nil, nil)
		if err == nil {
			return results, nil
		}
		if !strings.Contains(err.Error(), "nResults") && !strings.Contains(err.Error(), "number of documents") {
			return nil, fmt.Errorf("sqlite: vector query: %w", err)
		}
	}
	return nil, nil
}

// SoftDelete marks one visible record of the user as deleted. A missing
// or already-deleted record fails with ErrNotFound.
func (s *Store) SoftDelete(ctx context.Context, userID, id string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET deleted = 1, deleted_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted = 0`,
		now, now, id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: soft delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: soft delete rows: %w", err)
	}
	if n == 0 {
		return memory.ErrNotFound
	}

	s.removeFromIndex(ctx, userID, id)
	return nil
}

// SoftDeleteOlderThan marks the scope's visible records created before
// cutoff as deleted and returns how many were newly marked.
func (s *Store) SoftDeleteOlderThan(ctx context.Context, userID, scopeID string, cutoff time.Time) (int, error) {
	query := `SELECT id, scope_id FROM memories WHERE user_id = ? AND deleted = 0 AND created_at < ?`
	args := []any{userID, cutoff}
	if scopeID != "" {
		query += ` AND scope_id = ?`
		args = append(args, scopeID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: select old memories: %w", err)
	}
	type target struct{ id, scopeID string }
	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.id, &t.scopeID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("sqlite: scan old memory: %w", err)
		}
		targets = append(targets, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(targets) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(targets)), ",")
	updateArgs := []any{now, now}
	for _, t := range targets {
		updateArgs = append(updateArgs, t.id)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET deleted = 1, deleted_at = ?, updated_at = ? WHERE deleted = 0 AND id IN (`+placeholders+`)`,
		updateArgs...,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: soft delete old: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: soft delete old rows: %w", err)
	}

	for _, t := range targets {
		s.removeScopedFromIndex(ctx, userID, t.scopeID, t.id)
	}
	return int(n), nil
}

// ClaimRound inserts the (user, scope, round) progress marker. A conflict
// means another request already claimed the round.
func (s *Store) ClaimRound(ctx context.Context, userID, scopeID string, round int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO summary_rounds (user_id, scope_id, round, claimed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, scope_id, round) DO NOTHING`,
		userID, scopeID, round, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: claim round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: claim round rows: %w", err)
	}
	return n == 1, nil
}

// Scopes returns the distinct (user, scope) pairs present in the table.
func (s *Store) Scopes(ctx context.Context) ([]core.Scope, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id, scope_id FROM memories`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list scopes: %w", err)
	}
	defer rows.Close()

	var scopes []core.Scope
	for rows.Next() {
		var sc core.Scope
		if err := rows.Scan(&sc.UserID, &sc.ScopeID); err != nil {
			return nil, fmt.Errorf("sqlite: scan scope: %w", err)
		}
		scopes = append(scopes, sc)
	}
	return scopes, rows.Err()
}

// Path returns the DSN the store was opened with.
func (s *Store) Path() string {
	return s.dsn
}

// Close closes the database. The vector index lives in memory and needs
// no teardown.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT id, user_id, scope_id, kind, source_text, summary,
	key_points, embedding, round, importance, deleted, deleted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*memory.Record, error) {
	var (
		rec           memory.Record
		kind          string
		keyPoints     sql.NullString
		embeddingJSON sql.NullString
		deletedAt     sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.ScopeID, &kind, &rec.SourceText, &rec.Summary,
		&keyPoints, &embeddingJSON, &rec.Round, &rec.Importance, &rec.Deleted,
		&deletedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Kind = memory.Kind(kind)
	rec.KeyPoints = keyPoints.String
	if deletedAt.Valid {
		t := deletedAt.Time
		rec.DeletedAt = &t
	}
	if embeddingJSON.Valid && embeddingJSON.String != "" {
		// A malformed embedding degrades the record to the lexical path
		// rather than failing the read.
		var vec []float32
		if err := json.Unmarshal([]byte(embeddingJSON.String), &vec); err == nil {
			rec.Embedding = vec
		}
	}
	return &rec, nil
}

func collectionKey(userID, scopeID string) string {
	return userID + "\x00" + scopeID
}

// getOrCreateCollection returns the scope's vector collection, creating
// it on first use.
func (s *Store) getOrCreateCollection(userID, scopeID string) (*chromem.Collection, error) {
	key := collectionKey(userID, scopeID)

	s.mu.RLock()
	col, ok := s.collections[key]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[key]; ok {
		return col, nil
	}

	name := fmt.Sprintf("scope_%x", []byte(key))
	col, err := s.vectors.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[key] = col
	return col, nil
}

func (s *Store) indexRecord(ctx context.Context, rec *memory.Record) error {
	col, err := s.getOrCreateCollection(rec.UserID, rec.ScopeID)
	if err != nil {
		return err
	}
	return col.AddDocument(ctx, chromem.Document{
		ID:        rec.ID,
		Content:   rec.Summary,
		Embedding: rec.Embedding,
		Metadata: map[string]string{
			"user_id":  rec.UserID,
			"scope_id": rec.ScopeID,
		},
	})
}

func (s *Store) removeFromIndex(ctx context.Context, userID, id string) {
	// Scope unknown here; try every collection of the user. Deleted rows
	// are also filtered out at Search time, so a miss is harmless.
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := userID + "\x00"
	for key, col := range s.collections {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := col.Delete(ctx, nil, nil, id); err == nil {
			return
		}
	}
}

func (s *Store) removeScopedFromIndex(ctx context.Context, userID, scopeID, id string) {
	s.mu.RLock()
	col := s.collections[collectionKey(userID, scopeID)]
	s.mu.RUnlock()
	if col == nil {
		return
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		log.Printf("[SQLITE] Failed to unindex record %s: %v", id, err)
	}
}

// rebuildIndex reloads every non-deleted embedded record into chromem.
func (s *Store) rebuildIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, scope_id, summary, embedding
		FROM memories WHERE deleted = 0 AND embedding IS NOT NULL`)
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var rec memory.Record
		var embeddingJSON string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ScopeID, &rec.Summary, &embeddingJSON); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &rec.Embedding); err != nil {
			log.Printf("[SQLITE] Skipping unindexable record %s: %v", rec.ID, err)
			continue
		}
		if err := s.indexRecord(ctx, &rec); err != nil {
			return err
		}
		count++
	}
	if count > 0 {
		log.Printf("[SQLITE] Rebuilt vector index with %d records", count)
	}
	return rows.Err()
}
