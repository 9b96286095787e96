package sqlite

// Schema creates the memory tables. Records are append-plus-soft-delete:
// the only UPDATE ever issued flips deleted/deleted_at. summary_rounds is
// the per-scope progress ledger; its primary key deduplicates racing
// summarization triggers for the same round.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	scope_id    TEXT NOT NULL,
	kind        TEXT NOT NULL DEFAULT 'active',
	source_text TEXT NOT NULL DEFAULT '',
	summary     TEXT NOT NULL,
	key_points  TEXT,
	embedding   TEXT,
	round       INTEGER NOT NULL,
	importance  INTEGER NOT NULL DEFAULT 5,
	deleted     INTEGER NOT NULL DEFAULT 0,
	deleted_at  TIMESTAMP,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_scope_deleted
	ON memories(user_id, scope_id, deleted);

CREATE INDEX IF NOT EXISTS idx_memories_scope_created
	ON memories(user_id, scope_id, created_at);

CREATE TABLE IF NOT EXISTS summary_rounds (
	user_id    TEXT NOT NULL,
	scope_id   TEXT NOT NULL,
	round      INTEGER NOT NULL,
	claimed_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, scope_id, round)
);
`
