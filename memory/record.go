package memory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/konuslabs/recall/core"
)

// Kind distinguishes how a memory came to exist.
type Kind string

const (
	// KindActive is a memory inferred from the user's own statements.
	KindActive Kind = "active"

	// KindPassive is a memory the user explicitly asked to keep
	// ("remember this").
	KindPassive Kind = "passive"
)

// Record is one durable memory distilled from a conversation window.
// Records are created only by a successful summarization round, mutated
// only by soft deletion, and never physically removed.
type Record struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	ScopeID string `json:"scope_id"`
	Kind    Kind   `json:"kind"`

	// SourceText is the verbatim excerpt that produced this record.
	// It is stored for auditing but never re-injected into prompts.
	SourceText string `json:"source_text"`

	Summary string `json:"summary"`

	// KeyPoints is stored serialized; use ParseKeyPoints to read it.
	KeyPoints string `json:"key_points"`

	// Embedding is nil when no encoder was available at creation time.
	Embedding []float32 `json:"embedding,omitempty"`

	// Round is the turn-count boundary that produced this record,
	// always an exact positive multiple of the batch size.
	Round int `json:"round"`

	// Importance is the extraction model's 1-10 score.
	Importance int `json:"importance"`

	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewRecord validates a summarizer candidate and builds a Record from it.
// Validation failures mean the candidate is discarded, never persisted.
func NewRecord(scope core.Scope, cand Candidate, sourceText string, round, batchSize int) (*Record, error) {
	if cand.Importance < 1 || cand.Importance > 10 {
		return nil, fmt.Errorf("%w: importance %d outside [1,10]", ErrInvalidRecord, cand.Importance)
	}
	if batchSize <= 0 || round <= 0 || round%batchSize != 0 {
		return nil, fmt.Errorf("%w: round %d is not a positive multiple of batch size %d", ErrInvalidRecord, round, batchSize)
	}
	if strings.TrimSpace(cand.Summary) == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrInvalidRecord)
	}

	kind := cand.Kind
	if kind != KindActive && kind != KindPassive {
		kind = KindActive
	}

	keyPoints, err := json.Marshal(cand.KeyPoints)
	if err != nil {
		return nil, fmt.Errorf("marshal key points: %w", err)
	}

	now := time.Now().UTC()
	return &Record{
		ID:         uuid.New().String(),
		UserID:     scope.UserID,
		ScopeID:    scope.ScopeID,
		Kind:       kind,
		SourceText: sourceText,
		Summary:    cand.Summary,
		KeyPoints:  string(keyPoints),
		Round:      round,
		Importance: cand.Importance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ParseKeyPoints decodes the serialized key points. Malformed data yields
// an empty slice, never an error.
func (r *Record) ParseKeyPoints() []string {
	if r.KeyPoints == "" {
		return nil
	}
	var points []string
	if err := json.Unmarshal([]byte(r.KeyPoints), &points); err != nil {
		return nil
	}
	return points
}

// FormatForPrompt renders the record the way it is injected into an
// outbound prompt: summary plus key points, never the source text.
func (r *Record) FormatForPrompt() string {
	var b strings.Builder
	b.WriteString(r.Summary)
	if points := r.ParseKeyPoints(); len(points) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(points, "; "))
		b.WriteString(")")
	}
	return b.String()
}
