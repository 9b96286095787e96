package memory

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/konuslabs/recall/core"
)

// SummaryJob is one summarization round queued for background extraction.
type SummaryJob struct {
	Scope  core.Scope
	Round  int
	Window []core.Message
}

// WorkerConfig tunes the background summarization pool.
type WorkerConfig struct {
	// Workers is the number of concurrent extraction goroutines.
	// Default: 2.
	Workers int

	// QueueSize bounds the job queue. A full queue drops the round:
	// a missed round is a gap in coverage, not an error. Default: 64.
	QueueSize int

	// JobTimeout bounds one extraction round end to end. On timeout the
	// round is abandoned and logged, never retried. Default: 60s.
	JobTimeout time.Duration

	// RatePerMinute throttles extraction calls against the completion
	// model. Default: 30.
	RatePerMinute int

	// BatchSize is the round boundary, used to validate candidate
	// records. Default: 50.
	BatchSize int
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 60 * time.Second
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = 30
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	return c
}

// SummaryWorker runs summarization rounds detached from the chat path.
// Enqueue never blocks; job failures are logged and invisible to chat
// responses. Racing triggers for one (scope, round) are deduplicated by
// the store's round claim.
type SummaryWorker struct {
	summarizer *Summarizer
	store      Store
	encoder    Encoder // nil when no encoder is configured
	cfg        WorkerConfig
	limiter    *rate.Limiter

	jobs chan SummaryJob
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewSummaryWorker builds and starts the pool.
func NewSummaryWorker(summarizer *Summarizer, store Store, encoder Encoder, cfg WorkerConfig) *SummaryWorker {
	cfg = cfg.withDefaults()
	w := &SummaryWorker{
		summarizer: summarizer,
		store:      store,
		encoder:    encoder,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), 1),
		jobs:       make(chan SummaryJob, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	return w
}

// Enqueue schedules a round without blocking the caller. It reports
// whether the job was accepted; a full queue or closed worker drops it.
func (w *SummaryWorker) Enqueue(job SummaryJob) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.jobs <- job:
		return true
	default:
		log.Printf("[MEMORY] Summary queue full, dropping round %d for scope %s/%s", job.Round, job.Scope.UserID, job.Scope.ScopeID)
		return false
	}
}

// Close stops accepting jobs and waits for in-flight rounds to finish.
func (w *SummaryWorker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *SummaryWorker) run() {
	defer w.wg.Done()
	for job := range w.jobs {
		w.process(job)
	}
}

// process runs one round: claim, extract, encode, persist. Any failure
// aborts only this round.
func (w *SummaryWorker) process(job SummaryJob) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
	defer cancel()

	claimed, err := w.store.ClaimRound(ctx, job.Scope.UserID, job.Scope.ScopeID, job.Round)
	if err != nil {
		log.Printf("[MEMORY] Round %d claim failed for scope %s/%s: %v", job.Round, job.Scope.UserID, job.Scope.ScopeID, err)
		return
	}
	if !claimed {
		log.Printf("[MEMORY] Round %d already claimed for scope %s/%s, skipping", job.Round, job.Scope.UserID, job.Scope.ScopeID)
		return
	}

	if err := w.limiter.Wait(ctx); err != nil {
		log.Printf("[MEMORY] Round %d abandoned waiting for rate limit: %v", job.Round, err)
		return
	}

	candidates, err := w.summarizer.Summarize(ctx, job.Window)
	if err != nil {
		log.Printf("[MEMORY] Round %d extraction failed for scope %s/%s: %v", job.Round, job.Scope.UserID, job.Scope.ScopeID, err)
		return
	}

	sourceText := core.FormatTranscript(job.Window)
	stored := 0
	for _, cand := range candidates {
		if !cand.ShouldRemember {
			continue
		}
		rec, err := NewRecord(job.Scope, cand, sourceText, job.Round, w.cfg.BatchSize)
		if err != nil {
			log.Printf("[MEMORY] Discarding candidate for round %d: %v", job.Round, err)
			continue
		}
		rec.Embedding = w.encodeSummary(ctx, rec.Summary)
		if err := w.store.Create(ctx, rec); err != nil {
			log.Printf("[MEMORY] Failed to store record for round %d: %v", job.Round, err)
			continue
		}
		stored++
	}
	log.Printf("[MEMORY] Round %d stored %d/%d candidates for scope %s/%s", job.Round, stored, len(candidates), job.Scope.UserID, job.Scope.ScopeID)
}

// encodeSummary returns the record embedding, or nil when the encoder is
// unavailable or failing. Records without embeddings stay retrievable via
// the lexical path.
func (w *SummaryWorker) encodeSummary(ctx context.Context, summary string) []float32 {
	if w.encoder == nil {
		return nil
	}
	vec, err := w.encoder.Encode(ctx, summary)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			log.Printf("[MEMORY] Embedding failed, storing record without vector: %v", err)
		}
		return nil
	}
	return vec
}
