package memory

// GateDecision is the outcome of evaluating one chat request's turn count.
type GateDecision struct {
	// Trigger is true iff the turn count is an exact positive multiple
	// of the batch size. Round is set to the turn count when triggered.
	Trigger bool
	Round   int

	// TrimTo is the window length the live history should be cut to
	// before the outbound completion call, or 0 for no trimming.
	TrimTo int
}

// EvaluateTurnGate decides whether a summarization round is due and what
// window to trim to. Pure function, no I/O.
//
// The trigger is an exact-equality check against multiples of batchSize,
// not >=: a client that skips over a boundary (bursty sends, client-side
// trimming) silently misses that round. The persisted round claim in the
// store records progress for rounds that do fire; a missed round is a gap
// in memory coverage, not an error.
func EvaluateTurnGate(turnCount, batchSize, keepSize int) GateDecision {
	var d GateDecision
	if batchSize <= 0 {
		return d
	}
	if turnCount > 0 && turnCount%batchSize == 0 {
		d.Trigger = true
		d.Round = turnCount
	}
	if turnCount > batchSize && keepSize > 0 {
		d.TrimTo = keepSize
	}
	return d
}
