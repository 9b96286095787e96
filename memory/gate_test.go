package memory_test

import (
	"testing"

	"github.com/konuslabs/recall/memory"
)

func TestEvaluateTurnGate(t *testing.T) {
	tests := []struct {
		name        string
		turnCount   int
		wantTrigger bool
		wantRound   int
		wantTrimTo  int
	}{
		{"zero turns", 0, false, 0, 0},
		{"below boundary", 49, false, 0, 0},
		{"exact first boundary", 50, true, 50, 0},
		{"just past boundary", 51, false, 0, 10},
		{"second boundary", 100, true, 100, 10},
		{"skipped boundary", 101, false, 0, 10},
		{"large exact multiple", 50000, true, 50000, 10},
		{"large non-multiple", 50001, false, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := memory.EvaluateTurnGate(tt.turnCount, 50, 10)
			if d.Trigger != tt.wantTrigger {
				t.Errorf("Trigger = %v, want %v", d.Trigger, tt.wantTrigger)
			}
			if d.Round != tt.wantRound {
				t.Errorf("Round = %d, want %d", d.Round, tt.wantRound)
			}
			if d.TrimTo != tt.wantTrimTo {
				t.Errorf("TrimTo = %d, want %d", d.TrimTo, tt.wantTrimTo)
			}
		})
	}
}

func TestEvaluateTurnGate_NoTrimAtFirstBoundary(t *testing.T) {
	// At exactly batchSize the window is summarized but not yet trimmed;
	// trimming requires turnCount > batchSize.
	d := memory.EvaluateTurnGate(50, 50, 10)
	if !d.Trigger {
		t.Fatal("expected trigger at first boundary")
	}
	if d.TrimTo != 0 {
		t.Errorf("TrimTo = %d, want 0 at first boundary", d.TrimTo)
	}
}

func TestEvaluateTurnGate_DegenerateInputs(t *testing.T) {
	if d := memory.EvaluateTurnGate(50, 0, 10); d.Trigger {
		t.Error("zero batch size must never trigger")
	}
	if d := memory.EvaluateTurnGate(100, 50, 0); d.TrimTo != 0 {
		t.Error("zero keep size must not request trimming")
	}
}
