package services

import "testing"

func TestProgressSnapshot(t *testing.T) {
	p := NewProgressReporter("test", 10, 5)
	for i := 0; i < 6; i++ {
		p.Record(i != 2) // one failure
	}

	snap := p.Snapshot()
	if snap.Processed != 6 || snap.Total != 10 {
		t.Fatalf("processed/total = %d/%d, want 6/10", snap.Processed, snap.Total)
	}
	if snap.Succeeded != 5 {
		t.Errorf("succeeded = %d, want 5", snap.Succeeded)
	}
	want := 5.0 / 6.0
	if diff := snap.SuccessRate - want; diff > 0.001 || diff < -0.001 {
		t.Errorf("success rate = %.3f, want %.3f", snap.SuccessRate, want)
	}
	if snap.ChunksPerSec <= 0 {
		t.Errorf("throughput = %.2f, want positive", snap.ChunksPerSec)
	}
	if snap.EstimatedLeft < 0 {
		t.Errorf("negative ETA: %s", snap.EstimatedLeft)
	}
}

func TestProgressDefaultsInterval(t *testing.T) {
	p := NewProgressReporter("test", 3, 0)
	// Must not divide by zero on Record.
	p.Record(true)
	if p.Snapshot().Processed != 1 {
		t.Fatal("record not counted")
	}
}
