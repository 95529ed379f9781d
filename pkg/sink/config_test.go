package sink

import "testing"

func TestLeaderWorkerIsStableAcrossCalls(t *testing.T) {
	first := leaderWorker("sink-a", 4)
	for i := 0; i < 10; i++ {
		if got := leaderWorker("sink-a", 4); got != first {
			t.Fatalf("leaderWorker is not stable: got %d, want %d", got, first)
		}
	}
	if first < 0 || first >= 4 {
		t.Fatalf("leaderWorker returned out-of-range index %d", first)
	}
}

func TestLeaderWorkerSingleWorkerAlwaysZero(t *testing.T) {
	if got := leaderWorker("any-sink-id", 1); got != 0 {
		t.Fatalf("leaderWorker(_, 1) = %d, want 0", got)
	}
}

func TestWorkerForSamePayloadAlwaysSameWorker(t *testing.T) {
	first := workerFor("row:abc", 8)
	for i := 0; i < 10; i++ {
		if got := workerFor("row:abc", 8); got != first {
			t.Fatalf("workerFor is not stable for the same key: got %d, want %d", got, first)
		}
	}
}

func TestConfigValidateRejectsEmptySinkID(t *testing.T) {
	cfg := Config{WorkerCount: 1}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected an error for an empty SinkID")
	}
}

func TestConfigValidateRejectsZeroWorkers(t *testing.T) {
	cfg := Config{SinkID: "s"}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected an error for WorkerCount < 1")
	}
}
