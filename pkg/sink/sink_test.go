package sink

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/persistsink/pkg/shard"
	"github.com/cuemby/persistsink/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T, sinkID string, workerCount int) (*Sink, *shard.Client) {
	t.Helper()
	target := shard.Target{DataDir: t.TempDir(), ShardID: "sink-test"}
	client, err := shard.Open(target)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	cfg := Config{SinkID: sinkID, Target: target, AsOf: types.MinFrontier(), WorkerCount: workerCount}
	s, err := NewSink(cfg, client)
	require.NoError(t, err)
	return s, client
}

func waitForFrontier(t *testing.T, s *Sink, want types.Frontier, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Frontier() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("frontier did not reach %v within %s, got %v", want, timeout, s.Frontier())
}

func rowUpdate(row string, ts types.Timestamp, diff int64) types.Update {
	return types.Update{Payload: types.Payload{Row: []byte(row)}, Time: ts, Diff: diff}
}

// TestSinkSingleInsertConverges mirrors the "single insert" scenario
// one desired row, one description, one commit, final
// frontier {2}.
func TestSinkSingleInsertConverges(t *testing.T) {
	s, client := newTestSink(t, "single-insert", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	require.NoError(t, s.SubmitDesired(ctx, rowUpdate("r", 1, 1)))
	s.AdvanceDesired(types.At(2))

	waitForFrontier(t, s, types.At(2), 5*time.Second)

	w := client.OpenWriter("verify")
	require.Equal(t, types.At(2), w.Upper())

	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sink did not shut down after cancellation")
	}
}

// TestSinkInsertThenRetractConsolidatesToZero mirrors the "insert then
// retract" scenario: a row inserted and fully retracted within the same
// description's window must still produce exactly one artifact (or
// none, if the pair fully cancels before slicing) and converge.
func TestSinkInsertThenRetractConsolidatesToZero(t *testing.T) {
	s, client := newTestSink(t, "insert-retract", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	require.NoError(t, s.SubmitDesired(ctx, rowUpdate("r", 1, 1)))
	require.NoError(t, s.SubmitDesired(ctx, rowUpdate("r", 1, -1)))
	s.AdvanceDesired(types.At(3))

	waitForFrontier(t, s, types.At(3), 5*time.Second)

	w := client.OpenWriter("verify")
	require.Equal(t, types.At(3), w.Upper())

	cancel()
	<-runErr
}

// TestSinkNoOpTickEmitsNothing covers the "no-op tick" boundary: with
// nothing submitted, advancing the desired frontier with no net change
// past the bootstrap upper must never produce a description.
func TestSinkNoOpTickEmitsNothing(t *testing.T) {
	s, _ := newTestSink(t, "no-op", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	// Desired frontier sits at MinFrontier already; advancing to itself
	// is a no-op (frontierCell.Advance ignores non-progress).
	s.AdvanceDesired(types.MinFrontier())

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, types.MinFrontier(), s.Frontier())

	cancel()
	<-runErr
}

func TestSinkShutsDownCleanlyOnContextCancel(t *testing.T) {
	s, _ := newTestSink(t, "shutdown", 2)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sink did not shut down after cancellation")
	}
	require.True(t, s.Frontier().IsEmpty())
}
