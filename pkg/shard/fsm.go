package shard

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/persistsink/pkg/types"
	"github.com/hashicorp/raft"
)

// command is the single Raft log entry shape this shard ever applies: a
// compare-and-append. The bootstrap empty append is the same
// command with an empty Updates slice.
type command struct {
	ExpectedLower types.Frontier
	NewUpper      types.Frontier
	Updates       []types.Update
}

// shardFSM is the Raft finite state machine backing one shard: the
// committed upper frontier and the consolidated row contents that result
// from applying every update committed so far.
type shardFSM struct {
	mu       sync.RWMutex
	upper    types.Frontier
	contents map[string]int64
}

func newShardFSM() *shardFSM {
	return &shardFSM{
		upper:    types.MinFrontier(),
		contents: make(map[string]int64),
	}
}

// Upper returns the FSM's locally-applied upper frontier. Because this is
// a single-node Raft group, a local read is always consistent with the
// last successfully applied log entry.
func (f *shardFSM) Upper() types.Frontier {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.upper
}

// Contents returns a snapshot of the consolidated, committed row
// multiplicities. Exposed for tests asserting round-trip convergence.
func (f *shardFSM) Contents() map[string]int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]int64, len(f.contents))
	for k, v := range f.contents {
		out[k] = v
	}
	return out
}

// Apply applies one Raft log entry. The return value is either nil
// (success), a *ConflictError (benign, the current upper did not match
// the command's expected lower), or a generic error (fatal — a
// programming invariant violation, not a race).
func (f *shardFSM) Apply(log *raft.Log) interface{} {
	var cmd command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("shard: unmarshal raft command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.upper != cmd.ExpectedLower {
		return &ConflictError{Actual: f.upper}
	}
	if cmd.NewUpper.LessEqual(f.upper) {
		return fmt.Errorf("shard: new upper %s does not advance current upper %s", cmd.NewUpper, f.upper)
	}

	for _, u := range cmd.Updates {
		f.contents[u.Payload.Key()] += u.Diff
		if f.contents[u.Payload.Key()] == 0 {
			delete(f.contents, u.Payload.Key())
		}
	}
	f.upper = cmd.NewUpper
	return nil
}

// Snapshot implements raft.FSM.
func (f *shardFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	contents := make(map[string]int64, len(f.contents))
	for k, v := range f.contents {
		contents[k] = v
	}
	return &shardSnapshot{Upper: f.upper, Contents: contents}, nil
}

// Restore implements raft.FSM.
func (f *shardFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snap shardSnapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return fmt.Errorf("shard: decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.upper = snap.Upper
	f.contents = snap.Contents
	return nil
}

type shardSnapshot struct {
	Upper    types.Frontier   `json:"upper"`
	Contents map[string]int64 `json:"contents"`
}

func (s *shardSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

func (s *shardSnapshot) Release() {}
