package shard

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/persistsink/pkg/log"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// newRaft bootstraps a single-node Raft group backing one shard. The shard
// lives inside one process (workers are goroutines, not network
// peers), so an in-memory transport is enough — there is no second voter
// to dial. The log/stable stores are still BoltDB-backed, so a shard
// survives a process restart without relying on in-memory-only state.
func newRaft(dataDir, shardID string, fsm raft.FSM) (*raft.Raft, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("shard: create data dir: %w", err)
	}

	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(shardID)

	addr, transport := raft.NewInmemTransport(raft.ServerAddress(shardID))

	snapshotStore, err := raft.NewFileSnapshotStore(dataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("shard: create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("shard: create raft log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("shard: create raft stable store: %w", err)
	}

	r, err := raft.NewRaft(config, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("shard: create raft instance: %w", err)
	}

	future := r.BootstrapCluster(raft.Configuration{
		Servers: []raft.Server{{ID: config.LocalID, Address: addr}},
	})
	if err := future.Error(); err != nil && err != raft.ErrCantBootstrap {
		return nil, fmt.Errorf("shard: bootstrap cluster: %w", err)
	}

	if err := waitForLeader(r, 10*time.Second); err != nil {
		return nil, err
	}

	return r, nil
}

// waitForLeader polls until this single-node group elects itself leader.
// A fresh single-node Raft group always wins its own election; this is
// just giving the election timer a chance to fire.
func waitForLeader(r *raft.Raft, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	logger := log.WithComponent("shard")
	for time.Now().Before(deadline) {
		if r.State() == raft.Leader {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	logger.Error().Msg("shard raft group never elected a leader")
	return fmt.Errorf("shard: raft group did not elect a leader within %s", timeout)
}
