package sink

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/cuemby/persistsink/pkg/shard"
	"github.com/cuemby/persistsink/pkg/types"
)

// Config holds the construction-time inputs for a Sink. It is a plain
// struct, not a parsed file or flag set — the sink core owns no
// configuration surface of its own; the embedding
// controller is responsible for sourcing these values.
type Config struct {
	// SinkID identifies this sink instance and seeds leader election.
	SinkID string
	// Target names the shard this sink drives.
	Target shard.Target
	// AsOf is the write lower bound: no description is ever minted with
	// lower < AsOf.
	AsOf types.Frontier
	// WorkerCount is P, the number of cooperating worker instances.
	WorkerCount int
}

func (c Config) validate() error {
	if c.SinkID == "" {
		return fmt.Errorf("sink: SinkID must not be empty")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("sink: WorkerCount must be at least 1")
	}
	return nil
}

// leaderWorker implements deterministic, stateless leader election:
// leader_worker = hash(sink_id) mod P. Stable across restarts since it
// depends only on SinkID and WorkerCount.
func leaderWorker(sinkID string, workerCount int) int {
	return int(xxhash.Sum64String(sinkID) % uint64(workerCount))
}

// workerFor routes a payload to its writer instance: hash(payload) mod P.
// Both the desired and persist-readback streams use this so that every
// update for a given payload lands on the same writer.
func workerFor(key string, workerCount int) int {
	return int(xxhash.Sum64String(key) % uint64(workerCount))
}
