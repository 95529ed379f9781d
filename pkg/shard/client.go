package shard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/persistsink/pkg/log"
	"github.com/cuemby/persistsink/pkg/types"
	"github.com/google/uuid"
	"github.com/hashicorp/raft"
	"github.com/rs/zerolog"
)

// Target names a shard: where its durable state lives and which shard
// within that location: a persist location plus a shard id.
type Target struct {
	DataDir string
	ShardID string
}

func (t Target) key() string {
	return t.DataDir + "/" + t.ShardID
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Client{}
)

// Open returns the shared Client for target, creating it on first use.
// This is the sink's pooled shard client cache: only the
// first Open for a given target contends on cacheMu; every operator
// afterward gets its own Writer over the cached Client without further
// contention.
func Open(target Target) (*Client, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if c, ok := cache[target.key()]; ok {
		return c, nil
	}

	fsm := newShardFSM()
	r, err := newRaft(target.DataDir, target.ShardID, fsm)
	if err != nil {
		return nil, err
	}
	blobs, err := newBlobStore(target.DataDir)
	if err != nil {
		return nil, err
	}

	c := &Client{
		target: target,
		raft:   r,
		fsm:    fsm,
		blobs:  blobs,
		logger: log.WithComponent("shard"),
	}
	cache[target.key()] = c
	return c, nil
}

// Client is the shard collaborator's consensus-backed implementation:
// one Raft group plus one blob store per shard target.
type Client struct {
	target Target
	raft   *raft.Raft
	fsm    *shardFSM
	blobs  *blobStore
	logger zerolog.Logger
}

// OpenWriter returns a new Writer handle over this shard. Every operator
// opens its own handle; the handle itself carries no state
// beyond a label for logging.
func (c *Client) OpenWriter(purpose string) *Writer {
	return &Writer{client: c, purpose: purpose}
}

// Close shuts down the shard's Raft group and blob store. Intended for
// test teardown; a production shard target typically outlives any one
// sink instance.
func (c *Client) Close() error {
	if err := c.raft.Shutdown().Error(); err != nil {
		return fmt.Errorf("shard: raft shutdown: %w", err)
	}
	cacheMu.Lock()
	delete(cache, c.target.key())
	cacheMu.Unlock()
	return c.blobs.close()
}

func (c *Client) apply(ctx context.Context, cmd command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("shard: marshal raft command: %w", err)
	}

	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	future := c.raft.Apply(data, timeout)
	if err := future.Error(); err != nil {
		return &IndeterminateError{Cause: err}
	}

	switch resp := future.Response().(type) {
	case nil:
		return nil
	case *ConflictError:
		return resp
	case error:
		return &IndeterminateError{Cause: resp}
	default:
		return &IndeterminateError{Cause: fmt.Errorf("shard: unexpected apply response %T", resp)}
	}
}

// append is the empty-append bootstrap primitive. A conflict
// here is benign: the caller re-reads Upper() and treats the observed
// value as ground truth.
func (c *Client) append(ctx context.Context, expectedLower, newUpper types.Frontier) error {
	return c.apply(ctx, command{ExpectedLower: expectedLower, NewUpper: newUpper})
}

// batch uploads updates into the blob store without committing them.
func (c *Client) batch(updates []types.Update, lower, upper types.Frontier) (*Batch, error) {
	id := uuid.NewString()
	if err := c.blobs.put(id, updates); err != nil {
		return nil, err
	}
	return &Batch{client: c, lower: lower, upper: upper, partIDs: []string{id}, updates: updates}, nil
}

// rehydrateBatch turns a HollowBatch reference back into a committable
// Batch by reading its parts out of the blob store.
func (c *Client) rehydrateBatch(hollow types.HollowBatch) (*Batch, error) {
	var updates []types.Update
	for _, id := range hollow.PartIDs {
		part, err := c.blobs.get(id)
		if err != nil {
			return nil, err
		}
		updates = append(updates, part...)
	}
	return &Batch{client: c, lower: hollow.Lower, upper: hollow.Upper, partIDs: hollow.PartIDs, updates: updates}, nil
}

// compareAndAppendBatch fuses the given batches' updates into one Raft
// commit. On success every batch is marked consumed; on conflict the
// caller is responsible for deleting them.
func (c *Client) compareAndAppendBatch(ctx context.Context, batches []*Batch, expectedLower, newUpper types.Frontier) error {
	var merged []types.Update
	for _, b := range batches {
		merged = append(merged, b.updates...)
	}

	err := c.apply(ctx, command{ExpectedLower: expectedLower, NewUpper: newUpper, Updates: merged})
	if err == nil {
		for _, b := range batches {
			b.mu.Lock()
			b.consumed = true
			b.mu.Unlock()
		}
	}
	return err
}
