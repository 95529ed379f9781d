package shard

import (
	"context"
	"sync"

	"github.com/cuemby/persistsink/pkg/types"
)

// Writer is a handle to a shard's write path, scoped to one purpose
// string for logging (e.g. "minter", "appender"). Multiple writers over
// the same Client are safe to use concurrently; all of them share the
// underlying Raft group and blob store.
type Writer struct {
	client  *Client
	purpose string
}

// Upper returns the shard's current committed upper frontier.
func (w *Writer) Upper() types.Frontier {
	return w.client.fsm.Upper()
}

// Append performs an empty compare-and-append: it advances the shard's
// upper without adding rows. This is the bootstrap primitive — a sink
// whose shard upper is still below its write lower bound calls Append
// with expectedLower equal to the upper it just read and newUpper equal
// to that bound; newUpper must lie strictly beyond the current upper. A
// *ConflictError return means another writer already advanced the
// shard; the caller should treat that as success and re-read Upper().
func (w *Writer) Append(ctx context.Context, expectedLower, newUpper types.Frontier) error {
	return w.client.append(ctx, expectedLower, newUpper)
}

// Batch stages updates as an uncommitted batch, ready for
// CompareAndAppendBatch or for downgrading to a HollowBatch reference.
func (w *Writer) Batch(updates []types.Update, lower, upper types.Frontier) (*Batch, error) {
	return w.client.batch(updates, lower, upper)
}

// RehydrateBatch turns a HollowBatch artifact handed across the
// broadcast/exchange boundary back into a committable Batch by
// reading its parts out of the blob store.
func (w *Writer) RehydrateBatch(hollow types.HollowBatch) (*Batch, error) {
	return w.client.rehydrateBatch(hollow)
}

// CompareAndAppendBatch commits the union of the given batches' updates
// in a single consensus round, provided the shard's current upper still
// equals expectedLower. On success every batch is marked consumed and
// must not be reused. On a *ConflictError the batches are left intact so
// the caller can inspect them before deleting.
func (w *Writer) CompareAndAppendBatch(ctx context.Context, batches []*Batch, expectedLower, newUpper types.Frontier) error {
	return w.client.compareAndAppendBatch(ctx, batches, expectedLower, newUpper)
}

// Batch is an uncommitted, possibly multi-part write staged in the
// shard's blob store. It must eventually be either consumed by
// CompareAndAppendBatch or explicitly Deleted; holding an
// un-deleted, un-consumed Batch leaks its parts.
type Batch struct {
	client   *Client
	lower    types.Frontier
	upper    types.Frontier
	partIDs  []string
	updates  []types.Update
	mu       sync.Mutex
	consumed bool
	deleted  bool
}

// Lower returns the batch's lower frontier bound.
func (b *Batch) Lower() types.Frontier {
	return b.lower
}

// Upper returns the batch's upper frontier bound.
func (b *Batch) Upper() types.Frontier {
	return b.upper
}

// Hollow downgrades this batch to its wire-sized reference: the
// description plus the blob-store part IDs, without the row contents.
// This is what a writer hands to the appender instead of shipping full
// batch contents across the exchange.
func (b *Batch) Hollow() types.HollowBatch {
	return types.HollowBatch{Lower: b.lower, Upper: b.upper, PartIDs: b.partIDs}
}

// Delete removes the batch's parts from the blob store. It is a no-op if
// the batch was already consumed by a successful commit or already
// deleted, so repeated calls are harmless.
func (b *Batch) Delete(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.consumed || b.deleted {
		return nil
	}
	for _, id := range b.partIDs {
		if err := b.client.blobs.delete(id); err != nil {
			return err
		}
	}
	b.deleted = true
	return nil
}
