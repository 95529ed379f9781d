package shard

import (
	"context"
	"testing"

	"github.com/cuemby/persistsink/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	target := Target{DataDir: t.TempDir(), ShardID: "test-shard"}
	c, err := Open(target)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})
	return c
}

func upd(key string, ts types.Timestamp, diff int64) types.Update {
	return types.Update{
		Payload: types.Payload{Row: []byte(key)},
		Time:    ts,
		Diff:    diff,
	}
}

func TestWriterAppendBootstrapsShard(t *testing.T) {
	c := newTestClient(t)
	w := c.OpenWriter("test")

	require.Equal(t, types.MinFrontier(), w.Upper())

	err := w.Append(context.Background(), types.MinFrontier(), types.At(1))
	require.NoError(t, err)
	require.Equal(t, types.At(1), w.Upper())
}

func TestWriterAppendConflictReportsActualUpper(t *testing.T) {
	c := newTestClient(t)
	w := c.OpenWriter("test")

	require.NoError(t, w.Append(context.Background(), types.MinFrontier(), types.At(1)))

	err := w.Append(context.Background(), types.MinFrontier(), types.At(2))
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, types.At(1), conflict.Actual)
}

func TestCompareAndAppendBatchCommitsAndConsolidates(t *testing.T) {
	c := newTestClient(t)
	w := c.OpenWriter("test")
	ctx := context.Background()

	require.NoError(t, w.Append(ctx, types.MinFrontier(), types.At(1)))

	batch, err := w.Batch([]types.Update{upd("a", 0, 1), upd("b", 0, 1)}, types.MinFrontier(), types.At(1))
	require.NoError(t, err)

	require.NoError(t, w.CompareAndAppendBatch(ctx, []*Batch{batch}, types.At(1), types.At(2)))
	require.Equal(t, types.At(2), w.Upper())

	contents := c.fsm.Contents()
	require.Equal(t, int64(1), contents["row:a"])
	require.Equal(t, int64(1), contents["row:b"])
}

func TestCompareAndAppendBatchConflictLeavesBatchIntact(t *testing.T) {
	c := newTestClient(t)
	w := c.OpenWriter("test")
	ctx := context.Background()

	require.NoError(t, w.Append(ctx, types.MinFrontier(), types.At(1)))

	batch, err := w.Batch([]types.Update{upd("a", 0, 1)}, types.MinFrontier(), types.At(1))
	require.NoError(t, err)

	err = w.CompareAndAppendBatch(ctx, []*Batch{batch}, types.MinFrontier(), types.At(1))
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, types.At(1), conflict.Actual)

	require.NoError(t, batch.Delete(ctx))
}

func TestBatchDeleteIsIdempotent(t *testing.T) {
	c := newTestClient(t)
	w := c.OpenWriter("test")

	batch, err := w.Batch([]types.Update{upd("a", 0, 1)}, types.MinFrontier(), types.At(1))
	require.NoError(t, err)

	require.NoError(t, batch.Delete(context.Background()))
	require.NoError(t, batch.Delete(context.Background()))
}

func TestRehydrateBatchReadsBackParts(t *testing.T) {
	c := newTestClient(t)
	w := c.OpenWriter("test")

	batch, err := w.Batch([]types.Update{upd("a", 0, 1)}, types.MinFrontier(), types.At(1))
	require.NoError(t, err)

	hollow := batch.Hollow()
	rehydrated, err := w.RehydrateBatch(hollow)
	require.NoError(t, err)
	require.Equal(t, batch.updates, rehydrated.updates)
}

func TestOpenCachesClientPerTarget(t *testing.T) {
	dir := t.TempDir()
	target := Target{DataDir: dir, ShardID: "shared"}

	c1, err := Open(target)
	require.NoError(t, err)
	t.Cleanup(func() { c1.Close() })

	c2, err := Open(target)
	require.NoError(t, err)

	require.Same(t, c1, c2)
}
