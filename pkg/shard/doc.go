/*
Package shard implements the storage collaborator the sink drives: the
opaque, consensus-backed target. It is deliberately
small — open a writer, upload a batch without committing it, compare-and-
append a set of batches atomically, delete an uncommitted batch — because
the sink core never reaches past this interface into how the shard stores
bytes.

# Design

Two stores back a shard:

  - A single-node Raft group (hashicorp/raft, raft-boltdb log/stable store)
    holds the shard's committed upper frontier and consolidated contents.
    Every state transition — the bootstrap empty append and every
    compare-and-append — goes through raft.Apply, so commits are
    serialized exactly once even when multiple sink instances race to
    advance the same shard ("commits are serialized by the
    shard's consensus primitive").
  - A BoltDB blob store holds uploaded-but-not-yet-committed batch parts.
    Uploading a batch (Writer.Batch) never touches Raft — there is nothing
    to agree on until commit time — so parallel writers can stage data
    without contending on the consensus log.

Client instances are cached per shard target (Open) so that every worker's
writer shares one Raft group and one blob store, matching the "pooled
handle cache, mutually exclusive only at open" resource model.
*/
package shard
