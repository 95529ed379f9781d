/*
Package types defines the data model shared by the persist sink: the
timestamp/frontier lattice, the update and description shapes flowing
between the minter, writer, and appender, and the hollow batch handle the
shard collaborator hands back for uncommitted uploads.

# Frontiers

Frontier is a minimal antichain over Timestamp. The sink's timestamp domain
is totally ordered, so a frontier only ever needs zero or one elements:
MinFrontier() ({MinTimestamp}) and EmptyFrontier() ({}, "no more progress").
LessEqual/Less/Join/Meet implement the lattice operations the minter and
writer need to decide readiness; AdvanceBy rounds a Timestamp up to a
frontier's join.

# Descriptions and batches

A Description names a half-open time interval [Lower, Upper) that one sink
instance is currently trying to commit. A HollowBatch is what a writer
produces for a description: a reference to already-uploaded storage, not
the storage itself, so it can be cheaply broadcast to the appender and
either consumed (committed) or deleted.
*/
package types
