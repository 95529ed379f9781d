// Package sink implements the continuous persistence sink: a minter,
// a set of per-worker writers, an appender, and the feedback loop that
// connects them.
//
// There is no real dataflow scheduler underneath this package — no
// timely-style frontier-tracking runtime exists in this module's
// dependency stack — so the broadcast/exchange/disconnected-frontier
// primitives of the original design are emulated directly with
// channels and goroutines:
//
//   - Broadcast (descriptions → every writer) is descriptionBroker, a
//     fan-out broadcaster built on the generic pkg/events
//     broker, adapted to block on a full subscriber rather than drop
//     (a dropped description is a correctness bug here, not a missed
//     notification).
//   - Exchange-by-hash (artifacts/descriptions → the single leader
//     appender) collapses to plain channels (one artifact channel
//     shared by every writer, one description channel from the minter),
//     since there is exactly one appender per sink in-process.
//   - Disconnected input frontiers are emulated by not tying any output
//     frontier to the input in question. The appender's progress is
//     never gated on a frontier; the persist-readback frontier is
//     consulted for writer readiness (a description is held until that
//     frontier reaches its lower) but does not otherwise hold back
//     artifact emission.
//   - The feedback loop is frontierCell: the appender calls
//     Advance on the same cell the minter selects on, closing the
//     cycle without an actual cyclic dataflow edge.
//
// A Sink embodies the whole P-worker group in one process: it always
// builds one minter, one appender, and WorkerCount writers.
// leaderWorker(sinkID, workerCount) is still computed and logged,
// because in a deployment that actually spreads a sink's workers
// across separate processes, it is the index that decides which
// process builds the minter/appender pair (correction accounting has
// no leader, so every process still builds a writer).
//
// The persist-readback stream — the read side that reports what the
// shard currently holds — is not produced by this package. It is an
// external collaborator's responsibility: the embedding
// controller feeds it to Sink.SubmitPersistReadback, typically by
// tailing the shard's committed contents.
package sink
