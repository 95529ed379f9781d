/*
Package log provides structured logging for the sink using zerolog.

A single package-level zerolog.Logger is configured once via Init and
shared by every component; WithComponent and WithWorker derive child
loggers that tag each line with which operator (minter, writer, appender,
shard) and which worker index produced it, so a multi-worker run can be
filtered down to one instance's view.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	logger := log.WithWorker("minter", workerIndex)
	logger.Info().Str("sink_id", sinkID).Msg("minter entering steady state")

Fatal sink errors (startup failures, commit
indeterminate, capability invariant violations) are logged at Error level
with the error attached via .Err(err) before the operator returns; benign
races (bootstrap conflict, commit conflict) are logged at Trace so they
don't show up at the default Info level but remain available when
diagnosing contention between concurrent sink instances.
*/
package log
