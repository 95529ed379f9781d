// Package metrics holds the sink's in-process Prometheus instrumentation:
// counters for descriptions minted, batches written, and commit outcomes,
// plus gauges for the shared write frontier and correction buffer size.
//
// There is no HTTP exposition here and no registry handler — wiring a
// /metrics endpoint is left to whatever embeds the sink. Use
// prometheus.WriteToTextfile or a promhttp.Handler over the default
// registry from the embedding process if one is needed.
package metrics
