// Package influxdb provides the optional time-series history sink.
//
// When enabled it records every sync outcome and the numeric device
// metrics that came with it, giving dashboards a queryable history
// beyond the bounded in-process sync log. Writes are batched and
// non-blocking; the sink is never load-bearing for a sync.
package influxdb
