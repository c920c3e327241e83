// Package metrics provides Prometheus instrumentation for cbird.
//
// All metrics are prefixed with "cbird_". They are registered with the
// default registry through promauto and can be served with promhttp when
// the CLI is started with --metrics-addr.
//
// Categories:
//   - Database: query counts and durations per operation, file sizes
//   - Scanner: files per type and outcome, error tags, scan and extract time
//   - Index: update runs, items added and removed, items per type
//   - Search: query counts and durations per algorithm
//   - Reconcile: items missed by merge and chain
//   - Filesystem: stale file handle retries per operation and volume
//
// Collector polls a StatsProvider (the database) and keeps the per-type
// item gauges current.
package metrics
