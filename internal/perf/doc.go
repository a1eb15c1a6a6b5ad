// Package perf records timed operations into bounded per-type buffers and
// derives rolling percentile statistics on demand. Two alerting paths exist:
// an instant check on every recorded metric and an aggregate p90 check on the
// periodic report cadence.
package perf
