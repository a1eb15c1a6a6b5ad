// Package errtrack deduplicates recurring errors by a deterministic identity
// hash, drives best-effort automatic recovery with linear backoff, and
// persists the tracked set across restarts. Repeat occurrences accumulate a
// count; severity only ever escalates.
package errtrack
