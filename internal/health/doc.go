// Package health runs the recurring probe battery that scores subsystem
// health. Probes run concurrently each cycle; a probe that fails or panics is
// converted into a failed result and never aborts the batch. Scores are
// aggregated into a weighted 0-100 overall score with bounded trend history.
package health
