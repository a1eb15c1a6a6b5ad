// Package diag provides on-demand troubleshooting: a battery of one-shot
// pass/fail probes, a host environment snapshot, a togglable debug mode, a
// short profiling window, and log bundle collection for offline support.
package diag
