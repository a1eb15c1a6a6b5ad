// Package monitor wires the health, performance, error and alerting
// components into one lifecycle, applies the cross-cutting escalation policy,
// and re-emits every event to registered listeners and a durable JSONL event
// log that offline consumers read.
package monitor
