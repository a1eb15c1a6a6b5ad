// Package alerting turns threshold breaches into deduplicated alerts,
// batches active alerts into periodic notifications, and raises remediation
// intents for critical conditions that have an automatable response.
package alerting
