package errtrack

import (
	"strings"

	"github.com/forgelabs/forgemon/pkg/models"
)

// categoryKeywords maps free-text fragments to categories. Matching is
// case-insensitive and first-hit wins, so more specific buckets come first.
var categoryKeywords = []struct {
	category models.ErrorCategory
	keywords []string
}{
	{models.CategoryNetwork, []string{"econnreset", "econnrefused", "etimedout", "socket", "network", "dns", "connection refused", "timeout"}},
	{models.CategoryFileSystem, []string{"enoent", "eacces", "no such file", "permission denied", "read-only file", "file", "directory"}},
	{models.CategoryValidation, []string{"validation", "invalid", "schema", "parse error", "unmarshal", "malformed"}},
	{models.CategoryState, []string{"state", "snapshot", "stale", "checkpoint"}},
	{models.CategoryAgent, []string{"agent", "prompt", "model", "completion"}},
	{models.CategoryCommand, []string{"command", "exit status", "exit code", "usage:"}},
	{models.CategoryUI, []string{"render", "layout", "terminal", "ansi"}},
	{models.CategoryIntegration, []string{"webhook", "integration", "mcp", "api "}},
	{models.CategoryBackend, []string{"server", "internal error", "database", "backend"}},
}

// Categorize is the fallback keyword classifier used when a caller tracks an
// error without naming a category.
func Categorize(message string) models.ErrorCategory {
	lower := strings.ToLower(message)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return models.CategoryUnknown
}

// DefaultStrategies is the built-in per-category recovery policy table.
// Entries can be overridden at construction (config) or at runtime.
func DefaultStrategies() map[models.ErrorCategory]models.RecoveryStrategy {
	return map[models.ErrorCategory]models.RecoveryStrategy{
		models.CategoryNetwork:     {Category: models.CategoryNetwork, Action: models.ActionRetry, MaxAttempts: 3, BackoffMs: 1000},
		models.CategoryFileSystem:  {Category: models.CategoryFileSystem, Action: models.ActionRetry, MaxAttempts: 2, BackoffMs: 500},
		models.CategoryState:       {Category: models.CategoryState, Action: models.ActionReset, MaxAttempts: 1, BackoffMs: 0},
		models.CategoryIntegration: {Category: models.CategoryIntegration, Action: models.ActionRetry, MaxAttempts: 3, BackoffMs: 2000},
		models.CategoryBackend:     {Category: models.CategoryBackend, Action: models.ActionRetry, MaxAttempts: 2, BackoffMs: 1000},
		models.CategoryAgent:       {Category: models.CategoryAgent, Action: models.ActionReset, MaxAttempts: 2, BackoffMs: 1000},
		models.CategoryCommand:     {Category: models.CategoryCommand, Action: models.ActionRetry, MaxAttempts: 1, BackoffMs: 500},
		models.CategoryUI:          {Category: models.CategoryUI, Action: models.ActionIgnore, MaxAttempts: 0, BackoffMs: 0},
		models.CategoryValidation:  {Category: models.CategoryValidation, Action: models.ActionAlert, MaxAttempts: 1, BackoffMs: 0},
		models.CategoryUnknown:     {Category: models.CategoryUnknown, Action: models.ActionAlert, MaxAttempts: 1, BackoffMs: 0},
	}
}
