package errtrack

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/forgelabs/forgemon/pkg/models"
)

var severities = []models.ErrorSeverity{
	models.SeverityLow,
	models.SeverityMedium,
	models.SeverityHigh,
	models.SeverityCritical,
}

func severityRankOf(s models.ErrorSeverity) int {
	for i, sev := range severities {
		if sev == s {
			return i
		}
	}
	return -1
}

// Property: across any sequence of repeat occurrences, the stored severity
// equals the maximum severity seen so far and never moves down.
func TestProperty_SeverityNeverDowngrades(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := NewTracker(zap.NewNop(), Options{ReportInterval: time.Hour})

		n := rapid.IntRange(1, 50).Draw(rt, "numOccurrences")
		maxSeen := -1
		for i := 0; i < n; i++ {
			sev := severities[rapid.IntRange(0, len(severities)-1).Draw(rt, fmt.Sprintf("sev_%d", i))]
			if rank := severityRankOf(sev); rank > maxSeen {
				maxSeen = rank
			}
			tracked := tr.Track("same failure", models.CategoryBackend, sev, nil)
			if got := severityRankOf(tracked.Severity); got != maxSeen {
				rt.Fatalf("after occurrence %d: severity %s, want %s",
					i, tracked.Severity, severities[maxSeen])
			}
		}
	})
}

// Property: recorded recovery attempts never exceed the strategy's
// max_attempts no matter how often recovery is requested.
func TestProperty_AttemptsBoundedByStrategy(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxAttempts := rapid.IntRange(0, 5).Draw(rt, "maxAttempts")
		requests := rapid.IntRange(0, 20).Draw(rt, "requests")

		tr := NewTracker(zap.NewNop(), Options{
			ReportInterval: time.Hour,
			Strategies: map[models.ErrorCategory]models.RecoveryStrategy{
				models.CategoryNetwork: {
					Category:    models.CategoryNetwork,
					Action:      models.ActionRetry,
					MaxAttempts: maxAttempts,
					BackoffMs:   0,
				},
			},
		})
		tracked := tr.Track("flaky socket", models.CategoryNetwork, models.SeverityHigh, nil)

		accepted := 0
		for i := 0; i < requests; i++ {
			if tr.AttemptRecovery(tracked.ID) {
				accepted++
			}
		}

		got, _ := tr.Get(tracked.ID)
		if got.RecoveryAttempts > maxAttempts {
			rt.Fatalf("recorded %d attempts, strategy allows %d", got.RecoveryAttempts, maxAttempts)
		}
		want := requests
		if want > maxAttempts {
			want = maxAttempts
		}
		if accepted != want {
			rt.Fatalf("accepted %d attempts, want %d", accepted, want)
		}
	})
}

// Property: identity is a pure function of category and message prefix;
// context and severity never change it.
func TestProperty_IdentityIgnoresContext(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		message := rapid.StringN(1, 200, -1).Draw(rt, "message")
		category := models.ErrorCategory(rapid.SampledFrom([]string{
			"ui", "backend", "network", "state", "unknown",
		}).Draw(rt, "category"))

		tr := NewTracker(zap.NewNop(), Options{ReportInterval: time.Hour})
		a := tr.Track(message, category, models.SeverityLow, map[string]string{"k": "v1"})
		b := tr.Track(message, category, models.SeverityCritical, map[string]string{"k": "v2"})
		if a.ID != b.ID {
			rt.Fatalf("same (category, message) produced different ids: %s vs %s", a.ID, b.ID)
		}
		if a.ID != ErrorID(category, message) {
			rt.Fatalf("tracked id %s does not match ErrorID %s", a.ID, ErrorID(category, message))
		}
	})
}
