package perf

import (
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/forgelabs/forgemon/pkg/models"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// genDurations draws a non-empty slice of millisecond durations.
func genDurations(t *rapid.T) []time.Duration {
	n := rapid.IntRange(1, 200).Draw(t, "numSamples")
	out := make([]time.Duration, n)
	for i := 0; i < n; i++ {
		ms := rapid.IntRange(0, 100000).Draw(t, fmt.Sprintf("ms_%d", i))
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}

// Property: for any sequence of same-type metrics, percentiles are ordered
// p99 >= p90 >= p50 >= min, and p50 matches the nearest-rank median computed
// independently.
func TestProperty_PercentileOrdering(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		durations := genDurations(rt)

		m := NewMonitor(zap.NewNop(), Options{ReportInterval: time.Hour})
		for _, d := range durations {
			m.RecordMetric(models.PerformanceMetric{
				MetricType: models.MetricCommand,
				Name:       "prop",
				Duration:   d,
				Success:    true,
			})
		}

		stats := m.Stats(models.MetricCommand)
		if stats.P90 < stats.P50 {
			rt.Errorf("p90 %s < p50 %s", stats.P90, stats.P50)
		}
		if stats.P99 < stats.P90 {
			rt.Errorf("p99 %s < p90 %s", stats.P99, stats.P90)
		}
		if stats.P50 < stats.Min {
			rt.Errorf("p50 %s < min %s", stats.P50, stats.Min)
		}
		if stats.Max < stats.P99 {
			rt.Errorf("max %s < p99 %s", stats.Max, stats.P99)
		}

		// Independent nearest-rank median.
		sorted := make([]time.Duration, len(durations))
		copy(sorted, durations)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		idx := int(math.Ceil(float64(len(sorted))*0.5)) - 1
		if idx < 0 {
			idx = 0
		}
		if stats.P50 != sorted[idx] {
			rt.Errorf("p50 %s does not match nearest-rank median %s", stats.P50, sorted[idx])
		}
	})
}

// Property: the buffer never exceeds its capacity and always retains the
// newest samples.
func TestProperty_BufferEvictionKeepsNewest(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, bufferCap+500).Draw(rt, "numSamples")

		m := NewMonitor(zap.NewNop(), Options{ReportInterval: time.Hour})
		for i := 0; i < n; i++ {
			m.RecordMetric(models.PerformanceMetric{
				MetricType: models.MetricFileOp,
				Name:       "evict",
				Duration:   time.Duration(i) * time.Microsecond,
				Success:    true,
			})
		}

		stats := m.Stats(models.MetricFileOp)
		want := n
		if want > bufferCap {
			want = bufferCap
		}
		if stats.Count != want {
			rt.Errorf("expected %d retained samples, got %d", want, stats.Count)
		}
		if n > bufferCap {
			// The newest sample must survive eviction.
			if stats.Max != time.Duration(n-1)*time.Microsecond {
				rt.Errorf("expected newest sample %s retained, got max %s",
					time.Duration(n-1)*time.Microsecond, stats.Max)
			}
		}
	})
}
