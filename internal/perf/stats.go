package perf

import (
	"math"
	"sort"
	"time"

	"github.com/forgelabs/forgemon/pkg/models"
)

// computeStats derives statistics from a metric slice. The slice is not
// retained; durations are sorted in a scratch copy.
func computeStats(samples []models.PerformanceMetric) models.PerformanceStats {
	stats := models.PerformanceStats{Count: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	durations := make([]time.Duration, len(samples))
	successes := 0
	for i, s := range samples {
		durations[i] = s.Duration
		stats.TotalDuration += s.Duration
		if s.Success {
			successes++
		}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	stats.Min = durations[0]
	stats.Max = durations[len(durations)-1]
	stats.Average = stats.TotalDuration / time.Duration(len(durations))
	stats.P50 = percentile(durations, 50)
	stats.P90 = percentile(durations, 90)
	stats.P99 = percentile(durations, 99)
	stats.SuccessRate = float64(successes) / float64(len(samples)) * 100
	return stats
}

// percentile returns the nearest-rank percentile: the value at sorted index
// ceil(n*p/100)-1, clamped to valid indices.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(len(sorted))*p/100)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
