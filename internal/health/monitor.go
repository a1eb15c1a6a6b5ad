package health

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/forgelabs/forgemon/pkg/models"
	"go.uber.org/zap"
)

// historyCap bounds the snapshot ring used for trend analysis.
const historyCap = 100

// trendWindow is how many recent snapshots the trend comparison considers.
const trendWindow = 5

// Listener receives health events. The orchestrator implements this to apply
// escalation policy; external consumers may register their own.
type Listener interface {
	OnHealthUpdate(health models.SystemHealth)
	OnStatusChange(change models.StatusChange)
}

// Monitor runs the probe battery on a fixed interval and tracks history.
type Monitor interface {
	Start() error
	Stop()
	RunChecks(ctx context.Context) models.SystemHealth
	Current() *models.SystemHealth
	History() []models.SystemHealth
	Trend() models.HealthTrend
	AddListener(l Listener)
}

type monitor struct {
	logger   *zap.Logger
	probes   []Probe
	weights  map[models.CheckType]float64
	interval time.Duration

	mu        sync.Mutex
	listeners []Listener
	current   *models.SystemHealth
	history   []models.SystemHealth
	started   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
	startedAt time.Time
}

// Options configures a health Monitor.
type Options struct {
	Interval time.Duration
	Probes   []Probe
	Weights  map[models.CheckType]float64
}

// NewMonitor creates a Monitor for the project at basePath. Zero-value
// options fall back to the 30s interval, the default probe battery, and the
// default weight table.
func NewMonitor(logger *zap.Logger, basePath string, opts Options) Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Probes == nil {
		opts.Probes = DefaultProbes(basePath)
	}
	if opts.Weights == nil {
		opts.Weights = defaultWeights
	}
	return &monitor{
		logger:    logger,
		probes:    opts.Probes,
		weights:   opts.Weights,
		interval:  opts.Interval,
		startedAt: time.Now().UTC(),
	}
}

// AddListener registers a listener for health events.
func (m *monitor) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Start launches the periodic probe loop. Starting twice is a logged no-op;
// a second timer is never created.
func (m *monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		m.logger.Warn("health monitor already started")
		return nil
	}
	m.started = true
	m.startedAt = time.Now().UTC()
	m.stopCh = make(chan struct{})

	m.wg.Add(1)
	go m.loop(m.stopCh)
	return nil
}

// Stop halts the probe loop. It is safe to call when never started or twice.
func (m *monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		m.logger.Warn("health monitor stop called while not running")
		return
	}
	m.started = false
	close(m.stopCh)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *monitor) loop(stopCh chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.RunChecks(context.Background())
		}
	}
}

// RunChecks launches all probes together and waits for every one to settle.
// A probe that returns an error or panics yields a synthetic failed result;
// the cycle itself never aborts.
func (m *monitor) RunChecks(ctx context.Context) models.SystemHealth {
	results := make([]models.HealthCheckResult, len(m.probes))
	var wg sync.WaitGroup

	for i, probe := range m.probes {
		wg.Add(1)
		go func(i int, probe Probe) {
			defer wg.Done()
			results[i] = m.runProbe(ctx, probe)
		}(i, probe)
	}
	wg.Wait()

	now := time.Now().UTC()
	health := models.SystemHealth{
		OverallScore:    weightedScore(results, m.weights),
		Checks:          results,
		Uptime:          now.Sub(m.startedAt),
		Recommendations: recommend(results),
		Timestamp:       now,
	}
	health.Status = classify(health.OverallScore)

	m.mu.Lock()
	var prev *models.SystemHealth
	if m.current != nil {
		prevCopy := *m.current
		prev = &prevCopy
	}
	m.current = &health
	m.history = append(m.history, health)
	if len(m.history) > historyCap {
		m.history = m.history[len(m.history)-historyCap:]
	}
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l.OnHealthUpdate(health)
	}
	if prev != nil && prev.Status != health.Status {
		change := models.StatusChange{
			From:      prev.Status,
			To:        health.Status,
			Score:     health.OverallScore,
			Timestamp: now,
		}
		for _, l := range listeners {
			l.OnStatusChange(change)
		}
	}

	return health
}

// runProbe executes a single probe with panic isolation and latency capture.
func (m *monitor) runProbe(ctx context.Context, probe Probe) (res models.HealthCheckResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("health probe panicked",
				zap.String("check", string(probe.Type())),
				zap.Any("panic", r))
			res = failedResult(probe.Type(), fmt.Sprintf("probe panicked: %v", r))
		}
		res.Latency = time.Since(start)
		res.Timestamp = time.Now().UTC()
	}()

	r, err := probe.Run(ctx)
	if err != nil {
		m.logger.Warn("health probe failed",
			zap.String("check", string(probe.Type())),
			zap.Error(err))
		return failedResult(probe.Type(), err.Error())
	}
	return r
}

func failedResult(t models.CheckType, msg string) models.HealthCheckResult {
	return models.HealthCheckResult{
		CheckType: t,
		Status:    models.StatusFailed,
		Score:     0,
		Message:   msg,
	}
}

// weightedScore computes round(sum(score*weight)/sum(weight)) over all
// results. Probes with zero weight do not affect the score. No results
// yields 0.
func weightedScore(results []models.HealthCheckResult, weights map[models.CheckType]float64) int {
	var sum, weightSum float64
	for _, r := range results {
		w := weights[r.CheckType]
		sum += float64(r.Score) * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return int(math.Round(sum / weightSum))
}

// recommend collects the fixed remediation strings for probes at critical or
// failed status.
func recommend(results []models.HealthCheckResult) []string {
	var recs []string
	for _, r := range results {
		if r.Status == models.StatusCritical || r.Status == models.StatusFailed {
			if rec, ok := recommendations[r.CheckType]; ok {
				recs = append(recs, rec)
			}
		}
	}
	return recs
}

// Current returns the last fully built snapshot, or nil before the first
// cycle. Snapshots are replaced wholesale, never mutated in place.
func (m *monitor) Current() *models.SystemHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// History returns a copy of the bounded snapshot ring, oldest first.
func (m *monitor) History() []models.SystemHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SystemHealth, len(m.history))
	copy(out, m.history)
	return out
}

// Trend compares the mean score of the first half against the second half of
// the last five snapshots: a difference above +5 is improving, below -5 is
// degrading, otherwise stable. It also counts window cycles at critical or
// failed status.
func (m *monitor) Trend() models.HealthTrend {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.history)
	if n > trendWindow {
		n = trendWindow
	}
	window := m.history[len(m.history)-n:]

	trend := models.HealthTrend{Direction: models.TrendStable, SampleSize: n}
	for _, h := range window {
		if h.Status == models.StatusCritical || h.Status == models.StatusFailed {
			trend.CriticalCycles++
		}
	}
	half := n / 2
	if half == 0 {
		return trend
	}

	// With an odd window the middle sample belongs to the second half.
	firstMean := meanScore(window[:half])
	secondMean := meanScore(window[half:])
	trend.Delta = secondMean - firstMean
	switch {
	case trend.Delta > 5:
		trend.Direction = models.TrendImproving
	case trend.Delta < -5:
		trend.Direction = models.TrendDegrading
	}
	return trend
}

func meanScore(snapshots []models.SystemHealth) float64 {
	if len(snapshots) == 0 {
		return 0
	}
	sum := 0
	for _, s := range snapshots {
		sum += s.OverallScore
	}
	return float64(sum) / float64(len(snapshots))
}
