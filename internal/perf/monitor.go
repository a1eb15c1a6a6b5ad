package perf

import (
	"fmt"
	"sync"
	"time"

	"github.com/forgelabs/forgemon/pkg/models"
	"go.uber.org/zap"
)

// bufferCap bounds each per-type metric buffer; the oldest sample is evicted
// first.
const bufferCap = 1000

// errorRateCriticalPct is the global error-rate threshold for the aggregate
// check.
const errorRateCriticalPct = 10.0

// DefaultThresholds is the per-type {warning, critical} duration table used
// by both alerting paths.
var DefaultThresholds = map[models.MetricType]models.PerformanceThreshold{
	models.MetricCommand: {Warning: 2 * time.Second, Critical: 5 * time.Second},
	models.MetricAgent:   {Warning: 10 * time.Second, Critical: 30 * time.Second},
	models.MetricFileOp:  {Warning: 200 * time.Millisecond, Critical: time.Second},
	models.MetricStateOp: {Warning: 500 * time.Millisecond, Critical: 2 * time.Second},
	models.MetricNetwork: {Warning: 3 * time.Second, Critical: 10 * time.Second},
	models.MetricRender:  {Warning: 100 * time.Millisecond, Critical: 500 * time.Millisecond},
}

// Listener receives performance events.
type Listener interface {
	OnPerformanceReport(report models.PerformanceReport)
	OnPerformanceAlert(alert models.ThresholdAlert)
}

// Monitor ingests timing samples and produces percentile statistics.
type Monitor interface {
	// Start launches the periodic report loop. A non-positive interval uses
	// the configured default.
	Start(interval time.Duration) error
	Stop()
	StartOperation(id string, metricType models.MetricType)
	EndOperation(id string, success bool, errMsg string)
	RecordMetric(metric models.PerformanceMetric)
	Stats(metricType models.MetricType) models.PerformanceStats
	Report() models.PerformanceReport
	Reset()
	AddListener(l Listener)
}

type pendingOp struct {
	metricType models.MetricType
	startedAt  time.Time
}

type monitor struct {
	logger     *zap.Logger
	interval   time.Duration
	thresholds map[models.MetricType]models.PerformanceThreshold

	mu        sync.Mutex
	listeners []Listener
	buffers   map[models.MetricType][]models.PerformanceMetric
	pending   map[string]pendingOp
	started   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// Options configures a performance Monitor.
type Options struct {
	ReportInterval time.Duration
	Thresholds     map[models.MetricType]models.PerformanceThreshold
}

// NewMonitor creates a performance Monitor. Zero-value options fall back to
// the 60s report cadence and the default threshold table.
func NewMonitor(logger *zap.Logger, opts Options) Monitor {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 60 * time.Second
	}
	if opts.Thresholds == nil {
		opts.Thresholds = DefaultThresholds
	}
	return &monitor{
		logger:     logger,
		interval:   opts.ReportInterval,
		thresholds: opts.Thresholds,
		buffers:    make(map[models.MetricType][]models.PerformanceMetric),
		pending:    make(map[string]pendingOp),
	}
}

func (m *monitor) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Start launches the report loop. Starting twice never creates a second
// timer.
func (m *monitor) Start(interval time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		m.logger.Warn("performance monitor already started")
		return nil
	}
	if interval <= 0 {
		interval = m.interval
	}
	m.started = true
	m.stopCh = make(chan struct{})

	m.wg.Add(1)
	go m.loop(m.stopCh, interval)
	return nil
}

// Stop halts the report loop; safe when never started or called twice.
func (m *monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		m.logger.Warn("performance monitor stop called while not running")
		return
	}
	m.started = false
	close(m.stopCh)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *monitor) loop(stopCh chan struct{}, interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			report := m.Report()
			m.mu.Lock()
			listeners := make([]Listener, len(m.listeners))
			copy(listeners, m.listeners)
			m.mu.Unlock()
			for _, l := range listeners {
				l.OnPerformanceReport(report)
				for _, alert := range report.Alerts {
					l.OnPerformanceAlert(alert)
				}
			}
		}
	}
}

// StartOperation records the start of a paired timed operation.
func (m *monitor) StartOperation(id string, metricType models.MetricType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[id] = pendingOp{metricType: metricType, startedAt: time.Now()}
}

// EndOperation completes a paired operation and records the resulting metric.
// Ending an unknown id is a logged no-op, never an error.
func (m *monitor) EndOperation(id string, success bool, errMsg string) {
	m.mu.Lock()
	op, ok := m.pending[id]
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("ending unknown operation", zap.String("operation_id", id))
		return
	}
	delete(m.pending, id)
	m.mu.Unlock()

	metric := models.PerformanceMetric{
		MetricType: op.metricType,
		Name:       id,
		Duration:   time.Since(op.startedAt),
		Success:    success,
		Timestamp:  time.Now().UTC(),
	}
	if errMsg != "" {
		metric.Metadata = map[string]string{"error": errMsg}
	}
	m.RecordMetric(metric)
}

// RecordMetric appends a sample to its type's bounded buffer and runs the
// instant threshold check.
func (m *monitor) RecordMetric(metric models.PerformanceMetric) {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	buf := append(m.buffers[metric.MetricType], metric)
	if len(buf) > bufferCap {
		buf = buf[len(buf)-bufferCap:]
	}
	m.buffers[metric.MetricType] = buf
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	if alert, ok := m.instantAlert(metric); ok {
		for _, l := range listeners {
			l.OnPerformanceAlert(alert)
		}
	}
}

// instantAlert checks one metric against its type's thresholds.
func (m *monitor) instantAlert(metric models.PerformanceMetric) (models.ThresholdAlert, bool) {
	threshold, ok := m.thresholds[metric.MetricType]
	if !ok {
		return models.ThresholdAlert{}, false
	}

	alert := models.ThresholdAlert{
		MetricType: metric.MetricType,
		Name:       metric.Name,
		Actual:     metric.Duration,
		Timestamp:  time.Now().UTC(),
	}
	switch {
	case metric.Duration > threshold.Critical:
		alert.Severity = models.AlertCritical
		alert.Threshold = threshold.Critical
	case metric.Duration > threshold.Warning:
		alert.Severity = models.AlertWarning
		alert.Threshold = threshold.Warning
	default:
		return models.ThresholdAlert{}, false
	}
	alert.Message = fmt.Sprintf("%s operation %q took %s (threshold %s)",
		metric.MetricType, metric.Name, metric.Duration, alert.Threshold)
	return alert, true
}

// Stats computes on-demand statistics for one metric type using nearest-rank
// percentiles over a sorted copy of the buffer.
func (m *monitor) Stats(metricType models.MetricType) models.PerformanceStats {
	m.mu.Lock()
	buf := make([]models.PerformanceMetric, len(m.buffers[metricType]))
	copy(buf, m.buffers[metricType])
	m.mu.Unlock()
	return computeStats(buf)
}

// Report snapshots stats for every type plus global totals and aggregate
// alerts.
func (m *monitor) Report() models.PerformanceReport {
	m.mu.Lock()
	snapshot := make(map[models.MetricType][]models.PerformanceMetric, len(m.buffers))
	for t, buf := range m.buffers {
		cp := make([]models.PerformanceMetric, len(buf))
		copy(cp, buf)
		snapshot[t] = cp
	}
	m.mu.Unlock()

	report := models.PerformanceReport{
		Stats:     make(map[models.MetricType]models.PerformanceStats, len(snapshot)),
		Timestamp: time.Now().UTC(),
	}

	var totalDuration time.Duration
	failures := 0
	for metricType, buf := range snapshot {
		stats := computeStats(buf)
		report.Stats[metricType] = stats
		report.TotalOperations += stats.Count
		totalDuration += stats.TotalDuration
		for _, sample := range buf {
			if !sample.Success {
				failures++
			}
		}

		// Aggregate path: p90 against the same threshold table.
		if threshold, ok := m.thresholds[metricType]; ok && stats.Count > 0 {
			alert := models.ThresholdAlert{
				MetricType: metricType,
				Name:       "p90",
				Actual:     stats.P90,
				Aggregate:  true,
				Timestamp:  report.Timestamp,
			}
			switch {
			case stats.P90 > threshold.Critical:
				alert.Severity = models.AlertCritical
				alert.Threshold = threshold.Critical
			case stats.P90 > threshold.Warning:
				alert.Severity = models.AlertWarning
				alert.Threshold = threshold.Warning
			default:
				continue
			}
			alert.Message = fmt.Sprintf("%s p90 latency %s exceeds %s threshold %s",
				metricType, stats.P90, alert.Severity, alert.Threshold)
			report.Alerts = append(report.Alerts, alert)
		}
	}

	if report.TotalOperations > 0 {
		report.AverageLatency = totalDuration / time.Duration(report.TotalOperations)
		report.ErrorRate = float64(failures) / float64(report.TotalOperations) * 100
	}

	// Global check: overall error rate above the limit is critical no matter
	// which type produced the failures.
	if report.ErrorRate > errorRateCriticalPct {
		report.Alerts = append(report.Alerts, models.ThresholdAlert{
			Name:      "error_rate",
			Severity:  models.AlertCritical,
			Aggregate: true,
			Message:   fmt.Sprintf("overall error rate %.1f%% exceeds %.0f%%", report.ErrorRate, errorRateCriticalPct),
			Timestamp: report.Timestamp,
		})
	}

	return report
}

// Reset clears all buffers and pending operations.
func (m *monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffers = make(map[models.MetricType][]models.PerformanceMetric)
	m.pending = make(map[string]pendingOp)
}
