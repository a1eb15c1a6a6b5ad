package perf

import (
	"sync"
	"testing"
	"time"

	"github.com/forgelabs/forgemon/pkg/models"
	"go.uber.org/zap"
)

type recordingListener struct {
	mu      sync.Mutex
	reports []models.PerformanceReport
	alerts  []models.ThresholdAlert
}

func (r *recordingListener) OnPerformanceReport(report models.PerformanceReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *recordingListener) OnPerformanceAlert(alert models.ThresholdAlert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
}

func newTestMonitor() (Monitor, *recordingListener) {
	m := NewMonitor(zap.NewNop(), Options{ReportInterval: time.Hour})
	rec := &recordingListener{}
	m.AddListener(rec)
	return m, rec
}

func metric(t models.MetricType, name string, d time.Duration, success bool) models.PerformanceMetric {
	return models.PerformanceMetric{MetricType: t, Name: name, Duration: d, Success: success}
}

func TestStats_NearestRankPercentiles(t *testing.T) {
	m, _ := newTestMonitor()
	for i := 1; i <= 10; i++ {
		m.RecordMetric(metric(models.MetricFileOp, "op", time.Duration(i)*time.Millisecond, true))
	}

	stats := m.Stats(models.MetricFileOp)
	if stats.Count != 10 {
		t.Fatalf("expected 10 samples, got %d", stats.Count)
	}
	if stats.Min != time.Millisecond {
		t.Errorf("expected min 1ms, got %s", stats.Min)
	}
	if stats.Max != 10*time.Millisecond {
		t.Errorf("expected max 10ms, got %s", stats.Max)
	}
	// Nearest rank: p50 = sorted[ceil(10*0.5)-1] = sorted[4] = 5ms.
	if stats.P50 != 5*time.Millisecond {
		t.Errorf("expected p50 5ms, got %s", stats.P50)
	}
	// p90 = sorted[ceil(9)-1] = sorted[8] = 9ms.
	if stats.P90 != 9*time.Millisecond {
		t.Errorf("expected p90 9ms, got %s", stats.P90)
	}
	// p99 = sorted[ceil(9.9)-1] = sorted[9] = 10ms.
	if stats.P99 != 10*time.Millisecond {
		t.Errorf("expected p99 10ms, got %s", stats.P99)
	}
	if stats.SuccessRate != 100 {
		t.Errorf("expected 100%% success rate, got %.1f", stats.SuccessRate)
	}
}

func TestStats_SingleSample(t *testing.T) {
	m, _ := newTestMonitor()
	m.RecordMetric(metric(models.MetricCommand, "one", 42*time.Millisecond, true))

	stats := m.Stats(models.MetricCommand)
	for label, got := range map[string]time.Duration{
		"min": stats.Min, "max": stats.Max, "p50": stats.P50, "p90": stats.P90, "p99": stats.P99,
	} {
		if got != 42*time.Millisecond {
			t.Errorf("expected %s to be 42ms for a single sample, got %s", label, got)
		}
	}
}

func TestStats_EmptyBuffer(t *testing.T) {
	m, _ := newTestMonitor()
	stats := m.Stats(models.MetricNetwork)
	if stats.Count != 0 || stats.P99 != 0 {
		t.Errorf("expected zero stats for an empty buffer, got %+v", stats)
	}
}

func TestInstantAlert_CriticalThreshold(t *testing.T) {
	m, rec := newTestMonitor()

	critical := DefaultThresholds[models.MetricFileOp].Critical
	duration := critical + 1
	m.RecordMetric(metric(models.MetricFileOp, "slow-write", duration, true))

	if len(rec.alerts) != 1 {
		t.Fatalf("expected exactly one synchronous alert, got %d", len(rec.alerts))
	}
	alert := rec.alerts[0]
	if alert.Severity != models.AlertCritical {
		t.Errorf("expected critical severity, got %s", alert.Severity)
	}
	if alert.Actual != duration {
		t.Errorf("expected actual %s, got %s", duration, alert.Actual)
	}
	if alert.Aggregate {
		t.Error("instant alert must not be marked aggregate")
	}
}

func TestInstantAlert_WarningThreshold(t *testing.T) {
	m, rec := newTestMonitor()

	warning := DefaultThresholds[models.MetricCommand].Warning
	m.RecordMetric(metric(models.MetricCommand, "slow-cmd", warning+time.Millisecond, true))

	if len(rec.alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(rec.alerts))
	}
	if rec.alerts[0].Severity != models.AlertWarning {
		t.Errorf("expected warning severity, got %s", rec.alerts[0].Severity)
	}
}

func TestInstantAlert_UnderThresholdIsSilent(t *testing.T) {
	m, rec := newTestMonitor()
	m.RecordMetric(metric(models.MetricCommand, "fast", time.Millisecond, true))
	if len(rec.alerts) != 0 {
		t.Errorf("expected no alerts for a fast operation, got %d", len(rec.alerts))
	}
}

func TestOperationPairing(t *testing.T) {
	m, _ := newTestMonitor()

	m.StartOperation("op-1", models.MetricAgent)
	m.EndOperation("op-1", false, "agent timed out")

	stats := m.Stats(models.MetricAgent)
	if stats.Count != 1 {
		t.Fatalf("expected one recorded metric, got %d", stats.Count)
	}
	if stats.SuccessRate != 0 {
		t.Errorf("expected 0%% success rate, got %.1f", stats.SuccessRate)
	}
}

func TestEndOperation_UnknownIDIsNoOp(t *testing.T) {
	m, _ := newTestMonitor()
	m.EndOperation("never-started", true, "")

	report := m.Report()
	if report.TotalOperations != 0 {
		t.Errorf("expected no metrics after unknown end, got %d", report.TotalOperations)
	}
}

func TestBuffer_FIFOEviction(t *testing.T) {
	m, _ := newTestMonitor()
	for i := 0; i < bufferCap+50; i++ {
		m.RecordMetric(metric(models.MetricRender, "frame", time.Microsecond, true))
	}
	stats := m.Stats(models.MetricRender)
	if stats.Count != bufferCap {
		t.Errorf("expected buffer capped at %d, got %d", bufferCap, stats.Count)
	}
}

func TestReport_GlobalTotalsAndErrorRate(t *testing.T) {
	m, _ := newTestMonitor()
	for i := 0; i < 8; i++ {
		m.RecordMetric(metric(models.MetricCommand, "ok", 10*time.Millisecond, true))
	}
	m.RecordMetric(metric(models.MetricFileOp, "bad", 10*time.Millisecond, false))
	m.RecordMetric(metric(models.MetricFileOp, "bad", 10*time.Millisecond, false))

	report := m.Report()
	if report.TotalOperations != 10 {
		t.Errorf("expected 10 total operations, got %d", report.TotalOperations)
	}
	if report.ErrorRate != 20 {
		t.Errorf("expected 20%% error rate, got %.1f", report.ErrorRate)
	}
	if report.AverageLatency != 10*time.Millisecond {
		t.Errorf("expected 10ms average latency, got %s", report.AverageLatency)
	}

	// Error rate above 10% must raise the global critical aggregate alert.
	found := false
	for _, a := range report.Alerts {
		if a.Name == "error_rate" && a.Severity == models.AlertCritical && a.Aggregate {
			found = true
		}
	}
	if !found {
		t.Errorf("expected global error-rate alert in %+v", report.Alerts)
	}
}

func TestReport_AggregateP90Alert(t *testing.T) {
	m, _ := newTestMonitor()
	critical := DefaultThresholds[models.MetricStateOp].Critical
	for i := 0; i < 10; i++ {
		m.RecordMetric(metric(models.MetricStateOp, "save", critical*2, true))
	}

	report := m.Report()
	found := false
	for _, a := range report.Alerts {
		if a.MetricType == models.MetricStateOp && a.Aggregate && a.Severity == models.AlertCritical {
			found = true
			if a.Actual != critical*2 {
				t.Errorf("expected aggregate actual %s, got %s", critical*2, a.Actual)
			}
		}
	}
	if !found {
		t.Errorf("expected aggregate p90 alert, got %+v", report.Alerts)
	}
}

func TestReset(t *testing.T) {
	m, _ := newTestMonitor()
	m.RecordMetric(metric(models.MetricCommand, "x", time.Millisecond, true))
	m.StartOperation("pending", models.MetricCommand)
	m.Reset()

	if got := m.Report().TotalOperations; got != 0 {
		t.Errorf("expected empty buffers after reset, got %d operations", got)
	}
	// A pending operation cleared by Reset ends as a no-op.
	m.EndOperation("pending", true, "")
	if got := m.Report().TotalOperations; got != 0 {
		t.Errorf("expected cleared pending map, got %d operations", got)
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	m, _ := newTestMonitor()
	if err := m.Start(time.Hour); err != nil {
		t.Fatalf("starting monitor: %v", err)
	}
	if err := m.Start(time.Hour); err != nil {
		t.Fatalf("second start should be a no-op, got %v", err)
	}
	m.Stop()
	m.Stop()

	fresh, _ := newTestMonitor()
	fresh.Stop() // stop before start must be safe
}

func TestPeriodicReportLoop_EmitsReports(t *testing.T) {
	m := NewMonitor(zap.NewNop(), Options{ReportInterval: time.Hour})
	rec := &recordingListener{}
	m.AddListener(rec)

	m.RecordMetric(metric(models.MetricCommand, "x", time.Millisecond, true))
	if err := m.Start(10 * time.Millisecond); err != nil {
		t.Fatalf("starting monitor: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	m.Stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.reports) == 0 {
		t.Error("expected at least one periodic report")
	}
}
