package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/forgelabs/forgemon/pkg/models"
	"go.uber.org/zap"
)

// stubProbe returns a fixed score, or fails in a configurable way.
type stubProbe struct {
	checkType models.CheckType
	score     int
	err       error
	panicMsg  string
}

func (p *stubProbe) Type() models.CheckType { return p.checkType }

func (p *stubProbe) Run(_ context.Context) (models.HealthCheckResult, error) {
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.err != nil {
		return models.HealthCheckResult{}, p.err
	}
	return result(p.checkType, p.score, "stub", nil), nil
}

// recordingListener captures emitted events for assertions.
type recordingListener struct {
	mu      sync.Mutex
	updates []models.SystemHealth
	changes []models.StatusChange
}

func (r *recordingListener) OnHealthUpdate(h models.SystemHealth) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, h)
}

func (r *recordingListener) OnStatusChange(c models.StatusChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func allCheckTypes() []models.CheckType {
	return []models.CheckType{
		models.CheckFilesystem,
		models.CheckDirectories,
		models.CheckCoreModules,
		models.CheckStateFreshness,
		models.CheckAgentDefinitions,
		models.CheckMemory,
		models.CheckCommandInventory,
		models.CheckAutomationConfig,
	}
}

func uniformProbes(score int) []Probe {
	var probes []Probe
	for _, ct := range allCheckTypes() {
		probes = append(probes, &stubProbe{checkType: ct, score: score})
	}
	return probes
}

func newTestMonitor(t *testing.T, probes []Probe) Monitor {
	t.Helper()
	return NewMonitor(zap.NewNop(), t.TempDir(), Options{
		Interval: time.Hour, // effectively disable the timer during tests
		Probes:   probes,
	})
}

func TestRunChecks_AllHealthy(t *testing.T) {
	m := newTestMonitor(t, uniformProbes(100))
	h := m.RunChecks(context.Background())

	if h.OverallScore != 100 {
		t.Errorf("expected overall score 100, got %d", h.OverallScore)
	}
	if h.Status != models.StatusHealthy {
		t.Errorf("expected healthy status, got %s", h.Status)
	}
	if len(h.Checks) != 8 {
		t.Errorf("expected 8 check results, got %d", len(h.Checks))
	}
	if len(h.Recommendations) != 0 {
		t.Errorf("expected no recommendations, got %v", h.Recommendations)
	}
}

func TestRunChecks_AllFail(t *testing.T) {
	var probes []Probe
	for _, ct := range allCheckTypes() {
		probes = append(probes, &stubProbe{checkType: ct, score: 0})
	}
	m := newTestMonitor(t, probes)
	h := m.RunChecks(context.Background())

	if h.OverallScore != 0 {
		t.Errorf("expected overall score 0 when every probe fails, got %d", h.OverallScore)
	}
	if h.Status != models.StatusFailed {
		t.Errorf("expected failed status, got %s", h.Status)
	}
	if len(h.Recommendations) != 8 {
		t.Errorf("expected a recommendation per failed probe, got %d", len(h.Recommendations))
	}
}

func TestRunChecks_OneProbePanics(t *testing.T) {
	probes := uniformProbes(100)
	probes[2] = &stubProbe{checkType: models.CheckCoreModules, panicMsg: "boom"}

	m := newTestMonitor(t, probes)
	h := m.RunChecks(context.Background())

	if len(h.Checks) != 8 {
		t.Fatalf("expected 8 check results despite panic, got %d", len(h.Checks))
	}

	var panicked *models.HealthCheckResult
	for i := range h.Checks {
		if h.Checks[i].CheckType == models.CheckCoreModules {
			panicked = &h.Checks[i]
		}
	}
	if panicked == nil {
		t.Fatal("expected a result for the panicking probe")
	}
	if panicked.Status != models.StatusFailed || panicked.Score != 0 {
		t.Errorf("expected failed/0 for panicking probe, got %s/%d", panicked.Status, panicked.Score)
	}

	// Weighted average including the zero: core_modules has weight 0.15, so
	// the score is round(0.85*100) = 85.
	if h.OverallScore != 85 {
		t.Errorf("expected overall score 85, got %d", h.OverallScore)
	}
}

func TestRunChecks_ProbeErrorIsIsolated(t *testing.T) {
	probes := uniformProbes(100)
	probes[0] = &stubProbe{checkType: models.CheckFilesystem, err: context.DeadlineExceeded}

	m := newTestMonitor(t, probes)
	h := m.RunChecks(context.Background())

	if len(h.Checks) != 8 {
		t.Fatalf("expected 8 results, got %d", len(h.Checks))
	}
	for _, c := range h.Checks {
		if c.CheckType == models.CheckFilesystem {
			if c.Status != models.StatusFailed {
				t.Errorf("expected failed status for erroring probe, got %s", c.Status)
			}
		}
	}
}

func TestRunChecks_ZeroWeightProbeDoesNotAffectScore(t *testing.T) {
	weights := map[models.CheckType]float64{
		models.CheckFilesystem:  0.5,
		models.CheckDirectories: 0.5,
		models.CheckMemory:      0,
	}
	probes := []Probe{
		&stubProbe{checkType: models.CheckFilesystem, score: 80},
		&stubProbe{checkType: models.CheckDirectories, score: 80},
		&stubProbe{checkType: models.CheckMemory, score: 0},
	}
	m := NewMonitor(zap.NewNop(), t.TempDir(), Options{
		Interval: time.Hour,
		Probes:   probes,
		Weights:  weights,
	})

	h := m.RunChecks(context.Background())
	if h.OverallScore != 80 {
		t.Errorf("expected zero-weight probe to be ignored (score 80), got %d", h.OverallScore)
	}
}

func TestStatusChange_EmittedOnlyOnTransition(t *testing.T) {
	probe := &stubProbe{checkType: models.CheckFilesystem, score: 100}
	m := NewMonitor(zap.NewNop(), t.TempDir(), Options{
		Interval: time.Hour,
		Probes:   []Probe{probe},
		Weights:  map[models.CheckType]float64{models.CheckFilesystem: 1},
	})
	rec := &recordingListener{}
	m.AddListener(rec)

	m.RunChecks(context.Background())
	m.RunChecks(context.Background())
	if len(rec.changes) != 0 {
		t.Fatalf("expected no status change for identical cycles, got %d", len(rec.changes))
	}

	probe.score = 40
	m.RunChecks(context.Background())
	if len(rec.changes) != 1 {
		t.Fatalf("expected one status change, got %d", len(rec.changes))
	}
	if rec.changes[0].From != models.StatusHealthy || rec.changes[0].To != models.StatusFailed {
		t.Errorf("unexpected transition %s -> %s", rec.changes[0].From, rec.changes[0].To)
	}
	if len(rec.updates) != 3 {
		t.Errorf("expected a health update per cycle, got %d", len(rec.updates))
	}
}

func TestTrend_Directions(t *testing.T) {
	probe := &stubProbe{checkType: models.CheckFilesystem, score: 50}
	m := NewMonitor(zap.NewNop(), t.TempDir(), Options{
		Interval: time.Hour,
		Probes:   []Probe{probe},
		Weights:  map[models.CheckType]float64{models.CheckFilesystem: 1},
	})

	// Two low cycles, then three high ones: improving.
	for _, score := range []int{50, 50, 90, 95, 100} {
		probe.score = score
		m.RunChecks(context.Background())
	}
	trend := m.Trend()
	if trend.Direction != models.TrendImproving {
		t.Errorf("expected improving trend, got %s (delta %.1f)", trend.Direction, trend.Delta)
	}
	if trend.CriticalCycles != 2 {
		t.Errorf("expected 2 critical cycles in window, got %d", trend.CriticalCycles)
	}

	// Degrading sequence.
	for _, score := range []int{100, 100, 60, 55, 50} {
		probe.score = score
		m.RunChecks(context.Background())
	}
	trend = m.Trend()
	if trend.Direction != models.TrendDegrading {
		t.Errorf("expected degrading trend, got %s (delta %.1f)", trend.Direction, trend.Delta)
	}

	// Flat sequence stays stable.
	for i := 0; i < 5; i++ {
		probe.score = 75
		m.RunChecks(context.Background())
	}
	trend = m.Trend()
	if trend.Direction != models.TrendStable {
		t.Errorf("expected stable trend, got %s (delta %.1f)", trend.Direction, trend.Delta)
	}
}

func TestTrend_MiddleSampleJoinsSecondHalf(t *testing.T) {
	probe := &stubProbe{checkType: models.CheckFilesystem, score: 0}
	m := NewMonitor(zap.NewNop(), t.TempDir(), Options{
		Interval: time.Hour,
		Probes:   []Probe{probe},
		Weights:  map[models.CheckType]float64{models.CheckFilesystem: 1},
	})

	// A single spike in the middle cycle lands in the second half, so
	// the split is 2 vs 3 samples and the means are 0 vs 33.3.
	for _, score := range []int{0, 0, 100, 0, 0} {
		probe.score = score
		m.RunChecks(context.Background())
	}
	trend := m.Trend()
	if trend.Direction != models.TrendImproving {
		t.Errorf("expected improving trend, got %s (delta %.1f)", trend.Direction, trend.Delta)
	}
	if trend.Delta < 33 || trend.Delta > 34 {
		t.Errorf("expected delta near +33.3, got %.1f", trend.Delta)
	}
}

func TestHistory_Bounded(t *testing.T) {
	probe := &stubProbe{checkType: models.CheckFilesystem, score: 100}
	m := NewMonitor(zap.NewNop(), t.TempDir(), Options{
		Interval: time.Hour,
		Probes:   []Probe{probe},
		Weights:  map[models.CheckType]float64{models.CheckFilesystem: 1},
	})

	for i := 0; i < historyCap+20; i++ {
		m.RunChecks(context.Background())
	}
	if got := len(m.History()); got != historyCap {
		t.Errorf("expected history capped at %d, got %d", historyCap, got)
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	m := newTestMonitor(t, uniformProbes(100))

	if err := m.Start(); err != nil {
		t.Fatalf("starting monitor: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("second start should be a no-op, got %v", err)
	}

	m.Stop()
	m.Stop() // double stop must not panic

	// Stop before start on a fresh monitor must also be safe.
	fresh := newTestMonitor(t, uniformProbes(100))
	fresh.Stop()
}

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  models.HealthStatus
	}{
		{100, models.StatusHealthy},
		{85, models.StatusHealthy},
		{84, models.StatusDegraded},
		{70, models.StatusDegraded},
		{69, models.StatusCritical},
		{50, models.StatusCritical},
		{49, models.StatusFailed},
		{0, models.StatusFailed},
	}
	for _, tt := range tests {
		if got := classify(tt.score); got != tt.want {
			t.Errorf("classify(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestDefaultWeights_SumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range defaultWeights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("expected weights to sum to 1.0, got %f", sum)
	}
	if len(defaultWeights) != 8 {
		t.Errorf("expected 8 weighted probe types, got %d", len(defaultWeights))
	}
}
