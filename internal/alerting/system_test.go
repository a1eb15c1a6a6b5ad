package alerting

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/forgelabs/forgemon/pkg/models"
)

type recordingListener struct {
	mu            sync.Mutex
	alerts        []models.Alert
	notifications []models.Notification
	rollbacks     []models.RemediationIntent
	restarts      []models.RemediationIntent
}

func (r *recordingListener) OnAlert(a models.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

func (r *recordingListener) OnNotification(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *recordingListener) OnRollback(i models.RemediationIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollbacks = append(r.rollbacks, i)
}

func (r *recordingListener) OnRestart(i models.RemediationIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restarts = append(r.restarts, i)
}

func newTestSystem(opts Options) (System, *recordingListener) {
	if opts.CheckInterval == 0 {
		opts.CheckInterval = time.Hour
	}
	s := NewSystem(zap.NewNop(), opts)
	rec := &recordingListener{}
	s.AddListener(rec)
	return s, rec
}

func TestCreateAlert_AssignsIDAndNotifiesListeners(t *testing.T) {
	s, rec := newTestSystem(Options{})

	alert := s.CreateAlert(models.AlertHealthDegradation, models.AlertWarning,
		"Health degraded", "overall score dropped to 62", map[string]string{"score": "62"})

	if alert.ID == "" {
		t.Fatal("expected a generated alert id")
	}
	if alert.Count != 1 {
		t.Errorf("expected count 1 for a fresh alert, got %d", alert.Count)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.alerts) != 1 || rec.alerts[0].ID != alert.ID {
		t.Errorf("expected one alert event with id %s, got %+v", alert.ID, rec.alerts)
	}
}

func TestCreateAlert_DeduplicatesByTypeAndTitle(t *testing.T) {
	s, _ := newTestSystem(Options{})

	first := s.CreateAlert(models.AlertHighErrorRate, models.AlertWarning,
		"High error rate", "12 per minute", nil)
	second := s.CreateAlert(models.AlertHighErrorRate, models.AlertCritical,
		"High error rate", "30 per minute", nil)

	if second.ID != first.ID {
		t.Fatal("expected the repeat to merge into the existing alert")
	}
	if second.Count != 2 {
		t.Errorf("expected count 2 after repeat, got %d", second.Count)
	}
	if second.Severity != models.AlertCritical {
		t.Errorf("expected severity escalated to critical, got %s", second.Severity)
	}
	if second.Message != "30 per minute" {
		t.Errorf("expected latest message retained, got %q", second.Message)
	}
	if len(s.ActiveAlerts()) != 1 {
		t.Errorf("expected one active alert, got %d", len(s.ActiveAlerts()))
	}
}

func TestCreateAlert_DifferentTitlesStaySeparate(t *testing.T) {
	s, _ := newTestSystem(Options{})
	s.CreateAlert(models.AlertPerformanceDegradation, models.AlertWarning, "command p90 high", "", nil)
	s.CreateAlert(models.AlertPerformanceDegradation, models.AlertWarning, "file_op p90 high", "", nil)
	if len(s.ActiveAlerts()) != 2 {
		t.Errorf("expected two distinct alerts, got %d", len(s.ActiveAlerts()))
	}
}

func TestAcknowledge(t *testing.T) {
	s, _ := newTestSystem(Options{})
	alert := s.CreateAlert(models.AlertLowRecoveryRate, models.AlertWarning, "Low recovery", "", nil)

	if !s.Acknowledge(alert.ID) {
		t.Fatal("expected acknowledge to succeed")
	}
	if s.Acknowledge(alert.ID) {
		t.Error("second acknowledge should be a no-op")
	}
	if len(s.ActiveAlerts()) != 0 {
		t.Errorf("expected no active alerts after acknowledge, got %d", len(s.ActiveAlerts()))
	}
	// A new occurrence after acknowledgment opens a fresh alert.
	reopened := s.CreateAlert(models.AlertLowRecoveryRate, models.AlertWarning, "Low recovery", "", nil)
	if reopened.ID == alert.ID || reopened.Count != 1 {
		t.Errorf("expected a fresh alert after acknowledge, got %+v", reopened)
	}
}

func TestAcknowledge_UnknownID(t *testing.T) {
	s, _ := newTestSystem(Options{})
	if s.Acknowledge("nope") {
		t.Error("unknown id must not acknowledge")
	}
}

func TestRemediation_RollbackForDeploymentFailure(t *testing.T) {
	s, rec := newTestSystem(Options{})
	alert := s.CreateAlert(models.AlertDeploymentFailure, models.AlertCritical,
		"Deploy failed", "exit status 1", nil)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.rollbacks) != 1 {
		t.Fatalf("expected one rollback intent, got %d", len(rec.rollbacks))
	}
	if rec.rollbacks[0].AlertID != alert.ID {
		t.Errorf("intent references wrong alert: %+v", rec.rollbacks[0])
	}
	if len(rec.restarts) != 0 {
		t.Errorf("deployment failure must not raise restart intents")
	}
}

func TestRemediation_RestartForResourceExhaustion(t *testing.T) {
	s, rec := newTestSystem(Options{})
	s.CreateAlert(models.AlertResourceExhaustion, models.AlertCritical,
		"Memory exhausted", "94% used", nil)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.restarts) != 1 {
		t.Fatalf("expected one restart intent, got %d", len(rec.restarts))
	}
}

func TestRemediation_NonCriticalRaisesNoIntent(t *testing.T) {
	s, rec := newTestSystem(Options{})
	s.CreateAlert(models.AlertDeploymentFailure, models.AlertWarning, "Deploy slow", "", nil)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.rollbacks) != 0 || len(rec.restarts) != 0 {
		t.Error("non-critical alerts must not raise remediation intents")
	}
}

func TestSweep_ExpiresStaleAlertsAndNotifies(t *testing.T) {
	s, rec := newTestSystem(Options{
		CheckInterval: 10 * time.Millisecond,
		Expiry:        25 * time.Millisecond,
	})
	s.CreateAlert(models.AlertHealthDegradation, models.AlertWarning, "Degraded", "", nil)

	if err := s.Start(); err != nil {
		t.Fatalf("starting system: %v", err)
	}
	time.Sleep(15 * time.Millisecond)

	rec.mu.Lock()
	notified := len(rec.notifications) > 0
	rec.mu.Unlock()
	if !notified {
		t.Error("expected a notification while the alert was active")
	}

	time.Sleep(50 * time.Millisecond)
	s.Stop()
	if len(s.ActiveAlerts()) != 0 {
		t.Errorf("expected alert expired, got %d active", len(s.ActiveAlerts()))
	}
}

func TestHistory_RecordsAllRaises(t *testing.T) {
	s, _ := newTestSystem(Options{})
	s.CreateAlert(models.AlertHighErrorRate, models.AlertWarning, "t", "", nil)
	s.CreateAlert(models.AlertHighErrorRate, models.AlertWarning, "t", "", nil)
	if got := len(s.History()); got != 2 {
		t.Errorf("expected 2 history entries for 2 raises, got %d", got)
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	s, _ := newTestSystem(Options{})
	if err := s.Start(); err != nil {
		t.Fatalf("starting system: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second start should be a no-op, got %v", err)
	}
	s.Stop()
	s.Stop()

	fresh, _ := newTestSystem(Options{})
	fresh.Stop() // stop before start must be safe
}
