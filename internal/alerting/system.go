package alerting

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forgelabs/forgemon/pkg/models"
)

const (
	defaultExpiry = 30 * time.Minute
	historyCap    = 100
)

// severityRank orders alert severities for escalation on dedup.
var severityRank = map[models.AlertSeverity]int{
	models.AlertInfo:     0,
	models.AlertWarning:  1,
	models.AlertCritical: 2,
}

// rollbackTypes are critical alert types that map to a rollback intent;
// restartTypes map to a restart intent.
var (
	rollbackTypes = map[string]bool{
		models.AlertDeploymentFailure: true,
	}
	restartTypes = map[string]bool{
		models.AlertResourceExhaustion: true,
		models.AlertHealthFailure:      true,
	}
)

// Listener receives alert lifecycle events. Callbacks run synchronously and
// must not block.
type Listener interface {
	OnAlert(models.Alert)
	OnNotification(models.Notification)
	OnRollback(models.RemediationIntent)
	OnRestart(models.RemediationIntent)
}

// System manages the active alert set.
type System interface {
	Start() error
	Stop()

	// CreateAlert raises an alert, deduplicating against active alerts with
	// the same type and title: a repeat bumps the count and timestamp and
	// escalates severity rather than opening a new alert. The returned value
	// is the post-merge state.
	CreateAlert(alertType string, severity models.AlertSeverity, title, message string, metadata map[string]string) models.Alert

	// Acknowledge resolves an active alert by id. Repeat calls are no-ops.
	Acknowledge(id string) bool

	ActiveAlerts() []models.Alert
	History() []models.Alert
	AddListener(listener Listener)
}

// Options configures a System.
type Options struct {
	// CheckInterval is the cadence of the expiry sweep and notification batch.
	CheckInterval time.Duration

	// Expiry is how long an unacknowledged alert stays active. Zero means
	// the 30 minute default.
	Expiry time.Duration

	// Notifier, when set, receives each notification batch.
	Notifier Notifier
}

type system struct {
	logger   *zap.Logger
	interval time.Duration
	expiry   time.Duration
	notifier Notifier

	mu        sync.Mutex
	active    map[string]*models.Alert
	history   []models.Alert
	listeners []Listener

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewSystem builds an alerting system with the given options.
func NewSystem(logger *zap.Logger, opts Options) System {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = time.Minute
	}
	if opts.Expiry <= 0 {
		opts.Expiry = defaultExpiry
	}
	return &system{
		logger:   logger,
		interval: opts.CheckInterval,
		expiry:   opts.Expiry,
		notifier: opts.Notifier,
		active:   make(map[string]*models.Alert),
	}
}

func (s *system) AddListener(listener Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *system) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.logger.Warn("alerting system already started")
		return nil
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.stopCh)
	s.logger.Info("alerting system started",
		zap.Duration("interval", s.interval), zap.Duration("expiry", s.expiry))
	return nil
}

func (s *system) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.logger.Warn("alerting system not running")
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("alerting system stopped")
}

func (s *system) loop(stopCh chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-stopCh:
			return
		}
	}
}

// sweep expires stale alerts and sends a notification batch for whatever is
// still active.
func (s *system) sweep() {
	now := time.Now()

	s.mu.Lock()
	for id, alert := range s.active {
		if now.Sub(alert.Timestamp) > s.expiry {
			s.logger.Debug("alert expired",
				zap.String("id", id), zap.String("type", alert.Type))
			delete(s.active, id)
		}
	}
	remaining := s.snapshotActiveLocked()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if len(remaining) == 0 {
		return
	}
	notification := models.Notification{Alerts: remaining, Timestamp: now}
	for _, l := range listeners {
		l.OnNotification(notification)
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(remaining); err != nil {
			s.logger.Error("delivering alert notification", zap.Error(err))
		}
	}
}

func (s *system) CreateAlert(alertType string, severity models.AlertSeverity, title, message string, metadata map[string]string) models.Alert {
	now := time.Now()

	s.mu.Lock()
	var alert *models.Alert
	for _, existing := range s.active {
		if existing.Type == alertType && existing.Title == title {
			alert = existing
			break
		}
	}
	if alert != nil {
		alert.Count++
		alert.Timestamp = now
		alert.Message = message
		if severityRank[severity] > severityRank[alert.Severity] {
			alert.Severity = severity
		}
		for k, v := range metadata {
			if alert.Metadata == nil {
				alert.Metadata = make(map[string]string)
			}
			alert.Metadata[k] = v
		}
	} else {
		alert = &models.Alert{
			ID:        uuid.NewString(),
			Type:      alertType,
			Severity:  severity,
			Title:     title,
			Message:   message,
			Metadata:  metadata,
			Count:     1,
			Timestamp: now,
		}
		s.active[alert.ID] = alert
	}

	s.history = append(s.history, *alert)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}

	created := *alert
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	s.logger.Info("alert raised",
		zap.String("id", created.ID),
		zap.String("type", created.Type),
		zap.String("severity", string(created.Severity)),
		zap.Int("count", created.Count))

	for _, l := range listeners {
		l.OnAlert(created)
	}
	s.remediate(created, listeners)
	return created
}

// remediate raises rollback or restart intents for critical alerts whose
// type has an automatable response.
func (s *system) remediate(alert models.Alert, listeners []Listener) {
	if alert.Severity != models.AlertCritical {
		return
	}
	intent := models.RemediationIntent{
		AlertID:   alert.ID,
		AlertType: alert.Type,
		Reason:    alert.Message,
		Timestamp: alert.Timestamp,
	}
	switch {
	case rollbackTypes[alert.Type]:
		s.logger.Warn("rollback intent raised", zap.String("alert_id", alert.ID))
		for _, l := range listeners {
			l.OnRollback(intent)
		}
	case restartTypes[alert.Type]:
		s.logger.Warn("restart intent raised", zap.String("alert_id", alert.ID))
		for _, l := range listeners {
			l.OnRestart(intent)
		}
	}
}

func (s *system) Acknowledge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.active[id]
	if !ok {
		return false
	}
	alert.Acknowledged = true
	delete(s.active, id)
	s.logger.Info("alert acknowledged",
		zap.String("id", id), zap.String("type", alert.Type))
	return true
}

func (s *system) ActiveAlerts() []models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotActiveLocked()
}

func (s *system) snapshotActiveLocked() []models.Alert {
	out := make([]models.Alert, 0, len(s.active))
	for _, alert := range s.active {
		out = append(out, *alert)
	}
	return out
}

func (s *system) History() []models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Alert, len(s.history))
	copy(out, s.history)
	return out
}
