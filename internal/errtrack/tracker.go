package errtrack

import (
	"crypto/sha256"
	"encoding/hex"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/forgelabs/forgemon/pkg/models"
)

const (
	// historyCap bounds the per-occurrence audit trail.
	historyCap = 1000

	// idMessagePrefix is how much of the message participates in identity.
	idMessagePrefix = 100

	// idLen is the length of the hex identity prefix.
	idLen = 16

	topErrorsLimit = 10

	errorRatePerMinuteLimit = 10.0
	criticalUnresolvedLimit = 3
	recoveryRateFloor       = 50.0
	categoryUnresolvedLimit = 5
)

// Listener receives error lifecycle events. Callbacks run synchronously on
// the tracker's goroutines and must not block.
type Listener interface {
	OnErrorTracked(models.TrackedError)
	OnErrorRecovered(models.TrackedError)
	OnRecoveryAction(models.RecoveryAction)
	OnErrorReport(models.ErrorReport)
}

// Tracker deduplicates recurring errors, keeps per-category recovery
// strategies, and periodically emits aggregate reports.
type Tracker interface {
	Start() error
	Stop()

	// Track records an occurrence. An empty category is classified from the
	// message; an empty severity defaults to medium. The returned value is
	// the post-merge state of the deduplicated entry.
	Track(message string, category models.ErrorCategory, severity models.ErrorSeverity, context map[string]string) models.TrackedError

	// TrackError is the convenience form for Go errors: category comes from
	// the keyword classifier, severity defaults to medium.
	TrackError(err error, context map[string]string) models.TrackedError

	// AttemptRecovery dispatches the category's recovery action for the
	// given error after linear backoff. It returns false when the error is
	// unknown, already recovered, or out of attempts.
	AttemptRecovery(id string) bool

	// MarkRecovered resolves an error. Repeat calls are no-ops.
	MarkRecovered(id string) bool

	Get(id string) (models.TrackedError, bool)
	Errors() []models.TrackedError
	History() []models.TrackedError

	Strategy(category models.ErrorCategory) models.RecoveryStrategy
	SetStrategy(strategy models.RecoveryStrategy)
	SetCaptureStacks(enabled bool)

	Report() models.ErrorReport
	Clear()
	AddListener(listener Listener)
}

// Options configures a Tracker.
type Options struct {
	// ReportInterval is the cadence of the periodic report loop.
	ReportInterval time.Duration

	// Store, when set, persists the tracked set on each report cycle and on
	// Stop, and is loaded at construction.
	Store *Store

	// Strategies overrides entries of the default recovery policy table.
	Strategies map[models.ErrorCategory]models.RecoveryStrategy
}

type tracker struct {
	logger   *zap.Logger
	interval time.Duration
	store    *Store

	mu            sync.Mutex
	errors        map[string]*models.TrackedError
	history       []models.TrackedError
	strategies    map[models.ErrorCategory]models.RecoveryStrategy
	listeners     []Listener
	captureStacks bool
	trackingSince time.Time

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewTracker builds a tracker and loads any persisted error set from the
// configured store. A corrupt or unreadable snapshot is logged and discarded.
func NewTracker(logger *zap.Logger, opts Options) Tracker {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = time.Minute
	}

	strategies := DefaultStrategies()
	for category, strat := range opts.Strategies {
		strategies[category] = strat
	}

	t := &tracker{
		logger:        logger,
		interval:      opts.ReportInterval,
		store:         opts.Store,
		errors:        make(map[string]*models.TrackedError),
		strategies:    strategies,
		trackingSince: time.Now(),
	}

	if t.store != nil {
		persisted, err := t.store.Load()
		if err != nil {
			logger.Warn("discarding unreadable error snapshot",
				zap.String("path", t.store.Path()), zap.Error(err))
		}
		for i := range persisted {
			e := persisted[i]
			t.errors[e.ID] = &e
		}
	}
	return t
}

// ErrorID derives the deterministic identity of an error occurrence: the
// first 16 hex characters of sha256 over category and the first 100 bytes of
// the message.
func ErrorID(category models.ErrorCategory, message string) string {
	if len(message) > idMessagePrefix {
		message = message[:idMessagePrefix]
	}
	sum := sha256.Sum256([]byte(string(category) + ":" + message))
	return hex.EncodeToString(sum[:])[:idLen]
}

func (t *tracker) AddListener(listener Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}

func (t *tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		t.logger.Warn("error tracker already started")
		return nil
	}
	t.started = true
	t.stopCh = make(chan struct{})
	t.wg.Add(1)
	go t.loop(t.stopCh)
	t.logger.Info("error tracker started", zap.Duration("interval", t.interval))
	return nil
}

func (t *tracker) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		t.logger.Warn("error tracker not running")
		return
	}
	t.started = false
	close(t.stopCh)
	t.mu.Unlock()

	t.wg.Wait()
	t.persist()
	t.logger.Info("error tracker stopped")
}

func (t *tracker) loop(stopCh chan struct{}) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			report := t.Report()
			t.persist()
			for _, l := range t.snapshotListeners() {
				l.OnErrorReport(report)
			}
		case <-stopCh:
			return
		}
	}
}

func (t *tracker) persist() {
	if t.store == nil {
		return
	}
	if err := t.store.Save(t.Errors()); err != nil {
		t.logger.Error("persisting tracked errors", zap.Error(err))
	}
}

func (t *tracker) snapshotListeners() []Listener {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Listener, len(t.listeners))
	copy(out, t.listeners)
	return out
}

func (t *tracker) Track(message string, category models.ErrorCategory, severity models.ErrorSeverity, context map[string]string) models.TrackedError {
	if category == "" {
		category = Categorize(message)
	}
	if severity == "" {
		severity = models.SeverityMedium
	}
	id := ErrorID(category, message)
	now := time.Now()

	t.mu.Lock()
	entry, exists := t.errors[id]
	if exists {
		entry.Count++
		entry.LastOccurrence = now
		entry.Severity = models.MaxSeverity(entry.Severity, severity)
		for k, v := range context {
			if entry.Context == nil {
				entry.Context = make(map[string]string)
			}
			entry.Context[k] = v
		}
	} else {
		entry = &models.TrackedError{
			ID:              id,
			Category:        category,
			Severity:        severity,
			Message:         message,
			Context:         context,
			FirstOccurrence: now,
			LastOccurrence:  now,
			Count:           1,
		}
		if t.captureStacks {
			entry.Stack = string(debug.Stack())
		}
		t.errors[id] = entry
	}

	t.history = append(t.history, *entry)
	if len(t.history) > historyCap {
		t.history = t.history[len(t.history)-historyCap:]
	}

	tracked := *entry
	listeners := make([]Listener, len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	t.logger.Debug("error tracked",
		zap.String("id", tracked.ID),
		zap.String("category", string(tracked.Category)),
		zap.String("severity", string(tracked.Severity)),
		zap.Int("count", tracked.Count))

	for _, l := range listeners {
		l.OnErrorTracked(tracked)
	}
	return tracked
}

func (t *tracker) TrackError(err error, context map[string]string) models.TrackedError {
	return t.Track(err.Error(), "", models.SeverityMedium, context)
}

func (t *tracker) AttemptRecovery(id string) bool {
	t.mu.Lock()
	entry, ok := t.errors[id]
	if !ok || entry.Recovered {
		t.mu.Unlock()
		return false
	}
	strat := t.strategies[entry.Category]

	if strat.Action == models.ActionIgnore {
		entry.Recovered = true
		recovered := *entry
		listeners := make([]Listener, len(t.listeners))
		copy(listeners, t.listeners)
		t.mu.Unlock()
		for _, l := range listeners {
			l.OnErrorRecovered(recovered)
		}
		return true
	}

	if entry.RecoveryAttempts >= strat.MaxAttempts {
		t.mu.Unlock()
		return false
	}
	entry.RecoveryAttempts++
	action := models.RecoveryAction{
		ErrorID:  id,
		Category: entry.Category,
		Action:   strat.Action,
		Attempt:  entry.RecoveryAttempts,
	}
	stopCh := t.stopCh
	t.wg.Add(1)
	t.mu.Unlock()

	backoff := time.Duration(strat.BackoffMs*action.Attempt) * time.Millisecond
	go t.dispatchAfter(action, backoff, stopCh)
	return true
}

// dispatchAfter waits out the linear backoff and then notifies listeners.
// It runs on its own goroutine so recovery never blocks error ingestion,
// but Stop waits for any dispatch still in flight.
func (t *tracker) dispatchAfter(action models.RecoveryAction, backoff time.Duration, stopCh chan struct{}) {
	defer t.wg.Done()
	if backoff > 0 {
		timer := time.NewTimer(backoff)
		defer timer.Stop()
		if stopCh != nil {
			select {
			case <-timer.C:
			case <-stopCh:
				return
			}
		} else {
			<-timer.C
		}
	}
	action.Timestamp = time.Now()
	t.logger.Info("recovery action dispatched",
		zap.String("error_id", action.ErrorID),
		zap.String("action", string(action.Action)),
		zap.Int("attempt", action.Attempt))
	for _, l := range t.snapshotListeners() {
		l.OnRecoveryAction(action)
	}
}

func (t *tracker) MarkRecovered(id string) bool {
	t.mu.Lock()
	entry, ok := t.errors[id]
	if !ok || entry.Recovered {
		t.mu.Unlock()
		return false
	}
	entry.Recovered = true
	recovered := *entry
	listeners := make([]Listener, len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	t.logger.Info("error recovered", zap.String("id", id))
	for _, l := range listeners {
		l.OnErrorRecovered(recovered)
	}
	return true
}

func (t *tracker) Get(id string) (models.TrackedError, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.errors[id]
	if !ok {
		return models.TrackedError{}, false
	}
	return *entry, true
}

func (t *tracker) Errors() []models.TrackedError {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.TrackedError, 0, len(t.errors))
	for _, entry := range t.errors {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastOccurrence.After(out[j].LastOccurrence)
	})
	return out
}

func (t *tracker) History() []models.TrackedError {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.TrackedError, len(t.history))
	copy(out, t.history)
	return out
}

func (t *tracker) Strategy(category models.ErrorCategory) models.RecoveryStrategy {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.strategies[category]
}

func (t *tracker) SetStrategy(strategy models.RecoveryStrategy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strategies[strategy.Category] = strategy
}

func (t *tracker) SetCaptureStacks(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.captureStacks = enabled
}

func (t *tracker) Report() models.ErrorReport {
	t.mu.Lock()
	entries := make([]models.TrackedError, 0, len(t.errors))
	for _, entry := range t.errors {
		entries = append(entries, *entry)
	}
	since := t.trackingSince
	t.mu.Unlock()

	report := models.ErrorReport{
		Categories: make(map[models.ErrorCategory]models.CategoryStats),
		Timestamp:  time.Now(),
	}

	occurrences := 0
	resolved := 0
	for _, e := range entries {
		occurrences += e.Count
		stats := report.Categories[e.Category]
		if stats.BySeverity == nil {
			stats.BySeverity = make(map[models.ErrorSeverity]int)
		}
		stats.Total++
		stats.BySeverity[e.Severity]++
		stats.AverageRecoveryAttempts += float64(e.RecoveryAttempts)
		if e.Recovered {
			stats.Resolved++
			resolved++
		} else {
			stats.Unresolved++
			if e.Severity == models.SeverityCritical {
				report.CriticalErrors = append(report.CriticalErrors, e)
			}
		}
		report.Categories[e.Category] = stats
	}
	for category, stats := range report.Categories {
		stats.AverageRecoveryAttempts /= float64(stats.Total)
		report.Categories[category] = stats
	}

	report.TotalErrors = occurrences
	if elapsed := report.Timestamp.Sub(since).Seconds(); elapsed > 0 {
		report.ErrorRate = float64(occurrences) / elapsed * 60
	}
	if len(entries) > 0 {
		report.RecoveryRate = float64(resolved) / float64(len(entries)) * 100
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	if len(entries) > topErrorsLimit {
		entries = entries[:topErrorsLimit]
	}
	report.TopErrors = entries
	return report
}

// ThresholdAlerts evaluates a report against the escalation limits and
// returns alert payloads for every breached condition. IDs are assigned by
// the alerting system on creation.
func ThresholdAlerts(report models.ErrorReport) []models.Alert {
	var alerts []models.Alert

	if report.ErrorRate > errorRatePerMinuteLimit {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertHighErrorRate,
			Severity: models.AlertCritical,
			Title:    "High error rate",
			Message:  "error rate exceeds 10 errors per minute",
		})
	}
	if len(report.CriticalErrors) >= criticalUnresolvedLimit {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertCriticalErrors,
			Severity: models.AlertCritical,
			Title:    "Unresolved critical errors",
			Message:  "3 or more critical errors remain unresolved",
		})
	}
	total := 0
	for _, stats := range report.Categories {
		total += stats.Total
	}
	if total > 0 && report.RecoveryRate < recoveryRateFloor {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertLowRecoveryRate,
			Severity: models.AlertWarning,
			Title:    "Low recovery rate",
			Message:  "fewer than half of tracked errors have recovered",
		})
	}
	for category, stats := range report.Categories {
		if stats.Unresolved >= categoryUnresolvedLimit {
			alerts = append(alerts, models.Alert{
				Type:     models.AlertCategorySaturation,
				Severity: models.AlertWarning,
				Title:    "Error category saturated",
				Message:  string(category) + " has 5 or more unresolved errors",
				Metadata: map[string]string{"category": string(category)},
			})
		}
	}
	return alerts
}

func (t *tracker) Clear() {
	t.mu.Lock()
	t.errors = make(map[string]*models.TrackedError)
	t.history = nil
	t.trackingSince = time.Now()
	t.mu.Unlock()
	t.persist()
}
