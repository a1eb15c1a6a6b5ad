package monitor

import (
	"time"

	"github.com/forgelabs/forgemon/pkg/models"
)

// SystemListener receives every event the monitoring system emits. Callbacks
// run synchronously on monitoring goroutines and must not block.
type SystemListener interface {
	OnHealthUpdate(models.SystemHealth)
	OnStatusChange(models.StatusChange)
	OnPerformanceReport(models.PerformanceReport)
	OnPerformanceAlert(models.ThresholdAlert)
	OnErrorTracked(models.TrackedError)
	OnErrorRecovered(models.TrackedError)
	OnErrorReport(models.ErrorReport)
	OnAlert(models.Alert)
	OnNotification(models.Notification)
	OnRollback(models.RemediationIntent)
	OnRestart(models.RemediationIntent)
	OnStarted(time.Time)
	OnStopped(time.Time)
}

// BaseListener is a no-op SystemListener for embedding, so consumers only
// override the events they care about.
type BaseListener struct{}

func (BaseListener) OnHealthUpdate(models.SystemHealth)           {}
func (BaseListener) OnStatusChange(models.StatusChange)           {}
func (BaseListener) OnPerformanceReport(models.PerformanceReport) {}
func (BaseListener) OnPerformanceAlert(models.ThresholdAlert)     {}
func (BaseListener) OnErrorTracked(models.TrackedError)           {}
func (BaseListener) OnErrorRecovered(models.TrackedError)         {}
func (BaseListener) OnErrorReport(models.ErrorReport)             {}
func (BaseListener) OnAlert(models.Alert)                         {}
func (BaseListener) OnNotification(models.Notification)           {}
func (BaseListener) OnRollback(models.RemediationIntent)          {}
func (BaseListener) OnRestart(models.RemediationIntent)           {}
func (BaseListener) OnStarted(time.Time)                          {}
func (BaseListener) OnStopped(time.Time)                          {}
