package core

import (
	"log/slog"
	"time"
)

// TelemetryHook receives request lifecycle notifications.
//
// Event types intentionally carry only operational metadata: never API
// keys, never prompt or response content. They are safe to log or ship to
// monitoring systems as-is; keep that property when extending them.
type TelemetryHook interface {
	// OnRequestStart is called when a call to the API begins.
	OnRequestStart(e RequestStartEvent)

	// OnRetry is called each time the retry controller schedules another
	// attempt, before the backoff wait.
	OnRetry(e RetryEvent)

	// OnRequestEnd is called when a call completes, on every exit path.
	OnRequestEnd(e RequestEndEvent)
}

// RequestStartEvent describes a starting call.
type RequestStartEvent struct {
	Endpoint string // endpoint family, e.g. "responses", "chat"
	Model    string
	Start    time.Time
}

// RetryEvent describes one scheduled retry.
type RetryEvent struct {
	Endpoint string
	Attempt  int // the attempt that failed, 1-based
	Delay    time.Duration
	Err      *Error
}

// RequestEndEvent describes a completed call.
type RequestEndEvent struct {
	Endpoint string
	Model    string
	Start    time.Time
	End      time.Time
	Attempts int // total attempts made, >= 1
	Usage    Usage
	Err      error // nil on success
}

// Duration returns the elapsed time for the call.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook discards all events. Used as the default.
type NoopTelemetryHook struct{}

func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}
func (NoopTelemetryHook) OnRetry(RetryEvent)               {}
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent)     {}

var _ TelemetryHook = NoopTelemetryHook{}

// SlogTelemetryHook logs lifecycle events through a structured logger.
// The zero value logs through slog.Default.
type SlogTelemetryHook struct {
	Logger *slog.Logger
}

func (h SlogTelemetryHook) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// OnRequestStart logs the call start at debug level.
func (h SlogTelemetryHook) OnRequestStart(e RequestStartEvent) {
	h.logger().Debug("request start",
		"endpoint", e.Endpoint, "model", e.Model)
}

// OnRetry logs the scheduled retry at warn level.
func (h SlogTelemetryHook) OnRetry(e RetryEvent) {
	h.logger().Warn("retrying request",
		"endpoint", e.Endpoint,
		"attempt", e.Attempt,
		"delay", e.Delay,
		"kind", string(e.Err.Kind))
}

// OnRequestEnd logs the outcome: info on success, error on failure.
func (h SlogTelemetryHook) OnRequestEnd(e RequestEndEvent) {
	log := h.logger()
	if e.Err != nil {
		log.Error("request failed",
			"endpoint", e.Endpoint,
			"model", e.Model,
			"duration", e.Duration(),
			"attempts", e.Attempts,
			"error", e.Err)
		return
	}
	log.Info("request complete",
		"endpoint", e.Endpoint,
		"model", e.Model,
		"duration", e.Duration(),
		"attempts", e.Attempts,
		"total_tokens", e.Usage.TotalTokens)
}

var _ TelemetryHook = SlogTelemetryHook{}
