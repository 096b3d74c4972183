package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/fleet-backend/internal/observability"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

// Hooks captures aggregate-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type observabilityHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks creates aggregate hooks backed by observability metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{metrics: metrics}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	h.metrics.IncAggregateConflict(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncRetry(name string) {
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}

type logHooks struct {
	log  *logger.Logger
	next Hooks
}

// NewLogHooks logs conflicts and retries, then forwards every event to next.
func NewLogHooks(log *logger.Logger, next Hooks) Hooks {
	if next == nil {
		next = noopHooks{}
	}
	if log == nil {
		return next
	}
	return &logHooks{log: log.With("component", "AggregateHooks"), next: next}
}

func (h *logHooks) ObserveOperation(name, status string, dur time.Duration) {
	if status != "success" {
		h.log.Warn("aggregate write failed", "op", name, "status", status, "duration_ms", dur.Milliseconds())
	}
	h.next.ObserveOperation(name, status, dur)
}

func (h *logHooks) IncConflict(name string) {
	h.log.Warn("aggregate write gave up on version conflict", "op", name)
	h.next.IncConflict(name)
}

func (h *logHooks) IncRetry(name string) {
	h.log.Debug("aggregate write retrying after version conflict", "op", name)
	h.next.IncRetry(name)
}
