package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/fleet-backend/internal/data/aggregates"
)

// HooksRecorder captures aggregate hook signals in tests. It is safe for use
// from concurrent writers.
type HooksRecorder struct {
	mu sync.Mutex

	operations []OperationEvent
	conflicts  map[string]int
	retries    map[string]int
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.operations = append(h.operations, OperationEvent{Name: name, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conflicts == nil {
		h.conflicts = map[string]int{}
	}
	h.conflicts[name]++
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retries == nil {
		h.retries = map[string]int{}
	}
	h.retries[name]++
}

func (h *HooksRecorder) Operations() []OperationEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]OperationEvent(nil), h.operations...)
}

// StatusCount returns how many operations named name ended with status.
func (h *HooksRecorder) StatusCount(name, status string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, op := range h.operations {
		if op.Name == name && op.Status == status {
			n++
		}
	}
	return n
}

func (h *HooksRecorder) Conflicts(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conflicts[name]
}

func (h *HooksRecorder) Retries(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.retries[name]
}
