package observability

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhasePlanning     Phase = "PLANNING"
	PhaseExecuting    Phase = "EXECUTING"
	PhaseSynthesizing Phase = "SYNTH"
)

type SystemStatus struct {
	mu            sync.RWMutex
	CurrentPhase  Phase
	ActiveQuery   string
	LastHeartbeat time.Time
	serviceHealth map[string]bool
}

var globalStatus = &SystemStatus{
	CurrentPhase:  PhaseIdle,
	LastHeartbeat: time.Now(),
	serviceHealth: make(map[string]bool),
}

// SetStatus updates the global system status.
func SetStatus(phase Phase, query string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.CurrentPhase = phase
	globalStatus.ActiveQuery = query
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (Phase, string, time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.CurrentPhase, globalStatus.ActiveQuery, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}

// SetServiceHealth records the latest health probe result for a service.
func SetServiceHealth(key string, healthy bool) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.serviceHealth[key] = healthy
}

// ServiceHealth returns how many probed services are healthy and the
// total number probed so far.
func ServiceHealth() (healthy, total int) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	for _, ok := range globalStatus.serviceHealth {
		total++
		if ok {
			healthy++
		}
	}
	return healthy, total
}
