package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeQuery     EventType = "query"
	EventTypeMatch     EventType = "match"
	EventTypePlan      EventType = "plan"
	EventTypeStep      EventType = "step"
	EventTypeInvoke    EventType = "invoke"
	EventTypeSynthesis EventType = "synthesis"
	EventTypeHealth    EventType = "health"
	EventTypeHeartbeat EventType = "heartbeat"
	EventTypeLLM       EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Service   string    `json:"service,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogQuery(runID, query string) {
	l.Log(Event{
		Type:  EventTypeQuery,
		RunID: runID,
		Data:  map[string]string{"query": query},
	})
}

func (l *Logger) LogMatch(runID string, candidates any) {
	l.Log(Event{
		Type:  EventTypeMatch,
		RunID: runID,
		Data:  candidates,
	})
}

func (l *Logger) LogPlan(runID string, steps int, budget time.Duration) {
	l.Log(Event{
		Type:  EventTypePlan,
		RunID: runID,
		Data: map[string]any{
			"steps":  steps,
			"budget": budget.String(),
		},
	})
}

func (l *Logger) LogStep(runID, service, operation, outcome, detail string) {
	l.Log(Event{
		Type:    EventTypeStep,
		RunID:   runID,
		Service: service,
		Data: map[string]string{
			"operation": operation,
			"outcome":   outcome,
			"detail":    detail,
		},
	})
}

func (l *Logger) LogSynthesis(runID, status string, generated bool) {
	l.Log(Event{
		Type:  EventTypeSynthesis,
		RunID: runID,
		Data: map[string]any{
			"status":    status,
			"generated": generated,
		},
	})
}

func (l *Logger) LogHealth(service string, healthy bool) {
	l.Log(Event{
		Type:    EventTypeHealth,
		Service: service,
		Data:    map[string]bool{"healthy": healthy},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(runID string, prompt any, response string) {
	l.Log(Event{
		Type:  EventTypeLLM,
		RunID: runID,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}
