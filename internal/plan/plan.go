package plan

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvariant marks a malformed plan or result. It indicates a broken
// internal contract, not an external failure, and is the only error class
// that aborts a request.
var ErrInvariant = errors.New("plan invariant violation")

// ErrorKind classifies why a step (or the whole run) failed.
type ErrorKind string

const (
	KindTimeout         ErrorKind = "timeout"
	KindUnreachable     ErrorKind = "unreachable"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindRemoteRejected  ErrorKind = "remote_rejected"
	KindPlanTimeout     ErrorKind = "plan_timeout"
	KindNotFound        ErrorKind = "not_found"
)

// Outcome is the tag of a StepResult variant.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// StepResult is the immutable record of one step's execution.
type StepResult struct {
	Outcome Outcome        `json:"outcome"`
	Output  map[string]any `json:"output,omitempty"`
	Elapsed time.Duration  `json:"elapsed,omitempty"`
	ErrKind ErrorKind      `json:"error_kind,omitempty"`
	Message string         `json:"message,omitempty"`
	Reason  string         `json:"reason,omitempty"`
}

func Succeeded(output map[string]any, elapsed time.Duration) StepResult {
	return StepResult{Outcome: OutcomeSuccess, Output: output, Elapsed: elapsed}
}

func Failed(kind ErrorKind, message string) StepResult {
	return StepResult{Outcome: OutcomeFailed, ErrKind: kind, Message: message}
}

func Skipped(reason string) StepResult {
	return StepResult{Outcome: OutcomeSkipped, Reason: reason}
}

// ParamValue is either a literal or a back-reference to an output field of
// an earlier step. FromStep is -1 for literals.
type ParamValue struct {
	Literal  string `json:"literal,omitempty"`
	FromStep int    `json:"from_step"`
	Field    string `json:"field,omitempty"`
}

func Literal(v string) ParamValue {
	return ParamValue{Literal: v, FromStep: -1}
}

func FromStep(idx int, field string) ParamValue {
	return ParamValue{FromStep: idx, Field: field}
}

func (p ParamValue) IsRef() bool { return p.FromStep >= 0 }

// Step is one scheduled invocation of a capability service operation.
// The endpoint is resolved at build time so a registry reload mid-traffic
// never changes where an already-built plan points.
type Step struct {
	Index       int                   `json:"index"`
	ServiceKey  string                `json:"service_key"`
	ServiceName string                `json:"service_name"`
	Operation   string                `json:"operation"`
	BaseURL     string                `json:"base_url"`
	Path        string                `json:"path"`
	Params      map[string]ParamValue `json:"params"`
	DependsOn   int                   `json:"depends_on"` // -1 when independent
	Timeout     time.Duration         `json:"timeout"`
	MaxAttempts int                   `json:"max_attempts"`
}

// Plan is an ordered sequence of steps for a single query. It is frozen
// after construction and consumed exactly once.
type Plan struct {
	Query  string        `json:"query"`
	Budget time.Duration `json:"budget"`
	Steps  []Step        `json:"steps"`
}

// Validate checks the acyclic-by-construction property: every dependency
// index points strictly backwards.
func (p *Plan) Validate() error {
	for i, s := range p.Steps {
		if s.Index != i {
			return fmt.Errorf("%w: step at position %d carries index %d", ErrInvariant, i, s.Index)
		}
		if s.DependsOn >= s.Index {
			return fmt.Errorf("%w: step %d depends on step %d", ErrInvariant, s.Index, s.DependsOn)
		}
		if s.DependsOn < -1 {
			return fmt.Errorf("%w: step %d has dependency index %d", ErrInvariant, s.Index, s.DependsOn)
		}
	}
	return nil
}

// HasDependents reports whether any later step depends on idx.
func (p *Plan) HasDependents(idx int) bool {
	for _, s := range p.Steps {
		if s.DependsOn == idx {
			return true
		}
	}
	return false
}

// RunContext holds the step results accumulated while one plan runs. It is
// owned by a single runner and never shared across requests.
type RunContext struct {
	results map[int]StepResult
}

func NewRunContext() *RunContext {
	return &RunContext{results: make(map[int]StepResult)}
}

func (rc *RunContext) Record(idx int, res StepResult) {
	rc.results[idx] = res
}

func (rc *RunContext) Get(idx int) (StepResult, bool) {
	res, ok := rc.results[idx]
	return res, ok
}

// Status is the terminal state of a plan run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partially_completed"
	StatusFailed    Status = "failed"
)

// StepOutcome pairs a step with its recorded result, in execution order.
type StepOutcome struct {
	Step   Step       `json:"step"`
	Result StepResult `json:"result"`
}

// WorkflowResult is the terminal state of a plan run, handed to the
// synthesizer and then discarded.
type WorkflowResult struct {
	RunID    string        `json:"run_id"`
	Query    string        `json:"query"`
	Status   Status        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Outcomes []StepOutcome `json:"outcomes"`
}

// ComputeStatus derives the terminal status from the multiset of result
// kinds: all success, mixed, or no success at all.
func ComputeStatus(outcomes []StepOutcome) Status {
	successes := 0
	for _, o := range outcomes {
		if o.Result.Outcome == OutcomeSuccess {
			successes++
		}
	}
	switch {
	case len(outcomes) == 0:
		return StatusFailed
	case successes == len(outcomes):
		return StatusCompleted
	case successes > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// SuccessPayloads returns the outputs of successful steps in execution order.
func (w *WorkflowResult) SuccessPayloads() []map[string]any {
	var payloads []map[string]any
	for _, o := range w.Outcomes {
		if o.Result.Outcome == OutcomeSuccess {
			payloads = append(payloads, o.Result.Output)
		}
	}
	return payloads
}
