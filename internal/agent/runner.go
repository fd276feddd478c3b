package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minwoo/labpilot/internal/observability"
	"github.com/minwoo/labpilot/internal/plan"
)

// Runner drives an execution plan step by step. Steps run strictly in
// plan order; each result is recorded in the run context before the next
// step is attempted, so later steps can resolve back-references.
type Runner struct {
	Executor *Executor
	Logger   *observability.Logger
}

func NewRunner(executor *Executor, logger *observability.Logger) *Runner {
	return &Runner{Executor: executor, Logger: logger}
}

// Run executes p and returns its terminal state. A nil plan is the
// NoPlan case and short-circuits to a Failed result carrying a
// no-matching-service reason. The only returned error is an invariant
// violation in the plan itself.
func (r *Runner) Run(ctx context.Context, runID string, p *plan.Plan) (*plan.WorkflowResult, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	if p == nil {
		return &plan.WorkflowResult{
			RunID:  runID,
			Status: plan.StatusFailed,
			Reason: "no matching service",
		}, nil
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to run plan: %w", err)
	}

	deadline := time.Now().Add(p.Budget)
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	rc := plan.NewRunContext()
	outcomes := make([]plan.StepOutcome, 0, len(p.Steps))

	for _, step := range p.Steps {
		var res plan.StepResult
		if runCtx.Err() != nil || !time.Now().Before(deadline) {
			// Budget exhausted: abandon anything in flight and stop
			// issuing new invocations.
			res = plan.Skipped("plan timeout")
		} else {
			res = r.Executor.Execute(runCtx, runID, step, rc)
		}

		rc.Record(step.Index, res)
		outcomes = append(outcomes, plan.StepOutcome{Step: step, Result: res})

		if r.Logger != nil {
			r.Logger.LogStep(runID, step.ServiceKey, step.Operation, string(res.Outcome), stepDetail(res))
		}
	}

	return &plan.WorkflowResult{
		RunID:    runID,
		Query:    p.Query,
		Status:   plan.ComputeStatus(outcomes),
		Outcomes: outcomes,
	}, nil
}

func stepDetail(res plan.StepResult) string {
	switch res.Outcome {
	case plan.OutcomeFailed:
		return string(res.ErrKind) + ": " + res.Message
	case plan.OutcomeSkipped:
		return res.Reason
	default:
		return res.Elapsed.String()
	}
}
