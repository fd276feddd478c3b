package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minwoo/labpilot/internal/governance"
	"github.com/minwoo/labpilot/internal/invoker"
	"github.com/minwoo/labpilot/internal/observability"
	"github.com/minwoo/labpilot/internal/plan"
)

// Executor runs a single plan step: it resolves the parameter template
// against prior results, enforces the invocation policy, and calls the
// service through the injected invoker.
type Executor struct {
	Invoker invoker.Invoker
	Policy  governance.PolicyEngine
	Logger  *observability.Logger
}

func NewExecutor(inv invoker.Invoker, policy governance.PolicyEngine, logger *observability.Logger) *Executor {
	return &Executor{Invoker: inv, Policy: policy, Logger: logger}
}

// Execute returns the step's result as a value; it never aborts the run.
// An unsatisfied dependency is the only automatic short-circuit: the
// service is not invoked and the step is recorded Skipped.
func (e *Executor) Execute(ctx context.Context, runID string, step plan.Step, rc *plan.RunContext) plan.StepResult {
	params, skip := e.resolveParams(step, rc)
	if skip != "" {
		return plan.Skipped(skip)
	}

	if e.Policy != nil {
		args, _ := json.Marshal(params)
		verdict, err := e.Policy.Evaluate(ctx, governance.Request{
			Service:   step.ServiceKey,
			Operation: step.Operation,
			Arguments: string(args),
			RunID:     runID,
		})
		if err == nil && verdict.Effect == governance.EffectDeny {
			return plan.Skipped("blocked by policy: " + verdict.Reason)
		}
	}

	attempts := step.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last plan.StepResult
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		output, err := e.Invoker.Invoke(ctx, step.BaseURL, step.Path, params, step.Timeout)
		if err == nil {
			return plan.Succeeded(output, time.Since(start))
		}

		kind, msg := invoker.Classify(err)
		last = plan.Failed(kind, msg)
		if e.Logger != nil {
			e.Logger.LogStep(runID, step.ServiceKey, step.Operation, string(plan.OutcomeFailed),
				fmt.Sprintf("attempt %d/%d: %s", attempt, attempts, msg))
		}

		// Retries share the plan budget: once it is gone, return the
		// last failure instead of queueing more attempts.
		if ctx.Err() != nil {
			break
		}
	}
	return last
}

// resolveParams materializes the parameter template. A back-reference to
// a step that did not succeed, or to a missing output field, means the
// dependency is not satisfied.
func (e *Executor) resolveParams(step plan.Step, rc *plan.RunContext) (map[string]any, string) {
	if step.DependsOn >= 0 {
		dep, ok := rc.Get(step.DependsOn)
		if !ok || dep.Outcome != plan.OutcomeSuccess {
			return nil, "dependency not satisfied"
		}
	}

	params := make(map[string]any, len(step.Params))
	for name, value := range step.Params {
		if !value.IsRef() {
			params[name] = value.Literal
			continue
		}

		dep, ok := rc.Get(value.FromStep)
		if !ok || dep.Outcome != plan.OutcomeSuccess {
			return nil, "dependency not satisfied"
		}
		field, ok := dep.Output[value.Field]
		if !ok {
			return nil, fmt.Sprintf("dependency output missing field %q", value.Field)
		}
		params[name] = field
	}
	return params, ""
}
