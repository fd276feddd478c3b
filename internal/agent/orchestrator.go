package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/minwoo/labpilot/internal/intent"
	"github.com/minwoo/labpilot/internal/observability"
	"github.com/minwoo/labpilot/internal/plan"
	"github.com/minwoo/labpilot/internal/registry"
	"github.com/minwoo/labpilot/internal/store"
)

// Orchestrator composes matching, planning, execution and synthesis into
// the single caller-facing operation.
type Orchestrator struct {
	Registry    *registry.Registry
	Matcher     *intent.Matcher
	Builder     *plan.Builder
	Runner      *Runner
	Synthesizer *Synthesizer
	History     *store.HistoryStore
	Logger      *observability.Logger
}

func NewOrchestrator(reg *registry.Registry, matcher *intent.Matcher, builder *plan.Builder, runner *Runner, synth *Synthesizer, history *store.HistoryStore, logger *observability.Logger) *Orchestrator {
	return &Orchestrator{
		Registry:    reg,
		Matcher:     matcher,
		Builder:     builder,
		Runner:      runner,
		Synthesizer: synth,
		History:     history,
		Logger:      logger,
	}
}

// HandleQuery plans and executes one request end to end and always
// produces a FinalAnswer for external failures. The returned error is
// non-nil only for an internal invariant violation.
func (o *Orchestrator) HandleQuery(ctx context.Context, query string) (FinalAnswer, error) {
	runID := uuid.NewString()

	if o.Logger != nil {
		o.Logger.LogQuery(runID, query)
	}
	observability.SetStatus(observability.PhasePlanning, query)
	defer observability.SetStatus(observability.PhaseIdle, "")

	// The enabled set is read once per request: the plan keeps the
	// endpoints it was built against even if the registry reloads.
	services := o.Registry.Enabled()
	candidates := o.Matcher.Match(services, query)

	if o.Logger != nil {
		o.Logger.LogMatch(runID, matchSummary(candidates))
	}

	p := o.Builder.Build(query, candidates)
	if p != nil && o.Logger != nil {
		o.Logger.LogPlan(runID, len(p.Steps), p.Budget)
	}

	observability.SetStatus(observability.PhaseExecuting, query)
	result, err := o.Runner.Run(ctx, runID, p)
	if err != nil {
		return FinalAnswer{}, fmt.Errorf("handle query: %w", err)
	}
	result.Query = query

	observability.SetStatus(observability.PhaseSynthesizing, query)
	answer := o.Synthesizer.Synthesize(ctx, result)

	if o.History != nil {
		if err := o.History.RecordRequest(runID, query, string(answer.Status), answer.Text, result.Outcomes); err != nil && o.Logger != nil {
			o.Logger.Log(observability.Event{
				Type:  observability.EventTypeQuery,
				RunID: runID,
				Data:  map[string]string{"history_error": err.Error()},
			})
		}
	}

	return answer, nil
}

func matchSummary(candidates []intent.Candidate) []map[string]any {
	out := make([]map[string]any, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, map[string]any{
			"service": c.Service.Key,
			"score":   c.Score,
			"matched": c.Matched,
		})
	}
	return out
}
