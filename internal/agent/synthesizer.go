package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/minwoo/labpilot/internal/observability"
	"github.com/minwoo/labpilot/internal/plan"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// FinalAnswer is what the caller always receives, even in total failure.
type FinalAnswer struct {
	RunID  string      `json:"run_id"`
	Text   string      `json:"text"`
	Status plan.Status `json:"status"`
}

// Synthesizer turns a workflow result into a user-facing answer,
// delegating text generation to the language-model collaborator. It
// never fails for a well-formed result: when generation is unavailable
// it falls back to a deterministic summary.
type Synthesizer struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewSynthesizer(model llms.Model, prompts *PromptManager, logger *observability.Logger) *Synthesizer {
	return &Synthesizer{Model: model, Prompts: prompts, Logger: logger}
}

func (s *Synthesizer) Synthesize(ctx context.Context, wr *plan.WorkflowResult) FinalAnswer {
	answer := FinalAnswer{RunID: wr.RunID, Status: wr.Status}

	promptContext := s.buildContext(wr)

	text, generated := s.generate(ctx, wr, promptContext)
	answer.Text = text

	if s.Logger != nil {
		s.Logger.LogSynthesis(wr.RunID, string(wr.Status), generated)
	}
	return answer
}

// buildContext assembles the successful payloads plus plain-language
// notes about unavailable capabilities. Internal error identifiers stay
// internal.
func (s *Synthesizer) buildContext(wr *plan.WorkflowResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User query: %s\n", wr.Query)

	for _, o := range wr.Outcomes {
		switch o.Result.Outcome {
		case plan.OutcomeSuccess:
			payload, err := json.Marshal(o.Result.Output)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "\nResults from %s:\n%s\n", o.Step.ServiceName, payload)
		case plan.OutcomeFailed:
			fmt.Fprintf(&b, "\nNote: the %s capability was unavailable, so its results are missing.\n", o.Step.ServiceName)
		case plan.OutcomeSkipped:
			fmt.Fprintf(&b, "\nNote: the %s step was skipped because the data it needed was unavailable.\n", o.Step.ServiceName)
		}
	}

	if len(wr.Outcomes) == 0 {
		fmt.Fprintf(&b, "\nNo capability service matched this query (%s).\n", wr.Reason)
	}
	return b.String()
}

func (s *Synthesizer) generate(ctx context.Context, wr *plan.WorkflowResult, promptContext string) (string, bool) {
	if s.Model == nil {
		return s.fallback(wr), false
	}

	systemPrompt := ""
	if s.Prompts != nil {
		sp, err := s.Prompts.GetSynthesisPrompt()
		if err != nil {
			log.Printf("Warning: Failed to load synthesis prompt: %v", err)
		}
		systemPrompt = sp

		if wr.Status != plan.StatusCompleted {
			if dp, err := s.Prompts.GetDegradedPrompt(); err == nil {
				systemPrompt += "\n\n" + dp
			}
		}
	}

	var messages []llms.MessageContent
	if systemPrompt != "" {
		messages = append(messages, llms.MessageContent{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  schema.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(promptContext)},
	})

	resp, err := s.Model.GenerateContent(ctx, messages)
	if err != nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		if err != nil {
			log.Printf("Warning: answer generation failed: %v", err)
		}
		return s.fallback(wr), false
	}

	if s.Logger != nil {
		s.Logger.LogLLM(wr.RunID, promptContext, resp.Choices[0].Content)
	}
	return resp.Choices[0].Content, true
}

// fallback produces a best-effort deterministic answer when the model is
// unavailable.
func (s *Synthesizer) fallback(wr *plan.WorkflowResult) string {
	var b strings.Builder

	switch wr.Status {
	case plan.StatusCompleted:
		b.WriteString("Here is what I found:\n")
	case plan.StatusPartial:
		b.WriteString("I could only answer part of your question; some services were unavailable.\n")
	default:
		if len(wr.Outcomes) == 0 {
			b.WriteString("I couldn't find a service able to answer that. Try asking about workshops, your skills, or your progress.")
			return b.String()
		}
		b.WriteString("I couldn't answer that right now; the services I needed were unavailable. Please try again shortly.\n")
	}

	for _, o := range wr.Outcomes {
		switch o.Result.Outcome {
		case plan.OutcomeSuccess:
			payload, err := json.Marshal(o.Result.Output)
			if err == nil {
				fmt.Fprintf(&b, "\n%s: %s\n", o.Step.ServiceName, payload)
			}
		case plan.OutcomeFailed:
			fmt.Fprintf(&b, "\n%s was unavailable.\n", o.Step.ServiceName)
		case plan.OutcomeSkipped:
			fmt.Fprintf(&b, "\n%s was skipped because required data was missing.\n", o.Step.ServiceName)
		}
	}
	return strings.TrimSpace(b.String())
}
