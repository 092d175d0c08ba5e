package agents

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/prompts"
	"github.com/jonathan/recruiter-agent/internal/schemas"
)

// generateRequest describes one structured model call
type generateRequest struct {
	agent       string
	systemKey   string
	promptKey   string
	data        map[string]string
	tier        llm.ModelTier
	temperature float32
	schema      string
}

// generateJSON renders the prompt, calls the model, validates the JSON against the
// agent's schema and decodes it into out.
func generateJSON(ctx context.Context, client llm.Client, req generateRequest, out any) error {
	system, err := prompts.Get(prompts.AgentsFile, req.systemKey)
	if err != nil {
		return &APICallError{Agent: req.agent, Message: "failed to load system prompt", Cause: err}
	}
	prompt, err := prompts.Render(prompts.AgentsFile, req.promptKey, req.data)
	if err != nil {
		return &APICallError{Agent: req.agent, Message: "failed to build prompt", Cause: err}
	}

	text, err := client.GenerateJSON(ctx, prompt, req.tier,
		llm.WithSystemInstruction(system),
		llm.WithTemperature(req.temperature),
	)
	if err != nil {
		return &APICallError{Agent: req.agent, Message: "model call failed", Cause: err}
	}

	text = llm.ExtractJSON(text)
	if err := schemas.Validate(req.schema, text); err != nil {
		return &ParseError{Agent: req.agent, Message: "response does not match schema", Cause: err}
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &ParseError{Agent: req.agent, Message: "failed to decode response", Cause: err}
	}
	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none listed)"
	}
	return strings.Join(items, ", ")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not provided)"
	}
	return s
}
