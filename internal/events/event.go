// Package events provides the per-job event mailboxes that carry pipeline progress to live observers.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of pipeline event.
type Type string

// Event types emitted by the pipeline orchestrator.
const (
	TypePipelineStart    Type = "pipeline_start"
	TypeAgentStart       Type = "agent_start"
	TypeAgentProgress    Type = "agent_progress"
	TypeAgentComplete    Type = "agent_complete"
	TypePipelineComplete Type = "pipeline_complete"
	TypePipelineError    Type = "pipeline_error"
)

// Agent names carried by agent_* events.
const (
	AgentSourcing    = "sourcing"
	AgentMatching    = "matching"
	AgentPitchWriter = "pitch_writer"
)

// IsTerminal reports whether t ends a job's event stream.
func (t Type) IsTerminal() bool {
	return t == TypePipelineComplete || t == TypePipelineError
}

// Event is a single progress notification for a job.
type Event struct {
	Type      Type      `json:"type"`
	JobID     uuid.UUID `json:"job_id"`
	Agent     string    `json:"agent,omitempty"`
	Count     int       `json:"count,omitempty"`
	Total     int       `json:"total,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
